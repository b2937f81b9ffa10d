package store

import (
	"context"
	"time"

	"github.com/linguaforge/linguaforge/internal/content"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // LLM events only
	RunID   string    // generation run that made the call
	Intent  string    // generation events only
}

// ContentRepo reads and appends to the course hierarchy. Repos returned by
// Store.InTx share one transaction; the Lock methods only take effect there.
type ContentRepo interface {
	CreateCourse(ctx context.Context, c *content.Course) (int64, error)
	GetCourse(ctx context.Context, id int64) (*content.Course, error)
	ListCourses(ctx context.Context) ([]content.Course, error)

	GetUnit(ctx context.Context, id int64) (*content.Unit, error)
	// FindAssessmentUnit returns nil when the course has none.
	FindAssessmentUnit(ctx context.Context, courseID int64) (*content.Unit, error)
	ListUnits(ctx context.Context, courseID int64) ([]content.Unit, error)

	GetLesson(ctx context.Context, id int64) (*content.Lesson, error)
	ListLessons(ctx context.Context, unitID int64) ([]content.Lesson, error)

	// ListChallenges returns the lesson's challenges with their options.
	ListChallenges(ctx context.Context, lessonID int64) ([]content.Challenge, error)

	CourseTree(ctx context.Context, courseID int64) (*content.CourseTree, error)

	// LockCourse and LockUnit take a row lock on the parent for the rest of
	// the transaction.
	LockCourse(ctx context.Context, courseID int64) error
	LockUnit(ctx context.Context, unitID int64) error

	// MaxUnitOrder and MaxLessonOrder return 0 for a parent with no children.
	MaxUnitOrder(ctx context.Context, courseID int64) (int, error)
	MaxLessonOrder(ctx context.Context, unitID int64) (int, error)

	InsertUnit(ctx context.Context, u *content.Unit) (int64, error)
	InsertLesson(ctx context.Context, l *content.Lesson) (int64, error)
	InsertChallenge(ctx context.Context, c *content.Challenge) (int64, error)
	InsertOption(ctx context.Context, o *content.ChallengeOption) (int64, error)
	SetDiagnosticLesson(ctx context.Context, unitID, lessonID int64) error
}

// ProgressRecord is one learner's completion state for one challenge.
type ProgressRecord struct {
	UserID      string
	ChallengeID int64
	Completed   bool
	TimeSpent   time.Duration
	CompletedAt time.Time
}

// ProgressRepo stands in for the progress tracker. Outcomes are returned
// oldest first.
type ProgressRepo interface {
	RecordProgress(ctx context.Context, rec ProgressRecord) error
	OutcomesForLesson(ctx context.Context, userID string, lessonID int64) ([]content.ChallengeOutcome, error)
	OutcomesForUnit(ctx context.Context, userID string, unitID int64) ([]content.ChallengeOutcome, error)
	OutcomesForCourse(ctx context.Context, userID string, courseID int64) ([]content.ChallengeOutcome, error)
	LessonChallengeIDs(ctx context.Context, courseID int64) (map[int64][]int64, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	RunID        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageStat aggregates LLM usage for one purpose.
type UsageStat struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates LLM usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// GenerationRunData captures the outcome of one generation run.
type GenerationRunData struct {
	RunID          string
	Intent         string
	UserID         string
	CourseID       int64
	UnitID         int64
	FinalState     string
	ModelCalls     int
	UnitsCreated   int
	LessonsCreated int
	ErrorMessage   string
	Duration       time.Duration
}

// GenerationRunRecord is a stored generation run.
type GenerationRunRecord struct {
	ID        int64
	Sequence  int64
	Timestamp time.Time
	GenerationRunData
}

// EventRepo provides append and query access to the event logs.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)
	// GetLLMEvent returns nil when no event has the id.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEventRecord, error)
	LLMUsageByPurpose(ctx context.Context) ([]UsageStat, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)

	// AppendGenerationRun records the final state of a generation run.
	AppendGenerationRun(ctx context.Context, data GenerationRunData) error
	QueryGenerationRuns(ctx context.Context, opts QueryOpts) ([]GenerationRunRecord, error)
}
