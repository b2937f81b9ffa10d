// Package content defines the course hierarchy shared by every stage of the
// generation pipeline: Course → Unit → Lesson → Challenge → ChallengeOption.
package content

import (
	"fmt"
	"strings"
)

// Intent selects what a generation run produces.
type Intent string

const (
	IntentAssessment Intent = "ASSESSMENT"
	IntentCurriculum Intent = "CURRICULUM"
	IntentAdaptive   Intent = "ADAPTIVE"
)

// ParseIntent accepts an intent name in any case.
func ParseIntent(s string) (Intent, error) {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentAssessment:
		return IntentAssessment, nil
	case IntentCurriculum:
		return IntentCurriculum, nil
	case IntentAdaptive:
		return IntentAdaptive, nil
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// Purpose is the label recorded with LLM request events for this intent.
func (i Intent) Purpose() string {
	return strings.ToLower(string(i))
}

// ChallengeType is the closed set of challenge kinds.
type ChallengeType string

const (
	ChallengeSelect ChallengeType = "SELECT"
	ChallengeAssist ChallengeType = "ASSIST"
)

// Valid reports whether t is a known challenge type.
func (t ChallengeType) Valid() bool {
	return t == ChallengeSelect || t == ChallengeAssist
}

// UnitKind distinguishes the per-course Assessment unit from ordinary units.
type UnitKind string

const (
	UnitContent    UnitKind = "content"
	UnitAssessment UnitKind = "assessment"
)

const (
	AssessmentUnitTitle       = "Assessment"
	AssessmentUnitDescription = "Initial assessment to determine your skill level"
	AssessmentUnitOrder       = 0
)

type Course struct {
	ID       int64
	Title    string
	Language string
	ImageSrc string
}

type Unit struct {
	ID          int64
	CourseID    int64
	Title       string
	Description string
	Order       int
	Kind        UnitKind

	// DiagnosticLessonID is set only on the Assessment unit.
	DiagnosticLessonID int64
}

type Lesson struct {
	ID     int64
	UnitID int64
	Title  string
	Order  int
}

type Challenge struct {
	ID       int64
	LessonID int64
	Type     ChallengeType
	Question string
	Order    int
	Topic    string
	Options  []ChallengeOption
}

type ChallengeOption struct {
	ID          int64
	ChallengeID int64
	Text        string
	Correct     bool
	ImageSrc    string
	AudioSrc    string
}

// CourseTree is a course with its full nested content, ordered by sort order
// at every level.
type CourseTree struct {
	Course Course
	Units  []UnitTree
}

type UnitTree struct {
	Unit    Unit
	Lessons []LessonTree
}

type LessonTree struct {
	Lesson     Lesson
	Challenges []Challenge
}

// LessonCount returns the number of lessons across all units.
func (t *CourseTree) LessonCount() int {
	n := 0
	for _, u := range t.Units {
		n += len(u.Lessons)
	}
	return n
}
