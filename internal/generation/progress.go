package generation

import (
	"context"
	"strings"

	"github.com/linguaforge/linguaforge/internal/assessment"
	"github.com/linguaforge/linguaforge/internal/prompt"
)

// Progress reports a learner's completion and skill level in a course.
func (o *Orchestrator) Progress(ctx context.Context, userID string, courseID int64) (*assessment.Report, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &prompt.ConfigurationError{Field: "userId", Reason: "required"}
	}
	if _, err := o.course(ctx, courseID); err != nil {
		return nil, err
	}
	return o.reporter.Progress(ctx, userID, courseID)
}
