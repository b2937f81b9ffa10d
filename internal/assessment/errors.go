package assessment

import "fmt"

// InsufficientDataError indicates there are no outcomes to score.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient assessment data: %s", e.Reason)
}
