package generation

import (
	"fmt"

	"github.com/linguaforge/linguaforge/internal/content"
)

// GenerationFailedError is the terminal error of a run whose model output
// could not be turned into persisted content. Cause holds the last
// underlying error.
type GenerationFailedError struct {
	Intent   content.Intent
	Stage    State
	Attempts int
	Cause    error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("%s generation failed during %s after %d model call(s): %v",
		e.Intent, e.Stage, e.Attempts, e.Cause)
}

func (e *GenerationFailedError) Unwrap() error { return e.Cause }

// UpstreamUnavailableError indicates the model service could not be reached
// or did not answer in time, retries included.
type UpstreamUnavailableError struct {
	Intent content.Intent
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("model service unavailable for %s: %v", e.Intent, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error { return e.Err }
