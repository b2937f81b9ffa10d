package validate

import (
	"errors"
	"fmt"
)

// MalformedOutputError means no JSON object could be decoded from the
// model's output.
type MalformedOutputError struct {
	// Snippet is the start of the offending output.
	Snippet string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output %q: %v", e.Snippet, e.Err)
	}
	return fmt.Sprintf("malformed model output %q", e.Snippet)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// SchemaViolationError reports the first field that breaks the output
// contract. Path is a JSON pointer such as /units/0/lessons/1/title.
type SchemaViolationError struct {
	Path   string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation at %s: %s", pathOrRoot(e.Path), e.Reason)
}

// SemanticViolationError reports well-formed content that breaks a content
// rule, e.g. two correct options.
type SemanticViolationError struct {
	Rule   string
	Path   string
	Reason string
}

func (e *SemanticViolationError) Error() string {
	return fmt.Sprintf("semantic violation (%s) at %s: %s", e.Rule, pathOrRoot(e.Path), e.Reason)
}

// Retryable reports whether asking the model again may fix err. Only
// decoding and contract failures qualify.
func Retryable(err error) bool {
	var malformed *MalformedOutputError
	var schema *SchemaViolationError
	return errors.As(err, &malformed) || errors.As(err, &schema)
}

func pathOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
