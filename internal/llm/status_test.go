package llm

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestApiFailure(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		status    int
		transient bool
		rejected  bool
	}{
		{0, true, false},
		{http.StatusRequestTimeout, true, false},
		{http.StatusConflict, true, false},
		{http.StatusTooManyRequests, true, false},
		{http.StatusInternalServerError, true, false},
		{529, true, false},
		{http.StatusBadRequest, false, true},
		{http.StatusUnauthorized, false, true},
		{http.StatusForbidden, false, true},
		{http.StatusNotFound, false, true},
		{http.StatusUnprocessableEntity, false, true},
	}
	for _, tt := range tests {
		err := apiFailure(tt.status, 0, cause)
		if IsTransient(err) != tt.transient {
			t.Errorf("status %d: transient = %v, want %v", tt.status, IsTransient(err), tt.transient)
		}
		var rj *ErrRequestRejected
		if errors.As(err, &rj) != tt.rejected {
			t.Errorf("status %d: rejected = %v, want %v", tt.status, !tt.rejected, tt.rejected)
		}
		if !errors.Is(err, cause) {
			t.Errorf("status %d: cause lost", tt.status)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{" 10 ", 10 * time.Second},
		{"-1", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := retryAfter(h); got != tt.want {
			t.Errorf("retryAfter(%q) = %s, want %s", tt.value, got, tt.want)
		}
	}
	if got := retryAfter(nil); got != 0 {
		t.Errorf("nil header = %s", got)
	}
}
