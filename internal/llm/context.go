package llm

import "context"

type ctxKey int

const callKey ctxKey = iota

// CallInfo labels a model call for the event log.
type CallInfo struct {
	// Purpose names what the call produces, e.g. "curriculum".
	Purpose string

	// RunID ties the call to the generation run that made it.
	RunID string
}

// WithCall attaches call labels to ctx.
func WithCall(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callKey, info)
}

// CallFrom returns the labels attached by WithCall. Purpose defaults to
// "unknown".
func CallFrom(ctx context.Context) CallInfo {
	info, _ := ctx.Value(callKey).(CallInfo)
	if info.Purpose == "" {
		info.Purpose = "unknown"
	}
	return info
}
