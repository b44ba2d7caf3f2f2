package http

import (
	"context"
	"time"
)

// Exchange describes one finished request, successful or not.
type Exchange struct {
	// CaseID is the active test case of the client's logger, if any
	CaseID string

	Method     string
	URL        string
	StatusCode int

	// Err is the error returned to the caller, nil on success
	Err error

	Timing TimingRecord
}

// Succeeded reports whether the exchange returned a response.
func (e Exchange) Succeeded() bool {
	return e.Err == nil
}

// StartedAt is the wall-clock start of the exchange.
func (e Exchange) StartedAt() time.Time {
	return e.Timing.StartTime
}

// Recorder receives every finished exchange. Recorder errors are logged by
// the client and never returned to the caller.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, ex Exchange) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ex Exchange) error {
	return f(ctx, ex)
}
