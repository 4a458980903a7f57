// Package sink writes booking requests to the hosted store that persists them.
// Drivers perform exactly one write per call: no retries, batching or caching.
package sink

import (
	"context"
	"errors"

	"github.com/lightbounty/booking-site/internal/booking"
)

// Sink persists one booking request.
type Sink interface {
	Insert(ctx context.Context, req booking.Request) error
}

// Func adapts a plain function to Sink.
type Func func(ctx context.Context, req booking.Request) error

// Insert calls f.
func (f Func) Insert(ctx context.Context, req booking.Request) error {
	return f(ctx, req)
}

// RemoteError is the single failure type every driver returns. Message is the
// human-readable text passed through from the store and may be empty.
type RemoteError struct {
	Message string
	Status  int
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return "sink: insert failed: " + e.Err.Error()
	}
	return "sink: insert failed"
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Message extracts the user-facing message carried by err. It returns "" when
// err carries none.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Message
	}
	return err.Error()
}

func remoteErr(msg string, status int, err error) *RemoteError {
	return &RemoteError{Message: msg, Status: status, Err: err}
}
