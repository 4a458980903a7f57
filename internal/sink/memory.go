package sink

import (
	"context"
	"sync"

	"github.com/lightbounty/booking-site/internal/booking"
)

// MemorySink keeps inserted payloads in memory. Used for local development.
type MemorySink struct {
	mu   sync.RWMutex
	rows []booking.Payload
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Insert appends the payload.
func (s *MemorySink) Insert(_ context.Context, req booking.Request) error {
	s.mu.Lock()
	s.rows = append(s.rows, req.Payload())
	s.mu.Unlock()
	return nil
}

// Rows returns a copy of everything inserted so far.
func (s *MemorySink) Rows() []booking.Payload {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Payload, len(s.rows))
	copy(out, s.rows)
	return out
}
