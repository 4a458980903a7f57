package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/internal/observability/metrics"
	"github.com/lightbounty/booking-site/internal/sink"
	"github.com/lightbounty/booking-site/pkg/logging"
)

const (
	settleAttempts = 3
	notifyTimeout  = 30 * time.Second

	// DefaultStaleAfter bounds how long a session may sit in Submitting
	// before it is treated as failed.
	DefaultStaleAfter = time.Minute
)

// Notifier is told about every booking request the sink accepted.
type Notifier interface {
	BookingReceived(ctx context.Context, req booking.Request) error
}

// Controller is the single source of truth for each session's form and
// guarantees at most one in-flight sink write per session.
type Controller struct {
	store    Store
	sink     sink.Sink
	notifier Notifier
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	now      func() time.Time

	// staleAfter is how old a Submitting state must be before Submit and
	// Current treat it as abandoned. Zero disables recovery.
	staleAfter time.Duration

	background sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the post-success notifier.
func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStaleAfter sets how long a session may stay in Submitting before it is
// recovered as Failed. It must exceed the longest sink write; zero disables
// recovery for sinks without a timeout.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Controller) {
		if d < 0 {
			d = 0
		}
		c.staleAfter = d
	}
}

// NewController wires a controller.
func NewController(store Store, s sink.Sink, logger *logging.Logger, opts ...Option) *Controller {
	if store == nil {
		panic("submission: store required")
	}
	if s == nil {
		panic("submission: sink required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Controller{
		store:      store,
		sink:       s,
		logger:     logger,
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the session's state. A stale Submitting state is reported
// as Failed so the page stops waiting on it.
func (c *Controller) Current(ctx context.Context, sessionID string) (State, error) {
	st, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("submission: load: %w", err)
	}
	if c.stale(st) {
		st = Fail(st, nil)
	}
	return st, nil
}

// stale reports whether s is a Submitting state whose write can no longer
// settle it: either the sink write outlived its timeout or the settle step
// itself failed.
func (c *Controller) stale(s State) bool {
	return s.Phase == PhaseSubmitting &&
		c.staleAfter > 0 &&
		!s.UpdatedAt.IsZero() &&
		c.now().Sub(s.UpdatedAt) > c.staleAfter
}

// UpdateField stores one field value.
func (c *Controller) UpdateField(ctx context.Context, sessionID, name, value string) (State, error) {
	st, _, err := c.store.Update(ctx, sessionID, func(s State) (State, bool) {
		s = UpdateField(s, name, value)
		s.UpdatedAt = c.now()
		return s, true
	})
	if err != nil {
		return State{}, fmt.Errorf("submission: update field: %w", err)
	}
	return st, nil
}

// Dismiss closes the confirmation dialog.
func (c *Controller) Dismiss(ctx context.Context, sessionID string) (State, error) {
	st, _, err := c.store.Update(ctx, sessionID, func(s State) (State, bool) {
		if s.Phase != PhaseSucceeded {
			return s, false
		}
		s = Dismiss(s)
		s.UpdatedAt = c.now()
		return s, true
	})
	if err != nil {
		return State{}, fmt.Errorf("submission: dismiss: %w", err)
	}
	return st, nil
}

// Submit applies edits and sends the form to the sink.
//
// When a submission is already in flight for the session the call is a
// no-op: edits are discarded and the sink is not called. A Submitting state
// older than the stale window is abandoned and the form may be sent again.
// A form failing validation moves straight to Failed without a sink call.
// Otherwise the state passes through Submitting and settles to Succeeded or
// Failed before Submit returns. Sink failures never surface as the returned
// error, which is reserved for store failures.
func (c *Controller) Submit(ctx context.Context, sessionID string, edits ...FieldEdit) (State, error) {
	var (
		snapshot  booking.Request
		recovered bool
	)
	st, changed, err := c.store.Update(ctx, sessionID, func(s State) (State, bool) {
		recovered = false
		if s.Phase == PhaseSubmitting {
			if !c.stale(s) {
				return s, false
			}
			recovered = true
			s = Fail(s, nil)
		}
		for _, e := range edits {
			s = UpdateField(s, e.Name, e.Value)
		}
		s.UpdatedAt = c.now()
		if verr := s.Fields.Validate(); verr != nil {
			return Fail(s, verr), true
		}
		next, _ := Begin(s)
		snapshot = next.Fields
		return next, true
	})
	if err != nil {
		return State{}, fmt.Errorf("submission: begin: %w", err)
	}
	if recovered {
		c.metrics.ObserveSubmission("recovered")
		c.logger.Warn("recovered stale submission", "session_id", sessionID)
	}

	switch {
	case !changed:
		c.metrics.ObserveSubmission("duplicate")
		c.logger.Info("submission already in flight", "session_id", sessionID)
		return st, nil
	case st.Phase != PhaseSubmitting:
		c.metrics.ObserveSubmission("invalid")
		c.logger.Info("submission rejected by validation", "session_id", sessionID, "reason", st.LastError)
		return st, nil
	}

	// The write is not cancellable: a closed browser tab must not leave the
	// session stuck in Submitting.
	writeCtx := context.WithoutCancel(ctx)
	insertErr := c.insert(writeCtx, snapshot)

	final, err := c.settle(writeCtx, sessionID, insertErr)
	if err != nil {
		return State{}, err
	}

	if insertErr != nil {
		c.metrics.ObserveSubmission("failed")
		c.logger.Warn("booking submission failed", "session_id", sessionID, "error", insertErr)
		return final, nil
	}

	c.metrics.ObserveSubmission("succeeded")
	c.logger.Info("booking submitted",
		"session_id", sessionID,
		"category", snapshot.Category,
		"plan", snapshot.Plan,
	)
	c.notify(snapshot)
	return final, nil
}

func (c *Controller) insert(ctx context.Context, req booking.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &sink.RemoteError{Err: fmt.Errorf("sink panicked: %v", r)}
		}
	}()
	return c.sink.Insert(ctx, req)
}

// settle leaves Submitting exactly once for the write that entered it.
func (c *Controller) settle(ctx context.Context, sessionID string, insertErr error) (State, error) {
	var lastErr error
	for attempt := 0; attempt < settleAttempts; attempt++ {
		st, _, err := c.store.Update(ctx, sessionID, func(s State) (State, bool) {
			if s.Phase != PhaseSubmitting {
				return s, false
			}
			if insertErr != nil {
				s = Fail(s, insertErr)
			} else {
				s = Succeed(s)
			}
			s.UpdatedAt = c.now()
			return s, true
		})
		if err == nil {
			return st, nil
		}
		lastErr = err
		c.logger.Error("failed to settle submission", "session_id", sessionID, "attempt", attempt+1, "error", err)
	}
	return State{}, fmt.Errorf("submission: settle: %w", lastErr)
}

func (c *Controller) notify(req booking.Request) {
	if c.notifier == nil {
		return
	}
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		err := c.notifier.BookingReceived(ctx, req)
		c.metrics.ObserveNotify(err)
		if err != nil {
			c.logger.Error("booking notification failed", "error", err)
		}
	}()
}

// Wait blocks until background notifications have finished.
func (c *Controller) Wait() {
	c.background.Wait()
}
