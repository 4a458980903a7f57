package sink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lightbounty/booking-site/internal/booking"
)

// Execer is the slice of pgxpool.Pool the postgres sink needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink stores booking requests in the booking_requests table.
type PostgresSink struct {
	db Execer
}

// NewPostgresSink initializes a sink backed by a pgx pool.
func NewPostgresSink(db Execer) *PostgresSink {
	if db == nil {
		panic("sink: pgx pool required")
	}
	return &PostgresSink{db: db}
}

const insertBookingSQL = `
	INSERT INTO booking_requests (full_name, email, category, plan, message)
	VALUES ($1, $2, $3, $4, $5)
`

// Insert writes one row.
func (s *PostgresSink) Insert(ctx context.Context, req booking.Request) error {
	p := req.Payload()
	if _, err := s.db.Exec(ctx, insertBookingSQL, p.FullName, p.Email, p.Category, p.Plan, p.Message); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return remoteErr(pgErr.Message, 0, err)
		}
		return remoteErr("", 0, err)
	}
	return nil
}
