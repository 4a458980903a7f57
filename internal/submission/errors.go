package submission

import "errors"

var (
	// ErrMissingSessionID is returned when a store call has no session id
	ErrMissingSessionID = errors.New("submission: session id is required")

	// ErrConflict is returned when an optimistic store update keeps losing races
	ErrConflict = errors.New("submission: concurrent update conflict")
)
