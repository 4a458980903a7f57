package booking

import "errors"

var (
	// ErrMissingFullName is returned when the full name is empty
	ErrMissingFullName = errors.New("full name is required")

	// ErrInvalidEmail is returned when the email is empty or malformed
	ErrInvalidEmail = errors.New("a valid email address is required")

	// ErrMissingMessage is returned when the message is empty
	ErrMissingMessage = errors.New("message is required")

	// ErrInvalidCategory is returned when the category is not one of Categories
	ErrInvalidCategory = errors.New("category must be one of the listed options")

	// ErrInvalidPlan is returned when the plan is not one of Plans
	ErrInvalidPlan = errors.New("plan must be one of the listed options")
)
