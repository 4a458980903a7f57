// Package submission owns the booking form's per-session state and the
// lifecycle of a submission: Idle -> Submitting -> Succeeded or Failed.
//
// The transition functions in this file are pure: each takes a State and
// returns the next one. Controller applies them through a Store.
package submission

import (
	"strings"
	"time"

	"github.com/lightbounty/booking-site/internal/booking"
	"github.com/lightbounty/booking-site/internal/sink"
)

// Phase is the submission lifecycle state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// GenericErrorMessage is shown when a failure carries no message of its own.
const GenericErrorMessage = "Something went wrong. Please try again."

// Form field names accepted by UpdateField. They match the HTML input names.
const (
	FieldFullName = "full_name"
	FieldEmail    = "email"
	FieldCategory = "category"
	FieldPlan     = "plan"
	FieldMessage  = "message"
)

// FieldNames lists every editable field.
var FieldNames = []string{FieldFullName, FieldEmail, FieldCategory, FieldPlan, FieldMessage}

// State is one visitor's form.
type State struct {
	Phase     Phase           `json:"phase"`
	LastError string          `json:"last_error,omitempty"`
	Fields    booking.Request `json:"fields"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewState returns the state of a freshly loaded page.
func NewState() State {
	return State{
		Phase:  PhaseIdle,
		Fields: booking.NewRequest(),
	}
}

// ConfirmationOpen reports whether the success dialog should be visible.
func (s State) ConfirmationOpen() bool {
	return s.Phase == PhaseSucceeded
}

// Busy reports whether a write is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseSubmitting
}

// FieldEdit is one field assignment.
type FieldEdit struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// UpdateField stores value under name. Unknown names, and category or plan
// values outside their enumerations, leave the state as it was.
func UpdateField(s State, name, value string) State {
	switch strings.TrimSpace(name) {
	case FieldFullName:
		s.Fields.FullName = value
	case FieldEmail:
		s.Fields.Email = value
	case FieldMessage:
		s.Fields.Message = value
	case FieldCategory:
		if c := booking.Category(value); c.Valid() {
			s.Fields.Category = c
		}
	case FieldPlan:
		if p := booking.Plan(value); p.Valid() {
			s.Fields.Plan = p
		}
	}
	return s
}

// Begin moves s into Submitting and clears the last error. ok is false, and
// s is returned unchanged, when a submission is already in flight.
func Begin(s State) (next State, ok bool) {
	if s.Phase == PhaseSubmitting {
		return s, false
	}
	s.Phase = PhaseSubmitting
	s.LastError = ""
	return s, true
}

// Succeed records a successful write and resets the form.
func Succeed(s State) State {
	s.Phase = PhaseSucceeded
	s.LastError = ""
	s.Fields = booking.NewRequest()
	return s
}

// Fail records a failed write. Field values are kept so the visitor can retry.
func Fail(s State, err error) State {
	s.Phase = PhaseFailed
	s.LastError = errorMessage(err)
	return s
}

// Dismiss hides the confirmation dialog. It only acts on Succeeded.
func Dismiss(s State) State {
	if s.Phase == PhaseSucceeded {
		s.Phase = PhaseIdle
	}
	return s
}

func errorMessage(err error) string {
	if msg := strings.TrimSpace(sink.Message(err)); msg != "" {
		return msg
	}
	return GenericErrorMessage
}
