package tickets

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTicket is returned when an action needs a ticket channel and was used elsewhere.
	ErrNotTicket = errors.New("not a ticket")

	// ErrForbidden is returned when the actor is not allowed to perform the action.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when a referenced ticket, channel or panel does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTicket is returned when the user already has an open ticket of the type.
	ErrDuplicateTicket = errors.New("duplicate ticket")

	// ErrInvalidInput is returned for input that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStale is returned for buttons and requests that no longer match the stored state.
	ErrStale = errors.New("stale")

	// errNoChange aborts an update without saving.
	errNoChange = errors.New("no change")
)

// Rejection is an expected refusal of an action. Message is shown to the user and nothing was
// changed.
type Rejection struct {
	// Kind is one of the sentinel errors of this package.
	Kind error

	// Message is the text shown to the user.
	Message string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Message)
}

func (r *Rejection) Unwrap() error {
	return r.Kind
}

func reject(kind error, message string) error {
	return &Rejection{Kind: kind, Message: message}
}

// Reject returns a rejection of kind with the message shown to the user.
func Reject(kind error, message string) error {
	return reject(kind, message)
}

// AsRejection returns the rejection wrapped in err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
