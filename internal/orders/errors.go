package orders

import "errors"

// ValidationErrorCode: taxonomy of user-correctable submission failures
type ValidationErrorCode string

const (
	ErrCodeNotFound       ValidationErrorCode = "not_found"
	ErrCodeUnavailable    ValidationErrorCode = "unavailable"
	ErrCodeNotServiceable ValidationErrorCode = "not_serviceable"
)

// ValidationError: expected, user-correctable rejection of an order
// submission. Exactly one is produced per failed submission, naming the
// first blocking line in cart order. Never retried automatically and never
// leaves partial state.
type ValidationError struct {
	Code    ValidationErrorCode
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrItemNotFound  = errors.New("order item not found")
)

// TransitionError: rejected item status change
type TransitionError struct {
	Message string
}

func (e *TransitionError) Error() string { return e.Message }
