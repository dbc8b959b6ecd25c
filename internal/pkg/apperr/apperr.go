// Package apperr defines the error taxonomy shared by the checkout and
// payment services. Handlers map each Kind to an HTTP status; services wrap
// underlying causes so callers can still errors.Is/As into them.
package apperr

import "fmt"

// Kind classifies an error for transport mapping and retry decisions.
type Kind int

const (
	// KindUnknown is the zero value; treated as an internal error.
	KindUnknown Kind = iota

	// KindValidation: missing or malformed input, rejected before any mutation.
	KindValidation

	// KindNotFound: an item or customer could not be resolved. Aborts the
	// whole request — no partial state is left behind.
	KindNotFound

	// KindPaymentIncomplete: the gateway does not report the intent as
	// succeeded yet. The order is untouched and the call is retryable.
	KindPaymentIncomplete

	// KindGateway: the external payment processor failed. The processor's
	// message is logged, never returned to end users.
	KindGateway

	// KindPersistence: a storage failure. Fatal for the current request; all
	// order writes are single-row and conditional so prior state is intact.
	KindPersistence
)

// Error carries a Kind, a user-presentable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with no underlying cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a classified error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind of err, walking the wrap chain.
// Returns KindUnknown for nil or unclassified errors.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return KindUnknown
}
