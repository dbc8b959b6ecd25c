// Package payment drives the external payment processor: intent creation
// before the client pays, and authoritative status verification afterwards.
//
// This package never sees or stores raw payment-instrument data; instrument
// collection happens entirely inside the processor's client-side component,
// outside this system's trust boundary.
package payment

import (
	"context"
	"errors"
	"math"
)

// IntentStatus mirrors the processor's intent lifecycle. Only Succeeded has
// meaning here; everything else is "not completed yet".
type IntentStatus string

const (
	StatusSucceeded      IntentStatus = "succeeded"
	StatusProcessing     IntentStatus = "processing"
	StatusRequiresAction IntentStatus = "requires_action"
	StatusCanceled       IntentStatus = "canceled"
)

// ErrIntentNotFound: the processor has no intent with the given id.
var ErrIntentNotFound = errors.New("payment: intent not found")

// Intent is the processor's handle for one attempted charge.
type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountMinor  int64
	Currency     string
	// OrderRef is the order number the intent was tagged with at creation,
	// used to cross-check confirm calls.
	OrderRef string
	// OrderID is also tagged on the intent so a webhook event can be routed
	// back to its order without trusting the pushed payload.
	OrderID string
}

// CreateIntentParams carries everything the processor needs for one charge.
type CreateIntentParams struct {
	AmountMinor   int64
	Currency      string
	CustomerEmail string
	OrderRef      string
	OrderID       string
}

// Gateway is the port to the external processor.
type Gateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (Intent, error)
	GetIntent(ctx context.Context, intentID string) (Intent, error)
}

// ToMinorUnits converts a major-unit amount to the processor's integer minor
// units, rounding to nearest — never truncating silently.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
