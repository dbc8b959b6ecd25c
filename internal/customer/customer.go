// Package customer is the port to the identity service. Checkout resolves the
// submitted email to a known customer before creating any order.
package customer

import (
	"context"
	"errors"
)

// ErrNotFound means no account exists for the given email.
var ErrNotFound = errors.New("customer: not found")

type Customer struct {
	ID    string
	Email string
	Name  string
}

// Resolver looks a customer up by email.
type Resolver interface {
	ResolveByEmail(ctx context.Context, email string) (Customer, error)
}
