package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Direct(t *testing.T) {
	err := New(KindValidation, "no items")
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestKindOf_Wrapped(t *testing.T) {
	inner := New(KindNotFound, "user not found")
	outer := fmt.Errorf("checkout: %w", inner)

	assert.Equal(t, KindNotFound, KindOf(outer))
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindGateway, "payment processor unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "payment processor unavailable")
}
