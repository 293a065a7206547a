package validation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"edushare/internal/domain"
	"edushare/internal/pkg/validation"
)

func TestStruct(t *testing.T) {
	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}

	t.Run("Valid listing", func(t *testing.T) {
		err := validation.Struct(domain.CreateListingInput{Title: "Dune", Author: "Herbert", Price: price("12.50")})
		assert.NoError(t, err)
	})

	t.Run("Missing price is a donation", func(t *testing.T) {
		err := validation.Struct(domain.CreateListingInput{Title: "Dune", Author: "Herbert"})
		assert.NoError(t, err)
	})

	t.Run("Zero price is allowed", func(t *testing.T) {
		err := validation.Struct(domain.CreateListingInput{Title: "Dune", Author: "Herbert", Price: price("0")})
		assert.NoError(t, err)
	})

	t.Run("Negative price", func(t *testing.T) {
		err := validation.Struct(domain.CreateListingInput{Title: "Dune", Author: "Herbert", Price: price("-1")})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "'price' must not be negative")
	})

	t.Run("Missing title", func(t *testing.T) {
		err := validation.Struct(domain.CreateListingInput{Author: "Herbert"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "'title' is required")
	})

	t.Run("Missing contact info", func(t *testing.T) {
		err := validation.Struct(domain.AcceptTransactionInput{})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Contains(t, err.Error(), "'contact_info' is required")
	})
}
