package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingAvailable ListingStatus = "available"
	ListingPending   ListingStatus = "pending"
	ListingSold      ListingStatus = "sold"
	ListingDonated   ListingStatus = "donated"
)

func (s ListingStatus) IsValid() bool {
	switch s {
	case ListingAvailable, ListingPending, ListingSold, ListingDonated:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s ListingStatus) IsTerminal() bool {
	return s == ListingSold || s == ListingDonated
}

type Listing struct {
	ID          uuid.UUID           `json:"id" db:"id"`
	OwnerID     uuid.UUID           `json:"owner_id" db:"owner_id"`
	Title       string              `json:"title" db:"title"`
	Author      string              `json:"author" db:"author"`
	Description *string             `json:"description,omitempty" db:"description"`
	Price       decimal.NullDecimal `json:"price" db:"price"`
	IsDonation  bool                `json:"is_donation" db:"is_donation"`
	Status      ListingStatus       `json:"status" db:"status"`
	CoverPath   *string             `json:"cover_path,omitempty" db:"cover_path"`
	CreatedAt   time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" db:"updated_at"`
}

// TransactionType is the kind of exchange a request against this listing starts.
func (l *Listing) TransactionType() TransactionType {
	if l.IsDonation {
		return TransactionDonation
	}
	return TransactionSale
}

type CreateListingInput struct {
	Title       string           `json:"title" validate:"required,min=1,max=200"`
	Author      string           `json:"author" validate:"required,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,nonnegative_decimal"`
	IsDonation  bool             `json:"is_donation"`
}

type UpdateListingInput struct {
	Title       string           `json:"title" validate:"required,min=1,max=200"`
	Author      string           `json:"author" validate:"required,min=1,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,nonnegative_decimal"`
	IsDonation  bool             `json:"is_donation"`
}

// ResolvePrice applies the donation rule: an absent or non-positive price, or an
// explicit donation flag, makes the listing a donation without a stored price.
func ResolvePrice(price *decimal.Decimal, donation bool) (decimal.NullDecimal, bool) {
	if donation || price == nil || !price.IsPositive() {
		return decimal.NullDecimal{}, true
	}
	return decimal.NullDecimal{Decimal: price.Round(2), Valid: true}, false
}

type ListingFilter struct {
	Status     *ListingStatus
	IsDonation *bool
	OwnerID    *uuid.UUID
	Search     string
}

type CoverUpload struct {
	Reader      io.Reader
	FileName    string
	ContentType string
	Size        int64
}
