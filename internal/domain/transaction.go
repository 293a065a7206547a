package domain

import (
	"time"

	"github.com/google/uuid"
)

type TransactionType string

const (
	TransactionSale     TransactionType = "sale"
	TransactionDonation TransactionType = "donation"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionAccepted  TransactionStatus = "accepted"
	TransactionRejected  TransactionStatus = "rejected"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionPending, TransactionAccepted, TransactionRejected, TransactionCompleted, TransactionCancelled:
		return true
	default:
		return false
	}
}

// ActiveTransactionStatuses are the statuses that block listing edits and deletes.
var ActiveTransactionStatuses = []TransactionStatus{TransactionPending, TransactionAccepted}

type Transaction struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	ListingID         uuid.UUID         `json:"listing_id" db:"listing_id"`
	RequesterID       uuid.UUID         `json:"requester_id" db:"requester_id"`
	OwnerID           uuid.UUID         `json:"owner_id" db:"owner_id"`
	Type              TransactionType   `json:"type" db:"type"`
	Status            TransactionStatus `json:"status" db:"status"`
	RequestedAt       time.Time         `json:"requested_at" db:"requested_at"`
	ActionAt          *time.Time        `json:"action_at,omitempty" db:"action_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
	SellerContactInfo *string           `json:"seller_contact_info,omitempty" db:"seller_contact_info"`

	Listing   *Listing `json:"listing,omitempty" db:"-"`
	Requester *User    `json:"requester,omitempty" db:"-"`
	Owner     *User    `json:"owner,omitempty" db:"-"`
}

// CompletedExchange is the public record of a finished exchange. It never
// carries contact details.
type CompletedExchange struct {
	TransactionID     uuid.UUID       `json:"transaction_id"`
	ListingID         uuid.UUID       `json:"listing_id"`
	Title             string          `json:"title"`
	Author            string          `json:"author"`
	Type              TransactionType `json:"type"`
	OwnerUsername     string          `json:"owner_username"`
	RequesterUsername string          `json:"requester_username"`
	CompletedAt       time.Time       `json:"completed_at"`
}

type AcceptTransactionInput struct {
	ContactInfo string `json:"contact_info" validate:"required,max=500"`
}

type TransactionRole string

const (
	RoleRequester TransactionRole = "sent"
	RoleOwner     TransactionRole = "received"
)

func (r TransactionRole) IsValid() bool {
	return r == RoleRequester || r == RoleOwner
}
