package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	UserName   *string   `json:"user_name,omitempty" db:"user_name"`
	Action     string    `json:"action" db:"action"`
	EntityType string    `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id" db:"entity_id"`
	OldStatus  *string   `json:"old_status,omitempty" db:"old_status"`
	NewStatus  *string   `json:"new_status,omitempty" db:"new_status"`
	IPAddress  *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent  *string   `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

const (
	EntityListing     = "LISTING"
	EntityTransaction = "TRANSACTION"
)

const (
	ActionCreateListing       = "CREATE_LISTING"
	ActionUpdateListing       = "UPDATE_LISTING"
	ActionDeleteListing       = "DELETE_LISTING"
	ActionRequestListing      = "REQUEST_LISTING"
	ActionAcceptTransaction   = "ACCEPT_TRANSACTION"
	ActionRejectTransaction   = "REJECT_TRANSACTION"
	ActionCancelTransaction   = "CANCEL_TRANSACTION"
	ActionCompleteTransaction = "COMPLETE_TRANSACTION"
	ActionAutoCancel          = "AUTO_CANCEL_TRANSACTION"
)

type CreateAuditLogInput struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	OldStatus  string
	NewStatus  string
}
