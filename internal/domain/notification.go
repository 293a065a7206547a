package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID                   uuid.UUID        `json:"id" db:"id"`
	UserID               uuid.UUID        `json:"user_id" db:"user_id"`
	Type                 NotificationType `json:"type" db:"type"`
	Message              string           `json:"message" db:"message"`
	RelatedTransactionID uuid.NullUUID    `json:"related_transaction_id" db:"related_transaction_id"`
	IsRead               bool             `json:"is_read" db:"is_read"`
	ReadAt               *time.Time       `json:"read_at,omitempty" db:"read_at"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
}

type NotificationType string

const (
	NotifRequestReceived    NotificationType = "REQUEST_RECEIVED"
	NotifRequestAccepted    NotificationType = "REQUEST_ACCEPTED"
	NotifRequestRejected    NotificationType = "REQUEST_REJECTED"
	NotifRequestCancelled   NotificationType = "REQUEST_CANCELLED"
	NotifRequestCompleted   NotificationType = "REQUEST_COMPLETED"
	NotifListingUnavailable NotificationType = "LISTING_UNAVAILABLE"
)

type NotificationInput struct {
	UserID        uuid.UUID
	Type          NotificationType
	Message       string
	TransactionID *uuid.UUID
}

// NotificationView is a notification together with the entities it points at.
type NotificationView struct {
	Notification
	Transaction *Transaction `json:"transaction,omitempty"`
	Listing     *Listing     `json:"listing,omitempty"`
}
