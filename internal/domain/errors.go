package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap one of these so callers can test with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidState     = errors.New("invalid state")
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrValidation       = errors.New("validation error")
)

var (
	ErrListingNotFound      = fmt.Errorf("listing %w", ErrNotFound)
	ErrTransactionNotFound  = fmt.Errorf("transaction %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)

	ErrListingUnavailable           = fmt.Errorf("%w: listing is not available", ErrInvalidState)
	ErrListingClosed                = fmt.Errorf("%w: listing has already been exchanged", ErrInvalidState)
	ErrListingNotEditable           = fmt.Errorf("%w: listing can only be changed while available", ErrInvalidState)
	ErrListingHasActiveTransactions = fmt.Errorf("%w: listing has active transactions", ErrInvalidState)
	ErrStatusChanged                = fmt.Errorf("%w: status changed concurrently", ErrInvalidState)

	ErrOwnListing     = fmt.Errorf("%w: cannot request your own listing", ErrForbidden)
	ErrNotOwner       = fmt.Errorf("%w: only the owner can perform this action", ErrForbidden)
	ErrNotRequester   = fmt.Errorf("%w: only the requester can perform this action", ErrForbidden)
	ErrNotParticipant = fmt.Errorf("%w: not a participant of this transaction", ErrForbidden)
	ErrNotRecipient   = fmt.Errorf("%w: notification belongs to another user", ErrForbidden)

	ErrPendingRequestExists = fmt.Errorf("%w: you already have a pending request for this listing", ErrDuplicateRequest)
	ErrContactInfoRequired  = fmt.Errorf("%w: contact info is required", ErrValidation)
)

// InvalidTransition reports a transaction that is not in the status an operation needs.
func InvalidTransition(action string, current TransactionStatus) error {
	return fmt.Errorf("%w: cannot %s a %s transaction", ErrInvalidState, action, current)
}

// Validationf builds a field level validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
