// Package guard holds the authorization predicates for listings and transactions.
package guard

import (
	"github.com/google/uuid"

	"edushare/internal/domain"
)

func IsOwner(txn *domain.Transaction, userID uuid.UUID) bool {
	return txn != nil && userID != uuid.Nil && txn.OwnerID == userID
}

func IsRequester(txn *domain.Transaction, userID uuid.UUID) bool {
	return txn != nil && userID != uuid.Nil && txn.RequesterID == userID
}

// IsParticipant reports whether the user is either side of the transaction.
func IsParticipant(txn *domain.Transaction, userID uuid.UUID) bool {
	return IsOwner(txn, userID) || IsRequester(txn, userID)
}

func OwnsListing(listing *domain.Listing, userID uuid.UUID) bool {
	return listing != nil && userID != uuid.Nil && listing.OwnerID == userID
}

// CanRequest is false for the owner; availability is a state check, not an authorization one.
func CanRequest(listing *domain.Listing, userID uuid.UUID) bool {
	return listing != nil && userID != uuid.Nil && listing.OwnerID != userID
}

func CanEdit(listing *domain.Listing, userID uuid.UUID) bool {
	return OwnsListing(listing, userID) && listing.Status == domain.ListingAvailable
}

func CanDelete(listing *domain.Listing, userID uuid.UUID, activeTransactions int64) bool {
	return OwnsListing(listing, userID) && activeTransactions == 0
}
