package guard_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"edushare/internal/domain"
	"edushare/internal/service/guard"
)

func TestTransactionPredicates(t *testing.T) {
	owner, requester, stranger := uuid.New(), uuid.New(), uuid.New()
	txn := &domain.Transaction{OwnerID: owner, RequesterID: requester}

	assert.True(t, guard.IsOwner(txn, owner))
	assert.False(t, guard.IsOwner(txn, requester))
	assert.True(t, guard.IsRequester(txn, requester))
	assert.False(t, guard.IsRequester(txn, owner))

	assert.True(t, guard.IsParticipant(txn, owner))
	assert.True(t, guard.IsParticipant(txn, requester))
	assert.False(t, guard.IsParticipant(txn, stranger))

	assert.False(t, guard.IsOwner(nil, owner))
	assert.False(t, guard.IsOwner(&domain.Transaction{}, uuid.Nil))
}

func TestListingPredicates(t *testing.T) {
	owner, other := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		status    domain.ListingStatus
		user      uuid.UUID
		active    int64
		canEdit   bool
		canDelete bool
		canReq    bool
	}{
		{"owner on available listing", domain.ListingAvailable, owner, 0, true, true, false},
		{"owner while pending", domain.ListingPending, owner, 1, false, false, false},
		{"owner after sale", domain.ListingSold, owner, 0, false, true, false},
		{"other user", domain.ListingAvailable, other, 0, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := &domain.Listing{OwnerID: owner, Status: tt.status}

			assert.Equal(t, tt.canEdit, guard.CanEdit(listing, tt.user))
			assert.Equal(t, tt.canDelete, guard.CanDelete(listing, tt.user, tt.active))
			assert.Equal(t, tt.canReq, guard.CanRequest(listing, tt.user))
		})
	}

	assert.False(t, guard.CanRequest(nil, other))
}
