package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/testutil"
)

func newRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	return repository.NewRepositories(testutil.NewDB(t))
}

func TestWithinTx(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	listing := testutil.CreateListing(t, repos, owner, "Calculus", 10)

	t.Run("Commits on success", func(t *testing.T) {
		err := repos.WithinTx(ctx, func(tx *repository.Repositories) error {
			return tx.Listing.UpdateStatus(ctx, listing.ID, domain.ListingAvailable, domain.ListingPending)
		})
		require.NoError(t, err)

		got, err := repos.Listing.GetByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingPending, got.Status)
	})

	t.Run("Rolls back on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := repos.WithinTx(ctx, func(tx *repository.Repositories) error {
			if err := tx.Listing.UpdateStatus(ctx, listing.ID, domain.ListingPending, domain.ListingSold); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := repos.Listing.GetByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ListingPending, got.Status)
	})

	t.Run("Nested call joins the running transaction", func(t *testing.T) {
		err := repos.WithinTx(ctx, func(tx *repository.Repositories) error {
			return tx.WithinTx(ctx, func(inner *repository.Repositories) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		assert.NoError(t, err)
	})
}

func TestListingRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	listing := testutil.CreateListing(t, repos, owner, "Physics", 25.5)

	require.NoError(t, repos.Listing.UpdateStatus(ctx, listing.ID, domain.ListingAvailable, domain.ListingPending))

	err := repos.Listing.UpdateStatus(ctx, listing.ID, domain.ListingAvailable, domain.ListingPending)
	assert.ErrorIs(t, err, domain.ErrStatusChanged)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	got, err := repos.Listing.GetByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Valid)
	assert.True(t, got.Price.Decimal.Equal(decimal.RequireFromString("25.5")))
	assert.False(t, got.IsDonation)
}

func TestListingRepository_CountByStatus(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")

	testutil.CreateListing(t, repos, owner, "Physics", 10)
	testutil.CreateListing(t, repos, owner, "Chemistry", 0)
	sold := testutil.CreateListing(t, repos, owner, "Biology", 5)
	require.NoError(t, repos.Listing.UpdateStatus(ctx, sold.ID, domain.ListingAvailable, domain.ListingSold))

	counts, err := repos.Listing.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.ListingAvailable])
	assert.Equal(t, int64(1), counts[domain.ListingSold])
	assert.Zero(t, counts[domain.ListingDonated])
}

func TestListingRepository_GetByID_NotFound(t *testing.T) {
	repos := newRepos(t)

	_, err := repos.Listing.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListingRepository_List(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	other := testutil.CreateUser(t, repos, "other")

	testutil.CreateListing(t, repos, owner, "Linear Algebra", 30)
	testutil.CreateListing(t, repos, owner, "Organic Chemistry", 0)
	sold := testutil.CreateListing(t, repos, other, "Algebra Workbook", 5)
	require.NoError(t, repos.Listing.UpdateStatus(ctx, sold.ID, domain.ListingAvailable, domain.ListingSold))

	available := domain.ListingAvailable
	params := domain.DefaultPagination()

	t.Run("Status filter", func(t *testing.T) {
		listings, total, err := repos.Listing.List(ctx, domain.ListingFilter{Status: &available}, params)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, listings, 2)
	})

	t.Run("Case insensitive search", func(t *testing.T) {
		listings, total, err := repos.Listing.List(ctx, domain.ListingFilter{Search: "ALGEBRA"}, params)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, listings, 2)
	})

	t.Run("Donation filter", func(t *testing.T) {
		donation := true
		listings, total, err := repos.Listing.List(ctx, domain.ListingFilter{Status: &available, IsDonation: &donation}, params)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, listings, 1)
		assert.Equal(t, "Organic Chemistry", listings[0].Title)
		assert.False(t, listings[0].Price.Valid)
	})

	t.Run("Owner filter and pagination", func(t *testing.T) {
		listings, total, err := repos.Listing.List(ctx, domain.ListingFilter{OwnerID: &owner.ID}, domain.PaginationParams{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, listings, 1)
	})
}

func TestListingRepository_LockForRemoval(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	listing := testutil.CreateListing(t, repos, owner, "History", 12)

	require.NoError(t, repos.Listing.LockForRemoval(ctx, listing.ID))

	require.NoError(t, repos.Listing.UpdateStatus(ctx, listing.ID, domain.ListingAvailable, domain.ListingPending))
	assert.ErrorIs(t, repos.Listing.LockForRemoval(ctx, listing.ID), domain.ErrListingHasActiveTransactions)
}

func TestTransactionRepository_PendingRequestIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	requester := testutil.CreateUser(t, repos, "requester")
	listing := testutil.CreateListing(t, repos, owner, "Biology", 8)

	first := &domain.Transaction{ListingID: listing.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: domain.TransactionSale}
	require.NoError(t, repos.Transaction.Create(ctx, first))

	pending, err := repos.Transaction.HasPendingRequest(ctx, listing.ID, requester.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	second := &domain.Transaction{ListingID: listing.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: domain.TransactionSale}
	err = repos.Transaction.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)

	require.NoError(t, repos.Transaction.Transition(ctx, first.ID, domain.TransactionPending, domain.TransactionCancelled, time.Now().UTC()))
	assert.NoError(t, repos.Transaction.Create(ctx, second))
}

func TestTransactionRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	requester := testutil.CreateUser(t, repos, "requester")
	listing := testutil.CreateListing(t, repos, owner, "Economics", 15)

	txn := &domain.Transaction{ListingID: listing.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: domain.TransactionSale}
	require.NoError(t, repos.Transaction.Create(ctx, txn))

	now := time.Now().UTC()
	require.NoError(t, repos.Transaction.Accept(ctx, txn.ID, "call 555-0100", now))
	assert.ErrorIs(t, repos.Transaction.Accept(ctx, txn.ID, "again", now), domain.ErrStatusChanged)

	require.NoError(t, repos.Transaction.Transition(ctx, txn.ID, domain.TransactionAccepted, domain.TransactionCompleted, now))

	got, err := repos.Transaction.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionCompleted, got.Status)
	require.NotNil(t, got.SellerContactInfo)
	assert.Equal(t, "call 555-0100", *got.SellerContactInfo)
	assert.NotNil(t, got.ActionAt)
	assert.NotNil(t, got.CompletedAt)

	completed, total, err := repos.Transaction.ListCompleted(ctx, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, completed, 1)
	assert.Equal(t, txn.ID, completed[0].ID)
}

func TestTransactionRepository_CancelPending(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	listing := testutil.CreateListing(t, repos, owner, "Statistics", 20)

	var ids []uuid.UUID
	for _, name := range []string{"a", "b", "c"} {
		requester := testutil.CreateUser(t, repos, name)
		txn := &domain.Transaction{ListingID: listing.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: domain.TransactionSale}
		require.NoError(t, repos.Transaction.Create(ctx, txn))
		ids = append(ids, txn.ID)
	}

	require.NoError(t, repos.Transaction.Transition(ctx, ids[0], domain.TransactionPending, domain.TransactionRejected, time.Now().UTC()))

	pending, err := repos.Transaction.ListPendingByListing(ctx, listing.ID, ids[1])
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ids[2], pending[0].ID)

	n, err := repos.Transaction.CancelPending(ctx, ids, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	active, err := repos.Transaction.CountActiveByListing(ctx, listing.ID)
	require.NoError(t, err)
	assert.Zero(t, active)
}

func TestTransactionRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	requester := testutil.CreateUser(t, repos, "requester")
	first := testutil.CreateListing(t, repos, owner, "Art History", 9)
	second := testutil.CreateListing(t, repos, owner, "Music Theory", 0)

	for _, l := range []*domain.Listing{first, second} {
		txn := &domain.Transaction{ListingID: l.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: l.TransactionType()}
		require.NoError(t, repos.Transaction.Create(ctx, txn))
	}

	sent, total, err := repos.Transaction.ListByUser(ctx, requester.ID, domain.RoleRequester, nil, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, sent, 2)

	received, total, err := repos.Transaction.ListByUser(ctx, owner.ID, domain.RoleOwner, nil, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, received, 2)

	accepted := domain.TransactionAccepted
	none, total, err := repos.Transaction.ListByUser(ctx, owner.ID, domain.RoleOwner, &accepted, domain.DefaultPagination())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	owner := testutil.CreateUser(t, repos, "owner")
	requester := testutil.CreateUser(t, repos, "requester")
	listing := testutil.CreateListing(t, repos, owner, "Geography", 4)

	txn := &domain.Transaction{ListingID: listing.ID, RequesterID: requester.ID, OwnerID: owner.ID, Type: domain.TransactionSale}
	require.NoError(t, repos.Transaction.Create(ctx, txn))

	notif := &domain.Notification{
		UserID:               owner.ID,
		Type:                 domain.NotifRequestReceived,
		Message:              "someone wants your book",
		RelatedTransactionID: uuid.NullUUID{UUID: txn.ID, Valid: true},
	}
	require.NoError(t, repos.Notification.Create(ctx, notif))
	require.NoError(t, repos.Notification.Create(ctx, &domain.Notification{
		UserID: owner.ID, Type: domain.NotifRequestCancelled, Message: "unrelated",
	}))

	count, err := repos.Notification.CountUnread(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, repos.Notification.MarkAsRead(ctx, notif.ID, time.Now().UTC()))
	first, err := repos.Notification.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	require.NoError(t, repos.Notification.MarkAsRead(ctx, notif.ID, time.Now().UTC().Add(time.Hour)))
	second, err := repos.Notification.GetByID(ctx, notif.ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	unread, total, err := repos.Notification.ListByUser(ctx, owner.ID, true, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, unread, 1)
	assert.False(t, unread[0].RelatedTransactionID.Valid)

	recipients, err := repos.Notification.RecipientsByTransactions(ctx, []uuid.UUID{txn.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owner.ID}, recipients)

	require.NoError(t, repos.Notification.DeleteByTransactions(ctx, []uuid.UUID{txn.ID}))
	_, err = repos.Notification.GetByID(ctx, notif.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, err := repos.Notification.MarkAllAsRead(ctx, owner.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAuditLogRepository(t *testing.T) {
	ctx := context.Background()
	repos := newRepos(t)
	user := testutil.CreateUser(t, repos, "auditor")
	entityID := uuid.New()
	newStatus := string(domain.ListingPending)

	require.NoError(t, repos.AuditLog.Create(ctx, &domain.AuditLog{
		UserID: user.ID, Action: domain.ActionRequestListing, EntityType: domain.EntityListing,
		EntityID: entityID, NewStatus: &newStatus,
	}))

	logs, total, err := repos.AuditLog.ListByUser(ctx, user.ID, domain.DefaultPagination())
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserName)
	assert.Equal(t, user.Username, *logs[0].UserName)

	byEntity, err := repos.AuditLog.ListByEntity(ctx, domain.EntityListing, entityID)
	require.NoError(t, err)
	assert.Len(t, byEntity, 1)
}
