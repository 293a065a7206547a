package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/service/dashboard"
	"edushare/internal/testutil"
)

func TestGetStats(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testutil.NewDB(t))
	owner := testutil.CreateUser(t, repos, "owner")
	buyer := testutil.CreateUser(t, repos, "buyer")

	testutil.CreateListing(t, repos, owner, "Algebra", 8)
	sold := testutil.CreateListing(t, repos, owner, "Geometry", 12)
	require.NoError(t, repos.Listing.UpdateStatus(ctx, sold.ID, domain.ListingAvailable, domain.ListingSold))

	completedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repos.Transaction.Create(ctx, &domain.Transaction{
		ListingID:   sold.ID,
		RequesterID: buyer.ID,
		OwnerID:     owner.ID,
		Type:        domain.TransactionSale,
		Status:      domain.TransactionCompleted,
		CompletedAt: &completedAt,
	}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := dashboard.NewService(repos.Listing, repos.Transaction, client, zaptest.NewLogger(t))

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.AvailableListings)
	assert.Equal(t, int64(1), stats.SoldListings)
	assert.Equal(t, int64(1), stats.CompletedExchanges)
	require.NotNil(t, stats.LastCompletedAt)
	assert.True(t, stats.LastCompletedAt.Equal(completedAt))

	t.Run("Served From Cache", func(t *testing.T) {
		assert.True(t, mr.Exists("dashboard:stats"))
		testutil.CreateListing(t, repos, owner, "Calculus", 3)

		cached, err := svc.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), cached.AvailableListings)
	})

	t.Run("Reads Database After Expiry", func(t *testing.T) {
		mr.FastForward(6 * time.Minute)

		fresh, err := svc.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), fresh.AvailableListings)
	})
}

func TestGetStats_WithoutRedis(t *testing.T) {
	repos := repository.NewRepositories(testutil.NewDB(t))
	svc := dashboard.NewService(repos.Listing, repos.Transaction, nil, zaptest.NewLogger(t))

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.AvailableListings)
	assert.Nil(t, stats.LastCompletedAt)
}
