package audit_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/service/audit"
	"edushare/internal/testutil"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewRepositories(testutil.NewDB(t))
	svc := audit.NewService(repos.AuditLog)

	user := testutil.CreateUser(t, repos, "owner")
	other := testutil.CreateUser(t, repos, "other")
	listingID := uuid.New()

	for _, action := range []string{domain.ActionCreateListing, domain.ActionUpdateListing, domain.ActionDeleteListing} {
		require.NoError(t, repos.AuditLog.Create(ctx, &domain.AuditLog{
			UserID: user.ID, Action: action, EntityType: domain.EntityListing, EntityID: listingID,
		}))
	}
	require.NoError(t, repos.AuditLog.Create(ctx, &domain.AuditLog{
		UserID: other.ID, Action: domain.ActionRequestListing, EntityType: domain.EntityListing, EntityID: uuid.New(),
	}))

	t.Run("Recent Activities", func(t *testing.T) {
		logs, err := svc.GetRecentActivities(ctx, user.ID, 2)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
		for _, log := range logs {
			assert.Equal(t, user.ID, log.UserID)
		}
	})
}
