package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edushare/internal/config"
	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/service/auth"
	"edushare/internal/testutil"
)

func newService(t *testing.T) (auth.Service, *repository.Repositories) {
	t.Helper()
	repos := repository.NewRepositories(testutil.NewDB(t))
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: 15 * time.Minute}
	return auth.NewService(repos.User, cfg), repos
}

func TestIssueAndValidate(t *testing.T) {
	svc, repos := newService(t)
	user := testutil.CreateUser(t, repos, "reader")

	pair, err := svc.IssueAccessToken(user)
	require.NoError(t, err)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)

	found, err := svc.GetUserByID(context.Background(), claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	svc, _ := newService(t)

	sign := func(secret string, claims auth.Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}

	tests := []struct {
		name  string
		token string
	}{
		{"Garbage", "not-a-token"},
		{"Wrong Secret", sign("other-secret", auth.Claims{UserID: uuid.New(), RegisteredClaims: valid})},
		{"Expired", sign("test-secret", auth.Claims{UserID: uuid.New(), RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}})},
		{"Missing User", sign("test-secret", auth.Claims{RegisteredClaims: valid})},
		{"Unsigned", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{UserID: uuid.New(), RegisteredClaims: valid}).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.GetUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
