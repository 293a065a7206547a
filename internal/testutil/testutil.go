// Package testutil provides a throwaway SQL database and fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"edushare/internal/domain"
	"edushare/internal/repository"
)

// NewDB opens a file backed sqlite database with the production schema applied.
// A single connection serialises transactions the way row locks would.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "edushare.db")
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)

	db, err := sqlx.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

// CreateUser inserts a user with a unique username derived from name.
func CreateUser(t *testing.T, repos *repository.Repositories, name string) *domain.User {
	t.Helper()

	suffix := uuid.NewString()[:8]
	user := &domain.User{
		Username: name + "-" + suffix,
		Email:    name + "-" + suffix + "@example.com",
	}
	require.NoError(t, repos.User.Create(context.Background(), user))
	return user
}

// CreateListing inserts an available listing; a zero price makes it a donation.
func CreateListing(t *testing.T, repos *repository.Repositories, owner *domain.User, title string, price float64) *domain.Listing {
	t.Helper()

	p := decimal.NewFromFloat(price)
	amount, donation := domain.ResolvePrice(&p, false)
	listing := &domain.Listing{
		OwnerID:    owner.ID,
		Title:      title,
		Author:     "Author of " + title,
		Price:      amount,
		IsDonation: donation,
	}
	require.NoError(t, repos.Listing.Create(context.Background(), listing))
	return listing
}
