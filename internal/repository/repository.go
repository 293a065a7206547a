package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	db *sqlx.DB
	tx *sqlx.Tx

	User         UserRepository
	Listing      ListingRepository
	Transaction  TransactionRepository
	Notification NotificationRepository
	AuditLog     AuditLogRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	repos := newRepositories(db)
	repos.db = db
	return repos
}

func newRepositories(ext sqlx.ExtContext) *Repositories {
	return &Repositories{
		User:         NewUserRepository(ext),
		Listing:      NewListingRepository(ext),
		Transaction:  NewTransactionRepository(ext),
		Notification: NewNotificationRepository(ext),
		AuditLog:     NewAuditLogRepository(ext),
	}
}

// WithinTx runs fn with repositories bound to a single database transaction.
// The transaction commits when fn returns nil and rolls back otherwise. Calling
// WithinTx on repositories that are already transaction bound reuses the
// running transaction.
func (r *Repositories) WithinTx(ctx context.Context, fn func(repos *Repositories) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}
	if r.db == nil {
		return fmt.Errorf("repositories have no database handle")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	txRepos := newRepositories(tx)
	txRepos.tx = tx

	if err := fn(txRepos); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
