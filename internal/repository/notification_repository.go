package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"edushare/internal/domain"
)

const notificationColumns = `id, user_id, type, message, related_transaction_id, is_read, read_at, created_at`

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error)
	ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	RecipientsByTransactions(ctx context.Context, transactionIDs []uuid.UUID) ([]uuid.UUID, error)
	DeleteByTransactions(ctx context.Context, transactionIDs []uuid.UUID) error
}

type notificationRepository struct {
	db sqlx.ExtContext
}

func NewNotificationRepository(db sqlx.ExtContext) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notif *domain.Notification) error {
	if notif.ID == uuid.Nil {
		notif.ID = uuid.New()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (id, user_id, type, message, related_transaction_id, is_read, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		notif.ID, notif.UserID, notif.Type, notif.Message, notif.RelatedTransactionID,
		notif.IsRead, notif.ReadAt, notif.CreatedAt,
	)
	return err
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	var notif domain.Notification
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &notif, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err, domain.ErrNotificationNotFound)
	}
	return &notif, nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) ([]domain.Notification, int64, error) {
	params.Validate()

	where := `user_id = ?`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE ` + where
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(countQuery), userID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?`

	notifications := []domain.Notification{}
	err := sqlx.SelectContext(ctx, r.db, &notifications, r.db.Rebind(query), userID, params.PageSize, params.Offset())
	return notifications, total, err
}

func (r *notificationRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE related_transaction_id = ? ORDER BY created_at`
	notifications := []domain.Notification{}
	err := sqlx.SelectContext(ctx, r.db, &notifications, r.db.Rebind(query), transactionID)
	return notifications, err
}

// MarkAsRead is a no-op for notifications that are already read.
func (r *notificationRepository) MarkAsRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE notifications SET is_read = TRUE, read_at = ? WHERE id = ? AND is_read = FALSE`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), at, id)
	return err
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = ? WHERE user_id = ? AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = FALSE`
	err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(query), userID)
	return count, err
}

func (r *notificationRepository) RecipientsByTransactions(ctx context.Context, transactionIDs []uuid.UUID) ([]uuid.UUID, error) {
	recipients := []uuid.UUID{}
	if len(transactionIDs) == 0 {
		return recipients, nil
	}

	query, args, err := sqlx.In(`SELECT DISTINCT user_id FROM notifications WHERE related_transaction_id IN (?)`, transactionIDs)
	if err != nil {
		return nil, err
	}
	err = sqlx.SelectContext(ctx, r.db, &recipients, r.db.Rebind(query), args...)
	return recipients, err
}

func (r *notificationRepository) DeleteByTransactions(ctx context.Context, transactionIDs []uuid.UUID) error {
	if len(transactionIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM notifications WHERE related_transaction_id IN (?)`, transactionIDs)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}
