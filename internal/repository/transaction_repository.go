package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"edushare/internal/domain"
)

const transactionColumns = `id, listing_id, requester_id, owner_id, type, status, requested_at, action_at, completed_at, seller_contact_info`

type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Transaction, error)
	HasPendingRequest(ctx context.Context, listingID, requesterID uuid.UUID) (bool, error)
	GetActiveForRequester(ctx context.Context, listingID, requesterID uuid.UUID) (*domain.Transaction, error)
	CountActiveByListing(ctx context.Context, listingID uuid.UUID) (int64, error)
	ListByListing(ctx context.Context, listingID uuid.UUID) ([]domain.Transaction, error)
	ListPendingByListing(ctx context.Context, listingID, excludeID uuid.UUID) ([]domain.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, role domain.TransactionRole, status *domain.TransactionStatus, params domain.PaginationParams) ([]domain.Transaction, int64, error)
	ListCompleted(ctx context.Context, params domain.PaginationParams) ([]domain.Transaction, int64, error)
	Accept(ctx context.Context, id uuid.UUID, contactInfo string, at time.Time) error
	Transition(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, at time.Time) error
	CancelPending(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
	DeleteByListing(ctx context.Context, listingID uuid.UUID) error
}

type transactionRepository struct {
	db sqlx.ExtContext
}

func NewTransactionRepository(db sqlx.ExtContext) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.RequestedAt.IsZero() {
		txn.RequestedAt = time.Now().UTC()
	}
	if txn.Status == "" {
		txn.Status = domain.TransactionPending
	}

	query := `
		INSERT INTO transactions (id, listing_id, requester_id, owner_id, type, status, requested_at, action_at, completed_at, seller_contact_info)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		txn.ID, txn.ListingID, txn.RequesterID, txn.OwnerID, txn.Type, txn.Status,
		txn.RequestedAt, txn.ActionAt, txn.CompletedAt, txn.SellerContactInfo,
	)
	if isUniqueViolation(err) {
		return domain.ErrPendingRequestExists
	}
	return err
}

func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var txn domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &txn, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound)
	}
	return &txn, nil
}

func (r *transactionRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Transaction, error) {
	result := make(map[uuid.UUID]*domain.Transaction, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+transactionColumns+` FROM transactions WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var txns []domain.Transaction
	if err := sqlx.SelectContext(ctx, r.db, &txns, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range txns {
		result[txns[i].ID] = &txns[i]
	}
	return result, nil
}

func (r *transactionRepository) HasPendingRequest(ctx context.Context, listingID, requesterID uuid.UUID) (bool, error) {
	var count int64
	query := `SELECT COUNT(*) FROM transactions WHERE listing_id = ? AND requester_id = ? AND status = ?`
	err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(query), listingID, requesterID, domain.TransactionPending)
	return count > 0, err
}

func (r *transactionRepository) GetActiveForRequester(ctx context.Context, listingID, requesterID uuid.UUID) (*domain.Transaction, error) {
	query, args, err := sqlx.In(`
		SELECT `+transactionColumns+` FROM transactions
		WHERE listing_id = ? AND requester_id = ? AND status IN (?)
		ORDER BY requested_at DESC
		LIMIT 1`, listingID, requesterID, domain.ActiveTransactionStatuses)
	if err != nil {
		return nil, err
	}

	var txn domain.Transaction
	if err := sqlx.GetContext(ctx, r.db, &txn, r.db.Rebind(query), args...); err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound)
	}
	return &txn, nil
}

func (r *transactionRepository) CountActiveByListing(ctx context.Context, listingID uuid.UUID) (int64, error) {
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM transactions WHERE listing_id = ? AND status IN (?)`,
		listingID, domain.ActiveTransactionStatuses)
	if err != nil {
		return 0, err
	}

	var count int64
	err = sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(query), args...)
	return count, err
}

func (r *transactionRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE listing_id = ? ORDER BY requested_at`
	txns := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &txns, r.db.Rebind(query), listingID)
	return txns, err
}

func (r *transactionRepository) ListPendingByListing(ctx context.Context, listingID, excludeID uuid.UUID) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE listing_id = ? AND id <> ? AND status = ?
		ORDER BY requested_at`
	txns := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &txns, r.db.Rebind(query), listingID, excludeID, domain.TransactionPending)
	return txns, err
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, role domain.TransactionRole, status *domain.TransactionStatus, params domain.PaginationParams) ([]domain.Transaction, int64, error) {
	params.Validate()

	column := "requester_id"
	if role == domain.RoleOwner {
		column = "owner_id"
	}

	where := column + ` = ?`
	args := []interface{}{userID}
	if status != nil {
		where += ` AND status = ?`
		args = append(args, *status)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE ` + where
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(countQuery), args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE ` + where + `
		ORDER BY requested_at DESC
		LIMIT ? OFFSET ?`

	txns := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &txns, r.db.Rebind(query), append(args, params.PageSize, params.Offset())...)
	return txns, total, err
}

func (r *transactionRepository) ListCompleted(ctx context.Context, params domain.PaginationParams) ([]domain.Transaction, int64, error) {
	params.Validate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE status = ?`
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(countQuery), domain.TransactionCompleted); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = ?
		ORDER BY completed_at DESC
		LIMIT ? OFFSET ?`

	txns := []domain.Transaction{}
	err := sqlx.SelectContext(ctx, r.db, &txns, r.db.Rebind(query), domain.TransactionCompleted, params.PageSize, params.Offset())
	return txns, total, err
}

// Accept stores the owner's contact details on a pending transaction.
func (r *transactionRepository) Accept(ctx context.Context, id uuid.UUID, contactInfo string, at time.Time) error {
	query := `
		UPDATE transactions
		SET status = ?, seller_contact_info = ?, action_at = ?
		WHERE id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		domain.TransactionAccepted, contactInfo, at, id, domain.TransactionPending,
	)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrStatusChanged)
}

// Transition moves a transaction from one status to another, stamping
// completed_at for completions and action_at otherwise.
func (r *transactionRepository) Transition(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, at time.Time) error {
	column := "action_at"
	if to == domain.TransactionCompleted {
		column = "completed_at"
	}

	query := `UPDATE transactions SET status = ?, ` + column + ` = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), to, at, id, from)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrStatusChanged)
}

// CancelPending cancels the given transactions that are still pending and
// returns how many rows changed.
func (r *transactionRepository) CancelPending(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`UPDATE transactions SET status = ?, action_at = ? WHERE id IN (?) AND status = ?`,
		domain.TransactionCancelled, at, ids, domain.TransactionPending)
	if err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *transactionRepository) DeleteByListing(ctx context.Context, listingID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM transactions WHERE listing_id = ?`), listingID)
	return err
}
