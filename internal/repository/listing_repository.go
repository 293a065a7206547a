package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"edushare/internal/domain"
)

const (
	listingsTable  = "listings"
	listingColumns = `id, owner_id, title, author, description, price, is_donation, status, cover_path, created_at, updated_at`
)

var listingSelect = []interface{}{
	"id", "owner_id", "title", "author", "description", "price",
	"is_donation", "status", "cover_path", "created_at", "updated_at",
}

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Listing, error)
	List(ctx context.Context, filter domain.ListingFilter, params domain.PaginationParams) ([]domain.Listing, int64, error)
	UpdateDetails(ctx context.Context, listing *domain.Listing) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) error
	SetCover(ctx context.Context, id uuid.UUID, coverPath *string) error
	LockForRemoval(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[domain.ListingStatus]int64, error)
}

type listingRepository struct {
	db      sqlx.ExtContext
	dialect goqu.DialectWrapper
}

func NewListingRepository(db sqlx.ExtContext) ListingRepository {
	return &listingRepository{db: db, dialect: goqu.Dialect(goquDialect(db.DriverName()))}
}

func goquDialect(driverName string) string {
	if driverName == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	now := time.Now().UTC()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	if listing.Status == "" {
		listing.Status = domain.ListingAvailable
	}
	listing.CreatedAt = now
	listing.UpdatedAt = now

	query := `
		INSERT INTO listings (id, owner_id, title, author, description, price, is_donation, status, cover_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		listing.ID, listing.OwnerID, listing.Title, listing.Author, listing.Description,
		listing.Price, listing.IsDonation, listing.Status, listing.CoverPath,
		listing.CreatedAt, listing.UpdatedAt,
	)
	return err
}

func (r *listingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	var listing domain.Listing
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &listing, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err, domain.ErrListingNotFound)
	}
	return &listing, nil
}

func (r *listingRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Listing, error) {
	result := make(map[uuid.UUID]*domain.Listing, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+listingColumns+` FROM listings WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}

	var listings []domain.Listing
	if err := sqlx.SelectContext(ctx, r.db, &listings, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for i := range listings {
		result[listings[i].ID] = &listings[i]
	}
	return result, nil
}

func (r *listingRepository) List(ctx context.Context, filter domain.ListingFilter, params domain.PaginationParams) ([]domain.Listing, int64, error) {
	params.Validate()

	ds := r.dialect.From(listingsTable).Prepared(true)
	if filter.Status != nil {
		ds = ds.Where(goqu.C("status").Eq(string(*filter.Status)))
	}
	if filter.IsDonation != nil {
		ds = ds.Where(goqu.C("is_donation").Eq(*filter.IsDonation))
	}
	if filter.OwnerID != nil {
		ds = ds.Where(goqu.C("owner_id").Eq(filter.OwnerID.String()))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.Func("LOWER", goqu.C("title")).Like(pattern),
			goqu.Func("LOWER", goqu.C("author")).Like(pattern),
		))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build listing count: %w", err)
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, countSQL, countArgs...); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := ds.Select(listingSelect...).
		Order(goqu.C("created_at").Desc()).
		Limit(uint(params.PageSize)).
		Offset(uint(params.Offset())).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build listing query: %w", err)
	}

	listings := []domain.Listing{}
	err = sqlx.SelectContext(ctx, r.db, &listings, listSQL, listArgs...)
	return listings, total, err
}

// UpdateDetails rewrites the editable fields while the listing is still available.
func (r *listingRepository) UpdateDetails(ctx context.Context, listing *domain.Listing) error {
	listing.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE listings
		SET title = ?, author = ?, description = ?, price = ?, is_donation = ?, updated_at = ?
		WHERE id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		listing.Title, listing.Author, listing.Description, listing.Price, listing.IsDonation,
		listing.UpdatedAt, listing.ID, domain.ListingAvailable,
	)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrListingNotEditable)
}

// UpdateStatus moves the listing from one status to another. It fails with
// ErrStatusChanged when the listing is no longer in the from status.
func (r *listingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ListingStatus) error {
	query := `UPDATE listings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), to, time.Now().UTC(), id, from)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrStatusChanged)
}

func (r *listingRepository) SetCover(ctx context.Context, id uuid.UUID, coverPath *string) error {
	query := `UPDATE listings SET cover_path = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), coverPath, time.Now().UTC(), id, domain.ListingAvailable)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrListingNotEditable)
}

// LockForRemoval touches the listing row unless a request holds it, which
// serialises a delete against concurrent requests.
func (r *listingRepository) LockForRemoval(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE listings SET updated_at = ? WHERE id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), time.Now().UTC(), id, domain.ListingPending)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrListingHasActiveTransactions)
}

func (r *listingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM listings WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectOne(res, domain.ErrListingNotFound)
}

func (r *listingRepository) CountByStatus(ctx context.Context) (map[domain.ListingStatus]int64, error) {
	var rows []struct {
		Status domain.ListingStatus `db:"status"`
		Count  int64                `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM listings GROUP BY status`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, err
	}

	counts := make(map[domain.ListingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
