package listing

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"edushare/internal/config"
	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/service/guard"
	"edushare/internal/service/notification"
)

const MaxCoverSize = 5 << 20

var coverExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ObjectStorage is the subset of the MinIO client used for cover images.
type ObjectStorage interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input domain.CreateListingInput) (*domain.Listing, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error)
	List(ctx context.Context, filter domain.ListingFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Listing], error)
	Update(ctx context.Context, id, actorID uuid.UUID, input domain.UpdateListingInput) (*domain.Listing, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	UploadCover(ctx context.Context, id, actorID uuid.UUID, upload domain.CoverUpload) (*domain.Listing, error)
	CoverURL(listing *domain.Listing) string
}

type service struct {
	repos    *repository.Repositories
	notifSvc notification.Service
	storage  ObjectStorage
	cfg      *config.Config
	logger   *zap.Logger
}

// NewService builds the listing store. storage may be nil, in which case
// cover uploads are rejected.
func NewService(repos *repository.Repositories, notifSvc notification.Service, storage ObjectStorage, cfg *config.Config, logger *zap.Logger) Service {
	return &service{
		repos:    repos,
		notifSvc: notifSvc,
		storage:  storage,
		cfg:      cfg,
		logger:   logger.Named("listing"),
	}
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input domain.CreateListingInput) (*domain.Listing, error) {
	title, author, err := cleanDetails(input.Title, input.Author)
	if err != nil {
		return nil, err
	}

	price, donation := domain.ResolvePrice(input.Price, input.IsDonation)
	listing := &domain.Listing{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Author:      author,
		Description: cleanOptional(input.Description),
		Price:       price,
		IsDonation:  donation,
		Status:      domain.ListingAvailable,
	}

	err = s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.User.GetByID(ctx, ownerID); err != nil {
			return err
		}
		if err := tx.Listing.Create(ctx, listing); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return writeAudit(ctx, tx, ownerID, domain.ActionCreateListing, listing.ID, "", string(domain.ListingAvailable))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing created", zap.String("listing_id", listing.ID.String()), zap.String("actor_id", ownerID.String()))
	return listing, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	return s.repos.Listing.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter domain.ListingFilter, params domain.PaginationParams) (domain.PaginatedResponse[domain.Listing], error) {
	params.Validate()
	if filter.Status == nil {
		available := domain.ListingAvailable
		filter.Status = &available
	} else if !filter.Status.IsValid() {
		return domain.PaginatedResponse[domain.Listing]{}, domain.Validationf("unknown listing status %q", *filter.Status)
	}

	listings, total, err := s.repos.Listing.List(ctx, filter, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Listing]{}, err
	}
	return domain.NewPaginatedResponse(listings, params.Page, params.PageSize, total), nil
}

// Update edits a listing's details. Only the owner may do so, and only while
// no request holds the listing.
func (s *service) Update(ctx context.Context, id, actorID uuid.UUID, input domain.UpdateListingInput) (*domain.Listing, error) {
	title, author, err := cleanDetails(input.Title, input.Author)
	if err != nil {
		return nil, err
	}

	var listing *domain.Listing
	err = s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		listing, err = tx.Listing.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !guard.OwnsListing(listing, actorID) {
			return domain.ErrNotOwner
		}
		if !guard.CanEdit(listing, actorID) {
			return domain.ErrListingNotEditable
		}

		listing.Title = title
		listing.Author = author
		listing.Description = cleanOptional(input.Description)
		listing.Price, listing.IsDonation = domain.ResolvePrice(input.Price, input.IsDonation)

		if err := tx.Listing.UpdateDetails(ctx, listing); err != nil {
			return err
		}
		return writeAudit(ctx, tx, actorID, domain.ActionUpdateListing, listing.ID, string(listing.Status), string(listing.Status))
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// Delete removes a listing with no active transactions together with its
// transaction history and the notifications that reference it.
func (s *service) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	var listing *domain.Listing
	var recipients []uuid.UUID

	err := s.repos.WithinTx(ctx, func(tx *repository.Repositories) error {
		var err error
		listing, err = tx.Listing.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !guard.OwnsListing(listing, actorID) {
			return domain.ErrNotOwner
		}

		if err := tx.Listing.LockForRemoval(ctx, id); err != nil {
			return err
		}

		active, err := tx.Transaction.CountActiveByListing(ctx, id)
		if err != nil {
			return fmt.Errorf("count active transactions: %w", err)
		}
		if !guard.CanDelete(listing, actorID, active) {
			return domain.ErrListingHasActiveTransactions
		}

		txns, err := tx.Transaction.ListByListing(ctx, id)
		if err != nil {
			return err
		}
		txnIDs := make([]uuid.UUID, 0, len(txns))
		for _, txn := range txns {
			txnIDs = append(txnIDs, txn.ID)
		}

		if recipients, err = tx.Notification.RecipientsByTransactions(ctx, txnIDs); err != nil {
			return err
		}
		if err := tx.Notification.DeleteByTransactions(ctx, txnIDs); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Transaction.DeleteByListing(ctx, id); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if err := tx.Listing.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete listing: %w", err)
		}
		return writeAudit(ctx, tx, actorID, domain.ActionDeleteListing, id, string(listing.Status), "")
	})
	if err != nil {
		return err
	}

	s.notifSvc.InvalidateUnread(ctx, recipients...)
	if listing.CoverPath != nil {
		s.removeObject(ctx, *listing.CoverPath)
	}

	s.logger.Info("listing deleted", zap.String("listing_id", id.String()), zap.String("actor_id", actorID.String()))
	return nil
}

func (s *service) UploadCover(ctx context.Context, id, actorID uuid.UUID, upload domain.CoverUpload) (*domain.Listing, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	ext, ok := coverExtensions[upload.ContentType]
	if !ok {
		return nil, domain.Validationf("cover must be a JPEG, PNG or WebP image")
	}
	if upload.Size <= 0 || upload.Size > MaxCoverSize {
		return nil, domain.Validationf("cover must be between 1 byte and %d MB", MaxCoverSize>>20)
	}

	listing, err := s.repos.Listing.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !guard.OwnsListing(listing, actorID) {
		return nil, domain.ErrNotOwner
	}
	if !guard.CanEdit(listing, actorID) {
		return nil, domain.ErrListingNotEditable
	}

	objectName := path.Join("covers", id.String(), uuid.NewString()+ext)
	_, err = s.storage.PutObject(ctx, s.cfg.MinIOBucket, objectName, upload.Reader, upload.Size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload cover: %w", err)
	}

	if err := s.repos.Listing.SetCover(ctx, id, &objectName); err != nil {
		s.removeObject(ctx, objectName)
		return nil, err
	}

	if listing.CoverPath != nil {
		s.removeObject(ctx, *listing.CoverPath)
	}
	listing.CoverPath = &objectName
	return listing, nil
}

func (s *service) CoverURL(listing *domain.Listing) string {
	if listing == nil || listing.CoverPath == nil {
		return ""
	}

	scheme := "http"
	if s.cfg.MinIOPublicUseSSL {
		scheme = "https"
	}

	segments := strings.Split(*listing.CoverPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.cfg.MinIOPublicEndpoint, s.cfg.MinIOBucket, strings.Join(segments, "/"))
}

func (s *service) removeObject(ctx context.Context, objectName string) {
	if s.storage == nil {
		return
	}
	if err := s.storage.RemoveObject(ctx, s.cfg.MinIOBucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		s.logger.Warn("failed to remove cover", zap.String("object", objectName), zap.Error(err))
	}
}

func cleanDetails(title, author string) (string, string, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return "", "", domain.Validationf("'title' is required")
	}
	if author == "" {
		return "", "", domain.Validationf("'author' is required")
	}
	return title, author, nil
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func writeAudit(ctx context.Context, tx *repository.Repositories, actorID uuid.UUID, action string, listingID uuid.UUID, oldStatus, newStatus string) error {
	meta := domain.RequestMetaFrom(ctx)
	entry := &domain.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: domain.EntityListing,
		EntityID:   listingID,
		OldStatus:  optional(oldStatus),
		NewStatus:  optional(newStatus),
		IPAddress:  optional(meta.IPAddress),
		UserAgent:  optional(meta.UserAgent),
	}
	if err := tx.AuditLog.Create(ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
