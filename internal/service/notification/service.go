package notification

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edushare/internal/domain"
	"edushare/internal/repository"
	"edushare/internal/service/email"
)

const (
	unreadCacheTTL   = 5 * time.Minute
	unreadVersionTTL = 24 * time.Hour
	emailTimeout     = 30 * time.Second
)

type Service interface {
	Emit(ctx context.Context, repo repository.NotificationRepository, input domain.NotificationInput) (*domain.Notification, error)
	Deliver(ctx context.Context, notifications ...*domain.Notification)
	InvalidateUnread(ctx context.Context, userIDs ...uuid.UUID)
	Wait()

	List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.NotificationView], error)
	MarkAsRead(ctx context.Context, id, actorID uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type service struct {
	repos    *repository.Repositories
	redis    *redis.Client
	emailSvc email.Service
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewService wires the dispatcher. redis and emailSvc are optional.
func NewService(repos *repository.Repositories, redisClient *redis.Client, emailSvc email.Service, logger *zap.Logger) Service {
	return &service{
		repos:    repos,
		redis:    redisClient,
		emailSvc: emailSvc,
		logger:   logger.Named("notification"),
	}
}

func unreadCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// unreadVersionKey is bumped on every invalidation. A count is only cached if
// the version it was read under is still current.
func unreadVersionKey(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:unread:%s:version", userID)
}

// Emit records a notification through repo, which is usually bound to the
// caller's database transaction.
func (s *service) Emit(ctx context.Context, repo repository.NotificationRepository, input domain.NotificationInput) (*domain.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, domain.Validationf("notification recipient is required")
	}

	notif := &domain.Notification{
		ID:      uuid.New(),
		UserID:  input.UserID,
		Type:    input.Type,
		Message: input.Message,
	}
	if input.TransactionID != nil {
		notif.RelatedTransactionID = uuid.NullUUID{UUID: *input.TransactionID, Valid: true}
	}

	if err := repo.Create(ctx, notif); err != nil {
		return nil, fmt.Errorf("create %s notification: %w", input.Type, err)
	}
	return notif, nil
}

// Deliver runs the post-commit side effects of emitted notifications.
func (s *service) Deliver(ctx context.Context, notifications ...*domain.Notification) {
	recipients := make([]uuid.UUID, 0, len(notifications))
	for _, n := range notifications {
		recipients = append(recipients, n.UserID)
	}
	s.InvalidateUnread(ctx, recipients...)

	if s.emailSvc == nil || len(notifications) == 0 {
		return
	}

	mailCtx := context.WithoutCancel(ctx)
	for _, n := range notifications {
		s.wg.Add(1)
		go func(n *domain.Notification) {
			defer s.wg.Done()

			ctx, cancel := context.WithTimeout(mailCtx, emailTimeout)
			defer cancel()

			if err := s.mirrorToEmail(ctx, n); err != nil {
				s.logger.Warn("email mirror failed",
					zap.String("notification_id", n.ID.String()),
					zap.String("user_id", n.UserID.String()),
					zap.Error(err))
			}
		}(n)
	}
}

func (s *service) mirrorToEmail(ctx context.Context, n *domain.Notification) error {
	recipient, err := s.repos.User.GetByID(ctx, n.UserID)
	if err != nil {
		return err
	}

	var title string
	if n.RelatedTransactionID.Valid {
		if txn, err := s.repos.Transaction.GetByID(ctx, n.RelatedTransactionID.UUID); err == nil {
			if listing, err := s.repos.Listing.GetByID(ctx, txn.ListingID); err == nil {
				title = listing.Title
			}
		}
	}

	return s.emailSvc.SendNotificationEmail(ctx, recipient, n, title)
}

// Wait blocks until in-flight email mirrors have finished.
func (s *service) Wait() {
	s.wg.Wait()
}

func (s *service) InvalidateUnread(ctx context.Context, userIDs ...uuid.UUID) {
	if s.redis == nil || len(userIDs) == 0 {
		return
	}

	keys := make([]string, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			keys = append(keys, unreadCacheKey(id))

			pipe.Del(ctx, unreadCacheKey(id))
			pipe.Incr(ctx, unreadVersionKey(id))
			pipe.Expire(ctx, unreadVersionKey(id), unreadVersionTTL)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to invalidate unread cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, params domain.PaginationParams) (domain.PaginatedResponse[domain.NotificationView], error) {
	params.Validate()

	notifications, total, err := s.repos.Notification.ListByUser(ctx, userID, unreadOnly, params)
	if err != nil {
		return domain.PaginatedResponse[domain.NotificationView]{}, err
	}

	txnIDs := make([]uuid.UUID, 0, len(notifications))
	for _, n := range notifications {
		if n.RelatedTransactionID.Valid {
			txnIDs = append(txnIDs, n.RelatedTransactionID.UUID)
		}
	}

	txns, err := s.repos.Transaction.GetByIDs(ctx, txnIDs)
	if err != nil {
		return domain.PaginatedResponse[domain.NotificationView]{}, fmt.Errorf("load related transactions: %w", err)
	}

	listingIDs := make([]uuid.UUID, 0, len(txns))
	for _, txn := range txns {
		listingIDs = append(listingIDs, txn.ListingID)
	}

	listings, err := s.repos.Listing.GetByIDs(ctx, listingIDs)
	if err != nil {
		return domain.PaginatedResponse[domain.NotificationView]{}, fmt.Errorf("load related listings: %w", err)
	}

	views := make([]domain.NotificationView, 0, len(notifications))
	for _, n := range notifications {
		view := domain.NotificationView{Notification: n}
		if n.RelatedTransactionID.Valid {
			if txn, ok := txns[n.RelatedTransactionID.UUID]; ok {
				view.Transaction = txn
				view.Listing = listings[txn.ListingID]
			}
		}
		views = append(views, view)
	}

	return domain.NewPaginatedResponse(views, params.Page, params.PageSize, total), nil
}

// MarkAsRead is idempotent; marking an already read notification succeeds.
func (s *service) MarkAsRead(ctx context.Context, id, actorID uuid.UUID) error {
	notif, err := s.repos.Notification.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notif.UserID != actorID {
		return domain.ErrNotRecipient
	}
	if notif.IsRead {
		return nil
	}

	if err := s.repos.Notification.MarkAsRead(ctx, id, time.Now().UTC()); err != nil {
		return err
	}
	s.InvalidateUnread(ctx, actorID)
	return nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	n, err := s.repos.Notification.MarkAllAsRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		s.InvalidateUnread(ctx, userID)
	}
	return nil
}

func (s *service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	key := unreadCacheKey(userID)
	cacheable := s.redis != nil
	var version string

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			if count, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return count, nil
			}
		case !errors.Is(err, redis.Nil):
			s.logger.Warn("unread cache read failed", zap.String("key", key), zap.Error(err))
		}

		version, err = s.redis.Get(ctx, unreadVersionKey(userID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			cacheable = false
		}
	}

	count, err := s.repos.Notification.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if cacheable {
		s.cacheUnread(ctx, userID, version, count)
	}
	return count, nil
}

// cacheUnread stores count unless the user's cache was invalidated after
// version was read, so a count read before a commit never outlives it.
func (s *service) cacheUnread(ctx context.Context, userID uuid.UUID, version string, count int64) {
	key := unreadCacheKey(userID)
	versionKey := unreadVersionKey(userID)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, count, unreadCacheTTL)
			return nil
		})
		return err
	}, versionKey)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		s.logger.Warn("unread cache write failed", zap.String("key", key), zap.Error(err))
	}
}
