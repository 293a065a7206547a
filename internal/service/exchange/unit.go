package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edushare/internal/domain"
	"edushare/internal/pkg/i18n"
	"edushare/internal/repository"
)

// unit is one engine operation: the transaction-bound repositories plus the
// notifications it emitted, delivered only after commit.
type unit struct {
	ctx     context.Context
	svc     *service
	repos   *repository.Repositories
	now     time.Time
	emitted []*domain.Notification
}

func (s *service) inTx(ctx context.Context, fn func(u *unit) error) error {
	var u *unit

	err := s.repos.WithinTx(ctx, func(repos *repository.Repositories) error {
		u = &unit{ctx: ctx, svc: s, repos: repos, now: s.now()}
		return fn(u)
	})
	if err != nil {
		return err
	}

	s.notifSvc.Deliver(ctx, u.emitted...)
	return nil
}

func (u *unit) load(transactionID uuid.UUID) (*domain.Transaction, *domain.Listing, error) {
	txn, err := u.repos.Transaction.GetByID(u.ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	listing, err := u.repos.Listing.GetByID(u.ctx, txn.ListingID)
	if err != nil {
		return nil, nil, err
	}
	return txn, listing, nil
}

func (u *unit) notify(userID uuid.UUID, typ domain.NotificationType, transactionID uuid.UUID, vars map[string]string) error {
	notif, err := u.svc.notifSvc.Emit(u.ctx, u.repos.Notification, domain.NotificationInput{
		UserID:        userID,
		Type:          typ,
		Message:       i18n.Format(u.svc.locale, string(typ), vars),
		TransactionID: &transactionID,
	})
	if err != nil {
		return err
	}
	u.emitted = append(u.emitted, notif)
	return nil
}

func (u *unit) audit(actorID uuid.UUID, action, entityType string, entityID uuid.UUID, oldStatus, newStatus string) error {
	meta := domain.RequestMetaFrom(u.ctx)
	entry := &domain.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		OldStatus:  &oldStatus,
		NewStatus:  &newStatus,
		CreatedAt:  u.now,
	}
	if meta.IPAddress != "" {
		entry.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		entry.UserAgent = &meta.UserAgent
	}

	if err := u.repos.AuditLog.Create(u.ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// releaseListing returns a pending listing to available once no active
// transaction holds it. With strict set, a listing that is no longer pending
// is an error.
func (u *unit) releaseListing(listing *domain.Listing, strict bool) error {
	active, err := u.repos.Transaction.CountActiveByListing(u.ctx, listing.ID)
	if err != nil {
		return fmt.Errorf("count active transactions: %w", err)
	}
	if active > 0 {
		u.svc.logger.Warn("listing still held by another transaction",
			zap.String("listing_id", listing.ID.String()),
			zap.Int64("active", active))
		return nil
	}

	err = u.repos.Listing.UpdateStatus(u.ctx, listing.ID, domain.ListingPending, domain.ListingAvailable)
	if err != nil && (strict || !isStatusChanged(err)) {
		return fmt.Errorf("release listing: %w", err)
	}
	return nil
}

// cancelRivals force-cancels every other pending request on a listing that
// has just been completed and tells each displaced requester.
func (u *unit) cancelRivals(listing *domain.Listing, winnerID uuid.UUID) (int, error) {
	rivals, err := u.repos.Transaction.ListPendingByListing(u.ctx, listing.ID, winnerID)
	if err != nil {
		return 0, fmt.Errorf("list pending requests: %w", err)
	}
	if len(rivals) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(rivals))
	for _, rival := range rivals {
		ids = append(ids, rival.ID)
	}

	n, err := u.repos.Transaction.CancelPending(u.ctx, ids, u.now)
	if err != nil {
		return 0, fmt.Errorf("cancel pending requests: %w", err)
	}
	if n != int64(len(ids)) {
		return 0, domain.ErrStatusChanged
	}

	for _, rival := range rivals {
		if err := u.notify(rival.RequesterID, domain.NotifListingUnavailable, rival.ID, map[string]string{
			"title": listing.Title,
		}); err != nil {
			return 0, err
		}
		if err := u.audit(rival.OwnerID, domain.ActionAutoCancel, domain.EntityTransaction, rival.ID,
			string(domain.TransactionPending), string(domain.TransactionCancelled)); err != nil {
			return 0, err
		}
	}
	return len(rivals), nil
}
