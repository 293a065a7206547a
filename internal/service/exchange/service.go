// Package exchange implements the request lifecycle that moves a listing
// between owners: request, accept, reject, cancel and complete.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edushare/internal/domain"
	"edushare/internal/pkg/i18n"
	"edushare/internal/repository"
	"edushare/internal/service/guard"
	"edushare/internal/service/notification"
)

type Service interface {
	Request(ctx context.Context, listingID, requesterID uuid.UUID) (*domain.Transaction, error)
	Accept(ctx context.Context, transactionID, actorID uuid.UUID, contactInfo string) (*domain.Transaction, error)
	Reject(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error)
	Cancel(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error)
	Complete(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error)

	GetByID(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID, role domain.TransactionRole, status *domain.TransactionStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.Transaction], error)
	ActiveRequestFor(ctx context.Context, listingID, userID uuid.UUID) (*domain.Transaction, error)
	ListCompleted(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.CompletedExchange], error)
}

type service struct {
	repos    *repository.Repositories
	notifSvc notification.Service
	logger   *zap.Logger
	locale   string
	now      func() time.Time
}

func NewService(repos *repository.Repositories, notifSvc notification.Service, logger *zap.Logger, locale string) Service {
	if locale == "" {
		locale = i18n.DefaultLocale
	}
	return &service{
		repos:    repos,
		notifSvc: notifSvc,
		logger:   logger.Named("exchange"),
		locale:   locale,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Request(ctx context.Context, listingID, requesterID uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.inTx(ctx, func(u *unit) error {
		listing, err := u.repos.Listing.GetByID(ctx, listingID)
		if err != nil {
			return err
		}

		if !guard.CanRequest(listing, requesterID) {
			return domain.ErrOwnListing
		}
		if listing.Status.IsTerminal() {
			return domain.ErrListingClosed
		}
		if listing.Status != domain.ListingAvailable {
			return domain.ErrListingUnavailable
		}

		pending, err := u.repos.Transaction.HasPendingRequest(ctx, listingID, requesterID)
		if err != nil {
			return fmt.Errorf("check pending request: %w", err)
		}
		if pending {
			return domain.ErrPendingRequestExists
		}

		requester, err := u.repos.User.GetByID(ctx, requesterID)
		if err != nil {
			return err
		}

		if err := u.repos.Listing.UpdateStatus(ctx, listingID, domain.ListingAvailable, domain.ListingPending); err != nil {
			return fmt.Errorf("reserve listing: %w", err)
		}

		txn = &domain.Transaction{
			ID:          uuid.New(),
			ListingID:   listing.ID,
			RequesterID: requesterID,
			OwnerID:     listing.OwnerID,
			Type:        listing.TransactionType(),
			Status:      domain.TransactionPending,
			RequestedAt: u.now,
		}
		if err := u.repos.Transaction.Create(ctx, txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}

		if err := u.notify(listing.OwnerID, domain.NotifRequestReceived, txn.ID, map[string]string{
			"requester": requester.Username,
			"verb":      s.verb(txn.Type),
			"title":     listing.Title,
		}); err != nil {
			return err
		}

		return u.audit(requesterID, domain.ActionRequestListing, domain.EntityListing, listing.ID,
			string(domain.ListingAvailable), string(domain.ListingPending))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("listing requested",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("listing_id", listingID.String()),
		zap.String("actor_id", requesterID.String()))
	return txn, nil
}

func (s *service) Accept(ctx context.Context, transactionID, actorID uuid.UUID, contactInfo string) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.inTx(ctx, func(u *unit) error {
		var listing *domain.Listing
		var err error
		txn, listing, err = u.load(transactionID)
		if err != nil {
			return err
		}

		if !guard.IsOwner(txn, actorID) {
			return domain.ErrNotOwner
		}
		if txn.Status != domain.TransactionPending {
			return domain.InvalidTransition("accept", txn.Status)
		}
		if listing.Status != domain.ListingPending {
			return listingNotHeld(listing)
		}

		contact := strings.TrimSpace(contactInfo)
		if contact == "" {
			return domain.ErrContactInfoRequired
		}

		owner, err := u.repos.User.GetByID(ctx, actorID)
		if err != nil {
			return err
		}

		if err := u.repos.Transaction.Accept(ctx, txn.ID, contact, u.now); err != nil {
			return fmt.Errorf("accept transaction: %w", err)
		}
		txn.Status = domain.TransactionAccepted
		txn.SellerContactInfo = &contact
		txn.ActionAt = &u.now

		if err := u.notify(txn.RequesterID, domain.NotifRequestAccepted, txn.ID, map[string]string{
			"title":   listing.Title,
			"owner":   owner.Username,
			"contact": contact,
		}); err != nil {
			return err
		}

		return u.audit(actorID, domain.ActionAcceptTransaction, domain.EntityTransaction, txn.ID,
			string(domain.TransactionPending), string(domain.TransactionAccepted))
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("transaction accepted", txn, actorID)
	return txn, nil
}

func (s *service) Reject(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.inTx(ctx, func(u *unit) error {
		var listing *domain.Listing
		var err error
		txn, listing, err = u.load(transactionID)
		if err != nil {
			return err
		}

		if !guard.IsOwner(txn, actorID) {
			return domain.ErrNotOwner
		}
		if txn.Status != domain.TransactionPending {
			return domain.InvalidTransition("reject", txn.Status)
		}
		if listing.Status != domain.ListingPending {
			return listingNotHeld(listing)
		}

		if err := u.repos.Transaction.Transition(ctx, txn.ID, domain.TransactionPending, domain.TransactionRejected, u.now); err != nil {
			return fmt.Errorf("reject transaction: %w", err)
		}
		txn.Status = domain.TransactionRejected
		txn.ActionAt = &u.now

		if err := u.releaseListing(listing, true); err != nil {
			return err
		}

		if err := u.notify(txn.RequesterID, domain.NotifRequestRejected, txn.ID, map[string]string{
			"title": listing.Title,
		}); err != nil {
			return err
		}

		return u.audit(actorID, domain.ActionRejectTransaction, domain.EntityTransaction, txn.ID,
			string(domain.TransactionPending), string(domain.TransactionRejected))
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("transaction rejected", txn, actorID)
	return txn, nil
}

func (s *service) Cancel(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction

	err := s.inTx(ctx, func(u *unit) error {
		var listing *domain.Listing
		var err error
		txn, listing, err = u.load(transactionID)
		if err != nil {
			return err
		}

		if !guard.IsRequester(txn, actorID) {
			return domain.ErrNotRequester
		}
		if txn.Status != domain.TransactionPending {
			return domain.InvalidTransition("cancel", txn.Status)
		}

		requester, err := u.repos.User.GetByID(ctx, actorID)
		if err != nil {
			return err
		}

		if err := u.repos.Transaction.Transition(ctx, txn.ID, domain.TransactionPending, domain.TransactionCancelled, u.now); err != nil {
			return fmt.Errorf("cancel transaction: %w", err)
		}
		txn.Status = domain.TransactionCancelled
		txn.ActionAt = &u.now

		if listing.Status == domain.ListingPending {
			if err := u.releaseListing(listing, false); err != nil {
				return err
			}
		}

		if err := u.notify(txn.OwnerID, domain.NotifRequestCancelled, txn.ID, map[string]string{
			"requester": requester.Username,
			"title":     listing.Title,
		}); err != nil {
			return err
		}

		return u.audit(actorID, domain.ActionCancelTransaction, domain.EntityTransaction, txn.ID,
			string(domain.TransactionPending), string(domain.TransactionCancelled))
	})
	if err != nil {
		return nil, err
	}

	s.logTransition("transaction cancelled", txn, actorID)
	return txn, nil
}

func (s *service) Complete(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error) {
	var txn *domain.Transaction
	var displaced int

	err := s.inTx(ctx, func(u *unit) error {
		var listing *domain.Listing
		var err error
		txn, listing, err = u.load(transactionID)
		if err != nil {
			return err
		}

		if !guard.IsOwner(txn, actorID) {
			return domain.ErrNotOwner
		}
		if txn.Status != domain.TransactionAccepted {
			return domain.InvalidTransition("complete", txn.Status)
		}

		if err := u.repos.Transaction.Transition(ctx, txn.ID, domain.TransactionAccepted, domain.TransactionCompleted, u.now); err != nil {
			return fmt.Errorf("complete transaction: %w", err)
		}
		txn.Status = domain.TransactionCompleted
		txn.CompletedAt = &u.now

		final := domain.ListingSold
		if txn.Type == domain.TransactionDonation {
			final = domain.ListingDonated
		}
		if err := u.repos.Listing.UpdateStatus(ctx, listing.ID, domain.ListingPending, final); err != nil {
			return fmt.Errorf("close listing: %w", err)
		}

		displaced, err = u.cancelRivals(listing, txn.ID)
		if err != nil {
			return err
		}

		if err := u.notify(txn.RequesterID, domain.NotifRequestCompleted, txn.ID, map[string]string{
			"title": listing.Title,
		}); err != nil {
			return err
		}

		return u.audit(actorID, domain.ActionCompleteTransaction, domain.EntityTransaction, txn.ID,
			string(domain.TransactionAccepted), string(domain.TransactionCompleted))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction completed",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("listing_id", txn.ListingID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Int("cancelled_rivals", displaced))
	return txn, nil
}

func (s *service) GetByID(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.repos.Transaction.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !guard.IsParticipant(txn, actorID) {
		return nil, domain.ErrNotParticipant
	}

	if txn.Listing, err = s.repos.Listing.GetByID(ctx, txn.ListingID); err != nil {
		return nil, err
	}

	users, err := s.repos.User.GetByIDs(ctx, []uuid.UUID{txn.RequesterID, txn.OwnerID})
	if err != nil {
		return nil, err
	}
	txn.Requester = users[txn.RequesterID]
	txn.Owner = users[txn.OwnerID]

	return txn, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, role domain.TransactionRole, status *domain.TransactionStatus, params domain.PaginationParams) (domain.PaginatedResponse[domain.Transaction], error) {
	if !role.IsValid() {
		return domain.PaginatedResponse[domain.Transaction]{}, domain.Validationf("role must be one of [sent received]")
	}
	if status != nil && !status.IsValid() {
		return domain.PaginatedResponse[domain.Transaction]{}, domain.Validationf("unknown transaction status %q", *status)
	}
	params.Validate()

	txns, total, err := s.repos.Transaction.ListByUser(ctx, userID, role, status, params)
	if err != nil {
		return domain.PaginatedResponse[domain.Transaction]{}, err
	}
	if err := s.attachListings(ctx, txns); err != nil {
		return domain.PaginatedResponse[domain.Transaction]{}, err
	}

	return domain.NewPaginatedResponse(txns, params.Page, params.PageSize, total), nil
}

// ActiveRequestFor returns the user's pending or accepted request for a listing.
func (s *service) ActiveRequestFor(ctx context.Context, listingID, userID uuid.UUID) (*domain.Transaction, error) {
	return s.repos.Transaction.GetActiveForRequester(ctx, listingID, userID)
}

// ListCompleted is the public history of finished exchanges, newest first.
func (s *service) ListCompleted(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.CompletedExchange], error) {
	params.Validate()

	txns, total, err := s.repos.Transaction.ListCompleted(ctx, params)
	if err != nil {
		return domain.PaginatedResponse[domain.CompletedExchange]{}, err
	}
	if err := s.attachListings(ctx, txns); err != nil {
		return domain.PaginatedResponse[domain.CompletedExchange]{}, err
	}

	userIDs := make([]uuid.UUID, 0, 2*len(txns))
	for _, txn := range txns {
		userIDs = append(userIDs, txn.OwnerID, txn.RequesterID)
	}
	users, err := s.repos.User.GetByIDs(ctx, userIDs)
	if err != nil {
		return domain.PaginatedResponse[domain.CompletedExchange]{}, fmt.Errorf("load users: %w", err)
	}

	history := make([]domain.CompletedExchange, 0, len(txns))
	for _, txn := range txns {
		entry := domain.CompletedExchange{
			TransactionID: txn.ID,
			ListingID:     txn.ListingID,
			Type:          txn.Type,
		}
		if txn.CompletedAt != nil {
			entry.CompletedAt = *txn.CompletedAt
		}
		if txn.Listing != nil {
			entry.Title = txn.Listing.Title
			entry.Author = txn.Listing.Author
		}
		if owner, ok := users[txn.OwnerID]; ok {
			entry.OwnerUsername = owner.Username
		}
		if requester, ok := users[txn.RequesterID]; ok {
			entry.RequesterUsername = requester.Username
		}
		history = append(history, entry)
	}

	return domain.NewPaginatedResponse(history, params.Page, params.PageSize, total), nil
}

func (s *service) attachListings(ctx context.Context, txns []domain.Transaction) error {
	ids := make([]uuid.UUID, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ListingID)
	}

	listings, err := s.repos.Listing.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}
	for i := range txns {
		txns[i].Listing = listings[txns[i].ListingID]
	}
	return nil
}

func (s *service) verb(t domain.TransactionType) string {
	if t == domain.TransactionDonation {
		return i18n.Translate(s.locale, "VERB_DONATION")
	}
	return i18n.Translate(s.locale, "VERB_SALE")
}

func (s *service) logTransition(msg string, txn *domain.Transaction, actorID uuid.UUID) {
	s.logger.Info(msg,
		zap.String("transaction_id", txn.ID.String()),
		zap.String("listing_id", txn.ListingID.String()),
		zap.String("actor_id", actorID.String()))
}

func listingNotHeld(listing *domain.Listing) error {
	return fmt.Errorf("%w: listing is %s, not pending", domain.ErrInvalidState, listing.Status)
}

// isStatusChanged reports a compare-and-set that matched no row.
func isStatusChanged(err error) bool {
	return errors.Is(err, domain.ErrStatusChanged)
}
