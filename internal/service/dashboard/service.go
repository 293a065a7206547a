package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edushare/internal/domain"
	"edushare/internal/repository"
)

const (
	cacheKey = "dashboard:stats"
	cacheTTL = 5 * time.Minute
)

type Stats struct {
	AvailableListings  int64      `json:"available_listings"`
	PendingListings    int64      `json:"pending_listings"`
	SoldListings       int64      `json:"sold_listings"`
	DonatedListings    int64      `json:"donated_listings"`
	CompletedExchanges int64      `json:"completed_exchanges"`
	LastCompletedAt    *time.Time `json:"last_completed_at"`
}

type Service interface {
	GetStats(ctx context.Context) (*Stats, error)
}

type service struct {
	listingRepo     repository.ListingRepository
	transactionRepo repository.TransactionRepository
	redis           *redis.Client
	logger          *zap.Logger
}

func NewService(listingRepo repository.ListingRepository, transactionRepo repository.TransactionRepository, redis *redis.Client, logger *zap.Logger) Service {
	return &service{
		listingRepo:     listingRepo,
		transactionRepo: transactionRepo,
		redis:           redis,
		logger:          logger.Named("dashboard"),
	}
}

func (s *service) GetStats(ctx context.Context) (*Stats, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var stats Stats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		}
	}

	counts, err := s.listingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	latest, completed, err := s.transactionRepo.ListCompleted(ctx, domain.PaginationParams{Page: 1, PageSize: 1})
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		AvailableListings:  counts[domain.ListingAvailable],
		PendingListings:    counts[domain.ListingPending],
		SoldListings:       counts[domain.ListingSold],
		DonatedListings:    counts[domain.ListingDonated],
		CompletedExchanges: completed,
	}
	if len(latest) > 0 {
		stats.LastCompletedAt = latest[0].CompletedAt
	}

	if s.redis != nil {
		if statsJSON, err := json.Marshal(stats); err == nil {
			_ = s.redis.Set(ctx, cacheKey, statsJSON, cacheTTL).Err()
		}
	}

	return stats, nil
}
