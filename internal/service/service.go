package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"edushare/internal/config"
	"edushare/internal/repository"
	"edushare/internal/service/audit"
	"edushare/internal/service/auth"
	"edushare/internal/service/dashboard"
	"edushare/internal/service/email"
	"edushare/internal/service/exchange"
	"edushare/internal/service/listing"
	"edushare/internal/service/notification"
)

type Services struct {
	Auth         auth.Service
	Listing      listing.Service
	Exchange     exchange.Service
	Notification notification.Service
	Audit        audit.Service
	Dashboard    dashboard.Service
}

// NewServices wires the application services. redis and minioClient may be
// nil; email is only mirrored when a Resend API key is configured.
func NewServices(repos *repository.Repositories, redis *redis.Client, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger) *Services {
	var emailService email.Service
	if cfg.ResendAPIKey != "" {
		emailService = email.NewService(cfg)
	}

	var storage listing.ObjectStorage
	if minioClient != nil {
		storage = minioClient
	}

	notificationService := notification.NewService(repos, redis, emailService, logger)

	return &Services{
		Auth:         auth.NewService(repos.User, cfg),
		Listing:      listing.NewService(repos, notificationService, storage, cfg, logger),
		Exchange:     exchange.NewService(repos, notificationService, logger, cfg.DefaultLocale),
		Notification: notificationService,
		Audit:        audit.NewService(repos.AuditLog),
		Dashboard:    dashboard.NewService(repos.Listing, repos.Transaction, redis, logger),
	}
}
