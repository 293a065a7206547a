package audit

import (
	"context"

	"github.com/google/uuid"

	"edushare/internal/domain"
	"edushare/internal/repository"
)

type Service interface {
	GetRecentActivities(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error)
}

type service struct {
	auditRepo repository.AuditLogRepository
}

func NewService(auditRepo repository.AuditLogRepository) Service {
	return &service{
		auditRepo: auditRepo,
	}
}

// GetRecentActivities returns the newest entries recorded for actions taken by userID.
func (s *service) GetRecentActivities(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditLog, error) {
	params := domain.PaginationParams{
		Page:     1,
		PageSize: limit,
	}

	logs, _, err := s.auditRepo.ListByUser(ctx, userID, params)
	return logs, err
}
