package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"edushare/internal/domain"
)

const auditLogSelect = `
	SELECT
		al.id, al.user_id, al.action, al.entity_type, al.entity_id, al.old_status, al.new_status,
		al.ip_address, al.user_agent, al.created_at,
		u.username AS user_name
	FROM audit_logs al
	LEFT JOIN users u ON al.user_id = u.id`

type AuditLogRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, params domain.PaginationParams) ([]domain.AuditLog, int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params domain.PaginationParams) ([]domain.AuditLog, int64, error)
	ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditLog, error)
}

type auditLogRepository struct {
	db sqlx.ExtContext
}

func NewAuditLogRepository(db sqlx.ExtContext) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, old_status, new_status, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		log.ID, log.UserID, log.Action, log.EntityType, log.EntityID,
		log.OldStatus, log.NewStatus, log.IPAddress, log.UserAgent, log.CreatedAt,
	)
	return err
}

func (r *auditLogRepository) List(ctx context.Context, params domain.PaginationParams) ([]domain.AuditLog, int64, error) {
	params.Validate()

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, `SELECT COUNT(*) FROM audit_logs`); err != nil {
		return nil, 0, err
	}

	query := auditLogSelect + `
		ORDER BY al.created_at DESC
		LIMIT ? OFFSET ?`

	logs := []domain.AuditLog{}
	err := sqlx.SelectContext(ctx, r.db, &logs, r.db.Rebind(query), params.PageSize, params.Offset())
	return logs, total, err
}

func (r *auditLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, params domain.PaginationParams) ([]domain.AuditLog, int64, error) {
	params.Validate()

	var total int64
	countQuery := `SELECT COUNT(*) FROM audit_logs WHERE user_id = ?`
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(countQuery), userID); err != nil {
		return nil, 0, err
	}

	query := auditLogSelect + `
		WHERE al.user_id = ?
		ORDER BY al.created_at DESC
		LIMIT ? OFFSET ?`

	logs := []domain.AuditLog{}
	err := sqlx.SelectContext(ctx, r.db, &logs, r.db.Rebind(query), userID, params.PageSize, params.Offset())
	return logs, total, err
}

func (r *auditLogRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]domain.AuditLog, error) {
	query := auditLogSelect + `
		WHERE al.entity_type = ? AND al.entity_id = ?
		ORDER BY al.created_at`

	logs := []domain.AuditLog{}
	err := sqlx.SelectContext(ctx, r.db, &logs, r.db.Rebind(query), entityType, entityID)
	return logs, err
}
