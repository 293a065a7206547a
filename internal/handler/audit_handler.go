package handler

import (
	"github.com/gofiber/fiber/v2"

	"edushare/internal/domain"
	"edushare/internal/middleware"
	"edushare/internal/service/audit"
)

type AuditHandler struct {
	auditService audit.Service
}

func NewAuditHandler(auditService audit.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) GetRecentActivities(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	limit := c.QueryInt("limit", 10)
	if limit <= 0 || limit > domain.MaxPageSize {
		limit = 10
	}

	logs, err := h.auditService.GetRecentActivities(c.UserContext(), userID, limit)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(logs)
}
