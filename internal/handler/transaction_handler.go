package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"edushare/internal/domain"
	"edushare/internal/middleware"
	"edushare/internal/service/dashboard"
	"edushare/internal/service/exchange"
)

// statsMaxAge lets clients reuse the public stats briefly; the server side
// cache lives longer.
const statsMaxAge = "public, max-age=60"

type TransactionHandler struct {
	exchangeService exchange.Service
	statsService    dashboard.Service
}

func NewTransactionHandler(exchangeService exchange.Service, statsService dashboard.Service) *TransactionHandler {
	return &TransactionHandler{exchangeService: exchangeService, statsService: statsService}
}

func (h *TransactionHandler) Request(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	txn, err := h.exchangeService.Request(c.UserContext(), listingID, userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(txn)
}

func (h *TransactionHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	role := domain.TransactionRole(c.Query("role", string(domain.RoleRequester)))
	if !role.IsValid() {
		return middleware.BadRequest("role must be 'sent' or 'received'")
	}

	var status *domain.TransactionStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.TransactionStatus(raw)
		if !s.IsValid() {
			return middleware.BadRequest("Invalid transaction status")
		}
		status = &s
	}

	result, err := h.exchangeService.ListForUser(c.UserContext(), userID, role, status, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *TransactionHandler) History(c *fiber.Ctx) error {
	result, err := h.exchangeService.ListCompleted(c.UserContext(), getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

// Stats summarises listing and completed exchange counts for the public front page.
func (h *TransactionHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.statsService.GetStats(c.UserContext())
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderCacheControl, statsMaxAge)
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	txnID, err := parseID(c, "transactionId", "transaction")
	if err != nil {
		return err
	}

	txn, err := h.exchangeService.GetByID(c.UserContext(), txnID, userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(txn)
}

func (h *TransactionHandler) Accept(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	txnID, err := parseID(c, "transactionId", "transaction")
	if err != nil {
		return err
	}

	var input domain.AcceptTransactionInput
	if err := bind(c, &input); err != nil {
		return err
	}

	txn, err := h.exchangeService.Accept(c.UserContext(), txnID, userID, input.ContactInfo)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(txn)
}

func (h *TransactionHandler) Reject(c *fiber.Ctx) error {
	return h.transition(c, h.exchangeService.Reject)
}

func (h *TransactionHandler) Complete(c *fiber.Ctx) error {
	return h.transition(c, h.exchangeService.Complete)
}

func (h *TransactionHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.exchangeService.Cancel)
}

type transitionFunc func(ctx context.Context, transactionID, actorID uuid.UUID) (*domain.Transaction, error)

func (h *TransactionHandler) transition(c *fiber.Ctx, fn transitionFunc) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	txnID, err := parseID(c, "transactionId", "transaction")
	if err != nil {
		return err
	}

	txn, err := fn(c.UserContext(), txnID, userID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(txn)
}
