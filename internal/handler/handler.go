package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"edushare/internal/domain"
	"edushare/internal/middleware"
	"edushare/internal/pkg/validation"
	"edushare/internal/service"
)

type Handlers struct {
	Listing      *ListingHandler
	Transaction  *TransactionHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Listing:      NewListingHandler(services.Listing, services.Exchange),
		Transaction:  NewTransactionHandler(services.Exchange, services.Dashboard),
		Notification: NewNotificationHandler(services.Notification),
		Audit:        NewAuditHandler(services.Audit),
	}
}

func getPaginationParams(c *fiber.Ctx) domain.PaginationParams {
	params := domain.DefaultPagination()

	if page := c.QueryInt("page", 1); page > 0 {
		params.Page = page
	}
	if pageSize := c.QueryInt("page_size", 20); pageSize > 0 {
		params.PageSize = pageSize
	}

	params.Validate()
	return params
}

func parseID(c *fiber.Ctx, param, label string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, middleware.BadRequest("Invalid " + label + " ID")
	}
	return id, nil
}

func bind(c *fiber.Ctx, input any) error {
	if err := c.BodyParser(input); err != nil {
		return middleware.BadRequest("Invalid request body")
	}
	return validation.Struct(input)
}
