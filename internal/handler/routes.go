package handler

import (
	"github.com/gofiber/fiber/v2"

	"edushare/internal/middleware"
	"edushare/internal/service/auth"
)

func SetupRoutes(app *fiber.App, h *Handlers, authService auth.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	requireAuth := middleware.AuthRequired(authService)

	v1.Get("/stats", h.Transaction.Stats)

	listings := v1.Group("/listings")
	listings.Get("/", h.Listing.List)
	listings.Post("/", requireAuth, h.Listing.Create)
	listings.Get("/:listingId", h.Listing.Get)
	listings.Put("/:listingId", requireAuth, h.Listing.Update)
	listings.Delete("/:listingId", requireAuth, h.Listing.Delete)
	listings.Get("/:listingId/my-request", requireAuth, h.Listing.MyRequest)
	listings.Post("/:listingId/cover", requireAuth, h.Listing.UploadCover)
	listings.Post("/:listingId/requests", requireAuth, h.Transaction.Request)

	transactions := v1.Group("/transactions")
	transactions.Get("/history", h.Transaction.History)
	transactions.Get("/", requireAuth, h.Transaction.List)
	transactions.Get("/:transactionId", requireAuth, h.Transaction.Get)
	transactions.Post("/:transactionId/accept", requireAuth, h.Transaction.Accept)
	transactions.Post("/:transactionId/reject", requireAuth, h.Transaction.Reject)
	transactions.Post("/:transactionId/complete", requireAuth, h.Transaction.Complete)
	transactions.Post("/:transactionId/cancel", requireAuth, h.Transaction.Cancel)

	protected := v1.Group("", requireAuth)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)

	audit := protected.Group("/audit")
	audit.Get("/recent", h.Audit.GetRecentActivities)
}
