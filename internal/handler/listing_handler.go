package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"edushare/internal/domain"
	"edushare/internal/middleware"
	"edushare/internal/service/exchange"
	"edushare/internal/service/listing"
)

type ListingHandler struct {
	listingService  listing.Service
	exchangeService exchange.Service
}

func NewListingHandler(listingService listing.Service, exchangeService exchange.Service) *ListingHandler {
	return &ListingHandler{
		listingService:  listingService,
		exchangeService: exchangeService,
	}
}

type listingResponse struct {
	*domain.Listing
	CoverURL string `json:"cover_url,omitempty"`
}

func (h *ListingHandler) present(l *domain.Listing) listingResponse {
	return listingResponse{Listing: l, CoverURL: h.listingService.CoverURL(l)}
}

func (h *ListingHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var input domain.CreateListingInput
	if err := bind(c, &input); err != nil {
		return err
	}

	l, err := h.listingService.Create(c.UserContext(), userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(h.present(l))
}

func (h *ListingHandler) List(c *fiber.Ctx) error {
	var filter domain.ListingFilter

	if status := c.Query("status"); status != "" {
		s := domain.ListingStatus(status)
		filter.Status = &s
	}
	if donation := c.Query("is_donation"); donation != "" {
		d := c.QueryBool("is_donation")
		filter.IsDonation = &d
	}
	if owner := c.Query("owner_id"); owner != "" {
		ownerID, err := uuid.Parse(owner)
		if err != nil {
			return middleware.BadRequest("Invalid owner ID")
		}
		filter.OwnerID = &ownerID
	}
	filter.Search = c.Query("q")

	result, err := h.listingService.List(c.UserContext(), filter, getPaginationParams(c))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(domain.MapPage(result, h.present))
}

func (h *ListingHandler) Get(c *fiber.Ctx) error {
	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	l, err := h.listingService.Get(c.UserContext(), listingID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(h.present(l))
}

func (h *ListingHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	var input domain.UpdateListingInput
	if err := bind(c, &input); err != nil {
		return err
	}

	l, err := h.listingService.Update(c.UserContext(), listingID, userID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(h.present(l))
}

func (h *ListingHandler) Delete(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	if err := h.listingService.Delete(c.UserContext(), listingID, userID); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// MyRequest returns the caller's open request on a listing, or null.
func (h *ListingHandler) MyRequest(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	txn, err := h.exchangeService.ActiveRequestFor(c.UserContext(), listingID, userID)
	if errors.Is(err, domain.ErrTransactionNotFound) {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"transaction": nil})
	}
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"transaction": txn})
}

func (h *ListingHandler) UploadCover(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	listingID, err := parseID(c, "listingId", "listing")
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return middleware.BadRequest("File is required")
	}

	fileReader, err := file.Open()
	if err != nil {
		return middleware.BadRequest("Failed to read file")
	}
	defer fileReader.Close()

	l, err := h.listingService.UploadCover(c.UserContext(), listingID, userID, domain.CoverUpload{
		Reader:      fileReader,
		FileName:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Size:        file.Size,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(h.present(l))
}
