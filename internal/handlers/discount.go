package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/services"
)

// DiscountHandler manages discount endpoints.
type DiscountHandler struct {
	discounts *services.DiscountService
}

// NewDiscountHandler constructs DiscountHandler.
func NewDiscountHandler(discounts *services.DiscountService) *DiscountHandler {
	return &DiscountHandler{discounts: discounts}
}

type discountRequest struct {
	ProductID    string           `json:"product_id"`
	Percentage   *decimal.Decimal `json:"percentage"`
	StartDate    *time.Time       `json:"start_date"`
	EndDate      *time.Time       `json:"end_date"`
	ClearEndDate bool             `json:"clear_end_date"`
	IsActive     *bool            `json:"is_active"`
}

// Create adds a discount to a product.
func (h *DiscountHandler) Create(c *fiber.Ctx) error {
	var req discountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := services.ParseID(req.ProductID, "product_id")
	if err != nil {
		return err
	}
	if req.Percentage == nil {
		return fiber.NewError(fiber.StatusBadRequest, "percentage is required")
	}

	in := services.CreateDiscountInput{
		ProductID:  productID,
		Percentage: *req.Percentage,
		EndDate:    req.EndDate,
		IsActive:   req.IsActive,
	}
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}

	discount, err := h.discounts.Create(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": discount})
}

// Update changes the supplied fields of a discount.
func (h *DiscountHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req discountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	discount, err := h.discounts.Update(c.UserContext(), id, services.UpdateDiscountInput{
		Percentage:   req.Percentage,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		ClearEndDate: req.ClearEndDate,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": discount})
}

// Delete removes a discount.
func (h *DiscountHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.discounts.Delete(c.UserContext(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "discount deleted"})
}

// List returns every discount.
func (h *DiscountHandler) List(c *fiber.Ctx) error {
	discounts, err := h.discounts.List(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": discounts})
}

// Get returns one discount.
func (h *DiscountHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	discount, err := h.discounts.Get(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": discount})
}

// ActiveNow returns the discounts currently in effect.
func (h *DiscountHandler) ActiveNow(c *fiber.Ctx) error {
	discounts, err := h.discounts.ActiveNow(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": discounts})
}
