package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/utils"
)

// CheckoutHandler manages order endpoints.
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandler constructs CheckoutHandler.
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	UserID string `json:"user_id"`
	services.CreateOrderInput
}

// CreateOrder turns the cart into an order.
func (h *CheckoutHandler) CreateOrder(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, err := subjectID(actor, req.UserID)
	if err != nil {
		return err
	}

	order, err := h.checkout.CreateOrder(c.UserContext(), userID, req.CreateOrderInput)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// History lists a user's orders, newest first.
func (h *CheckoutHandler) History(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}

	orders, err := h.checkout.History(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// ListAll returns every order with pagination and an optional status filter.
func (h *CheckoutHandler) ListAll(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	orders, total, err := h.checkout.ListAll(c.UserContext(), services.OrderFilter{
		Status: c.Query("status"),
		Page:   pg,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// GetOrder returns one order to its owner or an admin.
func (h *CheckoutHandler) GetOrder(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	order, err := h.checkout.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !actor.CanAccess(order.UserID) {
		return fiber.NewError(fiber.StatusForbidden, "you can only access your own orders")
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus sets an order's status.
func (h *CheckoutHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order, err := h.checkout.UpdateStatus(c.UserContext(), id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
