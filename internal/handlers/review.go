package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/storefront/internal/services"
)

// ReviewHandler manages review endpoints.
type ReviewHandler struct {
	reviews *services.ReviewService
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

type reviewRequest struct {
	OrderID   string   `json:"order_id"`
	ProductID string   `json:"product_id"`
	UserID    string   `json:"user_id"`
	Review    *string  `json:"review"`
	Rating    *float64 `json:"rating"`
}

// Submit records a review of a purchased product.
func (h *ReviewHandler) Submit(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID, err := subjectID(actor, req.UserID)
	if err != nil {
		return err
	}
	orderID, err := services.ParseID(req.OrderID, "order_id")
	if err != nil {
		return err
	}
	productID, err := services.ParseID(req.ProductID, "product_id")
	if err != nil {
		return err
	}
	if req.Rating == nil {
		return fiber.NewError(fiber.StatusBadRequest, "rating is required")
	}

	in := services.SubmitReviewInput{
		OrderID:   orderID,
		UserID:    userID,
		ProductID: productID,
		Rating:    *req.Rating,
	}
	if req.Review != nil {
		in.Review = *req.Review
	}

	review, err := h.reviews.Submit(c.UserContext(), in)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": review})
}

// Update edits a review.
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "reviewId")
	if err != nil {
		return err
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	review, err := h.reviews.Update(c.UserContext(), id, actor, services.UpdateReviewInput{
		Review: req.Review,
		Rating: req.Rating,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": review})
}

// Delete removes a review.
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "reviewId")
	if err != nil {
		return err
	}

	if err := h.reviews.Delete(c.UserContext(), id, actor); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "message": "review deleted"})
}

// List returns every review.
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	reviews, err := h.reviews.List(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": reviews})
}

// ListByUser returns the reviews written by :userId.
func (h *ReviewHandler) ListByUser(c *fiber.Ctx) error {
	userID, err := paramID(c, "userId")
	if err != nil {
		return err
	}

	reviews, err := h.reviews.ListByUser(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": reviews})
}

// ListByProduct returns the reviews of :productId.
func (h *ReviewHandler) ListByProduct(c *fiber.Ctx) error {
	productID, err := paramID(c, "productId")
	if err != nil {
		return err
	}

	reviews, err := h.reviews.ListByProduct(c.UserContext(), productID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": reviews})
}
