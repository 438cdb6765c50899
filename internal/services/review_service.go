package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

// ReviewService stores reviews and keeps product rating aggregates current.
type ReviewService struct {
	db *gorm.DB
}

// NewReviewService constructs a ReviewService.
func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// SubmitReviewInput identifies the purchase being reviewed.
type SubmitReviewInput struct {
	OrderID   uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Review    string
	Rating    float64
}

// UpdateReviewInput carries the fields to change; nil fields are kept.
type UpdateReviewInput struct {
	Review *string
	Rating *float64
}

// Submit records one review per (order, product, user), refreshes the product
// rating and marks the order Reviewed.
func (s *ReviewService) Submit(ctx context.Context, in SubmitReviewInput) (review *models.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService.Submit")
	defer endSpan(span, &err)

	rating, err := checkRating(in.Rating)
	if err != nil {
		return nil, err
	}

	created := models.Review{
		OrderID:   in.OrderID,
		UserID:    in.UserID,
		ProductID: in.ProductID,
		Review:    strings.TrimSpace(in.Review),
		Rating:    rating,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Select("id").First(&product, "id = ?", in.ProductID).Error; err != nil {
			return lookup(err, "product")
		}

		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", in.OrderID).Error; err != nil {
			return lookup(err, "order")
		}
		if order.UserID != in.UserID {
			return forbidden("order does not belong to this user")
		}
		if !order.ContainsProduct(in.ProductID) {
			return validationf("order does not contain this product")
		}

		var count int64
		if err := tx.Model(&models.Review{}).
			Where("order_id = ? AND product_id = ? AND user_id = ?", in.OrderID, in.ProductID, in.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateReview
		}

		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateReview
			}
			return err
		}

		if err := refreshRating(tx, in.ProductID); err != nil {
			return err
		}

		if order.Status == models.OrderStatusReviewed {
			return nil
		}
		return setOrderStatus(tx, &order, models.OrderStatusReviewed)
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, created.ID)
}

// Update edits a review owned by the actor (or any review for admins).
func (s *ReviewService) Update(ctx context.Context, id uuid.UUID, actor Actor, in UpdateReviewInput) (review *models.Review, err error) {
	ctx, span := startSpan(ctx, "ReviewService.Update")
	defer endSpan(span, &err)

	updates := map[string]interface{}{}
	if in.Rating != nil {
		rating, err := checkRating(*in.Rating)
		if err != nil {
			return nil, err
		}
		updates["rating"] = rating
	}
	if in.Review != nil {
		updates["review"] = strings.TrimSpace(*in.Review)
	}
	if len(updates) == 0 {
		return nil, validationf("no fields to update")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ownedReview(tx, id, actor)
		if err != nil {
			return err
		}
		if err := tx.Model(existing).Updates(updates).Error; err != nil {
			return err
		}
		return refreshRating(tx, existing.ProductID)
	})
	if err != nil {
		return nil, err
	}

	return s.get(ctx, id)
}

// Delete removes a review and refreshes the product rating.
func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ownedReview(tx, id, actor)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Review{}, "id = ?", id).Error; err != nil {
			return err
		}
		return refreshRating(tx, existing.ProductID)
	})
}

// List returns every review, newest first.
func (s *ReviewService) List(ctx context.Context) ([]models.Review, error) {
	return s.find(ctx, nil)
}

// ListByUser returns the reviews written by userID.
func (s *ReviewService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Review, error) {
	return s.find(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) })
}

// ListByProduct returns the reviews of productID.
func (s *ReviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]models.Review, error) {
	return s.find(ctx, func(q *gorm.DB) *gorm.DB { return q.Where("product_id = ?", productID) })
}

func (s *ReviewService) find(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Review, error) {
	query := s.db.WithContext(ctx).Scopes(reviewRelations)
	if scope != nil {
		query = query.Scopes(scope)
	}

	var reviews []models.Review
	if err := query.Order("created_at desc").Find(&reviews).Error; err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *ReviewService) get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).Scopes(reviewRelations).First(&review, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "review")
	}
	return &review, nil
}

// reviewRelations preloads the product and the public part of the author.
func reviewRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Product").
		Preload("User", func(u *gorm.DB) *gorm.DB { return u.Select("id", "name", "image") })
}

func ownedReview(tx *gorm.DB, id uuid.UUID, actor Actor) (*models.Review, error) {
	var review models.Review
	if err := tx.First(&review, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "review")
	}
	if !actor.CanAccess(review.UserID) {
		return nil, forbidden("you can only modify your own reviews")
	}
	return &review, nil
}

func checkRating(r float64) (int, error) {
	if r != math.Trunc(r) || r < 1 || r > 5 {
		return 0, validationf("rating must be an integer between 1 and 5")
	}
	return int(r), nil
}

// refreshRating recomputes the mean rating and review count of a product.
func refreshRating(tx *gorm.DB, productID uuid.UUID) error {
	var agg struct {
		Average float64
		Count   int64
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("product_id = ?", productID).
		Scan(&agg).Error; err != nil {
		return err
	}

	return tx.Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{
			"rating":       agg.Average,
			"rating_count": agg.Count,
		}).Error
}
