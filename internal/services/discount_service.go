package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
)

// DiscountService manages product discounts. A product has at most one
// active, non-expired discount; the product row is locked while that rule is
// checked so concurrent creations serialize.
type DiscountService struct {
	db *gorm.DB
}

// NewDiscountService constructs a DiscountService.
func NewDiscountService(db *gorm.DB) *DiscountService {
	return &DiscountService{db: db}
}

// CreateDiscountInput describes a new discount. A zero StartDate means now
// and a nil IsActive means active.
type CreateDiscountInput struct {
	ProductID  uuid.UUID
	Percentage decimal.Decimal
	StartDate  time.Time
	EndDate    *time.Time
	IsActive   *bool
}

// UpdateDiscountInput carries the fields to change; nil fields are kept.
// ClearEndDate makes the discount open-ended.
type UpdateDiscountInput struct {
	Percentage   *decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	IsActive     *bool
}

// Create validates and stores a discount. An active discount is linked from
// the product and announced.
func (s *DiscountService) Create(ctx context.Context, in CreateDiscountInput) (discount *models.ProductDiscount, err error) {
	ctx, span := startSpan(ctx, "DiscountService.Create")
	defer endSpan(span, &err)

	if in.StartDate.IsZero() {
		in.StartDate = now()
	}

	d := models.ProductDiscount{
		ProductID:  in.ProductID,
		Percentage: in.Percentage,
		StartDate:  in.StartDate.UTC(),
		IsActive:   true,
	}
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		d.EndDate = &end
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if err := checkDiscount(&d); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", d.ProductID).Error; err != nil {
			return lookup(err, "product")
		}

		if d.IsActive {
			if err := ensureNoLiveDiscount(tx, d.ProductID, uuid.Nil); err != nil {
				return err
			}
		}

		if err := tx.Create(&d).Error; err != nil {
			return err
		}

		if !d.IsActive {
			return nil
		}

		if err := tx.Model(&product).Update("discount_id", d.ID).Error; err != nil {
			return err
		}

		return enqueue(tx, events.RKDiscountCreated, events.DiscountCreated{
			DiscountID:  d.ID.String(),
			ProductID:   product.ID.String(),
			ProductName: product.Name,
			Percentage:  d.Percentage,
			EndDate:     d.EndDate,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, d.ID)
}

// Update applies a partial change. Reactivating a discount whose end date has
// passed is rejected.
func (s *DiscountService) Update(ctx context.Context, id uuid.UUID, in UpdateDiscountInput) (discount *models.ProductDiscount, err error) {
	ctx, span := startSpan(ctx, "DiscountService.Update")
	defer endSpan(span, &err)

	if in.ClearEndDate && in.EndDate != nil {
		return nil, validationf("end_date and clear_end_date are mutually exclusive")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.ProductDiscount
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&d, "id = ?", id).Error; err != nil {
			return lookup(err, "discount")
		}
		wasActive := d.IsActive

		if in.Percentage != nil {
			d.Percentage = *in.Percentage
		}
		if in.StartDate != nil {
			d.StartDate = in.StartDate.UTC()
		}
		if in.EndDate != nil {
			end := in.EndDate.UTC()
			d.EndDate = &end
		}
		if in.ClearEndDate {
			d.EndDate = nil
		}
		if in.IsActive != nil {
			d.IsActive = *in.IsActive
		}

		if err := checkDiscount(&d); err != nil {
			return err
		}

		if in.IsActive != nil && *in.IsActive {
			if d.ExpiredAt(now()) {
				return ErrExpiredDiscount
			}
			if !wasActive {
				if err := ensureNoLiveDiscount(tx, d.ProductID, d.ID); err != nil {
					return err
				}
			}
		}

		if err := tx.Save(&d).Error; err != nil {
			return err
		}

		if d.IsActive {
			return tx.Model(&models.Product{}).
				Where("id = ?", d.ProductID).
				Update("discount_id", d.ID).Error
		}
		return tx.Model(&models.Product{}).
			Where("discount_id = ?", d.ID).
			Update("discount_id", nil).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes a discount and clears the product's reference to it.
func (s *DiscountService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.ProductDiscount
		if err := tx.First(&d, "id = ?", id).Error; err != nil {
			return lookup(err, "discount")
		}

		if err := tx.Delete(&models.ProductDiscount{}, "id = ?", id).Error; err != nil {
			return err
		}

		return tx.Model(&models.Product{}).
			Where("discount_id = ?", id).
			Update("discount_id", nil).Error
	})
}

// List returns every discount, newest first.
func (s *DiscountService) List(ctx context.Context) ([]models.ProductDiscount, error) {
	var discounts []models.ProductDiscount
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Order("created_at desc").
		Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// Get loads one discount with its product.
func (s *DiscountService) Get(ctx context.Context, id uuid.UUID) (*models.ProductDiscount, error) {
	var d models.ProductDiscount
	if err := s.db.WithContext(ctx).Preload("Product").First(&d, "id = ?", id).Error; err != nil {
		return nil, lookup(err, "discount")
	}
	return &d, nil
}

// ActiveNow returns discounts that are active, started, and not ended.
func (s *DiscountService) ActiveNow(ctx context.Context) ([]models.ProductDiscount, error) {
	var discounts []models.ProductDiscount
	if err := s.db.WithContext(ctx).
		Scopes(liveAt(now())).
		Preload("Product").
		Order("start_date desc").
		Find(&discounts).Error; err != nil {
		return nil, err
	}
	return discounts, nil
}

// CountActive returns how many discounts are in effect now.
func (s *DiscountService) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ProductDiscount{}).
		Scopes(liveAt(now())).
		Count(&count).Error
	return count, err
}

func checkDiscount(d *models.ProductDiscount) error {
	if d.ProductID == uuid.Nil {
		return validationf("product_id is required")
	}
	if !d.Percentage.GreaterThan(decimal.Zero) || !d.Percentage.LessThan(hundred) {
		return validationf("percentage must be between 0 and 100 (exclusive)")
	}
	if d.EndDate != nil && !d.EndDate.After(d.StartDate) {
		return validationf("end_date must be after start_date")
	}
	return nil
}

// ensureNoLiveDiscount fails when productID has an active discount that has
// not ended, other than except.
func ensureNoLiveDiscount(tx *gorm.DB, productID, except uuid.UUID) error {
	query := tx.Model(&models.ProductDiscount{}).
		Where("product_id = ?", productID).
		Scopes(notExpiredAt(now()))
	if except != uuid.Nil {
		query = query.Where("id <> ?", except)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDuplicateDiscount
	}
	return nil
}
