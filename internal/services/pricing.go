package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

var hundred = decimal.NewFromInt(100)

// now is the clock used for discount windows. Stored times are UTC.
var now = func() time.Time { return time.Now().UTC() }

// DiscountedPrice returns price × (1 − percentage/100) rounded to cents.
func DiscountedPrice(price, percentage decimal.Decimal) decimal.Decimal {
	return price.Mul(hundred.Sub(percentage)).Div(hundred).Round(2)
}

// liveDiscounts loads the discounts applying at t for the given products,
// keyed by product id.
func liveDiscounts(tx *gorm.DB, productIDs []uuid.UUID, t time.Time) (map[uuid.UUID]models.ProductDiscount, error) {
	out := make(map[uuid.UUID]models.ProductDiscount, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var discounts []models.ProductDiscount
	if err := tx.Where("product_id IN ?", productIDs).
		Scopes(liveAt(t)).
		Order("start_date desc").
		Find(&discounts).Error; err != nil {
		return nil, err
	}

	for _, d := range discounts {
		if _, seen := out[d.ProductID]; !seen {
			out[d.ProductID] = d
		}
	}
	return out, nil
}

// liveAt filters discounts that are active, started, and not yet ended.
func liveAt(t time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)", true, t, t)
	}
}

// notExpiredAt filters active discounts that have not ended, including ones
// scheduled to start later.
func notExpiredAt(t time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("is_active = ? AND (end_date IS NULL OR end_date >= ?)", true, t)
	}
}

// decorate attaches the live discount and derived price to each product.
func decorate(tx *gorm.DB, products []models.Product) error {
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	discounts, err := liveDiscounts(tx, ids, now())
	if err != nil {
		return err
	}

	for i := range products {
		if d, ok := discounts[products[i].ID]; ok {
			price := DiscountedPrice(products[i].Price, d.Percentage)
			products[i].Discount = &d
			products[i].DiscountedPrice = &price
		}
	}
	return nil
}
