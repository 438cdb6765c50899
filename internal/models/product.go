package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `gorm:"not null;index" json:"name"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Image       string          `json:"image"`
	Stock       int             `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	Rating      float64         `gorm:"not null;default:0" json:"rating"`
	RatingCount int             `gorm:"not null;default:0" json:"rating_count"`
	DiscountID  *uuid.UUID      `gorm:"type:uuid" json:"discount_id"`

	// Derived at read time from the active discount.
	Discount        *ProductDiscount `gorm:"-" json:"discount,omitempty"`
	DiscountedPrice *decimal.Decimal `gorm:"-" json:"discounted_price,omitempty"`
}
