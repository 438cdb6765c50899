package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDiscount is a time-bounded percentage reduction on one product.
// A nil EndDate means the discount is open-ended.
type ProductDiscount struct {
	BaseModel
	ProductID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	Product    *Product        `json:"product,omitempty"`
	Percentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentage"`
	StartDate  time.Time       `gorm:"not null" json:"start_date"`
	EndDate    *time.Time      `json:"end_date"`
	IsActive   bool            `gorm:"not null" json:"is_active"`
}

// ExpiredAt reports whether the discount has an end date before t.
func (d *ProductDiscount) ExpiredAt(t time.Time) bool {
	return d.EndDate != nil && d.EndDate.Before(t)
}
