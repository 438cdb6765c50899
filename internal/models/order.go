package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending   = "Pending"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
	OrderStatusCancelled = "Cancelled"
	OrderStatusReviewed  = "Reviewed"
)

// OrderStatuses lists every accepted status value.
var OrderStatuses = []string{
	OrderStatusPending,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReviewed,
}

// Order is the immutable checkout snapshot of a cart. TotalAmount is the
// list-price total; DiscountedTotal reflects discounts live at purchase time.
type Order struct {
	BaseModel
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	User            *User           `json:"user,omitempty"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	DiscountedTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discounted_total"`
	Address         string          `gorm:"not null" json:"address"`
	Phone           string          `gorm:"not null" json:"phone"`
	PaymentType     string          `gorm:"not null" json:"payment_type"`
	Status          string          `gorm:"not null;index;default:Pending" json:"status"`
}

type OrderItem struct {
	BaseModel
	OrderID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID           uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	Product             *Product        `json:"product,omitempty"`
	ProductName         string          `json:"product_name"`
	Quantity            int             `gorm:"not null" json:"quantity"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	DiscountPercent     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	UnitPriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_at_purchase"`
	LineTotal           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

// ContainsProduct reports whether any line references productID.
func (o *Order) ContainsProduct(productID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}
