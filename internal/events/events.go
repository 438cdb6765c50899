// Package events defines the routing keys and payloads of domain events
// written to the outbox and published on the message bus.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RKOrderCreated       = "order.created"
	RKOrderStatusChanged = "order.status_changed"
	RKDiscountCreated    = "discount.created"
)

// Bindings lists every routing key the notifier consumes.
var Bindings = []string{RKOrderCreated, RKOrderStatusChanged, RKDiscountCreated}

type OrderCreated struct {
	OrderID         string          `json:"order_id"`
	UserID          string          `json:"user_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	PaymentType     string          `json:"payment_type"`
	Address         string          `json:"address"`
	Phone           string          `json:"phone"`
	Items           []OrderLine     `json:"items"`
	PlacedAt        time.Time       `json:"placed_at"`
}

type OrderLine struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type DiscountCreated struct {
	DiscountID  string          `json:"discount_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Percentage  decimal.Decimal `json:"percentage"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
}

// Decode unmarshals an event payload.
func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
