package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

// placeOrder fills the user's cart with the given quantities and checks out.
func placeOrder(t *testing.T, db *gorm.DB, user *models.User, lines map[*models.Product]int) *models.Order {
	t.Helper()
	ctx := context.Background()
	carts := services.NewCartService(db)
	for product, qty := range lines {
		_, err := carts.AddItem(ctx, user.ID, product.ID, qty)
		require.NoError(t, err)
	}

	order, err := services.NewCheckoutService(db).CreateOrder(ctx, user.ID, services.CreateOrderInput{
		Address:     "1 Main St",
		Phone:       "+15550100",
		PaymentType: "cash",
	})
	require.NoError(t, err)
	return order
}

func outboxKeys(t *testing.T, db *gorm.DB) []string {
	t.Helper()
	var keys []string
	require.NoError(t, db.Model(&models.OutboxEvent{}).Order("created_at asc").Pluck("routing_key", &keys).Error)
	return keys
}
