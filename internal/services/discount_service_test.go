package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/testutil"
)

func ptr[T any](v T) *T { return &v }

func TestDiscountedPrice(t *testing.T) {
	cases := []struct {
		price, pct, want string
	}{
		{"100", "20", "80"},
		{"19.99", "15", "16.99"},
		{"10", "33.33", "6.67"},
		{"0.99", "50", "0.5"},
	}
	for _, tc := range cases {
		got := services.DiscountedPrice(decimal.RequireFromString(tc.price), decimal.RequireFromString(tc.pct))
		assertDecimal(t, tc.want, got, tc.price, tc.pct)
	}
}

func TestCreateDiscountDefaultsAndLinksProduct(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)

	discount, err := services.NewDiscountService(db).Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(15),
	})
	require.NoError(t, err)
	assert.True(t, discount.IsActive)
	assert.False(t, discount.StartDate.IsZero())
	assert.Nil(t, discount.EndDate)
	require.NotNil(t, discount.Product)
	assert.Equal(t, "Lamp", discount.Product.Name)

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	require.NotNil(t, reloaded.DiscountID)
	assert.Equal(t, discount.ID, *reloaded.DiscountID)

	assert.Contains(t, outboxKeys(t, db), events.RKDiscountCreated)
}

func TestSecondActiveDiscountRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	discounts := services.NewDiscountService(db)

	_, err := discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(10),
		StartDate:  time.Now().Add(-time.Hour),
	})
	require.NoError(t, err)

	_, err = discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(25),
		StartDate:  time.Now().Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, services.ErrDuplicateDiscount)
	assert.ErrorIs(t, err, services.ErrBusinessRule)
}

func TestExpiredOrInactiveDiscountDoesNotBlock(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	discounts := services.NewDiscountService(db)

	expiredProduct := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	_, err := discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  expiredProduct.ID,
		Percentage: decimal.NewFromInt(10),
		StartDate:  time.Now().Add(-72 * time.Hour),
		EndDate:    ptr(time.Now().Add(-24 * time.Hour)),
	})
	require.NoError(t, err)
	_, err = discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  expiredProduct.ID,
		Percentage: decimal.NewFromInt(30),
	})
	assert.NoError(t, err)

	inactiveProduct := testutil.CreateProduct(t, db, "Bulb", "5", 10)
	_, err = discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  inactiveProduct.ID,
		Percentage: decimal.NewFromInt(10),
		IsActive:   ptr(false),
	})
	require.NoError(t, err)
	_, err = discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  inactiveProduct.ID,
		Percentage: decimal.NewFromInt(30),
	})
	assert.NoError(t, err)
}

func TestCreateDiscountValidation(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	discounts := services.NewDiscountService(db)
	start := time.Now()

	cases := map[string]services.CreateDiscountInput{
		"zero percent":     {ProductID: product.ID, Percentage: decimal.Zero, StartDate: start},
		"hundred percent":  {ProductID: product.ID, Percentage: decimal.NewFromInt(100), StartDate: start},
		"negative percent": {ProductID: product.ID, Percentage: decimal.NewFromInt(-5), StartDate: start},
		"end before start": {ProductID: product.ID, Percentage: decimal.NewFromInt(5), StartDate: start, EndDate: ptr(start.Add(-time.Hour))},
		"missing product":  {Percentage: decimal.NewFromInt(5), StartDate: start},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := discounts.Create(ctx, in)
			assert.ErrorIs(t, err, services.ErrValidation)
		})
	}

	_, err := discounts.Create(ctx, services.CreateDiscountInput{ProductID: uuid.New(), Percentage: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUpdateDiscount(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	discounts := services.NewDiscountService(db)

	expired, err := discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(10),
		StartDate:  time.Now().Add(-72 * time.Hour),
		EndDate:    ptr(time.Now().Add(-24 * time.Hour)),
		IsActive:   ptr(false),
	})
	require.NoError(t, err)

	_, err = discounts.Update(ctx, expired.ID, services.UpdateDiscountInput{IsActive: ptr(true)})
	assert.ErrorIs(t, err, services.ErrExpiredDiscount)

	updated, err := discounts.Update(ctx, expired.ID, services.UpdateDiscountInput{
		Percentage: ptr(decimal.NewFromInt(40)),
		EndDate:    ptr(time.Now().Add(24 * time.Hour)),
		IsActive:   ptr(true),
	})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)
	assertDecimal(t, "40", updated.Percentage)

	_, err = discounts.Update(ctx, expired.ID, services.UpdateDiscountInput{Percentage: ptr(decimal.NewFromInt(150))})
	assert.ErrorIs(t, err, services.ErrValidation)

	other, err := discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(5),
		IsActive:   ptr(false),
	})
	require.NoError(t, err)
	_, err = discounts.Update(ctx, other.ID, services.UpdateDiscountInput{IsActive: ptr(true)})
	assert.ErrorIs(t, err, services.ErrDuplicateDiscount)

	_, err = discounts.Update(ctx, uuid.New(), services.UpdateDiscountInput{IsActive: ptr(false)})
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestUpdateDiscountClearsEndDate(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	discounts := services.NewDiscountService(db)

	dated, err := discounts.Create(ctx, services.CreateDiscountInput{
		ProductID:  product.ID,
		Percentage: decimal.NewFromInt(10),
		EndDate:    ptr(time.Now().Add(24 * time.Hour)),
	})
	require.NoError(t, err)
	require.NotNil(t, dated.EndDate)

	_, err = discounts.Update(ctx, dated.ID, services.UpdateDiscountInput{
		EndDate:      ptr(time.Now().Add(48 * time.Hour)),
		ClearEndDate: true,
	})
	assert.ErrorIs(t, err, services.ErrValidation)

	openEnded, err := discounts.Update(ctx, dated.ID, services.UpdateDiscountInput{ClearEndDate: true})
	require.NoError(t, err)
	assert.Nil(t, openEnded.EndDate)
	assert.True(t, openEnded.IsActive)

	var stored models.ProductDiscount
	require.NoError(t, db.First(&stored, "id = ?", dated.ID).Error)
	assert.Nil(t, stored.EndDate)
}

func TestActiveNow(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	discounts := services.NewDiscountService(db)

	live := testutil.CreateProduct(t, db, "Live", "10", 1)
	future := testutil.CreateProduct(t, db, "Future", "10", 1)
	expired := testutil.CreateProduct(t, db, "Expired", "10", 1)
	off := testutil.CreateProduct(t, db, "Off", "10", 1)

	create := func(p *models.Product, start time.Time, end *time.Time, active bool) {
		_, err := discounts.Create(ctx, services.CreateDiscountInput{
			ProductID:  p.ID,
			Percentage: decimal.NewFromInt(10),
			StartDate:  start,
			EndDate:    end,
			IsActive:   ptr(active),
		})
		require.NoError(t, err)
	}
	create(live, time.Now().Add(-time.Hour), ptr(time.Now().Add(time.Hour)), true)
	create(future, time.Now().Add(time.Hour), nil, true)
	create(expired, time.Now().Add(-3*time.Hour), ptr(time.Now().Add(-time.Hour)), true)
	create(off, time.Now().Add(-time.Hour), nil, false)

	active, err := discounts.ActiveNow(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ProductID)

	count, err := discounts.CountActive(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	all, err := discounts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteDiscountClearsProductReference(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	product := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	discounts := services.NewDiscountService(db)

	discount, err := discounts.Create(ctx, services.CreateDiscountInput{ProductID: product.ID, Percentage: decimal.NewFromInt(10)})
	require.NoError(t, err)

	require.NoError(t, discounts.Delete(ctx, discount.ID))

	var reloaded models.Product
	require.NoError(t, db.First(&reloaded, "id = ?", product.ID).Error)
	assert.Nil(t, reloaded.DiscountID)

	_, err = discounts.Get(ctx, discount.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, discounts.Delete(ctx, discount.ID), services.ErrNotFound)
}
