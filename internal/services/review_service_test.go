package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/testutil"
)

func productRating(t *testing.T, db *gorm.DB, id uuid.UUID) (float64, int) {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, "id = ?", id).Error)
	return p.Rating, p.RatingCount
}

func TestSubmitReviewUpdatesAggregateAndStatus(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, db, "bob@example.com", models.RoleUser)
	lamp := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	reviews := services.NewReviewService(db)

	aliceOrder := placeOrder(t, db, alice, map[*models.Product]int{lamp: 1})
	bobOrder := placeOrder(t, db, bob, map[*models.Product]int{lamp: 1})

	review, err := reviews.Submit(ctx, services.SubmitReviewInput{
		OrderID: aliceOrder.ID, UserID: alice.ID, ProductID: lamp.ID, Review: " Bright ", Rating: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bright", review.Review)
	require.NotNil(t, review.User)
	assert.Equal(t, alice.Name, review.User.Name)
	assert.Empty(t, review.User.Email, "author email is not exposed")

	rating, count := productRating(t, db, lamp.ID)
	assert.InDelta(t, 4.0, rating, 1e-9)
	assert.Equal(t, 1, count)

	order, err := services.NewCheckoutService(db).GetByID(ctx, aliceOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusReviewed, order.Status)

	_, err = reviews.Submit(ctx, services.SubmitReviewInput{
		OrderID: bobOrder.ID, UserID: bob.ID, ProductID: lamp.ID, Rating: 1,
	})
	require.NoError(t, err)

	rating, count = productRating(t, db, lamp.ID)
	assert.InDelta(t, 2.5, rating, 1e-9)
	assert.Equal(t, 2, count)
}

func TestDuplicateReviewRejected(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	lamp := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	reviews := services.NewReviewService(db)
	order := placeOrder(t, db, alice, map[*models.Product]int{lamp: 1})

	in := services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 5}
	_, err := reviews.Submit(ctx, in)
	require.NoError(t, err)

	in.Rating = 1
	_, err = reviews.Submit(ctx, in)
	assert.ErrorIs(t, err, services.ErrDuplicateReview)

	rating, count := productRating(t, db, lamp.ID)
	assert.InDelta(t, 5.0, rating, 1e-9)
	assert.Equal(t, 1, count)
}

func TestSubmitReviewChecksPurchase(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	mallory := testutil.CreateUser(t, db, "mallory@example.com", models.RoleUser)
	lamp := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	bulb := testutil.CreateProduct(t, db, "Bulb", "5", 10)
	reviews := services.NewReviewService(db)
	order := placeOrder(t, db, alice, map[*models.Product]int{lamp: 1})

	cases := []struct {
		name string
		in   services.SubmitReviewInput
		want error
	}{
		{"rating too low", services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 0}, services.ErrValidation},
		{"rating too high", services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 6}, services.ErrValidation},
		{"fractional rating", services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 3.5}, services.ErrValidation},
		{"unknown product", services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: uuid.New(), Rating: 3}, services.ErrNotFound},
		{"unknown order", services.SubmitReviewInput{OrderID: uuid.New(), UserID: alice.ID, ProductID: lamp.ID, Rating: 3}, services.ErrNotFound},
		{"someone else's order", services.SubmitReviewInput{OrderID: order.ID, UserID: mallory.ID, ProductID: lamp.ID, Rating: 3}, services.ErrForbidden},
		{"product not in order", services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: bulb.ID, Rating: 3}, services.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := reviews.Submit(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, count := productRating(t, db, lamp.ID)
	assert.Zero(t, count)
}

func TestUpdateAndDeleteReviewOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	mallory := testutil.CreateUser(t, db, "mallory@example.com", models.RoleUser)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	lamp := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	reviews := services.NewReviewService(db)
	order := placeOrder(t, db, alice, map[*models.Product]int{lamp: 1})

	review, err := reviews.Submit(ctx, services.SubmitReviewInput{OrderID: order.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 2})
	require.NoError(t, err)

	owner := services.Actor{ID: alice.ID, Role: alice.Role}
	stranger := services.Actor{ID: mallory.ID, Role: mallory.Role}
	staff := services.Actor{ID: admin.ID, Role: admin.Role}

	_, err = reviews.Update(ctx, review.ID, stranger, services.UpdateReviewInput{Rating: ptr(5.0)})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = reviews.Update(ctx, review.ID, owner, services.UpdateReviewInput{})
	assert.ErrorIs(t, err, services.ErrValidation)

	updated, err := reviews.Update(ctx, review.ID, owner, services.UpdateReviewInput{Rating: ptr(5.0), Review: ptr("Changed my mind")})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "Changed my mind", updated.Review)
	rating, _ := productRating(t, db, lamp.ID)
	assert.InDelta(t, 5.0, rating, 1e-9)

	assert.ErrorIs(t, reviews.Delete(ctx, review.ID, stranger), services.ErrForbidden)
	require.NoError(t, reviews.Delete(ctx, review.ID, staff))

	rating, count := productRating(t, db, lamp.ID)
	assert.Zero(t, rating)
	assert.Zero(t, count)
	assert.ErrorIs(t, reviews.Delete(ctx, review.ID, staff), services.ErrNotFound)
}

func TestListReviews(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice@example.com", models.RoleUser)
	bob := testutil.CreateUser(t, db, "bob@example.com", models.RoleUser)
	lamp := testutil.CreateProduct(t, db, "Lamp", "100", 10)
	bulb := testutil.CreateProduct(t, db, "Bulb", "5", 10)
	reviews := services.NewReviewService(db)

	aliceOrder := placeOrder(t, db, alice, map[*models.Product]int{lamp: 1, bulb: 1})
	bobOrder := placeOrder(t, db, bob, map[*models.Product]int{lamp: 1})

	for _, in := range []services.SubmitReviewInput{
		{OrderID: aliceOrder.ID, UserID: alice.ID, ProductID: lamp.ID, Rating: 4},
		{OrderID: aliceOrder.ID, UserID: alice.ID, ProductID: bulb.ID, Rating: 3},
		{OrderID: bobOrder.ID, UserID: bob.ID, ProductID: lamp.ID, Rating: 5},
	} {
		_, err := reviews.Submit(ctx, in)
		require.NoError(t, err)
	}

	all, err := reviews.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byAlice, err := reviews.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, byAlice, 2)

	forLamp, err := reviews.ListByProduct(ctx, lamp.ID)
	require.NoError(t, err)
	require.Len(t, forLamp, 2)
	require.NotNil(t, forLamp[0].Product)
	assert.Equal(t, "Lamp", forLamp[0].Product.Name)
}
