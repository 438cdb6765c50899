package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
	"github.com/example/storefront/internal/testutil"
	"github.com/example/storefront/internal/worker"
)

type fakePush struct {
	sent []services.PushMessage
	err  error
}

func (f *fakePush) Send(_ context.Context, messages []services.PushMessage) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

type fakeAdmin struct {
	orders    []events.OrderCreated
	customers []string
	err       error
}

func (f *fakeAdmin) NotifyNewOrder(_ context.Context, order events.OrderCreated, customer string) error {
	f.orders = append(f.orders, order)
	f.customers = append(f.customers, customer)
	return f.err
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDispatchOrderCreated(t *testing.T) {
	db := testutil.NewDB(t)
	buyer := testutil.CreateUser(t, db, "ada@example.com", models.RoleUser)
	require.NoError(t, db.Model(buyer).Update("push_token", "ExponentPushToken[ada]").Error)

	push, admin := &fakePush{}, &fakeAdmin{}
	d := worker.NewDispatcher(db, push, admin)

	ev := events.OrderCreated{
		OrderID:         "0123456789abcdef",
		UserID:          buyer.ID.String(),
		DiscountedTotal: decimal.RequireFromString("1500"),
	}
	require.NoError(t, d.Handle(context.Background(), events.RKOrderCreated, mustJSON(t, ev)))

	require.Len(t, admin.orders, 1)
	assert.Equal(t, "0123456789abcdef", admin.orders[0].OrderID)
	assert.Equal(t, "Test user", admin.customers[0])

	require.Len(t, push.sent, 1)
	assert.Equal(t, "ExponentPushToken[ada]", push.sent[0].To)
	assert.Equal(t, "Order received", push.sent[0].Title)
	assert.Contains(t, push.sent[0].Body, "#01234567")
	assert.Contains(t, push.sent[0].Body, "1,500.00")
}

func TestDispatchOrderCreatedJoinsErrors(t *testing.T) {
	db := testutil.NewDB(t)
	buyer := testutil.CreateUser(t, db, "ada@example.com", models.RoleUser)
	require.NoError(t, db.Model(buyer).Update("push_token", "ExponentPushToken[ada]").Error)

	pushErr, adminErr := errors.New("expo down"), errors.New("telegram down")
	d := worker.NewDispatcher(db, &fakePush{err: pushErr}, &fakeAdmin{err: adminErr})

	err := d.Handle(context.Background(), events.RKOrderCreated, mustJSON(t, events.OrderCreated{UserID: buyer.ID.String()}))
	assert.ErrorIs(t, err, pushErr)
	assert.ErrorIs(t, err, adminErr)
}

func TestDispatchStatusChanged(t *testing.T) {
	db := testutil.NewDB(t)
	withToken := testutil.CreateUser(t, db, "ada@example.com", models.RoleUser)
	require.NoError(t, db.Model(withToken).Update("push_token", "ExpoPushToken[ada]").Error)
	without := testutil.CreateUser(t, db, "bob@example.com", models.RoleUser)

	push := &fakePush{}
	d := worker.NewDispatcher(db, push, nil)

	require.NoError(t, d.Handle(context.Background(), events.RKOrderStatusChanged, mustJSON(t, events.OrderStatusChanged{
		OrderID: "abcdef0123", UserID: without.ID.String(), From: "Pending", To: "Shipped",
	})))
	assert.Empty(t, push.sent)

	require.NoError(t, d.Handle(context.Background(), events.RKOrderStatusChanged, mustJSON(t, events.OrderStatusChanged{
		OrderID: "abcdef0123", UserID: withToken.ID.String(), From: "Pending", To: "Shipped",
	})))
	require.Len(t, push.sent, 1)
	assert.Equal(t, "Your order #abcdef01 is now Shipped.", push.sent[0].Body)
	assert.Equal(t, "Shipped", push.sent[0].Data["status"])
}

func TestDispatchDiscountCreated(t *testing.T) {
	db := testutil.NewDB(t)
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		u := testutil.CreateUser(t, db, email, models.RoleUser)
		if i < 2 {
			require.NoError(t, db.Model(u).Update("push_token", "ExponentPushToken["+email+"]").Error)
		}
	}

	push := &fakePush{}
	d := worker.NewDispatcher(db, push, nil)

	require.NoError(t, d.Handle(context.Background(), events.RKDiscountCreated, mustJSON(t, events.DiscountCreated{
		DiscountID: "d1", ProductID: "p1", ProductName: "Lamp", Percentage: decimal.NewFromInt(25),
	})))
	require.Len(t, push.sent, 2)
	for _, msg := range push.sent {
		assert.Equal(t, "New discount", msg.Title)
		assert.Equal(t, "Lamp is now 25% off!", msg.Body)
	}
}

func TestDispatchUnknownAndMalformed(t *testing.T) {
	db := testutil.NewDB(t)
	d := worker.NewDispatcher(db, &fakePush{}, nil)

	assert.NoError(t, d.Handle(context.Background(), "user.deleted", []byte(`{}`)))
	assert.Error(t, d.Handle(context.Background(), events.RKOrderCreated, []byte(`not json`)))
}

func TestRelayFeedsDispatcher(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	buyer := testutil.CreateUser(t, db, "ada@example.com", models.RoleUser)
	require.NoError(t, db.Model(buyer).Update("push_token", "ExponentPushToken[ada]").Error)
	lamp := testutil.CreateProduct(t, db, "Lamp", "40.00", 5)

	_, err := services.NewCartService(db).AddItem(ctx, buyer.ID, lamp.ID, 1)
	require.NoError(t, err)
	_, err = services.NewCheckoutService(db).CreateOrder(ctx, buyer.ID, services.CreateOrderInput{
		Address: "1 Main St", Phone: "+15550100", PaymentType: "cash",
	})
	require.NoError(t, err)

	push, admin := &fakePush{}, &fakeAdmin{}
	n, err := worker.NewRelay(db, worker.NewDispatcher(db, push, admin), time.Second, 10).Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, admin.orders, 1)
	assert.Equal(t, "Lamp", admin.orders[0].Items[0].Name)
	assert.Len(t, push.sent, 1)
}
