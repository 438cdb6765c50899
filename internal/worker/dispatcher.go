package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/models"
	"github.com/example/storefront/internal/services"
)

// PushSender delivers push notifications.
type PushSender interface {
	Send(ctx context.Context, messages []services.PushMessage) error
}

// AdminNotifier alerts the shop staff about new orders.
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, order events.OrderCreated, customer string) error
}

// Dispatcher turns domain events into notifications. It satisfies Publisher
// so the relay can feed it directly when no broker is configured.
type Dispatcher struct {
	db    *gorm.DB
	push  PushSender
	admin AdminNotifier
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(db *gorm.DB, push PushSender, admin AdminNotifier) *Dispatcher {
	return &Dispatcher{db: db, push: push, admin: admin}
}

// Publish hands the event to Handle.
func (d *Dispatcher) Publish(ctx context.Context, key, _ string, body []byte) error {
	return d.Handle(ctx, key, body)
}

// Handle processes one event. Unknown routing keys are ignored.
func (d *Dispatcher) Handle(ctx context.Context, key string, body []byte) error {
	switch key {
	case events.RKOrderCreated:
		ev, err := events.Decode[events.OrderCreated](body)
		if err != nil {
			return err
		}
		return d.orderCreated(ctx, ev)
	case events.RKOrderStatusChanged:
		ev, err := events.Decode[events.OrderStatusChanged](body)
		if err != nil {
			return err
		}
		return d.orderStatusChanged(ctx, ev)
	case events.RKDiscountCreated:
		ev, err := events.Decode[events.DiscountCreated](body)
		if err != nil {
			return err
		}
		return d.discountCreated(ctx, ev)
	default:
		log.Printf("[Dispatcher] ignoring event %s", key)
		return nil
	}
}

func (d *Dispatcher) orderCreated(ctx context.Context, ev events.OrderCreated) error {
	user, err := d.user(ctx, ev.UserID)
	if err != nil {
		return err
	}

	var errs []error
	if d.admin != nil {
		if err := d.admin.NotifyNewOrder(ctx, ev, customerName(user)); err != nil {
			errs = append(errs, fmt.Errorf("notify admin: %w", err))
		}
	}

	if user != nil && user.PushToken != "" {
		msg := services.PushMessage{
			To:    user.PushToken,
			Title: "Order received",
			Body:  fmt.Sprintf("Your order #%s for %s has been placed.", shortID(ev.OrderID), services.FormatPrice(ev.DiscountedTotal)),
			Data:  map[string]any{"type": events.RKOrderCreated, "order_id": ev.OrderID},
			Sound: "default",
		}
		if err := d.push.Send(ctx, []services.PushMessage{msg}); err != nil {
			errs = append(errs, fmt.Errorf("push to buyer: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) orderStatusChanged(ctx context.Context, ev events.OrderStatusChanged) error {
	user, err := d.user(ctx, ev.UserID)
	if err != nil || user == nil || user.PushToken == "" {
		return err
	}

	return d.push.Send(ctx, []services.PushMessage{{
		To:    user.PushToken,
		Title: "Order update",
		Body:  fmt.Sprintf("Your order #%s is now %s.", shortID(ev.OrderID), ev.To),
		Data:  map[string]any{"type": events.RKOrderStatusChanged, "order_id": ev.OrderID, "status": ev.To},
		Sound: "default",
	}})
}

func (d *Dispatcher) discountCreated(ctx context.Context, ev events.DiscountCreated) error {
	var tokens []string
	if err := d.db.WithContext(ctx).Model(&models.User{}).
		Where("push_token <> ?", "").
		Pluck("push_token", &tokens).Error; err != nil {
		return err
	}
	if len(tokens) == 0 {
		return nil
	}

	body := fmt.Sprintf("%s is now %s%% off!", ev.ProductName, ev.Percentage.StringFixed(0))
	messages := make([]services.PushMessage, 0, len(tokens))
	for _, token := range tokens {
		messages = append(messages, services.PushMessage{
			To:    token,
			Title: "New discount",
			Body:  body,
			Data:  map[string]any{"type": events.RKDiscountCreated, "product_id": ev.ProductID},
			Sound: "default",
		})
	}

	log.Printf("[Dispatcher] announcing discount %s to %d devices", ev.DiscountID, len(messages))
	return d.push.Send(ctx, messages)
}

// user loads the event's user; a deleted user yields nil.
func (d *Dispatcher) user(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.db.WithContext(ctx).Select("id", "name", "email", "push_token").Take(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func customerName(u *models.User) string {
	if u == nil {
		return "unknown customer"
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
