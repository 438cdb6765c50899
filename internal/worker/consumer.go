package worker

import (
	"context"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one event body.
type Handler interface {
	Handle(ctx context.Context, key string, body []byte) error
}

// Consume feeds deliveries to h until the channel closes or ctx ends.
// A failed delivery is requeued once; a second failure drops it.
func Consume(ctx context.Context, deliveries <-chan amqp.Delivery, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Println("[Notifier] delivery channel closed")
				return
			}
			if err := h.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				log.Printf("[Notifier] %s (%s) failed: %v", d.RoutingKey, d.MessageId, err)
				_ = d.Nack(false, !d.Redelivered)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
