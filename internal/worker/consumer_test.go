package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"

	"github.com/example/storefront/internal/worker"
)

type ackRecorder struct {
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type handlerFunc func(ctx context.Context, key string, body []byte) error

func (f handlerFunc) Handle(ctx context.Context, key string, body []byte) error {
	return f(ctx, key, body)
}

func TestConsumeAcksAndRequeuesOnce(t *testing.T) {
	acks := &ackRecorder{}
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, RoutingKey: "ok"}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, RoutingKey: "fail"}
	deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, RoutingKey: "fail", Redelivered: true}
	close(deliveries)

	h := handlerFunc(func(_ context.Context, key string, _ []byte) error {
		if key == "fail" {
			return errors.New("boom")
		}
		return nil
	})

	done := make(chan struct{})
	go func() {
		worker.Consume(context.Background(), deliveries, h)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not return after the channel closed")
	}

	assert.Equal(t, []uint64{1}, acks.acked)
	assert.Equal(t, []uint64{2, 3}, acks.nacked)
	assert.Equal(t, []bool{true, false}, acks.requeue)
}
