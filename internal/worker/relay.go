package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/internal/models"
)

// Events that failed this many times are left for manual inspection.
const maxAttempts = 10

// Publisher delivers an encoded event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key, id string, body []byte) error
}

// Relay moves committed outbox events to a Publisher.
type Relay struct {
	db       *gorm.DB
	pub      Publisher
	interval time.Duration
	batch    int
}

// NewRelay creates a Relay polling every interval for up to batch events.
func NewRelay(db *gorm.DB, pub Publisher, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &Relay{db: db, pub: pub, interval: interval, batch: batch}
}

// Run flushes on every tick until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	log.Printf("[Relay] started (interval %s)", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Relay] stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Relay] flush failed: %v", err)
			}
		}
	}
}

// Flush publishes one batch of pending events in creation order and returns
// how many were published. A failed event keeps its place and is retried on
// the next flush.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	published := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []models.OutboxEvent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("published_at IS NULL AND attempts < ?", maxAttempts).
			Order("created_at asc").
			Limit(r.batch).
			Find(&pending).Error; err != nil {
			return err
		}

		for _, ev := range pending {
			if err := r.pub.Publish(ctx, ev.RoutingKey, ev.ID.String(), ev.Payload); err != nil {
				log.Printf("[Relay] publish %s (%s) failed: %v", ev.RoutingKey, ev.ID, err)
				if err := tx.Model(&ev).Updates(map[string]interface{}{
					"attempts":   gorm.Expr("attempts + 1"),
					"last_error": err.Error(),
				}).Error; err != nil {
					return err
				}
				continue
			}

			sent := time.Now().UTC()
			if err := tx.Model(&ev).Updates(map[string]interface{}{
				"attempts":     gorm.Expr("attempts + 1"),
				"published_at": sent,
				"last_error":   "",
			}).Error; err != nil {
				return err
			}
			published++
		}
		return nil
	})

	return published, err
}
