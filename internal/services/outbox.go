package services

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/storefront/internal/models"
)

// enqueue records an event inside tx so it commits or rolls back together
// with the state change it describes.
func enqueue(tx *gorm.DB, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", routingKey, err)
	}
	return tx.Create(&models.OutboxEvent{RoutingKey: routingKey, Payload: body}).Error
}
