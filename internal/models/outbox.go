package models

import "time"

// OutboxEvent stores a domain event committed together with the state change
// that produced it. The relay publishes rows with a nil PublishedAt.
type OutboxEvent struct {
	BaseModel
	RoutingKey  string     `gorm:"not null;index" json:"routing_key"`
	Payload     []byte     `gorm:"type:jsonb" json:"payload"`
	Attempts    int        `gorm:"not null;default:0" json:"attempts"`
	LastError   string     `json:"last_error"`
	PublishedAt *time.Time `gorm:"index" json:"published_at"`
}
