package models

import "github.com/google/uuid"

type Review struct {
	BaseModel
	OrderID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_order_product_user" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_order_product_user" json:"product_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_order_product_user" json:"user_id"`
	Product   *Product  `json:"product,omitempty"`
	User      *User     `json:"user,omitempty"`
	Review    string    `json:"review"`
	Rating    int       `gorm:"not null" json:"rating"`
}
