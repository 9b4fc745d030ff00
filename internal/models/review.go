package models

import (
	"time"

	"gorm.io/gorm"
)

// Review is tied 1:1 to a completed order.
type Review struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	OrderID     uint           `json:"order_id" gorm:"unique;not null"`
	UserID      uint           `json:"user_id" gorm:"not null"`
	EncargadoID uint           `json:"encargado_id" gorm:"not null;index"`
	Rating      int            `json:"rating" gorm:"not null"`
	Comment     string         `json:"comment"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}
