package models

import (
	"time"

	"gorm.io/gorm"
)

// Encargado is a service provider that clients book through the platform.
type Encargado struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"not null"`
	Email        string         `json:"email" gorm:"unique;not null"`
	Avatar       string         `json:"avatar"`
	Service      string         `json:"service" gorm:"not null"`
	Description  string         `json:"description"`
	CategoryID   uint           `json:"category_id"`
	Price        float64        `json:"price"`
	Rating       float64        `json:"rating" gorm:"default:0"`
	ReviewsCount int            `json:"reviews_count" gorm:"default:0"`
	Available    bool           `json:"available" gorm:"default:true"`
	Verified     bool           `json:"verified" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}
