package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Name         string         `json:"name" gorm:"not null"`
	Email        string         `json:"email" gorm:"unique;not null"`
	PasswordHash string         `json:"-"`
	Phone        string         `json:"phone"`
	Avatar       string         `json:"avatar"`
	Role         string         `json:"role" gorm:"default:'CLIENTE'"`
	Verified     bool           `json:"verified" gorm:"default:false"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type UserRole string

const (
	RoleCliente   UserRole = "CLIENTE"
	RoleEncargado UserRole = "ENCARGADO"
	RoleAdmin     UserRole = "ADMIN"
)
