package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is the central entity of the marketplace. Price is the provider's
// nominal ask; the settled breakdown fields (TotalPrice, PlatformEarnings,
// WompiCost, ProviderEarnings) are frozen once at payment confirmation and
// are either all set or all nil.
type Order struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	UserID      uint   `json:"user_id" gorm:"not null;index"`
	EncargadoID uint   `json:"encargado_id" gorm:"not null;index"`
	CategoryID  uint   `json:"category_id"`
	Service     string `json:"service" gorm:"not null"`
	Description string `json:"description"`
	Address     string `json:"address" gorm:"not null"`
	Date        time.Time `json:"date" gorm:"not null"`
	Time        string    `json:"time"`

	Price         float64 `json:"price" gorm:"not null"`
	Status        string  `json:"status" gorm:"default:'PENDING'"`
	PaymentStatus string  `json:"payment_status" gorm:"default:'PENDING'"`
	PaymentMethod string  `json:"payment_method"`
	// PaymentIntentID holds the gateway transaction id or the outbound
	// reference, whichever was seen last. Webhooks match on it.
	PaymentIntentID string `json:"payment_intent_id" gorm:"index"`

	TotalPrice       *float64 `json:"total_price"`
	PlatformEarnings *float64 `json:"platform_earnings"`
	WompiCost        *float64 `json:"wompi_cost"`
	ProviderEarnings *float64 `json:"provider_earnings"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderAccepted   OrderStatus = "ACCEPTED"
	OrderInProgress OrderStatus = "IN_PROGRESS"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether s is one of the defined order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderAccepted, OrderInProgress, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// PaymentMethodCash settles at delivery, outside the gateway.
const PaymentMethodCash = "cash"

// HasBreakdown reports whether the settlement breakdown has been frozen.
func (o *Order) HasBreakdown() bool {
	return o.TotalPrice != nil && o.PlatformEarnings != nil && o.WompiCost != nil && o.ProviderEarnings != nil
}
