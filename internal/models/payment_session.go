package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// PaymentPurpose says what a payment session is buying
type PaymentPurpose string

const (
	PaymentPurposeSubscription PaymentPurpose = "subscription"
	PaymentPurposeAppointment  PaymentPurpose = "appointment" // out-of-pocket booking
)

// PaymentSession tracks one gateway checkout attempt. A session stays active
// until the gateway reports a terminal status or a new session replaces it.
type PaymentSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Purpose        PaymentPurpose `gorm:"type:varchar(20);not null" json:"purpose"`
	SubscriptionID *uint          `gorm:"index" json:"subscription_id,omitempty"`
	AppointmentID  *uint          `gorm:"index" json:"appointment_id,omitempty"`
	UserID         uint           `gorm:"index" json:"user_id"`

	PaymentGateway   PaymentGateway  `gorm:"type:varchar(50);not null" json:"payment_gateway"`
	OrderID          string          `gorm:"type:varchar(100);index" json:"order_id"`
	IsActive         bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata  json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`
}
