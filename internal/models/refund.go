package models

import (
	"time"

	"gorm.io/gorm"
)

// Refund records money returned to a patient, issued when a paid
// out-of-pocket appointment is cancelled before its scheduled time.
type Refund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AppointmentID uint           `gorm:"index" json:"appointment_id"`
	PatientID     uint           `gorm:"index" json:"patient_id"`
	Amount        float64        `gorm:"type:decimal(15,2)" json:"amount"`
	Gateway       PaymentGateway `gorm:"type:varchar(50)" json:"gateway"`
	RefundDate    time.Time      `json:"refund_date"`

	// Relationships
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Patient     User        `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
}
