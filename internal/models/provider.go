package models

import (
	"time"

	"gorm.io/gorm"
)

// Provider represents a health provider (HP) — a clinic or hospital that
// delivers care, approves visits and submits claims.
type Provider struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name      string `gorm:"type:varchar(255)" json:"name"`
	Address   string `gorm:"type:text" json:"address"`
	Specialty string `gorm:"type:varchar(255)" json:"specialty"`

	// ContactUserID is the account that receives this clinic's notifications
	ContactUserID uint `gorm:"index" json:"contact_user_id"`
	ContactUser   User `gorm:"foreignKey:ContactUserID" json:"contact_user,omitempty"`

	Appointments []Appointment `gorm:"foreignKey:ProviderID" json:"appointments,omitempty"`
}
