package models

import (
	"time"

	"gorm.io/gorm"
)

// Insurer represents an HMO — the organization that underwrites plans,
// signs off on appointment cost and pays claims.
type Insurer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name    string `gorm:"type:varchar(255)" json:"name"`
	Address string `gorm:"type:text" json:"address"`

	ContactUserID uint `gorm:"index" json:"contact_user_id"`
	ContactUser   User `gorm:"foreignKey:ContactUserID" json:"contact_user,omitempty"`

	Plans        []InsurancePlan `gorm:"foreignKey:InsurerID" json:"plans,omitempty"`
	Appointments []Appointment   `gorm:"foreignKey:InsurerID" json:"appointments,omitempty"`
}
