package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents which dashboard a user belongs to
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleInsurer  Role = "insurer"
	RoleAdmin    Role = "admin"
)

// User represents an authenticated account in the system.
// Authentication itself lives in Firebase; this row carries the local
// profile and the role used for dashboard scoping.
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirebaseUID string `gorm:"type:varchar(128);uniqueIndex" json:"firebase_uid"`
	Name        string `gorm:"type:varchar(255)" json:"name"`
	Phone       string `gorm:"type:varchar(50)" json:"phone"`
	Email       string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Role        Role   `gorm:"type:varchar(20);default:'patient'" json:"role"`

	// EnrolleeID is the insurer-assigned membership identifier. Empty for
	// users who never subscribed to a plan.
	EnrolleeID string `gorm:"type:varchar(100)" json:"enrollee_id"`

	// Relationships
	Appointments  []Appointment      `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`
	Subscriptions []PlanSubscription `gorm:"foreignKey:PatientID" json:"subscriptions,omitempty"`
	Notifications []Notification     `gorm:"foreignKey:UserID" json:"notifications,omitempty"`
}
