package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationSeverity controls how the dashboard highlights a notification
type NotificationSeverity string

const (
	SeverityInfo    NotificationSeverity = "info"
	SeveritySuccess NotificationSeverity = "success"
	SeverityWarning NotificationSeverity = "warning"
	SeverityDanger  NotificationSeverity = "danger"
)

// Notification is an in-app notification row. Delivery is at-least-once;
// duplicate rows are tolerated.
type Notification struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UserID   uint                 `gorm:"index" json:"user_id"`
	Title    string               `gorm:"type:varchar(255)" json:"title"`
	Message  string               `gorm:"type:text" json:"message"`
	Severity NotificationSeverity `gorm:"type:varchar(20);default:'info'" json:"severity"`
	Link     string               `gorm:"type:varchar(255)" json:"link"`
	Read     bool                 `gorm:"default:false;index" json:"read"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
