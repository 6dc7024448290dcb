package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionStatus is the stored status of a plan subscription. Failure is
// recorded via FailureReason alongside a pending status; expiry is derived at
// read time and never written back.
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionApproved SubscriptionStatus = "approved"
)

// PlanSubscription represents one patient's purchase of an InsurancePlan, or
// a manual entry of an externally-held plan. Created at purchase confirmation
// and never deleted.
type PlanSubscription struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	UUID      string `gorm:"type:varchar(64);uniqueIndex" json:"uuid"`
	PatientID uint   `gorm:"index" json:"patient_id"`
	PlanID    uint   `gorm:"index" json:"plan_id"`

	// Tier is the 1-based price/duration pair chosen at purchase
	Tier           int     `gorm:"default:1" json:"tier"`
	Price          float64 `gorm:"type:decimal(15,2)" json:"price"`
	DurationMonths int     `json:"duration_months"`

	Status        SubscriptionStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	FailureReason string             `gorm:"type:text" json:"failure_reason,omitempty"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	// EnrolleeID is the membership identifier the insurer assigned for this
	// subscription
	EnrolleeID string `gorm:"type:varchar(100)" json:"enrollee_id"`

	// External marks a plan held outside the platform, entered manually by
	// the patient. External subscriptions skip payment capture; PlanID is
	// zero and the insurer/plan names below are free text.
	External            bool   `gorm:"default:false" json:"external"`
	ExternalInsurerName string `gorm:"type:varchar(255)" json:"external_insurer_name,omitempty"`
	ExternalPlanName    string `gorm:"type:varchar(255)" json:"external_plan_name,omitempty"`

	// Relationships
	Patient User          `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Plan    InsurancePlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
