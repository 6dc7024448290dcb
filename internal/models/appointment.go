package models

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalState tracks one approval axis of an appointment
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
	// ApprovalNotApplicable is fixed for the insurer axis of out-of-pocket
	// appointments, which never pass through an HMO.
	ApprovalNotApplicable ApprovalState = "not_applicable"
)

// Claim is the provider's reimbursement request for an approved visit.
// Embedded in Appointment; present only after submission. SubmittedAt is a
// pointer so the columns of a claimless appointment stay NULL; no column may
// carry a default, otherwise absence becomes unrepresentable.
type Claim struct {
	Amount      float64    `gorm:"type:decimal(15,2)" json:"amount"`
	SubmittedAt *time.Time `json:"submitted_at"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// Appointment represents one consultation between a patient and a health
// provider, optionally covered by an insurer. All lifecycle transitions go
// through the workflow engine; handlers only persist what it returns.
type Appointment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UUID is the public reference used in links and payment order ids
	UUID string `gorm:"type:varchar(64);uniqueIndex" json:"uuid"`

	PatientID  uint  `gorm:"index" json:"patient_id"`
	ProviderID uint  `gorm:"index" json:"provider_id"`
	InsurerID  *uint `gorm:"index" json:"insurer_id,omitempty"` // nil for out-of-pocket

	ScheduledAt time.Time `json:"scheduled_at"`
	Complaint   string    `gorm:"type:text" json:"complaint"`

	ProviderApproval  ApprovalState `gorm:"type:varchar(20);default:'pending'" json:"provider_approval"`
	InsurerApproval   ApprovalState `gorm:"type:varchar(20);default:'pending'" json:"insurer_approval"`
	InsurerApprovalAt *time.Time    `json:"insurer_approval_at,omitempty"`

	// CancelledAt set means the appointment is terminal for scheduling;
	// approval and claim history is retained.
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Queried is set once by the provider and never cleared
	Queried bool `gorm:"default:false" json:"queried"`

	// OutOfPocket appointments capture payment at booking and bypass the
	// insurer approval and claim flow entirely.
	OutOfPocket bool `gorm:"default:false" json:"out_of_pocket"`

	Claim *Claim `gorm:"embedded;embeddedPrefix:claim_" json:"claim,omitempty"`

	// Relationships
	Patient  User     `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Provider Provider `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Insurer  *Insurer `gorm:"foreignKey:InsurerID" json:"insurer,omitempty"`
	Refunds  []Refund `gorm:"foreignKey:AppointmentID" json:"refunds,omitempty"`
}

// AfterFind restores claim absence after scanning. GORM allocates the
// embedded pointer even when every claim column is NULL, and a zero-value
// claim would read as an open, unpaid claim.
func (a *Appointment) AfterFind(tx *gorm.DB) error {
	if a.Claim != nil && a.Claim.SubmittedAt == nil {
		a.Claim = nil
	}
	return nil
}
