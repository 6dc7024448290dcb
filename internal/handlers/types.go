package handlers

import "time"

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// BookAppointmentRequest is the body of POST /appointments
type BookAppointmentRequest struct {
	ProviderID  uint      `json:"provider_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Complaint   string    `json:"complaint"`

	// OutOfPocket books without insurance; payment is captured at booking
	// and Amount must be set.
	OutOfPocket bool  `json:"out_of_pocket"`
	Amount      int64 `json:"amount,omitempty"`
}

// RescheduleRequest is the body of POST /appointments/:uuid/reschedule
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

// SubmitClaimRequest is the body of POST /appointments/:uuid/claim
type SubmitClaimRequest struct {
	Amount float64 `json:"amount"`
}

// PurchasePlanRequest is the body of POST /subscriptions
type PurchasePlanRequest struct {
	PlanID   uint `json:"plan_id"`
	Tier     int  `json:"tier"`
	ForceNew bool `json:"force_new"`
}

// ExternalPlanRequest is the body of POST /subscriptions/external
type ExternalPlanRequest struct {
	InsurerName string    `json:"insurer_name"`
	PlanName    string    `json:"plan_name"`
	EnrolleeID  string    `json:"enrollee_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}
