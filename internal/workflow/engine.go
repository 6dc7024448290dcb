package workflow

import (
	"fmt"
	"time"

	"medilink_app_echo/internal/models"
)

// Actor identifies who is requesting a transition. ProviderID/InsurerID carry
// the organization the acting user belongs to (zero when not applicable) so
// the engine can check ownership as well as role.
type Actor struct {
	Role       models.Role
	UserID     uint
	ProviderID uint
	InsurerID  uint
}

// Engine owns the appointment lifecycle: it validates a requested transition
// against the current record, returns the new record state plus the
// notification/email effects the caller should dispatch. It performs no I/O
// and holds no state between calls; race safety comes from the caller
// re-reading the record immediately before each call, so a conflicting
// concurrent transition simply fails its precondition check here.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine using the wall clock
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// NewEngineWithClock returns an engine with an injected clock, for tests
func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// ApproveByProvider marks the visit approved by the clinic. Idempotent: an
// already-approved appointment is returned unchanged with no effects.
func (e *Engine) ApproveByProvider(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireProvider(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.ProviderApproval == models.ApprovalApproved {
		return appt, nil, nil
	}
	if !CanApproveByProvider(appt) {
		return appt, nil, fmt.Errorf("approve by provider: appointment is cancelled: %w", ErrInvalidTransition)
	}

	appt.ProviderApproval = models.ApprovalApproved

	link := appointmentLink(appt)
	effects := notifyAndEmail(RecipientPatient, "Appointment approved",
		"Hello $name, your appointment has been approved by the provider.",
		models.SeveritySuccess, link)
	if hasInsurer(appt) {
		effects = append(effects, notifyAndEmail(RecipientInsurer, "Appointment awaiting your approval",
			"Hello $name, a provider has approved an appointment covered by your organization. It now awaits your approval.",
			models.SeverityInfo, link)...)
	}
	return appt, effects, nil
}

// RejectByProvider marks the visit rejected by the clinic. Allowed even after
// a prior provider approval (un-approving), but not once the insurer has
// signed off on cost.
func (e *Engine) RejectByProvider(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireProvider(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.ProviderApproval == models.ApprovalRejected {
		return appt, nil, nil
	}
	if !CanRejectByProvider(appt) {
		if appt.InsurerApproval == models.ApprovalApproved {
			return appt, nil, fmt.Errorf("reject by provider: insurer already approved: %w", ErrInvalidTransition)
		}
		return appt, nil, fmt.Errorf("reject by provider: appointment is cancelled: %w", ErrInvalidTransition)
	}

	appt.ProviderApproval = models.ApprovalRejected

	link := appointmentLink(appt)
	effects := notifyAndEmail(RecipientPatient, "Appointment rejected",
		"Hello $name, your appointment has been rejected by the provider.",
		models.SeverityDanger, link)
	if hasInsurer(appt) {
		effects = append(effects, notifyAndEmail(RecipientInsurer, "Appointment rejected by provider",
			"Hello $name, a provider has rejected an appointment covered by your organization.",
			models.SeverityWarning, link)...)
	}
	return appt, effects, nil
}

// ApproveByInsurer marks cost approved by the HMO. Never reachable before the
// provider has approved, and never on an out-of-pocket appointment.
func (e *Engine) ApproveByInsurer(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireInsurer(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.InsurerApproval == models.ApprovalApproved {
		return appt, nil, nil
	}
	if !CanApproveByInsurer(appt) {
		return appt, nil, fmt.Errorf("approve by insurer: provider approval missing or appointment not coverable: %w", ErrInvalidTransition)
	}

	now := e.now()
	appt.InsurerApproval = models.ApprovalApproved
	appt.InsurerApprovalAt = &now

	link := appointmentLink(appt)
	effects := notifyAndEmail(RecipientPatient, "Appointment cost approved",
		"Hello $name, your insurer has approved the cost of your appointment.",
		models.SeveritySuccess, link)
	effects = append(effects, notifyAndEmail(RecipientProvider, "Appointment cost approved",
		"Hello $name, the insurer has approved the cost of an appointment at your clinic.",
		models.SeveritySuccess, link)...)
	return appt, effects, nil
}

// RejectByInsurer marks cost rejected by the HMO. When the insurer had
// already approved this acts as a revoke. Rejecting while there is nothing to
// reject (insurer axis still pending) is a no-op.
func (e *Engine) RejectByInsurer(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireInsurer(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.OutOfPocket || !hasInsurer(appt) {
		return appt, nil, fmt.Errorf("reject by insurer: appointment has no insurer: %w", ErrInvalidTransition)
	}
	if appt.ProviderApproval != models.ApprovalApproved {
		return appt, nil, fmt.Errorf("reject by insurer: provider has not approved: %w", ErrInvalidTransition)
	}
	if appt.InsurerApproval != models.ApprovalApproved {
		// nothing to reject yet
		return appt, nil, nil
	}

	appt.InsurerApproval = models.ApprovalRejected

	link := appointmentLink(appt)
	effects := notifyAndEmail(RecipientPatient, "Appointment cost rejected",
		"Hello $name, your insurer has withdrawn cost approval for your appointment.",
		models.SeverityDanger, link)
	effects = append(effects, notifyAndEmail(RecipientProvider, "Appointment cost rejected",
		"Hello $name, the insurer has withdrawn cost approval for an appointment at your clinic.",
		models.SeverityWarning, link)...)
	return appt, effects, nil
}

// Cancel makes the appointment terminal for scheduling. Approval and claim
// history is retained. Only future appointments can be cancelled.
func (e *Engine) Cancel(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requirePatient(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.CancelledAt != nil {
		return appt, nil, fmt.Errorf("cancel: already cancelled: %w", ErrInvalidTransition)
	}
	now := e.now()
	if !appt.ScheduledAt.After(now) {
		return appt, nil, fmt.Errorf("cancel: appointment is past or ongoing: %w", ErrInvalidTransition)
	}

	appt.CancelledAt = &now

	link := appointmentLink(appt)
	effects := notifyAndEmail(RecipientPatient, "Appointment cancelled",
		"Hello $name, your appointment has been cancelled.",
		models.SeverityInfo, link)
	effects = append(effects, notifyAndEmail(RecipientProvider, "Appointment cancelled",
		"Hello $name, an appointment at your clinic has been cancelled.",
		models.SeverityInfo, link)...)
	if hasInsurer(appt) {
		effects = append(effects, notifyAndEmail(RecipientInsurer, "Appointment cancelled",
			"Hello $name, an appointment covered by your organization has been cancelled.",
			models.SeverityInfo, link)...)
	}
	return appt, effects, nil
}

// Reschedule replaces the scheduled time. Only legal while no party has acted
// on the appointment yet; approvals are not reset.
func (e *Engine) Reschedule(actor Actor, appt models.Appointment, newTime time.Time) (models.Appointment, []Effect, error) {
	if err := requirePatient(actor, appt); err != nil {
		return appt, nil, err
	}
	if !CanReschedule(appt) {
		return appt, nil, fmt.Errorf("reschedule: approvals already in progress or appointment cancelled: %w", ErrInvalidTransition)
	}
	if !newTime.After(e.now()) {
		return appt, nil, fmt.Errorf("reschedule: new time must be in the future: %w", ErrInvalidInput)
	}

	appt.ScheduledAt = newTime

	link := appointmentLink(appt)
	when := newTime.Format("Mon, 02 Jan 2006 15:04")
	effects := notifyAndEmail(RecipientPatient, "Appointment rescheduled",
		"Hello $name, your appointment has been moved to "+when+".",
		models.SeverityInfo, link)
	effects = append(effects, notifyAndEmail(RecipientProvider, "Appointment rescheduled",
		"Hello $name, an appointment at your clinic has been moved to "+when+".",
		models.SeverityInfo, link)...)
	if hasInsurer(appt) {
		effects = append(effects, notifyAndEmail(RecipientInsurer, "Appointment rescheduled",
			"Hello $name, an appointment covered by your organization has been moved to "+when+".",
			models.SeverityInfo, link)...)
	}
	return appt, effects, nil
}

// SubmitClaim files the provider's reimbursement request. A provider does not
// bill for an unapproved visit, and out-of-pocket appointments were already
// paid at booking.
func (e *Engine) SubmitClaim(actor Actor, appt models.Appointment, amount float64) (models.Appointment, []Effect, error) {
	if err := requireProvider(actor, appt); err != nil {
		return appt, nil, err
	}
	if amount <= 0 {
		return appt, nil, fmt.Errorf("submit claim: amount must be positive: %w", ErrInvalidInput)
	}
	if !CanSubmitClaim(appt) {
		return appt, nil, fmt.Errorf("submit claim: visit not billable: %w", ErrInvalidTransition)
	}

	now := e.now()
	appt.Claim = &models.Claim{
		Amount:      amount,
		SubmittedAt: &now,
		Paid:        false,
	}

	effects := notifyAndEmail(RecipientInsurer, "Claim submitted",
		"Hello $name, a provider has submitted a claim for an appointment covered by your organization.",
		models.SeverityInfo, appointmentLink(appt))
	return appt, effects, nil
}

// MarkClaimPaid settles the claim. Terminal: a paid claim accepts no further
// mutation.
func (e *Engine) MarkClaimPaid(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireInsurer(actor, appt); err != nil {
		return appt, nil, err
	}
	if !CanMarkClaimPaid(appt) {
		return appt, nil, fmt.Errorf("mark claim paid: no open claim: %w", ErrInvalidTransition)
	}

	now := e.now()
	appt.Claim.Paid = true
	appt.Claim.PaidAt = &now

	effects := notifyAndEmail(RecipientProvider, "Claim paid",
		"Hello $name, the insurer has paid your claim.",
		models.SeveritySuccess, appointmentLink(appt))
	return appt, effects, nil
}

// MarkQueried sets the provider's once-only query flag. Idempotent.
func (e *Engine) MarkQueried(actor Actor, appt models.Appointment) (models.Appointment, []Effect, error) {
	if err := requireProvider(actor, appt); err != nil {
		return appt, nil, err
	}
	if appt.Queried {
		return appt, nil, nil
	}
	if appt.CancelledAt != nil {
		return appt, nil, fmt.Errorf("mark queried: appointment is cancelled: %w", ErrInvalidTransition)
	}

	appt.Queried = true

	effects := notifyAndEmail(RecipientPatient, "Appointment queried",
		"Hello $name, the provider has raised a query on your appointment. Please review the details.",
		models.SeverityWarning, appointmentLink(appt))
	return appt, effects, nil
}

func hasInsurer(appt models.Appointment) bool {
	return appt.InsurerID != nil && !appt.OutOfPocket
}

func appointmentLink(appt models.Appointment) string {
	return "/appointments/" + appt.UUID
}

// requireProvider allows the clinic the appointment belongs to, or an admin
func requireProvider(actor Actor, appt models.Appointment) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleProvider && actor.ProviderID == appt.ProviderID {
		return nil
	}
	return fmt.Errorf("role %s may not act for the provider: %w", actor.Role, ErrUnauthorized)
}

// requireInsurer allows the HMO the appointment is covered by, or an admin
func requireInsurer(actor Actor, appt models.Appointment) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleInsurer && appt.InsurerID != nil && actor.InsurerID == *appt.InsurerID {
		return nil
	}
	return fmt.Errorf("role %s may not act for the insurer: %w", actor.Role, ErrUnauthorized)
}

// requirePatient allows the patient who owns the appointment, or an admin
func requirePatient(actor Actor, appt models.Appointment) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RolePatient && actor.UserID == appt.PatientID {
		return nil
	}
	return fmt.Errorf("role %s may not act for the patient: %w", actor.Role, ErrUnauthorized)
}
