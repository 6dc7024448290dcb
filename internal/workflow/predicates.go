package workflow

import "medilink_app_echo/internal/models"

// Pure predicates over the appointment state. Every role screen derives its
// button visibility from these, so the guards live in exactly one place. The
// engine's operations use the same predicates for their precondition checks;
// operations additionally check the actor, which predicates do not.

// CanApproveByProvider reports whether the provider-approve transition is open
func CanApproveByProvider(appt models.Appointment) bool {
	return appt.CancelledAt == nil && appt.ProviderApproval != models.ApprovalApproved
}

// CanRejectByProvider reports whether the provider may reject, including
// un-approving a previously approved visit the insurer has not signed off on
func CanRejectByProvider(appt models.Appointment) bool {
	return appt.CancelledAt == nil &&
		appt.ProviderApproval != models.ApprovalRejected &&
		appt.InsurerApproval != models.ApprovalApproved
}

// CanApproveByInsurer reports whether the insurer-approve transition is open.
// Insurer approval is never reachable before provider approval.
func CanApproveByInsurer(appt models.Appointment) bool {
	return appt.CancelledAt == nil &&
		!appt.OutOfPocket &&
		appt.InsurerID != nil &&
		appt.ProviderApproval == models.ApprovalApproved &&
		appt.InsurerApproval != models.ApprovalApproved
}

// CanRejectByInsurer reports whether the insurer-reject (revoke) transition
// would change state
func CanRejectByInsurer(appt models.Appointment) bool {
	return appt.CancelledAt == nil &&
		!appt.OutOfPocket &&
		appt.InsurerID != nil &&
		appt.ProviderApproval == models.ApprovalApproved &&
		appt.InsurerApproval == models.ApprovalApproved
}

// CanCancel reports whether the appointment can still be cancelled. The time
// check belongs to the engine since it needs a clock.
func CanCancel(appt models.Appointment) bool {
	return appt.CancelledAt == nil
}

// CanReschedule reports whether the scheduled time may still be replaced:
// nobody has acted on the appointment yet and it is not cancelled. The
// insurer axis of an out-of-pocket appointment is fixed at not-applicable,
// which counts as "not acted".
func CanReschedule(appt models.Appointment) bool {
	if appt.CancelledAt != nil {
		return false
	}
	if appt.ProviderApproval != models.ApprovalPending {
		return false
	}
	return appt.InsurerApproval == models.ApprovalPending ||
		appt.InsurerApproval == models.ApprovalNotApplicable
}

// CanSubmitClaim reports whether the provider may bill this visit
func CanSubmitClaim(appt models.Appointment) bool {
	return appt.ProviderApproval == models.ApprovalApproved &&
		!appt.OutOfPocket &&
		appt.Claim == nil
}

// CanMarkClaimPaid reports whether an open claim exists
func CanMarkClaimPaid(appt models.Appointment) bool {
	return appt.Claim != nil && !appt.Claim.Paid
}
