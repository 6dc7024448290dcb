package workflow

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"medilink_app_echo/internal/models"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngineWithClock(func() time.Time { return testNow })
}

func insurerID(id uint) *uint { return &id }

// covered appointment, both axes pending, scheduled tomorrow
func coveredAppointment() models.Appointment {
	return models.Appointment{
		ID:               1,
		UUID:             "appt-1",
		PatientID:        10,
		ProviderID:       20,
		InsurerID:        insurerID(30),
		ScheduledAt:      testNow.Add(24 * time.Hour),
		Complaint:        "persistent headache",
		ProviderApproval: models.ApprovalPending,
		InsurerApproval:  models.ApprovalPending,
	}
}

func outOfPocketAppointment() models.Appointment {
	appt := coveredAppointment()
	appt.InsurerID = nil
	appt.OutOfPocket = true
	appt.InsurerApproval = models.ApprovalNotApplicable
	return appt
}

var (
	patientActor  = Actor{Role: models.RolePatient, UserID: 10}
	providerActor = Actor{Role: models.RoleProvider, UserID: 21, ProviderID: 20}
	insurerActor  = Actor{Role: models.RoleInsurer, UserID: 31, InsurerID: 30}
	adminActor    = Actor{Role: models.RoleAdmin, UserID: 1}
)

func countEffects(effects []Effect, r Recipient) int {
	n := 0
	for _, e := range effects {
		if e.Recipient == r {
			n++
		}
	}
	return n
}

func TestApproveByProvider(t *testing.T) {
	e := testEngine()

	// Scenario: pending/pending covered appointment
	appt := coveredAppointment()
	got, effects, err := e.ApproveByProvider(providerActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProviderApproval != models.ApprovalApproved {
		t.Errorf("provider approval = %s; want approved", got.ProviderApproval)
	}
	// patient notify+email and insurer notify+email
	if len(effects) != 4 {
		t.Errorf("effect count = %d; want 4", len(effects))
	}
	if countEffects(effects, RecipientPatient) != 2 || countEffects(effects, RecipientInsurer) != 2 {
		t.Errorf("effects not split patient/insurer: %+v", effects)
	}

	// no insurer attached -> only patient effects
	oop := outOfPocketAppointment()
	_, effects, err = e.ApproveByProvider(providerActor, oop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(effects) != 2 || countEffects(effects, RecipientPatient) != 2 {
		t.Errorf("out-of-pocket approve effects = %+v; want patient pair only", effects)
	}

	// cancelled appointment cannot be approved
	cancelled := coveredAppointment()
	cancelled.CancelledAt = &testNow
	_, _, err = e.ApproveByProvider(providerActor, cancelled)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve on cancelled = %v; want ErrInvalidTransition", err)
	}
}

func TestApproveByProviderIdempotent(t *testing.T) {
	e := testEngine()
	appt := coveredAppointment()

	once, _, err := e.ApproveByProvider(providerActor, appt)
	if err != nil {
		t.Fatalf("first approve: %v", err)
	}
	twice, effects, err := e.ApproveByProvider(providerActor, once)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if !reflect.DeepEqual(twice, once) {
		t.Errorf("second approve changed state: %+v vs %+v", twice, once)
	}
	if len(effects) != 0 {
		t.Errorf("second approve emitted %d effects; want 0", len(effects))
	}
}

func TestRejectByProvider(t *testing.T) {
	e := testEngine()

	// Un-approving after insurer approval must fail
	locked := coveredAppointment()
	locked.ProviderApproval = models.ApprovalApproved
	locked.InsurerApproval = models.ApprovalApproved
	_, _, err := e.RejectByProvider(providerActor, locked)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reject after insurer approval = %v; want ErrInvalidTransition", err)
	}

	// Scenario B: provider approved, insurer not yet approved -> reject succeeds
	appt := coveredAppointment()
	appt.ProviderApproval = models.ApprovalApproved
	got, effects, err := e.RejectByProvider(providerActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ProviderApproval != models.ApprovalRejected {
		t.Errorf("provider approval = %s; want rejected", got.ProviderApproval)
	}
	if len(effects) != 4 {
		t.Errorf("effect count = %d; want patient+insurer pairs", len(effects))
	}

	// already rejected -> no-op
	again, effects, err := e.RejectByProvider(providerActor, got)
	if err != nil || len(effects) != 0 || !reflect.DeepEqual(again, got) {
		t.Errorf("repeat reject: err=%v effects=%d", err, len(effects))
	}
}

func TestApproveByInsurerGuardOrdering(t *testing.T) {
	e := testEngine()

	// For every provider state other than approved, insurer approval fails
	for _, state := range []models.ApprovalState{models.ApprovalPending, models.ApprovalRejected} {
		appt := coveredAppointment()
		appt.ProviderApproval = state
		_, _, err := e.ApproveByInsurer(insurerActor, appt)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("insurer approve with provider %s = %v; want ErrInvalidTransition", state, err)
		}
	}

	// out-of-pocket never reaches insurer approval
	oop := outOfPocketAppointment()
	oop.ProviderApproval = models.ApprovalApproved
	_, _, err := e.ApproveByInsurer(adminActor, oop)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("insurer approve on out-of-pocket = %v; want ErrInvalidTransition", err)
	}

	// happy path stamps the approval time
	appt := coveredAppointment()
	appt.ProviderApproval = models.ApprovalApproved
	got, effects, err := e.ApproveByInsurer(insurerActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.InsurerApproval != models.ApprovalApproved {
		t.Errorf("insurer approval = %s; want approved", got.InsurerApproval)
	}
	if got.InsurerApprovalAt == nil || !got.InsurerApprovalAt.Equal(testNow) {
		t.Errorf("insurer approval time = %v; want %v", got.InsurerApprovalAt, testNow)
	}
	if countEffects(effects, RecipientPatient) != 2 || countEffects(effects, RecipientProvider) != 2 {
		t.Errorf("effects = %+v; want patient+provider pairs", effects)
	}
}

func TestRejectByInsurer(t *testing.T) {
	e := testEngine()

	// provider not approved -> invalid
	appt := coveredAppointment()
	_, _, err := e.RejectByInsurer(insurerActor, appt)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("insurer reject before provider approval = %v; want ErrInvalidTransition", err)
	}

	// provider approved but insurer pending -> nothing to reject, no-op
	appt.ProviderApproval = models.ApprovalApproved
	got, effects, err := e.RejectByInsurer(insurerActor, appt)
	if err != nil || len(effects) != 0 || !reflect.DeepEqual(got, appt) {
		t.Errorf("reject with nothing to reject: err=%v effects=%d", err, len(effects))
	}

	// revoke after approval
	appt.InsurerApproval = models.ApprovalApproved
	got, effects, err = e.RejectByInsurer(insurerActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.InsurerApproval != models.ApprovalRejected {
		t.Errorf("insurer approval = %s; want rejected", got.InsurerApproval)
	}
	if len(effects) != 4 {
		t.Errorf("effect count = %d; want 4", len(effects))
	}
}

func TestCancel(t *testing.T) {
	e := testEngine()

	appt := coveredAppointment()
	got, effects, err := e.Cancel(patientActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.CancelledAt == nil || !got.CancelledAt.Equal(testNow) {
		t.Errorf("cancelled at = %v; want %v", got.CancelledAt, testNow)
	}
	// approval state retained, not erased
	if got.ProviderApproval != appt.ProviderApproval || got.InsurerApproval != appt.InsurerApproval {
		t.Errorf("cancel erased approval history")
	}
	if len(effects) != 6 {
		t.Errorf("effect count = %d; want patient+provider+insurer pairs", len(effects))
	}

	// cancelling twice fails
	_, _, err = e.Cancel(patientActor, got)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double cancel = %v; want ErrInvalidTransition", err)
	}

	// past appointments cannot be cancelled
	past := coveredAppointment()
	past.ScheduledAt = testNow.Add(-time.Hour)
	_, _, err = e.Cancel(patientActor, past)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("cancel past appointment = %v; want ErrInvalidTransition", err)
	}
}

func TestReschedule(t *testing.T) {
	e := testEngine()
	target := testNow.Add(72 * time.Hour)

	appt := coveredAppointment()
	got, effects, err := e.Reschedule(patientActor, appt, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.ScheduledAt.Equal(target) {
		t.Errorf("scheduled at = %v; want %v", got.ScheduledAt, target)
	}
	if len(effects) != 6 {
		t.Errorf("effect count = %d; want 6", len(effects))
	}

	// Scenario E: past target -> InvalidInput, state unchanged
	got2, _, err := e.Reschedule(patientActor, appt, testNow.Add(-time.Hour))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("past reschedule = %v; want ErrInvalidInput", err)
	}
	if !got2.ScheduledAt.Equal(appt.ScheduledAt) {
		t.Errorf("failed reschedule mutated state")
	}

	// Property 5: provider-approved appointments can never be rescheduled
	approved := coveredAppointment()
	approved.ProviderApproval = models.ApprovalApproved
	_, _, err = e.Reschedule(patientActor, approved, target)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reschedule after approval = %v; want ErrInvalidTransition", err)
	}

	// insurer acted first (covered appointment approved then revoked)
	acted := coveredAppointment()
	acted.InsurerApproval = models.ApprovalRejected
	_, _, err = e.Reschedule(patientActor, acted, target)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reschedule after insurer acted = %v; want ErrInvalidTransition", err)
	}

	// out-of-pocket: insurer axis fixed at not-applicable still reschedulable
	oop := outOfPocketAppointment()
	_, _, err = e.Reschedule(patientActor, oop, target)
	if err != nil {
		t.Errorf("out-of-pocket reschedule = %v; want success", err)
	}
}

func TestSubmitClaim(t *testing.T) {
	e := testEngine()

	// Property 3: unapproved visit is not billable
	appt := coveredAppointment()
	_, _, err := e.SubmitClaim(providerActor, appt, 5000)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("claim on unapproved visit = %v; want ErrInvalidTransition", err)
	}

	// Scenario C: out-of-pocket appointment rejects claims
	oop := outOfPocketAppointment()
	oop.ProviderApproval = models.ApprovalApproved
	_, _, err = e.SubmitClaim(adminActor, oop, 5000)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("claim on out-of-pocket = %v; want ErrInvalidTransition", err)
	}

	// non-positive amounts are invalid input
	billable := coveredAppointment()
	billable.ProviderApproval = models.ApprovalApproved
	for _, amount := range []float64{0, -100} {
		_, _, err = e.SubmitClaim(providerActor, billable, amount)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("claim amount %v = %v; want ErrInvalidInput", amount, err)
		}
	}

	// happy path
	got, effects, err := e.SubmitClaim(providerActor, billable, 7500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Claim == nil || got.Claim.Amount != 7500 || got.Claim.Paid {
		t.Errorf("claim = %+v; want amount 7500, unpaid", got.Claim)
	}
	if got.Claim.SubmittedAt == nil || !got.Claim.SubmittedAt.Equal(testNow) {
		t.Errorf("submitted at = %v; want %v", got.Claim.SubmittedAt, testNow)
	}
	if len(effects) != 2 || countEffects(effects, RecipientInsurer) != 2 {
		t.Errorf("effects = %+v; want insurer pair", effects)
	}

	// a second claim on the same appointment fails
	_, _, err = e.SubmitClaim(providerActor, got, 100)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("duplicate claim = %v; want ErrInvalidTransition", err)
	}
}

func TestMarkClaimPaidTerminal(t *testing.T) {
	e := testEngine()

	appt := coveredAppointment()
	appt.ProviderApproval = models.ApprovalApproved
	appt, _, err := e.SubmitClaim(providerActor, appt, 7500)
	if err != nil {
		t.Fatalf("submit claim: %v", err)
	}

	paid, effects, err := e.MarkClaimPaid(insurerActor, appt)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if !paid.Claim.Paid || paid.Claim.PaidAt == nil {
		t.Errorf("claim not marked paid: %+v", paid.Claim)
	}
	if countEffects(effects, RecipientProvider) != 2 {
		t.Errorf("effects = %+v; want provider pair", effects)
	}

	// Property 4: claim is terminal once paid
	_, _, err = e.MarkClaimPaid(insurerActor, paid)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second mark paid = %v; want ErrInvalidTransition", err)
	}

	// no claim at all
	_, _, err = e.MarkClaimPaid(insurerActor, coveredAppointment())
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("mark paid without claim = %v; want ErrInvalidTransition", err)
	}
}

func TestMarkQueried(t *testing.T) {
	e := testEngine()

	appt := coveredAppointment()
	got, effects, err := e.MarkQueried(providerActor, appt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Queried {
		t.Errorf("queried flag not set")
	}
	if countEffects(effects, RecipientPatient) != 2 {
		t.Errorf("effects = %+v; want patient pair", effects)
	}

	// set once, never cleared; repeat is a no-op
	again, effects, err := e.MarkQueried(providerActor, got)
	if err != nil || len(effects) != 0 || !again.Queried {
		t.Errorf("repeat query: err=%v effects=%d", err, len(effects))
	}
}

func TestAuthorization(t *testing.T) {
	e := testEngine()
	appt := coveredAppointment()
	appt.ProviderApproval = models.ApprovalApproved

	tests := []struct {
		name string
		call func() error
	}{
		{"patient approves own visit", func() error {
			_, _, err := e.ApproveByProvider(patientActor, coveredAppointment())
			return err
		}},
		{"insurer acts for provider", func() error {
			_, _, err := e.SubmitClaim(insurerActor, appt, 100)
			return err
		}},
		{"provider acts for insurer", func() error {
			_, _, err := e.ApproveByInsurer(providerActor, appt)
			return err
		}},
		{"provider cancels patient appointment", func() error {
			_, _, err := e.Cancel(providerActor, coveredAppointment())
			return err
		}},
		{"provider from another clinic", func() error {
			other := Actor{Role: models.RoleProvider, UserID: 99, ProviderID: 999}
			_, _, err := e.ApproveByProvider(other, coveredAppointment())
			return err
		}},
		{"insurer from another org", func() error {
			other := Actor{Role: models.RoleInsurer, UserID: 99, InsurerID: 999}
			_, _, err := e.ApproveByInsurer(other, appt)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("got %v; want ErrUnauthorized", err)
			}
		})
	}

	// admin can drive any transition
	if _, _, err := e.ApproveByInsurer(adminActor, appt); err != nil {
		t.Errorf("admin insurer approve = %v; want success", err)
	}
	if _, _, err := e.Cancel(adminActor, coveredAppointment()); err != nil {
		t.Errorf("admin cancel = %v; want success", err)
	}
}

func TestPredicatesMatchOperations(t *testing.T) {
	e := testEngine()

	// the visibility predicates and the operations must agree: whenever a
	// predicate says the button is visible, the admin-driven operation
	// succeeds, and vice versa for state-guard failures
	states := []models.Appointment{
		coveredAppointment(),
		outOfPocketAppointment(),
	}
	approved := coveredAppointment()
	approved.ProviderApproval = models.ApprovalApproved
	states = append(states, approved)

	both := coveredAppointment()
	both.ProviderApproval = models.ApprovalApproved
	both.InsurerApproval = models.ApprovalApproved
	states = append(states, both)

	cancelled := coveredAppointment()
	cancelled.CancelledAt = &testNow
	states = append(states, cancelled)

	for i, appt := range states {
		if CanApproveByInsurer(appt) {
			if _, _, err := e.ApproveByInsurer(adminActor, appt); err != nil {
				t.Errorf("state %d: predicate open but ApproveByInsurer failed: %v", i, err)
			}
		}
		if CanSubmitClaim(appt) {
			if _, _, err := e.SubmitClaim(adminActor, appt, 100); err != nil {
				t.Errorf("state %d: predicate open but SubmitClaim failed: %v", i, err)
			}
		}
		if CanReschedule(appt) {
			if _, _, err := e.Reschedule(adminActor, appt, testNow.Add(time.Hour)); err != nil {
				t.Errorf("state %d: predicate open but Reschedule failed: %v", i, err)
			}
		}
	}
}
