package models_test

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/workflow"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Appointment{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// A claimless appointment must still be claimless after a database round
// trip: if scanning materializes a zero-value claim, the submit-claim guard
// closes and the pay-claim guard opens on a claim that never existed.
func TestClaimlessAppointmentRoundTrip(t *testing.T) {
	db := openTestDB(t)

	insurerID := uint(30)
	appt := models.Appointment{
		UUID:             "rt-claimless",
		PatientID:        10,
		ProviderID:       20,
		InsurerID:        &insurerID,
		ScheduledAt:      time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		ProviderApproval: models.ApprovalApproved,
		InsurerApproval:  models.ApprovalPending,
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	var loaded models.Appointment
	if err := db.Where("uuid = ?", appt.UUID).First(&loaded).Error; err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}

	if loaded.Claim != nil {
		t.Fatalf("claim after round trip = %+v; want nil", loaded.Claim)
	}
	if !workflow.CanSubmitClaim(loaded) {
		t.Error("CanSubmitClaim = false for a billable claimless appointment")
	}
	if workflow.CanMarkClaimPaid(loaded) {
		t.Error("CanMarkClaimPaid = true for an appointment with no claim")
	}

	// Saving the reloaded record must not materialize claim columns either
	if err := db.Save(&loaded).Error; err != nil {
		t.Fatalf("failed to save reloaded appointment: %v", err)
	}
	var again models.Appointment
	if err := db.Where("uuid = ?", appt.UUID).First(&again).Error; err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}
	if again.Claim != nil {
		t.Errorf("claim after save and reload = %+v; want nil", again.Claim)
	}
}

func TestClaimedAppointmentRoundTrip(t *testing.T) {
	db := openTestDB(t)

	insurerID := uint(30)
	submitted := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	appt := models.Appointment{
		UUID:             "rt-claimed",
		PatientID:        10,
		ProviderID:       20,
		InsurerID:        &insurerID,
		ScheduledAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		ProviderApproval: models.ApprovalApproved,
		InsurerApproval:  models.ApprovalApproved,
		Claim: &models.Claim{
			Amount:      7500,
			SubmittedAt: &submitted,
		},
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	var loaded models.Appointment
	if err := db.Where("uuid = ?", appt.UUID).First(&loaded).Error; err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}

	if loaded.Claim == nil {
		t.Fatal("claim lost in round trip")
	}
	if loaded.Claim.Amount != 7500 || loaded.Claim.SubmittedAt == nil || !loaded.Claim.SubmittedAt.Equal(submitted) {
		t.Errorf("claim after round trip = %+v; want amount 7500 submitted %v", loaded.Claim, submitted)
	}
	if workflow.CanSubmitClaim(loaded) {
		t.Error("CanSubmitClaim = true for an appointment that already has a claim")
	}
	if !workflow.CanMarkClaimPaid(loaded) {
		t.Error("CanMarkClaimPaid = false for an open claim")
	}
}
