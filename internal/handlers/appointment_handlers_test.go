package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medilink_app_echo/internal/middleware"
	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/notify"
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
	err = db.AutoMigrate(
		&models.User{},
		&models.Provider{},
		&models.Appointment{},
		&models.PaymentSession{},
		&models.Refund{},
		&models.Notification{},
		&models.ScheduledTask{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func newTestHandler(db *gorm.DB) *AppointmentHandler {
	engine := workflow.NewEngineWithClock(func() time.Time { return testNow })
	return NewAppointmentHandler(db, engine, notify.NewDispatcher(db), nil, nil)
}

func cancelRequest(handler *AppointmentHandler, uuid string, actor workflow.Actor) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/appointments/"+uuid+"/cancel", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("uuid")
	c.SetParamValues(uuid)
	c.Set(middleware.ContextActorKey, actor)
	return rec, handler.Cancel(c)
}

// Cancelling an out-of-pocket booking with no settled payment must persist
// the cancellation and leave the refunds table untouched. Refund rows are
// written only after the cancelled state is saved, so a second cancel on the
// same booking is rejected before any refund lookup runs.
func TestCancelPersistsWithoutRefund(t *testing.T) {
	db := openTestDB(t)

	appt := models.Appointment{
		UUID:             "cancel-oop",
		PatientID:        10,
		ProviderID:       20,
		ScheduledAt:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		ProviderApproval: models.ApprovalPending,
		InsurerApproval:  models.ApprovalNotApplicable,
		OutOfPocket:      true,
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	handler := newTestHandler(db)
	patient := workflow.Actor{Role: models.RolePatient, UserID: 10}

	rec, err := cancelRequest(handler, appt.UUID, patient)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Cancel status = %d; want %d", rec.Code, http.StatusOK)
	}

	var loaded models.Appointment
	if err := db.Where("uuid = ?", appt.UUID).First(&loaded).Error; err != nil {
		t.Fatalf("failed to reload appointment: %v", err)
	}
	if loaded.CancelledAt == nil {
		t.Error("cancellation not persisted")
	}

	var refunds int64
	if err := db.Model(&models.Refund{}).Count(&refunds).Error; err != nil {
		t.Fatalf("failed to count refunds: %v", err)
	}
	if refunds != 0 {
		t.Errorf("refund rows = %d; want 0 for an unpaid booking", refunds)
	}

	_, err = cancelRequest(handler, appt.UUID, patient)
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("second cancel error = %v; want ErrInvalidTransition", err)
	}
}

// A transition that fails its precondition must change nothing: no state
// write, no refund row.
func TestCancelRejectedLeavesNoTrace(t *testing.T) {
	db := openTestDB(t)

	cancelled := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	appt := models.Appointment{
		UUID:             "already-cancelled",
		PatientID:        10,
		ProviderID:       20,
		ScheduledAt:      time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		ProviderApproval: models.ApprovalPending,
		InsurerApproval:  models.ApprovalNotApplicable,
		OutOfPocket:      true,
		CancelledAt:      &cancelled,
	}
	if err := db.Create(&appt).Error; err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}

	handler := newTestHandler(db)
	patient := workflow.Actor{Role: models.RolePatient, UserID: 10}

	_, err := cancelRequest(handler, appt.UUID, patient)
	if !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Fatalf("cancel of cancelled booking error = %v; want ErrInvalidTransition", err)
	}

	var refunds int64
	if err := db.Model(&models.Refund{}).Count(&refunds).Error; err != nil {
		t.Fatalf("failed to count refunds: %v", err)
	}
	if refunds != 0 {
		t.Errorf("refund rows = %d; want 0 after a rejected transition", refunds)
	}
}
