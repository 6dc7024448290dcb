package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medilink_app_echo/internal/models"
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
		&models.InsurancePlan{},
		&models.PlanSubscription{},
		&models.Notification{},
		&models.ScheduledTask{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// The sweep must write one in-app notification and enqueue one delivery task
// per expiring subscription, and the reminded count has to reflect only the
// subscriptions whose delivery task actually made it into the queue.
func TestSubscriptionSweepQueuesReminders(t *testing.T) {
	db := openTestDB(t)

	patient := models.User{Name: "Ayu Lestari", Email: "ayu@example.com", Phone: "+628120000001"}
	if err := db.Create(&patient).Error; err != nil {
		t.Fatalf("failed to create patient: %v", err)
	}
	plan := models.InsurancePlan{Name: "Silver Care"}
	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}

	sub := models.PlanSubscription{
		UUID:      "sub-expiring",
		PatientID: patient.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionApproved,
		StartDate: time.Now().AddDate(0, -11, 0),
		EndDate:   time.Now().Add(3 * 24 * time.Hour),
	}
	if err := db.Create(&sub).Error; err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}
	// well outside the sweep window, must not be touched
	fresh := models.PlanSubscription{
		UUID:      "sub-fresh",
		PatientID: patient.ID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionApproved,
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(1, 0, 0),
	}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("failed to create subscription: %v", err)
	}

	result, err := SubscriptionSweepTask.HandleExecution(context.Background(), db, models.ScheduledTask{})
	if err != nil {
		t.Fatalf("HandleExecution returned error: %v", err)
	}
	if result["matched"] != 1 {
		t.Errorf("matched = %v; want 1", result["matched"])
	}
	if result["reminded"] != 1 {
		t.Errorf("reminded = %v; want 1", result["reminded"])
	}

	var notifications int64
	if err := db.Model(&models.Notification{}).Where("user_id = ?", patient.ID).Count(&notifications).Error; err != nil {
		t.Fatalf("failed to count notifications: %v", err)
	}
	if notifications != 1 {
		t.Errorf("notification rows = %d; want 1", notifications)
	}

	var queued int64
	if err := db.Model(&models.ScheduledTask{}).Where("task_name = ?", SendNotificationTask.TaskID()).Count(&queued).Error; err != nil {
		t.Fatalf("failed to count delivery tasks: %v", err)
	}
	if queued != 1 {
		t.Errorf("queued delivery tasks = %d; want 1", queued)
	}
}
