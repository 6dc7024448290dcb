package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/workflow"
)

// SubscriptionSweepWindow is how far ahead the sweep looks for subscriptions
// about to run out
const SubscriptionSweepWindow = 7 * 24 * time.Hour

// SubscriptionSweepTaskDef is the recurring sweep that reminds patients of
// plan subscriptions that are about to expire or just expired. Expiry itself
// is never written back to the row; it stays a read-time derivation.
type SubscriptionSweepTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SubscriptionSweepTaskDef) TaskID() string {
	return "subscription_expiry_sweep"
}

// CreateTask builds the recurring sweep task
func (t *SubscriptionSweepTaskDef) CreateTask(firstDue time.Time, recurringInterval string) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, firstDue, &recurringInterval, models.ScheduledTaskTypeRecurring, 1)
}

// HandleExecution finds approved subscriptions whose end date falls inside
// the sweep window (or already passed) and queues a reminder for each patient
func (t *SubscriptionSweepTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	now := time.Now()
	horizon := now.Add(SubscriptionSweepWindow)

	var subs []models.PlanSubscription
	err := db.Preload("Patient").Preload("Plan").
		Where("status = ? AND end_date <= ?", models.SubscriptionApproved, horizon).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expiring subscriptions: %w", err)
	}

	reminded := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		state := workflow.ClassifySubscription(now, sub)

		var subject, body string
		switch state {
		case workflow.SubscriptionDisplayExpired:
			subject = "Your insurance plan has expired"
			body = fmt.Sprintf("Your subscription to %s expired on %s. Renew to keep your coverage.",
				sub.Plan.Name, sub.EndDate.Format("02 Jan 2006"))
		default:
			subject = "Your insurance plan expires soon"
			body = fmt.Sprintf("Your subscription to %s runs out on %s. Renew before then to keep your coverage.",
				sub.Plan.Name, sub.EndDate.Format("02 Jan 2006"))
		}

		notification := models.Notification{
			UserID:   sub.PatientID,
			Title:    subject,
			Message:  body,
			Severity: models.SeverityWarning,
			Link:     "/subscriptions/" + sub.UUID,
		}
		if err := db.Create(&notification).Error; err != nil {
			log.Printf("Failed to create expiry notification for subscription %d: %v", sub.ID, err)
			continue
		}

		deliveryTask, err := SendNotificationTask.CreateTask(SendNotificationArgs{
			Recipients: []DeliveryRecipient{{
				UserID:      sub.PatientID,
				Name:        sub.Patient.Name,
				Email:       sub.Patient.Email,
				PhoneNumber: sub.Patient.Phone,
			}},
			Subject: subject,
			Body:    body,
			Link:    "/subscriptions/" + sub.UUID,
		})
		if err != nil {
			log.Printf("Failed to build delivery task for subscription %d: %v", sub.ID, err)
			continue
		}
		if err := db.Create(deliveryTask).Error; err != nil {
			log.Printf("Failed to enqueue delivery task for subscription %d: %v", sub.ID, err)
			continue
		}
		reminded++
	}

	return map[string]interface{}{
		"status":   "success",
		"matched":  len(subs),
		"reminded": reminded,
	}, nil
}

// SubscriptionSweepTask is the singleton instance of SubscriptionSweepTaskDef
var SubscriptionSweepTask = &SubscriptionSweepTaskDef{}
