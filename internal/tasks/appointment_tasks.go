package tasks

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
)

// AppointmentReminderArgs carries the appointment a reminder is for
type AppointmentReminderArgs struct {
	AppointmentID uint `json:"appointment_id"`
}

// AppointmentReminderTaskDef reminds the patient of an upcoming appointment.
// Enqueued at booking time, due 24 hours before the scheduled time.
type AppointmentReminderTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *AppointmentReminderTaskDef) TaskID() string {
	return "appointment_reminder"
}

// CreateTask builds a reminder due 24h before the scheduled time. When the
// appointment is nearer than that the reminder is due immediately.
func (t *AppointmentReminderTaskDef) CreateTask(appointmentID uint, scheduledAt time.Time) (*models.ScheduledTask, error) {
	due := scheduledAt.Add(-24 * time.Hour)
	if due.Before(time.Now()) {
		due = time.Now()
	}
	return BuildScheduledTask(t.TaskID(), AppointmentReminderArgs{AppointmentID: appointmentID}, due, nil, models.ScheduledTaskTypeOneTime, 2)
}

// HandleExecution queues the reminder unless the appointment was cancelled
// or rescheduled past the reminder window in the meantime
func (t *AppointmentReminderTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var parsedArgs AppointmentReminderArgs
	if err := parseArgs(task, &parsedArgs); err != nil {
		return nil, err
	}

	var appt models.Appointment
	if err := db.Preload("Patient").Preload("Provider").First(&appt, parsedArgs.AppointmentID).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch appointment: %w", err)
	}

	if appt.CancelledAt != nil {
		return map[string]interface{}{"status": "skipped", "reason": "appointment cancelled"}, nil
	}
	if appt.ScheduledAt.Before(time.Now()) {
		return map[string]interface{}{"status": "skipped", "reason": "appointment already past"}, nil
	}

	subject := "Appointment reminder"
	body := fmt.Sprintf("Your appointment at %s is scheduled for %s.",
		appt.Provider.Name, appt.ScheduledAt.Format("Mon, 02 Jan 2006 15:04"))
	link := "/appointments/" + appt.UUID

	notification := models.Notification{
		UserID:   appt.PatientID,
		Title:    subject,
		Message:  body,
		Severity: models.SeverityInfo,
		Link:     link,
	}
	if err := db.Create(&notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder notification: %w", err)
	}

	deliveryTask, err := SendNotificationTask.CreateTask(SendNotificationArgs{
		Recipients: []DeliveryRecipient{{
			UserID:      appt.PatientID,
			Name:        appt.Patient.Name,
			Email:       appt.Patient.Email,
			PhoneNumber: appt.Patient.Phone,
		}},
		Subject: subject,
		Body:    body,
		Link:    link,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build delivery task: %w", err)
	}
	if err := db.Create(deliveryTask).Error; err != nil {
		return nil, fmt.Errorf("failed to enqueue delivery task: %w", err)
	}

	return map[string]interface{}{"status": "success"}, nil
}

// AppointmentReminderTask is the singleton instance of AppointmentReminderTaskDef
var AppointmentReminderTask = &AppointmentReminderTaskDef{}
