package tasks

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/services"
)

// DeliveryRecipient is one user a queued message should reach
type DeliveryRecipient struct {
	UserID      uint   `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

// SendNotificationArgs defines the arguments for a delivery task. The body is
// final at enqueue time; placeholders are resolved by the dispatcher before
// the task is created.
type SendNotificationArgs struct {
	Recipients   []DeliveryRecipient `json:"recipients"`
	Subject      string              `json:"subject"`
	Body         string              `json:"body"`
	Link         string              `json:"link"`
	AttemptCount int                 `json:"attempt_count"`
}

// SendNotificationTaskDef delivers queued messages over each user's preferred
// channel (email or WhatsApp). Users with no preference row or channel "none"
// are skipped; they still have their in-app notification row.
type SendNotificationTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *SendNotificationTaskDef) TaskID() string {
	return "send_notification"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendNotificationTaskDef) CreateTask(args SendNotificationArgs) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, time.Now(), nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution sends the message to every recipient, rescheduling a retry
// task for the ones that failed until the attempt cap is reached
func (t *SendNotificationTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, task models.ScheduledTask) (map[string]interface{}, error) {
	var parsedArgs SendNotificationArgs
	if err := parseArgs(task, &parsedArgs); err != nil {
		return nil, err
	}

	total := len(parsedArgs.Recipients)
	successCount := 0
	skippedCount := 0
	failureCount := 0
	var failures []string
	var failedRecipients []DeliveryRecipient

	for _, recipient := range parsedArgs.Recipients {
		var pref models.UserNotifPreference
		err := db.Where("user_id = ?", recipient.UserID).First(&pref).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// No preference row: default to email when we have an address
				pref = models.UserNotifPreference{Channel: models.NotificationChannelEmail}
			} else {
				log.Printf("Error fetching preference for %s: %v", recipient.Name, err)
				failureCount++
				failures = append(failures, fmt.Sprintf("%s: db error", recipient.Name))
				failedRecipients = append(failedRecipients, recipient)
				continue
			}
		}

		var sendErr error
		switch pref.Channel {
		case models.NotificationChannelEmail:
			sendErr = sendEmailDelivery(recipient, parsedArgs)
		case models.NotificationChannelWhatsapp:
			sendErr = sendWhatsappDelivery(recipient, parsedArgs, pref)
		case models.NotificationChannelNone:
			skippedCount++
			continue
		default:
			log.Printf("Unsupported notification channel %s for %s", pref.Channel, recipient.Name)
			skippedCount++
			continue
		}

		if sendErr != nil {
			log.Printf("Failed to deliver to %s via %s: %v", recipient.Name, pref.Channel, sendErr)
			failureCount++
			failures = append(failures, fmt.Sprintf("%s: %v", recipient.Name, sendErr))
			failedRecipients = append(failedRecipients, recipient)
		} else {
			successCount++
		}
	}

	result := map[string]interface{}{
		"total":   total,
		"success": successCount,
		"skipped": skippedCount,
		"failure": failureCount,
	}

	if failureCount > 0 {
		result["errors"] = failures

		attempt := parsedArgs.AttemptCount
		maxRetries := task.MaxAttempt

		if attempt < maxRetries {
			log.Printf("Partial failure: %d recipients failed. Rescheduling for attempt %d", len(failedRecipients), attempt+1)

			newArgs := parsedArgs
			newArgs.Recipients = failedRecipients
			newArgs.AttemptCount = attempt + 1

			// Re-schedule in 5 minutes
			nextRun := time.Now().Add(5 * time.Minute)

			newTask, err := BuildScheduledTask(t.TaskID(), newArgs, nextRun, nil, models.ScheduledTaskTypeOneTime, maxRetries)
			if err == nil {
				db.Create(newTask)
			} else {
				log.Printf("Failed to create retry task: %v", err)
			}
		} else {
			// No worker-level error here: this task manages its own retry
			// chain, and an error would rerun delivery for recipients that
			// already got the message.
			log.Printf("Max attempts (%d) reached for %d failed recipients.", maxRetries, len(failedRecipients))
			result["exhausted"] = true
		}
	}

	return result, nil
}

// SendNotificationTask is the singleton instance of SendNotificationTaskDef
var SendNotificationTask = &SendNotificationTaskDef{}

func sendWhatsappDelivery(recipient DeliveryRecipient, args SendNotificationArgs, pref models.UserNotifPreference) error {
	whatsappService := services.NewWhatsappService()

	msg := args.Subject + "\n\n" + args.Body
	if args.Link != "" {
		msg += "\n\n" + args.Link
	}

	var chatID string
	if pref.WhatsappTargetType == models.WhatsappTargetTypeGroup {
		chatID = pref.WhatsappGroupID
		if chatID == "" {
			return fmt.Errorf("group ID is empty")
		}
		if !strings.HasSuffix(chatID, "@g.us") {
			chatID = chatID + "@g.us"
		}
	} else {
		chatID = recipient.PhoneNumber
		if chatID == "" {
			return fmt.Errorf("recipient has no phone number")
		}
	}

	return whatsappService.SendMessage(chatID, msg)
}

func sendEmailDelivery(recipient DeliveryRecipient, args SendNotificationArgs) error {
	if recipient.Email == "" {
		return fmt.Errorf("recipient has no email address")
	}

	emailService := services.NewEmailService()

	subject := args.Subject
	if subject == "" {
		subject = "Notification"
	}

	body := "<p>" + args.Body + "</p>"
	if args.Link != "" {
		body += fmt.Sprintf(`<p><a href="%s">View details</a></p>`, args.Link)
	}

	return emailService.SendEmail(recipient.Email, recipient.Name, subject, body)
}
