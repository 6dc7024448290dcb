package notify

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"medilink_app_echo/internal/models"
	"medilink_app_echo/internal/tasks"
	"medilink_app_echo/internal/workflow"
)

// Dispatcher turns the workflow engine's effects into notification rows and
// queued deliveries. Dispatch is best-effort: an unresolvable recipient or a
// failed insert is logged and skipped, never surfaced to the transition that
// produced the effect.
type Dispatcher struct {
	db *gorm.DB
}

func NewDispatcher(db *gorm.DB) *Dispatcher {
	return &Dispatcher{db: db}
}

// Dispatch resolves and delivers every effect of one transition. Call after
// the new appointment state has been persisted.
func (d *Dispatcher) Dispatch(appt models.Appointment, effects []workflow.Effect) {
	for _, effect := range effects {
		user, err := d.resolveRecipient(appt, effect.Recipient)
		if err != nil {
			log.Printf("Skipping %s effect for %s on appointment %d: %v", effect.Channel, effect.Recipient, appt.ID, err)
			continue
		}

		message := strings.ReplaceAll(effect.Message, "$name", user.Name)

		switch effect.Channel {
		case workflow.ChannelNotify:
			notification := models.Notification{
				UserID:   user.ID,
				Title:    effect.Title,
				Message:  message,
				Severity: effect.Severity,
				Link:     effect.Link,
			}
			if err := d.db.Create(&notification).Error; err != nil {
				log.Printf("Failed to create notification for user %d: %v", user.ID, err)
			}
		case workflow.ChannelEmail:
			deliveryTask, err := tasks.SendNotificationTask.CreateTask(tasks.SendNotificationArgs{
				Recipients: []tasks.DeliveryRecipient{{
					UserID:      user.ID,
					Name:        user.Name,
					Email:       user.Email,
					PhoneNumber: user.Phone,
				}},
				Subject: effect.Title,
				Body:    message,
				Link:    effect.Link,
			})
			if err != nil {
				log.Printf("Failed to build delivery task for user %d: %v", user.ID, err)
				continue
			}
			if err := d.db.Create(deliveryTask).Error; err != nil {
				log.Printf("Failed to enqueue delivery task for user %d: %v", user.ID, err)
			}
		default:
			log.Printf("Unknown effect channel %q for appointment %d", effect.Channel, appt.ID)
		}
	}
}

// resolveRecipient maps an effect recipient to the concrete user account.
// Provider and insurer effects go to the organization's contact account.
func (d *Dispatcher) resolveRecipient(appt models.Appointment, recipient workflow.Recipient) (*models.User, error) {
	switch recipient {
	case workflow.RecipientPatient:
		return d.loadUser(appt.PatientID)
	case workflow.RecipientProvider:
		var provider models.Provider
		if err := d.db.First(&provider, appt.ProviderID).Error; err != nil {
			return nil, fmt.Errorf("provider %d: %w", appt.ProviderID, workflow.ErrNotFound)
		}
		return d.loadUser(provider.ContactUserID)
	case workflow.RecipientInsurer:
		if appt.InsurerID == nil {
			return nil, fmt.Errorf("appointment %d has no insurer: %w", appt.ID, workflow.ErrNotFound)
		}
		var insurer models.Insurer
		if err := d.db.First(&insurer, *appt.InsurerID).Error; err != nil {
			return nil, fmt.Errorf("insurer %d: %w", *appt.InsurerID, workflow.ErrNotFound)
		}
		return d.loadUser(insurer.ContactUserID)
	default:
		return nil, fmt.Errorf("unknown recipient %q: %w", recipient, workflow.ErrNotFound)
	}
}

func (d *Dispatcher) loadUser(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", id, workflow.ErrNotFound)
	}
	return &user, nil
}
