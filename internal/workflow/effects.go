package workflow

import "medilink_app_echo/internal/models"

// Channel is how an effect should be delivered
type Channel string

const (
	ChannelNotify Channel = "notify" // in-app notification row
	ChannelEmail  Channel = "email"  // delivery via the user's preferred channel
)

// Recipient names a party of the appointment, resolved to a concrete user by
// the dispatcher
type Recipient string

const (
	RecipientPatient  Recipient = "patient"
	RecipientProvider Recipient = "provider"
	RecipientInsurer  Recipient = "insurer"
)

// Effect is one notification or email the caller should dispatch after
// persisting the transition. The engine performs no I/O itself; dispatch is
// fire-and-forget and failures never roll back the transition.
//
// Message may contain a $name placeholder for the recipient's display name,
// resolved at dispatch time.
type Effect struct {
	Channel   Channel
	Recipient Recipient
	Title     string
	Message   string
	Severity  models.NotificationSeverity
	Link      string
}

// notifyAndEmail builds the usual pair of effects for one recipient
func notifyAndEmail(r Recipient, title, message string, severity models.NotificationSeverity, link string) []Effect {
	return []Effect{
		{Channel: ChannelNotify, Recipient: r, Title: title, Message: message, Severity: severity, Link: link},
		{Channel: ChannelEmail, Recipient: r, Title: title, Message: message, Severity: severity, Link: link},
	}
}
