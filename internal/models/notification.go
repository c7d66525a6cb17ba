// internal/models/notification.go
package models

// Notification is a fire-and-forget message to an applicant or owner.
// Delivery failures are logged and never fail the triggering operation.
type Notification struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"` // email or sms
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"
)
