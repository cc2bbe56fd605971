package models

import "time"

// Channel is a delivery mechanism for staff or student notifications.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// Notification alert types.
const (
	AlertEscalation   = "escalation"
	AlertConfirmation = "confirmation"
	AlertDecision     = "decision_update"
	AlertMaintenance  = "maintenance_scheduled"
)

// NotificationStatus is the outcome of a delivery attempt.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
	NotificationStored NotificationStatus = "stored"
)

// Alert is a message addressed to one or more staff roles.
type Alert struct {
	AlertType   string            `json:"alert_type"`
	Subject     string            `json:"subject"`
	Message     string            `json:"message"`
	Priority    Priority          `json:"priority"`
	TargetRoles []StaffRole       `json:"target_roles"`
	StudentInfo map[string]string `json:"student_info,omitempty"`
}

// StaffMember is a notification recipient with channel preferences.
type StaffMember struct {
	ID                string    `db:"id" json:"id"`
	FullName          string    `db:"full_name" json:"full_name"`
	Role              StaffRole `db:"role" json:"role"`
	Email             string    `db:"email" json:"email"`
	Phone             string    `db:"phone" json:"phone"`
	PreferredChannels []string  `db:"-" json:"preferred_channels"`
	RawChannels       string    `db:"preferred_channels" json:"-"`
	Active            bool      `db:"active" json:"active"`
}

// Recipient is the addressable identity a channel delivers to.
type Recipient struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// Notification is a persisted delivery attempt.
type Notification struct {
	ID          string             `db:"id" json:"id"`
	AlertType   string             `db:"alert_type" json:"alert_type"`
	RecipientID string             `db:"recipient_id" json:"recipient_id"`
	Channel     Channel            `db:"channel" json:"channel"`
	Subject     string             `db:"subject" json:"subject"`
	Message     string             `db:"message" json:"message"`
	Priority    Priority           `db:"priority" json:"priority"`
	Status      NotificationStatus `db:"status" json:"status"`
	Error       *string            `db:"error" json:"error,omitempty"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}

// DeliveryReport summarises a dispatch across recipients.
type DeliveryReport struct {
	Recipients int             `json:"recipients"`
	Delivered  int             `json:"delivered"`
	Failed     []string        `json:"failed,omitempty"`
	ByChannel  map[Channel]int `json:"by_channel"`
}
