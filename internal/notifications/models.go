package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeBookingConfirmed NotificationType = "BOOKING_CONFIRMED"
	NotificationTypeBookingCancelled NotificationType = "BOOKING_CANCELLED"
)

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityMedium NotificationPriority = "MEDIUM"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusQueued  NotificationStatus = "QUEUED"
	NotificationStatusSending NotificationStatus = "SENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// EmailNotification is the message carried on the notification topic
type EmailNotification struct {
	ID       uuid.UUID            `json:"id"`
	Type     NotificationType     `json:"type"`
	Priority NotificationPriority `json:"priority"`

	RecipientID    uuid.UUID `json:"recipient_id"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientName  string    `json:"recipient_name"`
	Locale         string    `json:"locale,omitempty"`

	Subject      string            `json:"subject"`
	TemplateData map[string]string `json:"template_data"`

	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Status     NotificationStatus `json:"status"`
	RetryCount int                `json:"retry_count"`
	LastError  *string            `json:"last_error,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	SentAt     *time.Time         `json:"sent_at,omitempty"`
}

type NotificationBuilder struct {
	notification *EmailNotification
}

func NewNotificationBuilder() *NotificationBuilder {
	now := time.Now().UTC()
	return &NotificationBuilder{
		notification: &EmailNotification{
			ID:           uuid.New(),
			Status:       NotificationStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
			TemplateData: make(map[string]string),
		},
	}
}

func (nb *NotificationBuilder) WithType(notType NotificationType) *NotificationBuilder {
	nb.notification.Type = notType
	nb.notification.Priority = GetDefaultPriority(notType)
	return nb
}

func (nb *NotificationBuilder) WithRecipient(userID uuid.UUID, email, name string) *NotificationBuilder {
	nb.notification.RecipientID = userID
	nb.notification.RecipientEmail = email
	nb.notification.RecipientName = name
	return nb
}

func (nb *NotificationBuilder) WithLocale(locale string) *NotificationBuilder {
	nb.notification.Locale = locale
	return nb
}

func (nb *NotificationBuilder) WithTemplateData(data map[string]string) *NotificationBuilder {
	nb.notification.TemplateData = data
	return nb
}

func (nb *NotificationBuilder) WithBookingContext(bookingID uuid.UUID) *NotificationBuilder {
	nb.notification.BookingID = &bookingID
	return nb
}

func (nb *NotificationBuilder) WithExpiration(expiresAt time.Time) *NotificationBuilder {
	nb.notification.ExpiresAt = &expiresAt
	return nb
}

// Build fills in the subject from the type when none was set
func (nb *NotificationBuilder) Build() *EmailNotification {
	if nb.notification.Subject == "" {
		nb.notification.Subject = subjectFor(nb.notification.Type, nb.notification.TemplateData)
	}
	return nb.notification
}

func GetDefaultPriority(notType NotificationType) NotificationPriority {
	switch notType {
	case NotificationTypeBookingConfirmed:
		return NotificationPriorityHigh
	case NotificationTypeBookingCancelled:
		return NotificationPriorityMedium
	default:
		return NotificationPriorityLow
	}
}

// GetPartitionKey keeps one recipient's notices ordered on a single partition
func (en *EmailNotification) GetPartitionKey() string {
	return en.RecipientID.String()
}

func (en *EmailNotification) ToJSON() ([]byte, error) {
	return json.Marshal(en)
}

func (en *EmailNotification) IsExpired(now time.Time) bool {
	return en.ExpiresAt != nil && now.After(*en.ExpiresAt)
}

func (en *EmailNotification) MarkSent() {
	now := time.Now().UTC()
	en.Status = NotificationStatusSent
	en.SentAt = &now
	en.UpdatedAt = now
}

func (en *EmailNotification) MarkFailed(err error) {
	en.Status = NotificationStatusFailed
	en.UpdatedAt = time.Now().UTC()
	errorStr := err.Error()
	en.LastError = &errorStr
}
