package domain

import "time"

type NotificationKind string

const (
	KindMatchFound      NotificationKind = "match_found"
	KindProfileViewed   NotificationKind = "profile_viewed"
	KindMessageReceived NotificationKind = "message_received"
	KindReminder        NotificationKind = "reminder"
)

// Valid reports whether k is one of the four dispatchable kinds.
func (k NotificationKind) Valid() bool {
	switch k {
	case KindMatchFound, KindProfileViewed, KindMessageReceived, KindReminder:
		return true
	}
	return false
}

type NotificationStatus string

const (
	StatusSent      NotificationStatus = "sent"
	StatusDelivered NotificationStatus = "delivered"
	StatusFailed    NotificationStatus = "failed"
	StatusSkipped   NotificationStatus = "skipped"
)

// NotificationPreferences holds one user's SMS settings. Quiet hours are
// "HH:MM" strings in Timezone; a nil bound disables quiet hours.
type NotificationPreferences struct {
	UserID            string    `json:"user_id" dynamodbav:"user_id"`
	SMSEnabled        bool      `json:"sms_enabled" dynamodbav:"sms_enabled"`
	NewMatches        bool      `json:"new_matches" dynamodbav:"new_matches"`
	ProfileViews      bool      `json:"profile_views" dynamodbav:"profile_views"`
	Messages          bool      `json:"messages" dynamodbav:"messages"`
	ActivityReminders bool      `json:"activity_reminders" dynamodbav:"activity_reminders"`
	QuietHoursStart   *string   `json:"quiet_hours_start" dynamodbav:"quiet_hours_start"`
	QuietHoursEnd     *string   `json:"quiet_hours_end" dynamodbav:"quiet_hours_end"`
	Timezone          string    `json:"timezone" dynamodbav:"timezone"`
	CreatedAt         time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time `json:"updated" dynamodbav:"updated_at"`
}

// KindEnabled reports the per-kind toggle for k.
func (p *NotificationPreferences) KindEnabled(k NotificationKind) bool {
	switch k {
	case KindMatchFound:
		return p.NewMatches
	case KindProfileViewed:
		return p.ProfileViews
	case KindMessageReceived:
		return p.Messages
	case KindReminder:
		return p.ActivityReminders
	}
	return false
}

// DefaultPreferences returns the record created the first time a user's preferences are read.
func DefaultPreferences(userID, timezone string, now time.Time) *NotificationPreferences {
	start, end := "22:00", "08:00"
	return &NotificationPreferences{
		UserID:            userID,
		SMSEnabled:        true,
		NewMatches:        true,
		ProfileViews:      true,
		Messages:          true,
		ActivityReminders: false,
		QuietHoursStart:   &start,
		QuietHoursEnd:     &end,
		Timezone:          timezone,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

type UpdatePreferencesRequest struct {
	SMSEnabled        *bool   `json:"sms_enabled"`
	NewMatches        *bool   `json:"new_matches"`
	ProfileViews      *bool   `json:"profile_views"`
	Messages          *bool   `json:"messages"`
	ActivityReminders *bool   `json:"activity_reminders"`
	QuietHoursStart   *string `json:"quiet_hours_start"`
	QuietHoursEnd     *string `json:"quiet_hours_end"`
	Timezone          *string `json:"timezone"`
}

// NotificationLogEntry is one append-only dispatch record.
type NotificationLogEntry struct {
	EntryID     string             `json:"id" dynamodbav:"entry_id"`
	UserID      string             `json:"user_id" dynamodbav:"user_id"`
	Type        NotificationKind   `json:"type" dynamodbav:"type"`
	PhoneNumber string             `json:"phone_number" dynamodbav:"phone_number"`
	MessageBody string             `json:"message_body" dynamodbav:"message_body"`
	Status      NotificationStatus `json:"status" dynamodbav:"status"`
	Reason      string             `json:"reason,omitempty" dynamodbav:"reason,omitempty"`
	MessageID   string             `json:"message_id,omitempty" dynamodbav:"message_id,omitempty"`
	SentAt      time.Time          `json:"sent_at" dynamodbav:"sent_at"`
	Data        map[string]string  `json:"data,omitempty" dynamodbav:"data,omitempty"`
}

// EventData carries the template parameters of a notification.
type EventData struct {
	Name           string `json:"name,omitempty"`
	MessagePreview string `json:"messagePreview,omitempty"`
}

// NotificationEvent is an application event to dispatch, from HTTP or the event queue.
type NotificationEvent struct {
	UserID string           `json:"userId" validate:"required"`
	Type   NotificationKind `json:"type" validate:"required"`
	Data   EventData        `json:"data"`
}

// DispatchResult reports the outcome of one dispatch.
type DispatchResult struct {
	Sent      bool               `json:"sent"`
	Status    NotificationStatus `json:"status"`
	MessageID string             `json:"messageSid,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}
