package models

import (
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Password is never exposed in JSON
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MoodScores maps the five mood labels to their numeric scale value.
var MoodScores = map[string]int{
	"terrible": 1,
	"bad":      2,
	"okay":     3,
	"good":     4,
	"great":    5,
}

// ValidMoodRating reports whether s is one of the five mood labels.
func ValidMoodRating(s string) bool {
	_, ok := MoodScores[s]
	return ok
}

type CheckIn struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	MoodRating  string    `json:"mood_rating"`
	MoodScore   int       `json:"mood_score"`
	StressLevel int       `json:"stress_level"`
	Notes       string    `json:"notes"`    // PHI - encrypted at rest
	Emotions    []string  `json:"emotions"` // PHI - encrypted at rest
	Encrypted   bool      `json:"encrypted"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationPreferences holds a user's notification settings. A missing
// row maps to DefaultNotificationPreferences.
type NotificationPreferences struct {
	UserID            string          `json:"user_id"`
	Types             map[string]bool `json:"types"` // absent type means enabled
	QuietHoursEnabled bool            `json:"quiet_hours_enabled"`
	QuietHoursStart   string          `json:"quiet_hours_start"` // "HH:MM" user-local
	QuietHoursEnd     string          `json:"quiet_hours_end"`   // "HH:MM" user-local
	DailyLimit        int             `json:"daily_limit"`
	Timezone          string          `json:"timezone"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TypeEnabled reports whether a notification type may be sent. Only an
// explicit false disables a type.
func (p *NotificationPreferences) TypeEnabled(notificationType string) bool {
	enabled, ok := p.Types[notificationType]
	return !ok || enabled
}

const DefaultDailyLimit = 5

func DefaultNotificationPreferences(userID string) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:     userID,
		Types:      map[string]bool{},
		DailyLimit: DefaultDailyLimit,
		Timezone:   "UTC",
	}
}

const (
	NotificationStatusSent    = "sent"
	NotificationStatusBlocked = "blocked"
	NotificationStatusFailed  = "failed"
)

// NotificationLogEntry is the append-only audit record for every gate
// decision. Daily-cap and cooldown counts are derived from these rows.
type NotificationLogEntry struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	NotificationType string    `json:"notification_type"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	Status           string    `json:"status"`
	Reason           string    `json:"reason,omitempty"`
	SentAt           time.Time `json:"sent_at"`
}

type DeviceToken struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Platform    string    `json:"platform"` // "ios" or "android"
	Token       string    `json:"token"`
	EndpointARN string    `json:"endpoint_arn"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
