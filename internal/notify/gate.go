package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soulbloom/backend/internal/models"
)

// Notification types admitted through the gate.
const (
	TypeMoodSupport     = "mood_support"
	TypeStressSupport   = "stress_support"
	TypeStreakReminder  = "streak_reminder"
	TypeReEngagement    = "re_engagement"
	TypeCheckinReminder = "checkin_reminder"
)

// Block reasons recorded in the notification log.
const (
	ReasonTypeDisabled      = "type_disabled"
	ReasonQuietHours        = "quiet_hours"
	ReasonDailyLimitReached = "daily_limit_reached"
	ReasonTypeCooldown      = "type_cooldown"
	ReasonNoActiveDevices   = "no_active_devices"
	ReasonDeliveryFailed    = "delivery_failed"
)

const (
	dailyWindow  = 24 * time.Hour
	typeCooldown = 12 * time.Hour
)

// Store is the persistence the gate relies on. Counts are derived from the
// append-only log at decision time; the gate itself keeps no counters.
type Store interface {
	// Preferences returns the user's notification preferences with defaults
	// applied when no row exists.
	Preferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	// CountSentSince counts log entries with status "sent" after the given time.
	CountSentSince(ctx context.Context, userID string, since time.Time) (int, error)
	// CountSentTypeSince is CountSentSince restricted to one notification type.
	CountSentTypeSince(ctx context.Context, userID, notificationType string, since time.Time) (int, error)
	// AppendLog appends one audit entry. Entries are never mutated or deleted.
	AppendLog(ctx context.Context, entry *models.NotificationLogEntry) error
	ActiveDevices(ctx context.Context, userID string) ([]models.DeviceToken, error)
	DeactivateDevice(ctx context.Context, deviceID string) error
}

// Payload is the push content handed to the delivery transport.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Transport is the push-delivery collaborator. ErrStaleToken marks a device
// registration that should be deactivated.
type Transport interface {
	SendToDevice(ctx context.Context, device models.DeviceToken, payload Payload) error
}

// Decision is the outcome of the admission checks.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

type DeviceResult struct {
	DeviceID  string `json:"device_id"`
	Platform  string `json:"platform"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

type SendResult struct {
	Success bool           `json:"success"`
	Reason  string         `json:"reason,omitempty"`
	Devices []DeviceResult `json:"devices,omitempty"`
}

// Gate is the stateful admission-control layer in front of push delivery.
// The admission checks and the subsequent log write are serialized per user
// so concurrent sends cannot both read "under cap" before either logs;
// operations for different users proceed in parallel.
type Gate struct {
	store     Store
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
	userLocks sync.Map // userID -> *sync.Mutex
}

func NewGate(store Store, transport Transport, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		store:     store,
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
}

func (g *Gate) lockFor(userID string) *sync.Mutex {
	mu, _ := g.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// CanSend runs the admission checks without sending.
func (g *Gate) CanSend(ctx context.Context, userID, notificationType string) (Decision, error) {
	mu := g.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	return g.admit(ctx, userID, notificationType)
}

// admit applies the checks in order, short-circuiting on the first failure:
// preference flag, quiet hours, daily cap, per-type cooldown. Callers must
// hold the user's lock.
func (g *Gate) admit(ctx context.Context, userID, notificationType string) (Decision, error) {
	prefs, err := g.store.Preferences(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load notification preferences: %v", err)
	}

	if !prefs.TypeEnabled(notificationType) {
		return Decision{Reason: ReasonTypeDisabled}, nil
	}

	now := g.now()
	if prefs.QuietHoursEnabled {
		localNow := now.In(userLocation(prefs.Timezone))
		inQuiet, err := inQuietHours(localNow, prefs.QuietHoursStart, prefs.QuietHoursEnd)
		if err != nil {
			g.logger.Warn("malformed quiet hours, skipping check",
				"user_id", userID, "start", prefs.QuietHoursStart, "end", prefs.QuietHoursEnd, "error", err)
		} else if inQuiet {
			return Decision{Reason: ReasonQuietHours}, nil
		}
	}

	dailyLimit := prefs.DailyLimit
	if dailyLimit < 0 {
		dailyLimit = 0
	}
	sentToday, err := g.store.CountSentSince(ctx, userID, now.Add(-dailyWindow))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count sent notifications: %v", err)
	}
	if sentToday >= dailyLimit {
		return Decision{Reason: ReasonDailyLimitReached}, nil
	}

	sentOfType, err := g.store.CountSentTypeSince(ctx, userID, notificationType, now.Add(-typeCooldown))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count sent notifications by type: %v", err)
	}
	if sentOfType >= 1 {
		return Decision{Reason: ReasonTypeCooldown}, nil
	}

	return Decision{Allowed: true}, nil
}

// Send runs admission, fans the payload out to the user's active devices,
// and appends the audit entry before returning. A delivery failure on one
// device never fails the whole send: stale registrations are deactivated and
// the remaining devices are still attempted.
func (g *Gate) Send(ctx context.Context, userID, notificationType, title, body string, data map[string]string) (*SendResult, error) {
	mu := g.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	decision, err := g.admit(ctx, userID, notificationType)
	if err != nil {
		return nil, err
	}

	if !decision.Allowed {
		if err := g.appendLog(ctx, userID, notificationType, title, body, models.NotificationStatusBlocked, decision.Reason); err != nil {
			return nil, err
		}
		g.logger.Info("notification blocked",
			"user_id", userID, "type", notificationType, "reason", decision.Reason)
		return &SendResult{Reason: decision.Reason}, nil
	}

	devices, err := g.store.ActiveDevices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active devices: %v", err)
	}
	if len(devices) == 0 {
		if err := g.appendLog(ctx, userID, notificationType, title, body, models.NotificationStatusFailed, ReasonNoActiveDevices); err != nil {
			return nil, err
		}
		return &SendResult{Reason: ReasonNoActiveDevices}, nil
	}

	payload := Payload{Title: title, Body: body, Data: data}
	results := make([]DeviceResult, 0, len(devices))
	delivered := 0
	for _, device := range devices {
		result := DeviceResult{DeviceID: device.ID, Platform: device.Platform}
		err := g.transport.SendToDevice(ctx, device, payload)
		switch {
		case err == nil:
			result.Delivered = true
			delivered++
		case isStaleToken(err):
			// Registration is dead; deactivate it so we stop retrying.
			result.Error = err.Error()
			if deactivateErr := g.store.DeactivateDevice(ctx, device.ID); deactivateErr != nil {
				g.logger.Error("failed to deactivate stale device",
					"user_id", userID, "device_id", device.ID, "error", deactivateErr)
			} else {
				g.logger.Info("deactivated stale device",
					"user_id", userID, "device_id", device.ID)
			}
		default:
			result.Error = err.Error()
			g.logger.Error("device delivery failed",
				"user_id", userID, "device_id", device.ID, "error", err)
		}
		results = append(results, result)
	}

	status := models.NotificationStatusSent
	reason := ""
	if delivered == 0 {
		status = models.NotificationStatusFailed
		reason = ReasonDeliveryFailed
	}
	if err := g.appendLog(ctx, userID, notificationType, title, body, status, reason); err != nil {
		return nil, err
	}

	g.logger.Info("notification processed",
		"user_id", userID, "type", notificationType, "status", status,
		"devices", len(devices), "delivered", delivered)

	return &SendResult{
		Success: delivered > 0,
		Reason:  reason,
		Devices: results,
	}, nil
}

func (g *Gate) appendLog(ctx context.Context, userID, notificationType, title, body, status, reason string) error {
	entry := &models.NotificationLogEntry{
		ID:               uuid.New().String(),
		UserID:           userID,
		NotificationType: notificationType,
		Title:            title,
		Body:             body,
		Status:           status,
		Reason:           reason,
		SentAt:           g.now(),
	}
	if err := g.store.AppendLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to append notification log: %v", err)
	}
	return nil
}

func userLocation(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// inQuietHours reports whether the local time falls in the [start, end)
// quiet window. A start after the end means the window crosses midnight,
// e.g. 21:00-08:00 covers [21:00, 24:00) and [00:00, 08:00).
func inQuietHours(localNow time.Time, start, end string) (bool, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return false, err
	}
	endMin, err := parseClock(end)
	if err != nil {
		return false, err
	}

	nowMin := localNow.Hour()*60 + localNow.Minute()
	if startMin > endMin {
		return nowMin >= startMin || nowMin < endMin, nil
	}
	return nowMin >= startMin && nowMin < endMin, nil
}

// parseClock parses a "HH:MM" clock string into minutes since midnight.
func parseClock(clock string) (int, error) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock value %q", clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in clock value %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in clock value %q", clock)
	}
	return hour*60 + minute, nil
}
