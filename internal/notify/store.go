package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soulbloom/backend/internal/models"
)

// PostgresStore backs the gate with the relational store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Preferences(ctx context.Context, userID string) (*models.NotificationPreferences, error) {
	var (
		prefs     models.NotificationPreferences
		typesJSON []byte
		start     sql.NullString
		end       sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, types, quiet_hours_enabled, quiet_hours_start,
		        quiet_hours_end, daily_limit, timezone, updated_at
		 FROM notification_preferences WHERE user_id = $1`,
		userID,
	).Scan(&prefs.UserID, &typesJSON, &prefs.QuietHoursEnabled, &start,
		&end, &prefs.DailyLimit, &prefs.Timezone, &prefs.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.DefaultNotificationPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notification preferences: %v", err)
	}

	prefs.QuietHoursStart = start.String
	prefs.QuietHoursEnd = end.String
	prefs.Types = map[string]bool{}
	if len(typesJSON) > 0 {
		if err := json.Unmarshal(typesJSON, &prefs.Types); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification type flags: %v", err)
		}
	}
	if prefs.Timezone == "" {
		prefs.Timezone = "UTC"
	}

	return &prefs, nil
}

func (s *PostgresStore) SavePreferences(ctx context.Context, prefs *models.NotificationPreferences) error {
	typesJSON, err := json.Marshal(prefs.Types)
	if err != nil {
		return fmt.Errorf("failed to marshal notification type flags: %v", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notification_preferences
		   (user_id, types, quiet_hours_enabled, quiet_hours_start, quiet_hours_end, daily_limit, timezone, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id) DO UPDATE SET
		   types = EXCLUDED.types,
		   quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
		   quiet_hours_start = EXCLUDED.quiet_hours_start,
		   quiet_hours_end = EXCLUDED.quiet_hours_end,
		   daily_limit = EXCLUDED.daily_limit,
		   timezone = EXCLUDED.timezone,
		   updated_at = CURRENT_TIMESTAMP`,
		prefs.UserID, typesJSON, prefs.QuietHoursEnabled, prefs.QuietHoursStart,
		prefs.QuietHoursEnd, prefs.DailyLimit, prefs.Timezone,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification preferences: %v", err)
	}
	return nil
}

func (s *PostgresStore) CountSentSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_log
		 WHERE user_id = $1 AND status = $2 AND sent_at > $3`,
		userID, models.NotificationStatusSent, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sent notifications: %v", err)
	}
	return count, nil
}

func (s *PostgresStore) CountSentTypeSince(ctx context.Context, userID, notificationType string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_log
		 WHERE user_id = $1 AND notification_type = $2 AND status = $3 AND sent_at > $4`,
		userID, notificationType, models.NotificationStatusSent, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sent notifications by type: %v", err)
	}
	return count, nil
}

func (s *PostgresStore) AppendLog(ctx context.Context, entry *models.NotificationLogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notification_log (id, user_id, notification_type, title, body, status, reason, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.NotificationType, entry.Title, entry.Body,
		entry.Status, entry.Reason, entry.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification log entry: %v", err)
	}
	return nil
}

func (s *PostgresStore) ActiveDevices(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, platform, token, COALESCE(endpoint_arn, ''), active, created_at
		 FROM device_tokens
		 WHERE user_id = $1 AND active = TRUE`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active devices: %v", err)
	}
	defer rows.Close()

	var devices []models.DeviceToken
	for rows.Next() {
		var device models.DeviceToken
		if err := rows.Scan(&device.ID, &device.UserID, &device.Platform,
			&device.Token, &device.EndpointARN, &device.Active, &device.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %v", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active devices: %v", err)
	}

	return devices, nil
}

func (s *PostgresStore) DeactivateDevice(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE device_tokens SET active = FALSE WHERE id = $1",
		deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate device: %v", err)
	}
	return nil
}
