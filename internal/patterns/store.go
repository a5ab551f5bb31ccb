package patterns

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore reads check-in history from the relational store.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DailyAverages(ctx context.Context, userID string, since time.Time, timezone string) ([]DailyMood, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date_trunc('day', created_at AT TIME ZONE $3) AS day,
		        AVG(mood_score), AVG(COALESCE(stress_level, 0)), COUNT(*)
		 FROM check_ins
		 WHERE user_id = $1 AND created_at >= $2
		 GROUP BY day
		 ORDER BY day`,
		userID, since, timezone,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily averages: %v", err)
	}
	defer rows.Close()

	var daily []DailyMood
	for rows.Next() {
		var day DailyMood
		if err := rows.Scan(&day.Date, &day.AvgMood, &day.AvgStress, &day.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily average: %v", err)
		}
		daily = append(daily, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read daily averages: %v", err)
	}

	return daily, nil
}

func (s *PostgresStore) CurrentStreak(ctx context.Context, userID string, timezone string) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT date_trunc('day', created_at AT TIME ZONE $2) AS day
		 FROM check_ins
		 WHERE user_id = $1
		 ORDER BY day DESC
		 LIMIT 60`,
		userID, timezone,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query check-in days: %v", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return 0, fmt.Errorf("failed to scan check-in day: %v", err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read check-in days: %v", err)
	}

	if len(days) == 0 {
		return 0, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	// A live streak ends today or yesterday; anything older is broken.
	latest := days[0]
	if latest.Before(today.AddDate(0, 0, -1)) {
		return 0, nil
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) != 24*time.Hour {
			break
		}
		streak++
	}
	return streak, nil
}

func (s *PostgresStore) LastCheckIn(ctx context.Context, userID string) (*CheckInSummary, error) {
	var summary CheckInSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, mood_score FROM check_ins
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&summary.At, &summary.MoodScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last check-in: %v", err)
	}
	return &summary, nil
}

func (s *PostgresStore) UserTimezone(ctx context.Context, userID string) (string, error) {
	var timezone string
	err := s.db.QueryRowContext(ctx,
		"SELECT timezone FROM notification_preferences WHERE user_id = $1",
		userID,
	).Scan(&timezone)
	if err == sql.ErrNoRows || (err == nil && timezone == "") {
		return "UTC", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query user timezone: %v", err)
	}
	return timezone, nil
}

// ActiveUserIDs returns users with at least one check-in in the last 30
// days; these are the users the scheduled scans cover.
func (s *PostgresStore) ActiveUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM check_ins
		 WHERE created_at >= NOW() - INTERVAL '30 days'`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %v", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %v", err)
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active users: %v", err)
	}

	return userIDs, nil
}
