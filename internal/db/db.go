package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
)

var DB *sql.DB

func InitDB() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	var err error
	DB, err = sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("error opening database: %v", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("error connecting to the database: %v", err)
	}

	// Create tables if they don't exist
	if err := createTables(); err != nil {
		return fmt.Errorf("error creating tables: %v", err)
	}

	return nil
}

func createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS check_ins (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id),
			mood_rating VARCHAR(16) NOT NULL,
			mood_score INT NOT NULL,
			stress_level INT,
			notes TEXT,
			emotions TEXT[],
			sentiment VARCHAR(16),
			sentiment_score FLOAT,
			risk_level VARCHAR(16),
			requires_immediate_attention BOOLEAN DEFAULT FALSE,
			is_fallback BOOLEAN DEFAULT FALSE,
			encrypted BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_check_ins_user_created
			ON check_ins (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id UUID PRIMARY KEY REFERENCES users(id),
			types JSONB DEFAULT '{}',
			quiet_hours_enabled BOOLEAN DEFAULT FALSE,
			quiet_hours_start VARCHAR(5),
			quiet_hours_end VARCHAR(5),
			daily_limit INT DEFAULT 5,
			timezone VARCHAR(64) DEFAULT 'UTC',
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS notification_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id),
			notification_type VARCHAR(64) NOT NULL,
			title TEXT,
			body TEXT,
			status VARCHAR(16) NOT NULL,
			reason VARCHAR(64),
			sent_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notification_log_user_status_sent
			ON notification_log (user_id, status, sent_at)`,
		`CREATE TABLE IF NOT EXISTS device_tokens (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID REFERENCES users(id),
			platform VARCHAR(16) NOT NULL,
			token TEXT NOT NULL,
			endpoint_arn TEXT,
			active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, token)
		)`,
	}

	for _, query := range queries {
		if _, err := DB.Exec(query); err != nil {
			return err
		}
	}

	return nil
}
