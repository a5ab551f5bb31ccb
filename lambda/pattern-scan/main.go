package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/soulbloom/backend/internal/db"
	"github.com/soulbloom/backend/internal/notify"
	"github.com/soulbloom/backend/internal/patterns"
)

// scanDetail is the EventBridge rule payload. Three rules fire daily:
// {"pass": "morning"}, {"pass": "midday"}, {"pass": "evening"}.
type scanDetail struct {
	Pass string `json:"pass"`
}

func handler(ctx context.Context, event events.CloudWatchEvent) error {
	logger := slog.Default()

	var detail scanDetail
	if len(event.Detail) > 0 {
		if err := json.Unmarshal(event.Detail, &detail); err != nil {
			logger.Warn("unparseable scan detail, running all rules", "error", err)
		}
	}

	transport, err := notify.NewSNSTransport(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize push transport: %v", err)
	}

	patternStore := patterns.NewPostgresStore(db.DB)
	notifyStore := notify.NewPostgresStore(db.DB)
	gate := notify.NewGate(notifyStore, transport, logger)
	detector := patterns.NewDetector(patternStore, logger)
	scanner := patterns.NewScanner(detector, patternStore, gate, logger)

	// Per-user failures are isolated inside the scanner; an error here
	// means the whole run could not start. EventBridge owns the schedule,
	// so a failed run never blocks the next one.
	return scanner.Run(ctx, patterns.Pass(detail.Pass))
}

func init() {
	if err := db.InitDB(); err != nil {
		fmt.Printf("Error initializing database: %v\n", err)
		os.Exit(1)
	}
}

func main() {
	lambda.Start(handler)
}
