package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/soulbloom/backend/internal/auth"
	"github.com/soulbloom/backend/internal/db"
	"github.com/soulbloom/backend/internal/models"
	"github.com/soulbloom/backend/internal/notify"
)

type UpdatePreferencesRequest struct {
	Types             map[string]bool `json:"types"`
	QuietHoursEnabled bool            `json:"quiet_hours_enabled"`
	QuietHoursStart   string          `json:"quiet_hours_start"`
	QuietHoursEnd     string          `json:"quiet_hours_end"`
	DailyLimit        *int            `json:"daily_limit"`
	Timezone          string          `json:"timezone"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 401,
			Body:       "Unauthorized",
		}, nil
	}

	store := notify.NewPostgresStore(db.DB)

	switch request.HTTPMethod {
	case "GET":
		return getPreferences(ctx, store, claims.UserID)
	case "PUT", "POST":
		return updatePreferences(ctx, store, claims.UserID, request.Body)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 405,
		Body:       "Method not allowed",
	}, nil
}

func getPreferences(ctx context.Context, store *notify.PostgresStore, userID string) (events.APIGatewayProxyResponse, error) {
	prefs, err := store.Preferences(ctx, userID)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       fmt.Sprintf("Error fetching preferences: %v", err),
		}, nil
	}

	responseBody, err := json.Marshal(prefs)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error creating response",
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(responseBody),
	}, nil
}

func updatePreferences(ctx context.Context, store *notify.PostgresStore, userID, body string) (events.APIGatewayProxyResponse, error) {
	var req UpdatePreferencesRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       fmt.Sprintf("Invalid request: %v", err),
		}, nil
	}

	if msg := validatePreferences(req); msg != "" {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       msg,
		}, nil
	}

	dailyLimit := models.DefaultDailyLimit
	if req.DailyLimit != nil {
		dailyLimit = *req.DailyLimit
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	types := req.Types
	if types == nil {
		types = map[string]bool{}
	}

	prefs := &models.NotificationPreferences{
		UserID:            userID,
		Types:             types,
		QuietHoursEnabled: req.QuietHoursEnabled,
		QuietHoursStart:   req.QuietHoursStart,
		QuietHoursEnd:     req.QuietHoursEnd,
		DailyLimit:        dailyLimit,
		Timezone:          timezone,
	}

	if err := store.SavePreferences(ctx, prefs); err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       fmt.Sprintf("Error saving preferences: %v", err),
		}, nil
	}

	responseBody, err := json.Marshal(prefs)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error creating response",
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(responseBody),
	}, nil
}

func validatePreferences(req UpdatePreferencesRequest) string {
	if req.DailyLimit != nil && *req.DailyLimit < 0 {
		return "Daily limit must be zero or greater"
	}
	if req.QuietHoursEnabled {
		if _, err := time.Parse("15:04", req.QuietHoursStart); err != nil {
			return "Quiet hours start must be in HH:MM format"
		}
		if _, err := time.Parse("15:04", req.QuietHoursEnd); err != nil {
			return "Quiet hours end must be in HH:MM format"
		}
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			return "Timezone must be a valid IANA timezone name"
		}
	}
	return ""
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
