package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/soulbloom/backend/internal/auth"
	"github.com/soulbloom/backend/internal/db"
	"github.com/soulbloom/backend/internal/notify"
)

type NotificationRequest struct {
	Type  string            `json:"type"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

type NotificationResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 401,
			Body:       "Unauthorized",
		}, nil
	}

	var req NotificationRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       fmt.Sprintf("Invalid request: %v", err),
		}, nil
	}

	if req.Type == "" || req.Title == "" {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       "Notification type and title are required",
		}, nil
	}

	transport, err := notify.NewSNSTransport(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error initializing push transport",
		}, nil
	}

	gate := notify.NewGate(notify.NewPostgresStore(db.DB), transport, slog.Default())

	// Users may only trigger notifications to their own devices.
	result, err := gate.Send(ctx, claims.UserID, req.Type, req.Title, req.Body, req.Data)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       fmt.Sprintf("Error sending notification: %v", err),
		}, nil
	}

	response := NotificationResponse{
		Success: result.Success,
		Reason:  result.Reason,
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error creating response",
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 200,
		Body:       string(responseBody),
	}, nil
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
