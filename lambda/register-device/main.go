package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/soulbloom/backend/internal/auth"
	"github.com/soulbloom/backend/internal/db"
	"github.com/soulbloom/backend/internal/notify"
)

type RegisterDeviceRequest struct {
	Platform string `json:"platform"` // "ios" or "android"
	Token    string `json:"token"`
}

type RegisterDeviceResponse struct {
	DeviceID    string `json:"device_id"`
	EndpointARN string `json:"endpoint_arn"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 401,
			Body:       "Unauthorized",
		}, nil
	}

	var req RegisterDeviceRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       fmt.Sprintf("Invalid request: %v", err),
		}, nil
	}

	if req.Token == "" || (req.Platform != "ios" && req.Platform != "android") {
		return events.APIGatewayProxyResponse{
			StatusCode: 400,
			Body:       "A device token and a platform of ios or android are required",
		}, nil
	}

	transport, err := notify.NewSNSTransport(ctx)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error initializing push transport",
		}, nil
	}

	endpointARN, err := transport.RegisterEndpoint(ctx, req.Platform, req.Token)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       fmt.Sprintf("Error registering device endpoint: %v", err),
		}, nil
	}

	// Re-registering an existing token reactivates it.
	var deviceID string
	err = db.DB.QueryRowContext(ctx,
		`INSERT INTO device_tokens (user_id, platform, token, endpoint_arn, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (user_id, token) DO UPDATE SET
		   platform = EXCLUDED.platform,
		   endpoint_arn = EXCLUDED.endpoint_arn,
		   active = TRUE
		 RETURNING id`,
		claims.UserID, req.Platform, req.Token, endpointARN,
	).Scan(&deviceID)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       fmt.Sprintf("Error saving device token: %v", err),
		}, nil
	}

	response := RegisterDeviceResponse{
		DeviceID:    deviceID,
		EndpointARN: endpointARN,
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: 500,
			Body:       "Error creating response",
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 201,
		Headers:    map[string]string{"Content-Type": "application/json"},
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
