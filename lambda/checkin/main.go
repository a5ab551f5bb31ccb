package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/lib/pq"

	"github.com/soulbloom/backend/internal/auth"
	"github.com/soulbloom/backend/internal/db"
	"github.com/soulbloom/backend/internal/encryption"
	"github.com/soulbloom/backend/internal/idempotency"
	"github.com/soulbloom/backend/internal/llm"
	"github.com/soulbloom/backend/internal/models"
	"github.com/soulbloom/backend/internal/risk"
)

type CheckInRequest struct {
	MoodRating  string   `json:"mood_rating"`
	StressLevel int      `json:"stress_level"`
	Notes       string   `json:"notes"`
	Emotions    []string `json:"emotions"`
}

type CheckInResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	MoodRating  string         `json:"mood_rating"`
	StressLevel int            `json:"stress_level"`
	CreatedAt   time.Time      `json:"created_at"`
	Encrypted   bool           `json:"encrypted"`
	Analysis    *risk.Analysis `json:"analysis"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func handler(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	claims, err := auth.ValidateToken(request.Headers["Authorization"])
	if err != nil {
		return createErrorResponse(401, "UNAUTHORIZED", "Invalid or missing authentication token", err.Error()), nil
	}
	userID := claims.UserID

	var req CheckInRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return createErrorResponse(400, "INVALID_REQUEST", "Invalid JSON in request body", err.Error()), nil
	}

	if req.MoodRating == "" && req.Notes == "" {
		return createErrorResponse(400, "VALIDATION_ERROR", "Either a mood rating or notes are required", ""), nil
	}
	if req.MoodRating != "" && !models.ValidMoodRating(req.MoodRating) {
		return createErrorResponse(400, "VALIDATION_ERROR", "Mood rating must be one of terrible, bad, okay, good, great", ""), nil
	}
	if req.StressLevel < 0 || req.StressLevel > 10 {
		return createErrorResponse(400, "VALIDATION_ERROR", "Stress level must be between 0 and 10", ""), nil
	}

	idempotencyService, err := idempotency.NewIdempotencyService()
	if err != nil {
		return createErrorResponse(500, "SERVICE_ERROR", "Failed to initialize idempotency service", err.Error()), nil
	}

	kmsService, err := encryption.NewKMSClient()
	if err != nil {
		return createErrorResponse(500, "SERVICE_ERROR", "Failed to initialize encryption service", err.Error()), nil
	}

	costControlService, err := llm.NewCostControlService()
	if err != nil {
		return createErrorResponse(500, "SERVICE_ERROR", "Failed to initialize cost control service", err.Error()), nil
	}

	response, err := idempotencyService.ProcessIdempotentRequest(
		ctx,
		userID,
		"POST /check-ins",
		request.Body,
		func() (interface{}, error) {
			return processCheckIn(ctx, userID, req, kmsService, costControlService)
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, risk.ErrInvalidInput):
			return createErrorResponse(400, "VALIDATION_ERROR", "Check-in needs text or structured fields", err.Error()), nil
		case errors.Is(err, llm.ErrAuth):
			return createErrorResponse(502, "PROVIDER_AUTH_ERROR", "Analysis provider rejected our credentials", err.Error()), nil
		case errors.Is(err, llm.ErrRateLimited):
			return createErrorResponse(429, "PROVIDER_RATE_LIMITED", "Analysis provider is throttling requests", err.Error()), nil
		}
		return createErrorResponse(500, "PROCESSING_ERROR", "Failed to process check-in", err.Error()), nil
	}

	responseBody, err := json.Marshal(response)
	if err != nil {
		return createErrorResponse(500, "SERIALIZATION_ERROR", "Failed to serialize response", err.Error()), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 201,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(responseBody),
	}, nil
}

func processCheckIn(
	ctx context.Context,
	userID string,
	req CheckInRequest,
	kmsService *encryption.KMSClient,
	costControlService *llm.CostControlService,
) (*CheckInResponse, error) {
	logger := slog.Default()

	// Over-budget users are not refused; their check-in takes the
	// rule-based fallback path so crisis detection still runs.
	provider := llm.NewOpenAIProviderFromEnv()
	if provider != nil {
		model := provider.Model()
		estimatedCost := llm.EstimateCost(llm.EstimateTokens(req.Notes)+200, 300, model)
		costCheck, err := costControlService.CheckUserSpendLimit(ctx, userID, estimatedCost)
		if err != nil {
			logger.Error("cost control check failed, using fallback analysis", "user_id", userID, "error", err)
			provider = nil
		} else if !costCheck.Allowed {
			logger.Info("daily analysis budget reached, using fallback analysis",
				"user_id", userID, "current_cost", costCheck.CurrentCost, "limit", costCheck.DailyLimit)
			provider = nil
		} else {
			defer func() {
				if err := costControlService.RecordLLMRequest(ctx, userID, estimatedCost); err != nil {
					logger.Warn("failed to record analysis cost", "user_id", userID, "error", err)
				}
			}()
		}
	}

	var providerIface llm.Provider
	if provider != nil {
		providerIface = provider
	}
	classifier := risk.NewClassifier(providerIface, logger)
	analysis, err := classifier.Classify(ctx, risk.Input{
		Text:             req.Notes,
		MoodRating:       req.MoodRating,
		StressLevel:      req.StressLevel,
		SelectedEmotions: req.Emotions,
	})
	if err != nil {
		return nil, err
	}

	encryptedNotes, err := kmsService.EncryptPHI(ctx, req.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt notes: %v", err)
	}

	encryptedEmotions, err := kmsService.EncryptPHIArray(ctx, req.Emotions)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt emotions: %v", err)
	}

	moodScore := models.MoodScores[req.MoodRating]

	var checkInID string
	var createdAt time.Time
	err = db.DB.QueryRowContext(ctx,
		`INSERT INTO check_ins
		   (user_id, mood_rating, mood_score, stress_level, notes, emotions,
		    sentiment, sentiment_score, risk_level, requires_immediate_attention,
		    is_fallback, encrypted)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
		 RETURNING id, created_at`,
		userID, req.MoodRating, moodScore, req.StressLevel, encryptedNotes,
		pq.Array(encryptedEmotions), string(analysis.Sentiment), analysis.SentimentScore,
		string(analysis.RiskLevel), analysis.RequiresImmediateAttention, analysis.IsFallback,
	).Scan(&checkInID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert check-in: %v", err)
	}

	if analysis.RequiresImmediateAttention {
		logger.Warn("check-in flagged for immediate attention",
			"user_id", userID, "check_in_id", checkInID, "risk_level", string(analysis.RiskLevel))
	}

	return &CheckInResponse{
		ID:          checkInID,
		UserID:      userID,
		MoodRating:  req.MoodRating,
		StressLevel: req.StressLevel,
		CreatedAt:   createdAt,
		Encrypted:   true,
		Analysis:    analysis,
	}, nil
}

func createErrorResponse(statusCode int, code, message, details string) events.APIGatewayProxyResponse {
	errorResp := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	body, _ := json.Marshal(errorResp)
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(body),
	}
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
