package llm

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CostControlService caps per-user daily spend on the analysis provider.
// An over-cap user is not refused; their check-ins take the rule-based
// fallback path instead.
type CostControlService struct {
	client    *dynamodb.Client
	tableName string
}

type UserSpendRecord struct {
	UserID      string  `dynamodbav:"user_id"`
	Date        string  `dynamodbav:"date"`
	LLMRequests int     `dynamodbav:"llm_requests"`
	LLMCost     float64 `dynamodbav:"llm_cost"`
	DailyLimit  float64 `dynamodbav:"daily_limit"`
	CreatedAt   string  `dynamodbav:"created_at"`
	UpdatedAt   string  `dynamodbav:"updated_at"`
	TTL         int64   `dynamodbav:"ttl"`
}

type CostControlResult struct {
	Allowed     bool    `json:"allowed"`
	Remaining   float64 `json:"remaining"`
	CurrentCost float64 `json:"current_cost"`
	DailyLimit  float64 `json:"daily_limit"`
	Reason      string  `json:"reason,omitempty"`
}

func NewCostControlService() (*CostControlService, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}

	tableName := "soulbloom-user-spend"
	if envTable := os.Getenv("USER_SPEND_TABLE_NAME"); envTable != "" {
		tableName = envTable
	}

	client := dynamodb.NewFromConfig(cfg)
	return &CostControlService{
		client:    client,
		tableName: tableName,
	}, nil
}

// CheckUserSpendLimit checks if user can make an LLM request within their daily limit
func (s *CostControlService) CheckUserSpendLimit(ctx context.Context, userID string, estimatedCost float64) (*CostControlResult, error) {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = s.newSpendRecord(userID, today)
	}

	result := &CostControlResult{
		CurrentCost: record.LLMCost,
		DailyLimit:  record.DailyLimit,
		Remaining:   record.DailyLimit - record.LLMCost,
	}

	if record.LLMCost+estimatedCost > record.DailyLimit {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Daily limit exceeded. Current: $%.4f, Request: $%.4f, Limit: $%.4f",
			record.LLMCost, estimatedCost, record.DailyLimit)
		return result, nil
	}

	result.Allowed = true
	return result, nil
}

// RecordLLMRequest records an LLM request and its cost
func (s *CostControlService) RecordLLMRequest(ctx context.Context, userID string, cost float64) error {
	today := time.Now().Format("2006-01-02")

	record, err := s.getUserSpendRecord(ctx, userID, today)
	if err != nil {
		return fmt.Errorf("failed to get user spend record: %v", err)
	}

	if record == nil {
		record = s.newSpendRecord(userID, today)
	}

	record.LLMRequests++
	record.LLMCost += cost
	record.UpdatedAt = time.Now().Format(time.RFC3339)
	record.TTL = time.Now().Add(7 * 24 * time.Hour).Unix() // Keep records for 7 days

	if err := s.saveUserSpendRecord(ctx, record); err != nil {
		return fmt.Errorf("failed to save user spend record: %v", err)
	}

	return nil
}

// GetUserSpendSummary returns the user's current spend summary
func (s *CostControlService) GetUserSpendSummary(ctx context.Context, userID string) (*UserSpendRecord, error) {
	today := time.Now().Format("2006-01-02")
	return s.getUserSpendRecord(ctx, userID, today)
}

func (s *CostControlService) newSpendRecord(userID, date string) *UserSpendRecord {
	return &UserSpendRecord{
		UserID:     userID,
		Date:       date,
		DailyLimit: defaultDailySpendLimit,
		CreatedAt:  time.Now().Format(time.RFC3339),
		UpdatedAt:  time.Now().Format(time.RFC3339),
	}
}

func (s *CostControlService) getUserSpendRecord(ctx context.Context, userID, date string) (*UserSpendRecord, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"date":    &types.AttributeValueMemberS{Value: date},
		},
	}

	result, err := s.client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %v", err)
	}

	if result.Item == nil {
		return nil, nil // No record found
	}

	var record UserSpendRecord
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %v", err)
	}

	return &record, nil
}

func (s *CostControlService) saveUserSpendRecord(ctx context.Context, record *UserSpendRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %v", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item: %v", err)
	}

	return nil
}

// defaultDailySpendLimit is the per-user daily provider budget in USD.
const defaultDailySpendLimit = 1.0

// EstimateCost estimates the cost of an analysis request based on
// input/output tokens.
func EstimateCost(inputTokens, outputTokens int, model string) float64 {
	// Cost per 1K tokens for the OpenAI models we run
	costs := map[string]struct {
		input  float64
		output float64
	}{
		"gpt-4o-mini": {
			input:  0.00015, // $0.15 per 1M input tokens
			output: 0.0006,  // $0.60 per 1M output tokens
		},
		"gpt-4o": {
			input:  0.0025, // $2.50 per 1M input tokens
			output: 0.01,   // $10.00 per 1M output tokens
		},
		"gpt-4.1-mini": {
			input:  0.0004, // $0.40 per 1M input tokens
			output: 0.0016, // $1.60 per 1M output tokens
		},
	}

	modelCosts, exists := costs[model]
	if !exists {
		modelCosts = costs[defaultModel]
	}

	inputCost := (float64(inputTokens) / 1000.0) * modelCosts.input
	outputCost := (float64(outputTokens) / 1000.0) * modelCosts.output

	return inputCost + outputCost
}

// EstimateTokens approximates the token count of a prompt string.
func EstimateTokens(text string) int {
	// Rough heuristic: one token per four characters of English text.
	return len(text)/4 + 1
}
