package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openaigo "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Provider error taxonomy. Auth and rate-limit failures are surfaced to the
// caller distinctly; anything else is recoverable via fallback analysis.
var (
	ErrAuth        = errors.New("analysis provider rejected credentials")
	ErrRateLimited = errors.New("analysis provider rate limited")
	ErrUnavailable = errors.New("analysis provider unavailable")
)

// AnalysisRequest carries one check-in's content to the provider.
type AnalysisRequest struct {
	Text             string
	MoodRating       string
	StressLevel      int
	SelectedEmotions []string
}

// RawAnalysis is the provider's uncoerced output. Callers must sanitize it
// before use; none of these fields are trusted.
type RawAnalysis struct {
	Sentiment         string   `json:"sentiment"`
	SentimentScore    float64  `json:"sentiment_score"`
	Emotions          []string `json:"emotions"`
	Keywords          []string `json:"keywords"`
	Themes            []string `json:"themes"`
	Suggestions       []string `json:"suggestions"`
	RiskLevel         string   `json:"risk_level"`
	RiskIndicators    []string `json:"risk_indicators"`
	SupportiveMessage string   `json:"supportive_message"`
}

// Provider is the external language-model analysis collaborator.
type Provider interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*RawAnalysis, error)
}

const (
	defaultModel   = "gpt-4o-mini"
	requestTimeout = 20 * time.Second
	maxRetries     = 2
)

const analysisSystemPrompt = `You are an emotional wellness analyst reviewing a user's mood check-in.
Respond with a single JSON object and nothing else, using exactly these keys:
{"sentiment": "positive|negative|neutral|mixed",
 "sentiment_score": -1.0 to 1.0,
 "emotions": [up to 10 strings],
 "keywords": [up to 10 strings],
 "themes": [strings],
 "suggestions": [strings],
 "risk_level": "low|moderate|high|critical",
 "risk_indicators": [strings],
 "supportive_message": "one or two warm, validating sentences"}
Assess emotional risk carefully. Escalate risk_level for any sign of self-harm,
hopelessness, or crisis.`

// OpenAIProvider calls the OpenAI chat completions API for sentiment and
// risk analysis.
type OpenAIProvider struct {
	client openaigo.Client
	model  string
}

// NewOpenAIProviderFromEnv builds a provider from OPENAI_API_KEY and
// OPENAI_MODEL. It returns nil when no credential is configured; callers
// treat a nil provider as "fallback analysis only".
func NewOpenAIProviderFromEnv() *OpenAIProvider {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil
	}

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = defaultModel
	}

	client := openaigo.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(maxRetries),
		option.WithRequestTimeout(requestTimeout),
	)

	return &OpenAIProvider{client: client, model: model}
}

// Model returns the configured model name, used for cost estimation.
func (p *OpenAIProvider) Model() string {
	return p.model
}

func (p *OpenAIProvider) Analyze(ctx context.Context, req AnalysisRequest) (*RawAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	completion, err := p.client.Chat.Completions.New(ctx, openaigo.ChatCompletionNewParams{
		Model: openaigo.ChatModel(p.model),
		Messages: []openaigo.ChatCompletionMessageParamUnion{
			openaigo.SystemMessage(analysisSystemPrompt),
			openaigo.UserMessage(buildUserPrompt(req)),
		},
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	raw, err := parseAnalysisJSON(completion.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return raw, nil
}

func buildUserPrompt(req AnalysisRequest) string {
	var b strings.Builder
	if req.MoodRating != "" {
		fmt.Fprintf(&b, "Mood rating: %s\n", req.MoodRating)
	}
	if req.StressLevel > 0 {
		fmt.Fprintf(&b, "Stress level: %d/10\n", req.StressLevel)
	}
	if len(req.SelectedEmotions) > 0 {
		fmt.Fprintf(&b, "Selected emotions: %s\n", strings.Join(req.SelectedEmotions, ", "))
	}
	if req.Text != "" {
		fmt.Fprintf(&b, "Check-in text: %s\n", req.Text)
	}
	return b.String()
}

// parseAnalysisJSON tolerates models that wrap the object in a code fence.
func parseAnalysisJSON(content string) (*RawAnalysis, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	var raw RawAnalysis
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %v", err)
	}
	return &raw, nil
}

func classifyProviderError(err error) error {
	var apiErr *openaigo.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
