package llm

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestNewOpenAIProviderFromEnvWithoutKey(t *testing.T) {
	os.Unsetenv("OPENAI_API_KEY")
	if p := NewOpenAIProviderFromEnv(); p != nil {
		t.Error("expected nil provider without OPENAI_API_KEY")
	}
}

func TestParseAnalysisJSON(t *testing.T) {
	body := `{"sentiment": "negative", "sentiment_score": -0.6, "risk_level": "moderate", "emotions": ["sad"]}`

	tests := []struct {
		name    string
		content string
	}{
		{"bare object", body},
		{"fenced", "```json\n" + body + "\n```"},
		{"fenced no language", "```\n" + body + "\n```"},
		{"leading whitespace", "\n\n  " + body},
	}
	for _, tt := range tests {
		raw, err := parseAnalysisJSON(tt.content)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if raw.Sentiment != "negative" || raw.SentimentScore != -0.6 || raw.RiskLevel != "moderate" {
			t.Errorf("%s: parsed %+v", tt.name, raw)
		}
	}

	if _, err := parseAnalysisJSON("the user seems sad"); err == nil {
		t.Error("expected error for non-JSON content")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(AnalysisRequest{
		Text:             "long day at work",
		MoodRating:       "bad",
		StressLevel:      7,
		SelectedEmotions: []string{"tired", "frustrated"},
	})
	for _, want := range []string{"bad", "7/10", "tired, frustrated", "long day at work"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}

	if prompt := buildUserPrompt(AnalysisRequest{Text: "hi"}); strings.Contains(prompt, "Stress level") {
		t.Error("zero stress level should be omitted")
	}
}

func TestClassifyProviderError(t *testing.T) {
	// Non-API errors always map to the unavailable sentinel so the caller
	// falls back instead of surfacing them.
	err := classifyProviderError(errors.New("dial tcp: connection refused"))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEstimateCost(t *testing.T) {
	cost := EstimateCost(1000, 1000, "gpt-4o-mini")
	if want := 0.00015 + 0.0006; cost != want {
		t.Errorf("cost = %v, want %v", cost, want)
	}

	// Unknown models fall back to the default model pricing.
	if EstimateCost(1000, 0, "gpt-99") != EstimateCost(1000, 0, defaultModel) {
		t.Error("unknown model should price as the default model")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 1 {
		t.Errorf("EstimateTokens(empty) = %d, want 1", got)
	}
	if got := EstimateTokens(strings.Repeat("a", 400)); got != 101 {
		t.Errorf("EstimateTokens(400 chars) = %d, want 101", got)
	}
}
