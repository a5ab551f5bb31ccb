package risk

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/soulbloom/backend/internal/llm"
)

type fakeProvider struct {
	raw   *llm.RawAnalysis
	err   error
	calls int
}

func (f *fakeProvider) Analyze(ctx context.Context, req llm.AnalysisRequest) (*llm.RawAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func calmRaw() *llm.RawAnalysis {
	return &llm.RawAnalysis{
		Sentiment:         "positive",
		SentimentScore:    0.4,
		Emotions:          []string{"content"},
		RiskLevel:         "low",
		SupportiveMessage: "Sounds like a steady day.",
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

func TestClassifyInvalidInput(t *testing.T) {
	c := NewClassifier(nil, nil)
	if _, err := c.Classify(context.Background(), Input{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClassifyFallbackWithoutProvider(t *testing.T) {
	c := NewClassifier(nil, nil)

	tests := []struct {
		mood      string
		sentiment Sentiment
		minScore  float64
		maxScore  float64
	}{
		{"great", SentimentPositive, 0.5, 1},
		{"good", SentimentPositive, 0, 0.5},
		{"okay", SentimentNeutral, 0, 0},
		{"terrible", SentimentNegative, -1, -0.5},
	}
	for _, tt := range tests {
		analysis, err := c.Classify(context.Background(), Input{MoodRating: tt.mood})
		if err != nil {
			t.Fatalf("mood %q: unexpected error %v", tt.mood, err)
		}
		if !analysis.IsFallback {
			t.Errorf("mood %q: expected is_fallback", tt.mood)
		}
		if analysis.Sentiment != tt.sentiment {
			t.Errorf("mood %q: sentiment = %q, want %q", tt.mood, analysis.Sentiment, tt.sentiment)
		}
		if analysis.SentimentScore < tt.minScore || analysis.SentimentScore > tt.maxScore {
			t.Errorf("mood %q: score %v outside [%v, %v]", tt.mood, analysis.SentimentScore, tt.minScore, tt.maxScore)
		}
	}
}

func TestClassifyCriticalPhraseOverridesProvider(t *testing.T) {
	// Provider insists everything is fine; the keyword scanner must win.
	provider := &fakeProvider{raw: calmRaw()}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{
		Text:        "I want to kill myself",
		MoodRating:  "terrible",
		StressLevel: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.RiskLevel != LevelCritical {
		t.Errorf("risk level = %q, want critical", analysis.RiskLevel)
	}
	if !analysis.RequiresImmediateAttention {
		t.Error("expected requires_immediate_attention")
	}
	if !analysis.ShowCrisisResources {
		t.Error("expected show_crisis_resources")
	}
	if !containsString(analysis.Suggestions, CrisisHotlineSuggestion) {
		t.Error("expected crisis hotline suggestion")
	}
	if !containsString(analysis.Suggestions, CrisisTextLineSuggestion) {
		t.Error("expected crisis text line suggestion")
	}
	if !containsString(analysis.RiskIndicators, "Critical keyword detected") {
		t.Errorf("expected critical override indicator, got %v", analysis.RiskIndicators)
	}
}

func TestClassifyCriticalPhraseWhenProviderErrors(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("%w: connection reset", llm.ErrUnavailable)}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{
		Text:       "I want to kill myself",
		MoodRating: "terrible",
	})
	if err != nil {
		t.Fatalf("provider failure must not surface: %v", err)
	}
	if !analysis.IsFallback {
		t.Error("expected fallback analysis")
	}
	if analysis.RiskLevel != LevelCritical {
		t.Errorf("risk level = %q, want critical even on fallback path", analysis.RiskLevel)
	}
	if !analysis.RequiresImmediateAttention {
		t.Error("expected requires_immediate_attention on fallback path")
	}
}

func TestClassifySelfHarmTopicForcesHigh(t *testing.T) {
	// Provider and scanner both read low; the self-harm topic floor is a
	// deliberate conservative bias and must hold.
	raw := calmRaw()
	raw.Sentiment = "neutral"
	provider := &fakeProvider{raw: raw}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{
		Text: "my friend told me about self-injury support groups",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.RiskLevel.Rank() < LevelHigh.Rank() {
		t.Errorf("risk level = %q, want at least high on self_harm topic", analysis.RiskLevel)
	}
	if !analysis.ShowCrisisResources {
		t.Error("expected show_crisis_resources for high risk")
	}
	if analysis.RequiresImmediateAttention {
		t.Error("high (not critical) must not require immediate attention")
	}
}

func TestClassifyBenignTextNotCritical(t *testing.T) {
	provider := &fakeProvider{raw: calmRaw()}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{
		Text:        "I cut some vegetables for dinner",
		MoodRating:  "good",
		StressLevel: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.RiskLevel == LevelCritical {
		t.Error("benign text must not classify as critical")
	}
	if analysis.RequiresImmediateAttention {
		t.Error("benign text must not require immediate attention")
	}
}

func TestClassifySanitizesProviderOutput(t *testing.T) {
	longList := make([]string, 15)
	for i := range longList {
		longList[i] = fmt.Sprintf("item-%d", i)
	}
	provider := &fakeProvider{raw: &llm.RawAnalysis{
		Sentiment:      "euphoric",
		SentimentScore: 3.5,
		Emotions:       longList,
		Keywords:       longList,
		RiskLevel:      "catastrophic",
	}}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{Text: "an ordinary day"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Sentiment != SentimentNeutral {
		t.Errorf("sentiment = %q, want neutral default", analysis.Sentiment)
	}
	if analysis.SentimentScore != 1 {
		t.Errorf("score = %v, want clamped to 1", analysis.SentimentScore)
	}
	if analysis.RiskLevel != LevelLow {
		t.Errorf("risk level = %q, want low default", analysis.RiskLevel)
	}
	if len(analysis.Emotions) != 10 || len(analysis.Keywords) != 10 {
		t.Errorf("lists not truncated: %d emotions, %d keywords", len(analysis.Emotions), len(analysis.Keywords))
	}
	if analysis.SupportiveMessage == "" {
		t.Error("expected default supportive message")
	}
}

func TestClassifyClampsNegativeScore(t *testing.T) {
	provider := &fakeProvider{raw: &llm.RawAnalysis{Sentiment: "negative", SentimentScore: -7}}
	c := NewClassifier(provider, nil)

	analysis, err := c.Classify(context.Background(), Input{Text: "rough week"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if analysis.SentimentScore != -1 {
		t.Errorf("score = %v, want clamped to -1", analysis.SentimentScore)
	}
}

func TestClassifySurfacesAuthAndRateLimit(t *testing.T) {
	for _, sentinel := range []error{llm.ErrAuth, llm.ErrRateLimited} {
		provider := &fakeProvider{err: fmt.Errorf("%w: status", sentinel)}
		c := NewClassifier(provider, nil)

		_, err := c.Classify(context.Background(), Input{Text: "hello"})
		if !errors.Is(err, sentinel) {
			t.Errorf("expected %v surfaced, got %v", sentinel, err)
		}
	}
}

func TestClassifyMonotonicAcrossSignals(t *testing.T) {
	// The final level must never drop below any contributing signal.
	providerLevels := []string{"low", "moderate", "high", "critical"}
	texts := map[string]Level{
		"a quiet day":              LevelLow,
		"I keep hurting myself":    LevelHigh,
		"I want to end my life":    LevelCritical,
	}

	for _, pl := range providerLevels {
		for text, signal := range texts {
			raw := calmRaw()
			raw.RiskLevel = pl
			c := NewClassifier(&fakeProvider{raw: raw}, nil)
			analysis, err := c.Classify(context.Background(), Input{Text: text})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			floor := MaxLevel(ParseLevel(pl), signal)
			if analysis.RiskLevel.Rank() < floor.Rank() {
				t.Errorf("provider %q + text %q: level %q below floor %q", pl, text, analysis.RiskLevel, floor)
			}
		}
	}
}
