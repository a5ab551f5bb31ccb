package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/soulbloom/backend/internal/llm"
)

// ErrInvalidInput is returned when a check-in carries neither free text nor
// structured fields.
var ErrInvalidInput = errors.New("check-in has no text or structured fields")

// Crisis resources appended to suggestions whenever the final risk is
// critical.
const (
	CrisisHotlineSuggestion  = "Call or text 988 (Suicide & Crisis Lifeline) for immediate support"
	CrisisTextLineSuggestion = "Text HOME to 741741 to reach the Crisis Text Line"
)

// Input is one check-in to classify. Text is optional; at least one of the
// fields must be present.
type Input struct {
	Text             string
	MoodRating       string // one of terrible/bad/okay/good/great
	StressLevel      int    // 1-10, 0 when absent
	SelectedEmotions []string
}

func (in Input) empty() bool {
	return in.Text == "" && in.MoodRating == "" && in.StressLevel == 0 && len(in.SelectedEmotions) == 0
}

// Classifier merges the probabilistic provider judgment with the
// deterministic keyword scanner and topic detector into a single verdict.
// Classifications are independent and share no mutable state, so a single
// Classifier is safe for concurrent use.
type Classifier struct {
	provider llm.Provider // nil means no credential configured
	logger   *slog.Logger
}

func NewClassifier(provider llm.Provider, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, logger: logger}
}

// Classify produces the final analysis for one check-in.
//
// Provider auth failures and rate limits are surfaced distinctly so the
// caller can decide retry policy. Any other provider failure degrades to the
// rule-based fallback; escalation still runs on that path, so a crisis
// determination is never dropped because of an infrastructure fault.
func (c *Classifier) Classify(ctx context.Context, in Input) (*Analysis, error) {
	if in.empty() {
		return nil, ErrInvalidInput
	}

	scan := ScanKeywords(in.Text)
	topics := DetectTopics(in.Text)

	var analysis *Analysis
	if c.provider == nil {
		analysis = fallbackAnalysis(in)
	} else {
		raw, err := c.provider.Analyze(ctx, llm.AnalysisRequest{
			Text:             in.Text,
			MoodRating:       in.MoodRating,
			StressLevel:      in.StressLevel,
			SelectedEmotions: in.SelectedEmotions,
		})
		switch {
		case err == nil:
			analysis = sanitize(raw)
		case errors.Is(err, llm.ErrAuth), errors.Is(err, llm.ErrRateLimited):
			return nil, fmt.Errorf("analysis provider call failed: %w", err)
		default:
			c.logger.Warn("analysis provider unavailable, using rule-based fallback", "error", err)
			analysis = fallbackAnalysis(in)
		}
	}

	escalate(analysis, scan, topics)
	return analysis, nil
}

// escalate applies the escalate-only merge rule: the final risk level is the
// max of the provider verdict, the keyword scan, and the self-harm topic
// floor. A self-harm topic match forces at least high even when the provider
// and scanner both report low; that conservative bias is intentional.
func escalate(analysis *Analysis, scan KeywordScan, topics []TopicMatch) {
	analysis.DetectedTopics = topics

	levels := []Level{analysis.RiskLevel, scan.Level}

	switch scan.Level {
	case LevelCritical:
		analysis.RiskIndicators = append(analysis.RiskIndicators, "Critical keyword detected")
	case LevelHigh:
		analysis.RiskIndicators = append(analysis.RiskIndicators, "High-risk keyword detected")
	}
	analysis.RiskIndicators = append(analysis.RiskIndicators, scan.Indicators...)

	for _, topic := range topics {
		if topic.TopicID == TopicSelfHarm {
			levels = append(levels, LevelHigh)
			analysis.RiskIndicators = append(analysis.RiskIndicators, "Self-harm topic detected")
			break
		}
	}

	analysis.RiskLevel = MaxLevel(levels...)
	analysis.RequiresImmediateAttention = analysis.RiskLevel == LevelCritical
	analysis.ShowCrisisResources = analysis.RiskLevel == LevelHigh || analysis.RiskLevel == LevelCritical

	if analysis.RiskLevel == LevelCritical {
		analysis.Suggestions = appendMissing(analysis.Suggestions,
			CrisisHotlineSuggestion, CrisisTextLineSuggestion)
	}
}

func appendMissing(list []string, entries ...string) []string {
	for _, entry := range entries {
		found := false
		for _, existing := range list {
			if existing == entry {
				found = true
				break
			}
		}
		if !found {
			list = append(list, entry)
		}
	}
	return list
}
