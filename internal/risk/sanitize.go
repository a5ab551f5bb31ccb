package risk

import (
	"github.com/soulbloom/backend/internal/llm"
)

const (
	maxListEntries           = 10
	defaultSupportiveMessage = "Thank you for checking in. Whatever you're feeling right now is valid."
)

// sanitize coerces raw provider output into the canonical analysis schema:
// scores clamped to [-1, 1], unrecognized enums defaulted, list fields
// truncated, missing supportive message defaulted.
func sanitize(raw *llm.RawAnalysis) *Analysis {
	analysis := &Analysis{
		Sentiment:         ParseSentiment(raw.Sentiment),
		SentimentScore:    clampScore(raw.SentimentScore),
		Emotions:          truncateList(raw.Emotions, maxListEntries),
		Keywords:          truncateList(raw.Keywords, maxListEntries),
		Themes:            truncateList(raw.Themes, maxListEntries),
		Suggestions:       truncateList(raw.Suggestions, maxListEntries),
		RiskLevel:         ParseLevel(raw.RiskLevel),
		RiskIndicators:    truncateList(raw.RiskIndicators, maxListEntries),
		SupportiveMessage: raw.SupportiveMessage,
	}

	if analysis.SupportiveMessage == "" {
		analysis.SupportiveMessage = defaultSupportiveMessage
	}

	return analysis
}

func clampScore(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// truncateList caps a list at n entries and never returns nil.
func truncateList(list []string, n int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}
