package risk

// moodSentiments is the deterministic mood-label mapping used when the
// analysis provider is unavailable or unconfigured.
var moodSentiments = map[string]struct {
	sentiment Sentiment
	score     float64
}{
	"great":    {SentimentPositive, 0.7},
	"good":     {SentimentPositive, 0.4},
	"okay":     {SentimentNeutral, 0.0},
	"bad":      {SentimentNegative, -0.4},
	"terrible": {SentimentNegative, -0.7},
}

const highStressThreshold = 8

// fallbackAnalysis builds a rule-based analysis from the structured check-in
// fields. The caller still runs keyword and topic escalation over it, so
// crisis detection is never skipped on this path.
func fallbackAnalysis(in Input) *Analysis {
	analysis := &Analysis{
		Sentiment:         SentimentNeutral,
		Emotions:          []string{},
		Keywords:          []string{},
		Themes:            []string{},
		Suggestions:       []string{},
		RiskLevel:         LevelLow,
		RiskIndicators:    []string{},
		SupportiveMessage: defaultSupportiveMessage,
		IsFallback:        true,
	}

	if mapped, ok := moodSentiments[in.MoodRating]; ok {
		analysis.Sentiment = mapped.sentiment
		analysis.SentimentScore = mapped.score
	}

	if len(in.SelectedEmotions) > 0 {
		analysis.Emotions = truncateList(in.SelectedEmotions, maxListEntries)
	}

	if in.StressLevel >= highStressThreshold {
		analysis.RiskIndicators = append(analysis.RiskIndicators, "High stress level reported")
		analysis.Suggestions = append(analysis.Suggestions,
			"Try a few minutes of slow breathing to take the edge off")
		if analysis.RiskLevel.Rank() < LevelModerate.Rank() {
			analysis.RiskLevel = LevelModerate
		}
	}

	if analysis.Sentiment == SentimentNegative {
		analysis.Suggestions = append(analysis.Suggestions,
			"Consider writing down what's weighing on you, or reaching out to someone you trust")
	}

	return analysis
}
