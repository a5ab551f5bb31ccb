package risk

// SupportResource points a user at a concrete source of help for a
// sensitive topic.
type SupportResource struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Phone            string `json:"phone,omitempty"`
	URL              string `json:"url"`
	TextInstructions string `json:"text_instructions,omitempty"`
}

// TopicMatch records that a sensitive topic was detected in check-in text.
type TopicMatch struct {
	TopicID   Topic           `json:"topic_id"`
	TopicName string          `json:"topic_name"`
	Resource  SupportResource `json:"resource"`
}

// Analysis is the final risk verdict for one check-in. It is immutable once
// returned; the check-in record owns it.
type Analysis struct {
	Sentiment                  Sentiment    `json:"sentiment"`
	SentimentScore             float64      `json:"sentiment_score"`
	Emotions                   []string     `json:"emotions"`
	Keywords                   []string     `json:"keywords"`
	Themes                     []string     `json:"themes"`
	Suggestions                []string     `json:"suggestions"`
	RiskLevel                  Level        `json:"risk_level"`
	RiskIndicators             []string     `json:"risk_indicators"`
	RequiresImmediateAttention bool         `json:"requires_immediate_attention"`
	ShowCrisisResources        bool         `json:"show_crisis_resources"`
	DetectedTopics             []TopicMatch `json:"detected_topics"`
	SupportiveMessage          string       `json:"supportive_message"`
	IsFallback                 bool         `json:"is_fallback"`
}
