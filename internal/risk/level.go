package risk

// Level is the ordered urgency classification for a check-in:
// low < moderate < high < critical.
type Level string

const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

var levelRank = map[Level]int{
	LevelLow:      0,
	LevelModerate: 1,
	LevelHigh:     2,
	LevelCritical: 3,
}

// Rank returns the position of the level in the total order. Unknown values
// rank as low.
func (l Level) Rank() int {
	return levelRank[l]
}

// ParseLevel maps a raw provider string onto the level order. Unrecognized
// values default to low.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelLow, LevelModerate, LevelHigh, LevelCritical:
		return Level(s)
	}
	return LevelLow
}

// MaxLevel reduces a set of levels to the highest one. A level may only ever
// be raised by a secondary signal, never lowered.
func MaxLevel(levels ...Level) Level {
	max := LevelLow
	for _, l := range levels {
		if l.Rank() > max.Rank() {
			max = l
		}
	}
	return max
}

// Sentiment is the overall emotional tone of a check-in.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
	SentimentMixed    Sentiment = "mixed"
)

// ParseSentiment maps a raw provider string onto a sentiment. Unrecognized
// values default to neutral.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return Sentiment(s)
	}
	return SentimentNeutral
}
