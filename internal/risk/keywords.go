package risk

import "strings"

// KeywordScan is the deterministic safety-keyword verdict for one text.
// Level is low when nothing matched.
type KeywordScan struct {
	Level      Level
	Indicators []string
}

// criticalPhrases flag explicit self-destructive intent. This list is
// deliberately conservative: a missed critical phrase is the unacceptable
// failure mode, false positives are expected and tolerated. Matching is
// substring based to tolerate conjugations.
var criticalPhrases = []string{
	"kill myself",
	"killing myself",
	"kill me",
	"end my life",
	"ending my life",
	"take my own life",
	"want to die",
	"wanted to die",
	"wish i was dead",
	"wish i were dead",
	"better off dead",
	"suicide",
	"suicidal",
	"end it all",
	"no reason to live",
	"nothing to live for",
	"not worth living",
	"don't want to be alive",
	"dont want to be alive",
	"don't want to live",
	"dont want to live",
}

// highPhrases flag self-harm behavior and acute despair short of explicit
// intent.
var highPhrases = []string{
	"hurt myself",
	"hurting myself",
	"harm myself",
	"harming myself",
	"cut myself",
	"cutting myself",
	"burn myself",
	"burning myself",
	"self harm",
	"self-harm",
	"punish myself",
	"hate myself",
	"can't go on",
	"cant go on",
	"can't do this anymore",
	"cant do this anymore",
	"no way out",
	"give up on everything",
}

// ScanKeywords classifies text against the fixed critical and high phrase
// lists. Critical matches take precedence regardless of high matches.
func ScanKeywords(text string) KeywordScan {
	if text == "" {
		return KeywordScan{Level: LevelLow}
	}

	lower := strings.ToLower(text)

	var indicators []string
	for _, phrase := range criticalPhrases {
		if strings.Contains(lower, phrase) {
			indicators = append(indicators, phrase)
		}
	}
	if len(indicators) > 0 {
		return KeywordScan{Level: LevelCritical, Indicators: indicators}
	}

	for _, phrase := range highPhrases {
		if strings.Contains(lower, phrase) {
			indicators = append(indicators, phrase)
		}
	}
	if len(indicators) > 0 {
		return KeywordScan{Level: LevelHigh, Indicators: indicators}
	}

	return KeywordScan{Level: LevelLow}
}
