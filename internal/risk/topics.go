package risk

import (
	"regexp"
	"strings"
)

// Topic identifies a fixed sensitive-topic category.
type Topic string

const (
	TopicSelfHarm         Topic = "self_harm"
	TopicAnxiety          Topic = "anxiety"
	TopicDepression       Topic = "depression"
	TopicSubstanceUse     Topic = "substance_use"
	TopicEatingDisorder   Topic = "eating_disorder"
	TopicGrief            Topic = "grief"
	TopicDomesticViolence Topic = "domestic_violence"
)

type topicCategory struct {
	id   Topic
	name string
	// phrases match as case-insensitive substrings; words match on word
	// boundaries only.
	phrases  []string
	words    []string
	resource SupportResource
}

// topicCategories is the fixed category table. Detection results follow this
// declaration order.
var topicCategories = []topicCategory{
	{
		id:   TopicSelfHarm,
		name: "Self-Harm",
		phrases: []string{
			"hurt myself", "hurting myself", "harm myself", "harming myself",
			"cut myself", "cutting myself", "burn myself", "burning myself",
			"self harm", "self-harm", "self injury", "self-injury",
		},
		resource: SupportResource{
			Name:             "Crisis Text Line",
			Description:      "Free, confidential support by text, available 24/7.",
			URL:              "https://www.crisistextline.org",
			TextInstructions: "Text HOME to 741741",
		},
	},
	{
		id:   TopicAnxiety,
		name: "Anxiety",
		phrases: []string{
			"panic attack", "can't stop worrying", "cannot stop worrying",
			"heart racing", "can't breathe",
		},
		words: []string{"anxiety", "anxious", "panicking"},
		resource: SupportResource{
			Name:        "Anxiety and Depression Association of America",
			Description: "Resources and strategies for managing anxiety.",
			Phone:       "1-240-485-1001",
			URL:         "https://adaa.org",
		},
	},
	{
		id:   TopicDepression,
		name: "Depression",
		phrases: []string{
			"can't get out of bed", "no energy for anything",
			"nothing matters anymore", "feel empty inside",
		},
		words: []string{"depressed", "depression", "hopeless", "worthless"},
		resource: SupportResource{
			Name:        "NAMI HelpLine",
			Description: "Peer support and information on depression and treatment.",
			Phone:       "1-800-950-6264",
			URL:         "https://www.nami.org/help",
		},
	},
	{
		id:   TopicSubstanceUse,
		name: "Substance Use",
		phrases: []string{
			"too much to drink", "drinking too much", "using again",
			"can't stop drinking", "back on drugs",
		},
		words: []string{"overdose", "relapse", "relapsed", "withdrawal"},
		resource: SupportResource{
			Name:        "SAMHSA National Helpline",
			Description: "Free, confidential treatment referral service, 24/7.",
			Phone:       "1-800-662-4357",
			URL:         "https://www.samhsa.gov/find-help/national-helpline",
		},
	},
	{
		id:   TopicEatingDisorder,
		name: "Eating Disorder",
		phrases: []string{
			"haven't eaten", "starving myself", "throw up after eating",
			"afraid to eat", "hate my body",
		},
		words: []string{"anorexia", "bulimia", "purging", "bingeing"},
		resource: SupportResource{
			Name:             "National Eating Disorders Association",
			Description:      "Support, resources, and treatment options for eating disorders.",
			Phone:            "1-800-931-2237",
			URL:              "https://www.nationaleatingdisorders.org",
			TextInstructions: "Text NEDA to 741741",
		},
	},
	{
		id:   TopicGrief,
		name: "Grief & Loss",
		phrases: []string{
			"passed away", "lost a loved one", "miss them so much",
		},
		words: []string{"grief", "grieving", "bereavement", "funeral"},
		resource: SupportResource{
			Name:        "GriefShare",
			Description: "Grief recovery support groups and resources.",
			URL:         "https://www.griefshare.org",
		},
	},
	{
		id:   TopicDomesticViolence,
		name: "Domestic Violence",
		phrases: []string{
			"hits me", "hit me", "hurts me", "afraid of my partner",
			"afraid to go home", "abusive relationship",
		},
		words: []string{"abuse", "abused", "abusive"},
		resource: SupportResource{
			Name:             "National Domestic Violence Hotline",
			Description:      "Confidential support for anyone affected by abuse, 24/7.",
			Phone:            "1-800-799-7233",
			URL:              "https://www.thehotline.org",
			TextInstructions: "Text START to 88788",
		},
	},
}

// topicWordPatterns holds a compiled whole-word pattern per category that
// declares single words.
var topicWordPatterns = map[Topic]*regexp.Regexp{}

func init() {
	for _, cat := range topicCategories {
		if len(cat.words) == 0 {
			continue
		}
		escaped := make([]string, len(cat.words))
		for i, w := range cat.words {
			escaped[i] = regexp.QuoteMeta(w)
		}
		topicWordPatterns[cat.id] = regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
	}
}

// DetectTopics matches check-in text against the fixed sensitive-topic
// tables. Empty text returns no matches, never an error. A category either
// matches or it does not; there is no partial credit.
func DetectTopics(text string) []TopicMatch {
	if strings.TrimSpace(text) == "" {
		return []TopicMatch{}
	}

	lower := strings.ToLower(text)
	matches := []TopicMatch{}
	for _, cat := range topicCategories {
		if topicMatches(cat, text, lower) {
			matches = append(matches, TopicMatch{
				TopicID:   cat.id,
				TopicName: cat.name,
				Resource:  cat.resource,
			})
		}
	}

	return matches
}

func topicMatches(cat topicCategory, text, lower string) bool {
	for _, phrase := range cat.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if pattern, ok := topicWordPatterns[cat.id]; ok {
		return pattern.MatchString(text)
	}
	return false
}
