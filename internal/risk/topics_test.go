package risk

import "testing"

func TestDetectTopicsEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n"} {
		matches := DetectTopics(text)
		if len(matches) != 0 {
			t.Errorf("DetectTopics(%q) returned %d matches, want 0", text, len(matches))
		}
	}
}

func TestDetectTopicsSelfHarmPhrase(t *testing.T) {
	matches := DetectTopics("Lately I keep thinking about hurting myself")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].TopicID != TopicSelfHarm {
		t.Errorf("topic = %q, want self_harm", matches[0].TopicID)
	}
	if matches[0].Resource.URL == "" {
		t.Error("self_harm match should carry a support resource")
	}
}

func TestDetectTopicsWholeWordBoundary(t *testing.T) {
	// "anxious" should match on a word boundary; a word merely containing
	// a keyword should not.
	if matches := DetectTopics("I've been so anxious about work"); len(matches) != 1 || matches[0].TopicID != TopicAnxiety {
		t.Errorf("expected anxiety match, got %v", matches)
	}
	if matches := DetectTopics("the griefless machine hummed along"); len(matches) != 0 {
		t.Errorf("expected no match for embedded word, got %v", matches)
	}
}

func TestDetectTopicsDeclarationOrder(t *testing.T) {
	matches := DetectTopics("I'm grieving and feeling anxious and I want to hurt myself")
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(matches), matches)
	}
	// Order follows category declaration order, not match position.
	want := []Topic{TopicSelfHarm, TopicAnxiety, TopicGrief}
	for i, topic := range want {
		if matches[i].TopicID != topic {
			t.Errorf("matches[%d] = %q, want %q", i, matches[i].TopicID, topic)
		}
	}
}

func TestDetectTopicsNoPartialCredit(t *testing.T) {
	// Multiple phrases from one category still produce a single match.
	matches := DetectTopics("I keep cutting myself and I hurt myself yesterday")
	if len(matches) != 1 {
		t.Fatalf("expected 1 match for repeated category, got %d", len(matches))
	}
}

func TestDetectTopicsBenignText(t *testing.T) {
	if matches := DetectTopics("I cut some vegetables for dinner"); len(matches) != 0 {
		t.Errorf("benign cooking text matched topics: %v", matches)
	}
}
