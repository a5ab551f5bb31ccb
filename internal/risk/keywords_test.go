package risk

import "testing"

func TestScanKeywordsCritical(t *testing.T) {
	tests := []string{
		"I want to kill myself",
		"some days I just want to die",
		"I've been feeling suicidal again",
		"I can't stop thinking about ending my life",
		"everyone would be better off dead without me", // conjugated context
	}
	for _, text := range tests {
		scan := ScanKeywords(text)
		if scan.Level != LevelCritical {
			t.Errorf("ScanKeywords(%q).Level = %q, want critical", text, scan.Level)
		}
		if len(scan.Indicators) == 0 {
			t.Errorf("ScanKeywords(%q) returned no indicators", text)
		}
	}
}

func TestScanKeywordsHigh(t *testing.T) {
	scan := ScanKeywords("sometimes I think about hurting myself")
	if scan.Level != LevelHigh {
		t.Errorf("level = %q, want high", scan.Level)
	}
}

func TestScanKeywordsCriticalPrecedence(t *testing.T) {
	// Text matching both lists must come back critical.
	scan := ScanKeywords("I keep cutting myself and I want to die")
	if scan.Level != LevelCritical {
		t.Errorf("level = %q, want critical when both lists match", scan.Level)
	}
}

func TestScanKeywordsNone(t *testing.T) {
	for _, text := range []string{"", "had a pretty good day at work", "I cut some vegetables for dinner"} {
		scan := ScanKeywords(text)
		if scan.Level != LevelLow {
			t.Errorf("ScanKeywords(%q).Level = %q, want low", text, scan.Level)
		}
		if len(scan.Indicators) != 0 {
			t.Errorf("ScanKeywords(%q) returned indicators %v", text, scan.Indicators)
		}
	}
}

func TestScanKeywordsCaseInsensitive(t *testing.T) {
	if scan := ScanKeywords("I WANT TO KILL MYSELF"); scan.Level != LevelCritical {
		t.Errorf("uppercase critical phrase not detected, level = %q", scan.Level)
	}
}
