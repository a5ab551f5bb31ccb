package risk

import "testing"

func TestMaxLevelIsEscalateOnly(t *testing.T) {
	tests := []struct {
		name   string
		levels []Level
		want   Level
	}{
		{"all low", []Level{LevelLow, LevelLow, LevelLow}, LevelLow},
		{"one moderate", []Level{LevelLow, LevelModerate, LevelLow}, LevelModerate},
		{"high beats moderate", []Level{LevelModerate, LevelHigh}, LevelHigh},
		{"critical beats everything", []Level{LevelCritical, LevelLow, LevelHigh}, LevelCritical},
		{"order independent", []Level{LevelLow, LevelCritical}, LevelCritical},
		{"empty defaults low", nil, LevelLow},
	}

	for _, tt := range tests {
		if got := MaxLevel(tt.levels...); got != tt.want {
			t.Errorf("%s: MaxLevel(%v) = %q, want %q", tt.name, tt.levels, got, tt.want)
		}
	}
}

func TestMaxLevelNeverBelowAnyInput(t *testing.T) {
	all := []Level{LevelLow, LevelModerate, LevelHigh, LevelCritical}
	for _, a := range all {
		for _, b := range all {
			for _, c := range all {
				got := MaxLevel(a, b, c)
				for _, in := range []Level{a, b, c} {
					if got.Rank() < in.Rank() {
						t.Fatalf("MaxLevel(%q, %q, %q) = %q, below input %q", a, b, c, got, in)
					}
				}
			}
		}
	}
}

func TestParseLevelDefaultsToLow(t *testing.T) {
	if got := ParseLevel("severe"); got != LevelLow {
		t.Errorf("ParseLevel(severe) = %q, want low", got)
	}
	if got := ParseLevel(""); got != LevelLow {
		t.Errorf("ParseLevel(empty) = %q, want low", got)
	}
	if got := ParseLevel("critical"); got != LevelCritical {
		t.Errorf("ParseLevel(critical) = %q, want critical", got)
	}
}

func TestParseSentimentDefaultsToNeutral(t *testing.T) {
	if got := ParseSentiment("ecstatic"); got != SentimentNeutral {
		t.Errorf("ParseSentiment(ecstatic) = %q, want neutral", got)
	}
	if got := ParseSentiment("mixed"); got != SentimentMixed {
		t.Errorf("ParseSentiment(mixed) = %q, want mixed", got)
	}
}
