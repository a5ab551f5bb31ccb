package patterns

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	daily     []DailyMood
	dailyErr  error
	streak    int
	streakErr error
	last      *CheckInSummary
	lastErr   error
	timezone  string
}

func (f *fakeStore) DailyAverages(ctx context.Context, userID string, since time.Time, timezone string) ([]DailyMood, error) {
	return f.daily, f.dailyErr
}

func (f *fakeStore) CurrentStreak(ctx context.Context, userID string, timezone string) (int, error) {
	return f.streak, f.streakErr
}

func (f *fakeStore) LastCheckIn(ctx context.Context, userID string) (*CheckInSummary, error) {
	return f.last, f.lastErr
}

func (f *fakeStore) UserTimezone(ctx context.Context, userID string) (string, error) {
	if f.timezone == "" {
		return "UTC", nil
	}
	return f.timezone, nil
}

func testDetector(store Store, now time.Time) *Detector {
	d := NewDetector(store, nil)
	d.now = func() time.Time { return now }
	return d
}

// noon on a fixed reference day, UTC
var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func findPattern(patterns []Pattern, pt PatternType) *Pattern {
	for i := range patterns {
		if patterns[i].Type == pt {
			return &patterns[i]
		}
	}
	return nil
}

func TestNegativeStreakThreeDays(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-3), AvgMood: 4.5, AvgStress: 3}, // non-negative day bounds the streak
			{Date: day(-2), AvgMood: 1.5, AvgStress: 4},
			{Date: day(-1), AvgMood: 2.0, AvgStress: 4},
			{Date: day(0), AvgMood: 1.0, AvgStress: 4},
		},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")

	p := findPattern(patterns, PatternNegativeStreak)
	if p == nil {
		t.Fatalf("expected negative_streak, got %v", patterns)
	}
	if p.NegativeStreak.Days != 3 {
		t.Errorf("days = %d, want 3", p.NegativeStreak.Days)
	}
	wantAvg := (1.5 + 2.0 + 1.0) / 3
	if diff := p.NegativeStreak.AvgMood - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("avg_mood = %v, want %v", p.NegativeStreak.AvgMood, wantAvg)
	}
	if !p.NegativeStreak.Start.Equal(day(-2)) || !p.NegativeStreak.End.Equal(day(0)) {
		t.Errorf("range = %v..%v, want %v..%v",
			p.NegativeStreak.Start, p.NegativeStreak.End, day(-2), day(0))
	}
}

func TestNegativeStreakBrokenByGap(t *testing.T) {
	// A day without data breaks the streak even when older days qualify.
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-4), AvgMood: 1.0},
			{Date: day(-3), AvgMood: 1.5},
			{Date: day(-1), AvgMood: 2.0},
			{Date: day(0), AvgMood: 1.0},
		},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
	if p := findPattern(patterns, PatternNegativeStreak); p != nil {
		t.Errorf("gap should break the streak, got %+v", p.NegativeStreak)
	}
}

func TestNegativeStreakStartsYesterdayWithoutTodayData(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-3), AvgMood: 1.0},
			{Date: day(-2), AvgMood: 1.5},
			{Date: day(-1), AvgMood: 2.0},
		},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
	p := findPattern(patterns, PatternNegativeStreak)
	if p == nil {
		t.Fatal("streak ending yesterday should still count")
	}
	if p.NegativeStreak.Days != 3 {
		t.Errorf("days = %d, want 3", p.NegativeStreak.Days)
	}
}

func TestNegativeStreakTooShort(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-1), AvgMood: 1.0},
			{Date: day(0), AvgMood: 1.5},
		},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternNegativeStreak) != nil {
		t.Error("two qualifying days must not fire")
	}
}

func TestHighStressStreak(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-2), AvgMood: 3, AvgStress: 8},
			{Date: day(-1), AvgMood: 3, AvgStress: 7},
			{Date: day(0), AvgMood: 3, AvgStress: 9},
		},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")

	p := findPattern(patterns, PatternHighStress)
	if p == nil {
		t.Fatalf("expected high_stress, got %v", patterns)
	}
	if p.HighStress.Days != 3 {
		t.Errorf("days = %d, want 3", p.HighStress.Days)
	}
	if p.HighStress.AvgStress != 8 {
		t.Errorf("avg_stress = %v, want 8", p.HighStress.AvgStress)
	}
	// mood is fine, so no negative streak alongside
	if findPattern(patterns, PatternNegativeStreak) != nil {
		t.Error("unexpected negative_streak")
	}
}

func TestStreakAtRiskEveningOnly(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(-1), AvgMood: 4},
		},
		streak: 6,
	}

	// Before the reminder hour nothing fires.
	morning := time.Date(2026, 8, 20, 17, 59, 0, 0, time.UTC)
	patterns := testDetector(store, morning).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternStreakAtRisk) != nil {
		t.Error("must not fire before the reminder hour")
	}

	evening := time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)
	patterns = testDetector(store, evening).RunChecks(context.Background(), "u1")
	p := findPattern(patterns, PatternStreakAtRisk)
	if p == nil {
		t.Fatal("expected streak_at_risk at 20:00")
	}
	if p.StreakAtRisk.CurrentStreak != 6 {
		t.Errorf("current_streak = %d, want 6", p.StreakAtRisk.CurrentStreak)
	}
	if p.StreakAtRisk.HoursRemaining != 4 {
		t.Errorf("hours_remaining = %d, want 4", p.StreakAtRisk.HoursRemaining)
	}
}

func TestStreakAtRiskSuppressedAfterCheckIn(t *testing.T) {
	store := &fakeStore{
		daily: []DailyMood{
			{Date: day(0), AvgMood: 4}, // already checked in today
		},
		streak: 6,
	}
	evening := time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)
	patterns := testDetector(store, evening).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternStreakAtRisk) != nil {
		t.Error("must not fire once the user checked in today")
	}
}

func TestStreakAtRiskNeedsMinimumStreak(t *testing.T) {
	store := &fakeStore{
		daily:  []DailyMood{{Date: day(-1), AvgMood: 4}},
		streak: 2,
	}
	evening := time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)
	patterns := testDetector(store, evening).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternStreakAtRisk) != nil {
		t.Error("a two-day streak is not worth protecting")
	}
}

func TestReEngagementWindow(t *testing.T) {
	tests := []struct {
		daysAgo int
		want    bool
	}{
		{2, false},
		{3, true},
		{10, true},
		{14, true},
		{15, false},
	}
	for _, tt := range tests {
		store := &fakeStore{
			last: &CheckInSummary{At: testNow.AddDate(0, 0, -tt.daysAgo), MoodScore: 2},
		}
		patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
		p := findPattern(patterns, PatternReEngagement)
		if (p != nil) != tt.want {
			t.Errorf("%d days ago: fired = %v, want %v", tt.daysAgo, p != nil, tt.want)
			continue
		}
		if p != nil {
			if p.ReEngagement.DaysSinceLastCheckIn != tt.daysAgo {
				t.Errorf("%d days ago: payload says %d", tt.daysAgo, p.ReEngagement.DaysSinceLastCheckIn)
			}
			if p.ReEngagement.LastMood != 2 {
				t.Errorf("last_mood = %d, want 2", p.ReEngagement.LastMood)
			}
		}
	}
}

func TestReEngagementSkipsNewUsers(t *testing.T) {
	store := &fakeStore{last: nil}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternReEngagement) != nil {
		t.Error("a user with no check-ins gets no re-engagement nudge")
	}
}

func TestRuleFailuresAreIsolated(t *testing.T) {
	// Daily averages fail, but the re-engagement rule still runs.
	store := &fakeStore{
		dailyErr: errors.New("connection refused"),
		last:     &CheckInSummary{At: testNow.AddDate(0, 0, -5), MoodScore: 3},
	}
	patterns := testDetector(store, testNow).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternReEngagement) == nil {
		t.Error("daily-average failure must not abort the remaining rules")
	}
	if findPattern(patterns, PatternNegativeStreak) != nil {
		t.Error("no streak should be reported when history is unavailable")
	}
}

func TestStreakLookupFailureSkipsRule(t *testing.T) {
	store := &fakeStore{
		daily:     []DailyMood{{Date: day(-1), AvgMood: 4}},
		streakErr: errors.New("timeout"),
		last:      &CheckInSummary{At: testNow.AddDate(0, 0, -5), MoodScore: 3},
	}
	evening := time.Date(2026, 8, 20, 20, 0, 0, 0, time.UTC)
	patterns := testDetector(store, evening).RunChecks(context.Background(), "u1")
	if findPattern(patterns, PatternStreakAtRisk) != nil {
		t.Error("streak lookup failure must not produce a pattern")
	}
	if findPattern(patterns, PatternReEngagement) == nil {
		t.Error("other rules must still run")
	}
}
