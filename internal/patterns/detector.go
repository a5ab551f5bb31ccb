package patterns

import (
	"context"
	"log/slog"
	"time"
)

// PatternType tags the union of detectable mood/stress patterns.
type PatternType string

const (
	PatternNegativeStreak PatternType = "negative_streak"
	PatternHighStress     PatternType = "high_stress"
	PatternStreakAtRisk   PatternType = "streak_at_risk"
	PatternReEngagement   PatternType = "re_engagement"
)

type NegativeStreak struct {
	Days    int       `json:"days"`
	AvgMood float64   `json:"avg_mood"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type HighStress struct {
	Days      int     `json:"days"`
	AvgStress float64 `json:"avg_stress"`
}

type StreakAtRisk struct {
	CurrentStreak  int `json:"current_streak"`
	HoursRemaining int `json:"hours_remaining"`
}

type ReEngagement struct {
	DaysSinceLastCheckIn int `json:"days_since_last_checkin"`
	LastMood             int `json:"last_mood"`
}

// Pattern is one detected mood/stress pattern. Exactly one payload field is
// set, matching Type. Patterns are ephemeral: computed per scheduler tick and
// consumed immediately by the notification gate.
type Pattern struct {
	Type           PatternType     `json:"type"`
	NegativeStreak *NegativeStreak `json:"negative_streak,omitempty"`
	HighStress     *HighStress     `json:"high_stress,omitempty"`
	StreakAtRisk   *StreakAtRisk   `json:"streak_at_risk,omitempty"`
	ReEngagement   *ReEngagement   `json:"re_engagement,omitempty"`
}

// DailyMood is one calendar day's averaged check-in data.
type DailyMood struct {
	Date      time.Time `json:"date"` // midnight, user-local
	AvgMood   float64   `json:"avg_mood"`
	AvgStress float64   `json:"avg_stress"`
	Count     int       `json:"count"`
}

// CheckInSummary is the most recent check-in for a user.
type CheckInSummary struct {
	At        time.Time `json:"at"`
	MoodScore int       `json:"mood_score"`
}

// Store reads the recent check-in history the detector scans over.
type Store interface {
	// DailyAverages returns per-day averages since the given time, grouped
	// by calendar day in the given timezone, oldest first.
	DailyAverages(ctx context.Context, userID string, since time.Time, timezone string) ([]DailyMood, error)
	// CurrentStreak returns the user's consecutive-day check-in streak
	// ending today or yesterday.
	CurrentStreak(ctx context.Context, userID string, timezone string) (int, error)
	// LastCheckIn returns the user's most recent check-in, or nil if none.
	LastCheckIn(ctx context.Context, userID string) (*CheckInSummary, error)
	// UserTimezone returns the user's preferred IANA timezone.
	UserTimezone(ctx context.Context, userID string) (string, error)
}

const (
	historyWindowDays  = 7
	minStreakDays      = 3
	negativeMoodMax    = 2.0 // of the 5-point mood scale
	highStressMin      = 7.0 // of the 10-point stress scale
	streakReminderHour = 18  // user-local
	reEngageMinDays    = 3
	reEngageMaxDays    = 14
)

// Detector runs the pattern rules over one user's recent history. Each
// invocation is stateless and read-only; scans for different users may run
// in parallel.
type Detector struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewDetector(store Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{store: store, logger: logger, now: time.Now}
}

// RunChecks evaluates every rule for one user. Rules are independent: a data
// access failure in one rule is logged and skipped without aborting the
// others, so the result is always usable.
func (d *Detector) RunChecks(ctx context.Context, userID string) []Pattern {
	timezone, err := d.store.UserTimezone(ctx, userID)
	if err != nil {
		d.logger.Error("failed to load user timezone, assuming UTC", "user_id", userID, "error", err)
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	now := d.now().In(loc)
	today := midnight(now)

	var patterns []Pattern

	daily, err := d.store.DailyAverages(ctx, userID, today.AddDate(0, 0, -historyWindowDays), timezone)
	if err != nil {
		d.logger.Error("failed to load daily averages", "user_id", userID, "error", err)
	} else {
		byDay := indexByDay(daily)
		if p := detectNegativeStreak(byDay, today); p != nil {
			patterns = append(patterns, *p)
		}
		if p := detectHighStress(byDay, today); p != nil {
			patterns = append(patterns, *p)
		}
		if p := d.detectStreakAtRisk(ctx, userID, timezone, byDay, now); p != nil {
			patterns = append(patterns, *p)
		}
	}

	if p := d.detectReEngagement(ctx, userID, now); p != nil {
		patterns = append(patterns, *p)
	}

	return patterns
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func indexByDay(daily []DailyMood) map[string]DailyMood {
	byDay := make(map[string]DailyMood, len(daily))
	for _, day := range daily {
		byDay[day.Date.Format("2006-01-02")] = day
	}
	return byDay
}

// walkStreak counts consecutive most-recent days satisfying the condition,
// starting at the latest recorded day at or before today and breaking on the
// first day without data or failing the condition.
func walkStreak(byDay map[string]DailyMood, today time.Time, cond func(DailyMood) bool) []DailyMood {
	cursor := today
	// The most recent day with data may be today or yesterday.
	if _, ok := byDay[cursor.Format("2006-01-02")]; !ok {
		cursor = cursor.AddDate(0, 0, -1)
	}

	var streak []DailyMood
	for {
		day, ok := byDay[cursor.Format("2006-01-02")]
		if !ok || !cond(day) {
			break
		}
		streak = append(streak, day)
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}

func detectNegativeStreak(byDay map[string]DailyMood, today time.Time) *Pattern {
	streak := walkStreak(byDay, today, func(d DailyMood) bool {
		return d.AvgMood <= negativeMoodMax
	})
	if len(streak) < minStreakDays {
		return nil
	}

	var sum float64
	for _, day := range streak {
		sum += day.AvgMood
	}

	// streak is ordered newest first
	return &Pattern{
		Type: PatternNegativeStreak,
		NegativeStreak: &NegativeStreak{
			Days:    len(streak),
			AvgMood: sum / float64(len(streak)),
			Start:   streak[len(streak)-1].Date,
			End:     streak[0].Date,
		},
	}
}

func detectHighStress(byDay map[string]DailyMood, today time.Time) *Pattern {
	streak := walkStreak(byDay, today, func(d DailyMood) bool {
		return d.AvgStress >= highStressMin
	})
	if len(streak) < minStreakDays {
		return nil
	}

	var sum float64
	for _, day := range streak {
		sum += day.AvgStress
	}

	return &Pattern{
		Type: PatternHighStress,
		HighStress: &HighStress{
			Days:      len(streak),
			AvgStress: sum / float64(len(streak)),
		},
	}
}

func (d *Detector) detectStreakAtRisk(ctx context.Context, userID, timezone string, byDay map[string]DailyMood, now time.Time) *Pattern {
	if now.Hour() < streakReminderHour {
		return nil
	}
	if _, checkedInToday := byDay[midnight(now).Format("2006-01-02")]; checkedInToday {
		return nil
	}

	streak, err := d.store.CurrentStreak(ctx, userID, timezone)
	if err != nil {
		d.logger.Error("failed to load current streak", "user_id", userID, "error", err)
		return nil
	}
	if streak < minStreakDays {
		return nil
	}

	return &Pattern{
		Type: PatternStreakAtRisk,
		StreakAtRisk: &StreakAtRisk{
			CurrentStreak:  streak,
			HoursRemaining: 24 - now.Hour(),
		},
	}
}

// detectReEngagement fires when the last check-in was 3-14 days ago. More
// recent needs no nudge; longer is presumed an intentional lapse and nagging
// is avoided.
func (d *Detector) detectReEngagement(ctx context.Context, userID string, now time.Time) *Pattern {
	last, err := d.store.LastCheckIn(ctx, userID)
	if err != nil {
		d.logger.Error("failed to load last check-in", "user_id", userID, "error", err)
		return nil
	}
	if last == nil {
		return nil
	}

	days := int(now.Sub(last.At).Hours() / 24)
	if days < reEngageMinDays || days > reEngageMaxDays {
		return nil
	}

	return &Pattern{
		Type: PatternReEngagement,
		ReEngagement: &ReEngagement{
			DaysSinceLastCheckIn: days,
			LastMood:             last.MoodScore,
		},
	}
}
