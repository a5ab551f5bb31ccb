package patterns

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/soulbloom/backend/internal/notify"
)

// Pass selects which rules a scheduled run covers. An empty pass runs
// everything, so a misconfigured schedule over-scans rather than going
// silent.
type Pass string

const (
	PassMorning Pass = "morning" // re-engagement
	PassMidday  Pass = "midday"  // negative streak, high stress
	PassEvening Pass = "evening" // streak at risk
)

var passPatterns = map[Pass][]PatternType{
	PassMorning: {PatternReEngagement},
	PassMidday:  {PatternNegativeStreak, PatternHighStress},
	PassEvening: {PatternStreakAtRisk},
}

// UserSource enumerates the users a scheduled scan covers.
type UserSource interface {
	ActiveUserIDs(ctx context.Context) ([]string, error)
}

// Notifier is the admission-controlled delivery layer; the gate satisfies it.
type Notifier interface {
	Send(ctx context.Context, userID, notificationType, title, body string, data map[string]string) (*notify.SendResult, error)
}

const defaultWorkers = 8

// Scanner fans the detector out over all active users with a bounded worker
// pool and feeds emitted patterns to the notifier. A failure for one user is
// logged and never aborts the others.
type Scanner struct {
	detector *Detector
	users    UserSource
	notifier Notifier
	logger   *slog.Logger
	workers  int
}

func NewScanner(detector *Detector, users UserSource, notifier Notifier, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		detector: detector,
		users:    users,
		notifier: notifier,
		logger:   logger,
		workers:  defaultWorkers,
	}
}

// Run executes one scheduled pass across all active users.
func (s *Scanner) Run(ctx context.Context, pass Pass) error {
	userIDs, err := s.users.ActiveUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active users: %v", err)
	}

	s.logger.Info("pattern scan starting", "pass", string(pass), "users", len(userIDs))

	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup
	for _, userID := range userIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(userID string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.scanUser(ctx, userID, pass)
		}(userID)
	}
	wg.Wait()

	s.logger.Info("pattern scan finished", "pass", string(pass))
	return nil
}

func (s *Scanner) scanUser(ctx context.Context, userID string, pass Pass) {
	for _, pattern := range s.detector.RunChecks(ctx, userID) {
		if !passCovers(pass, pattern.Type) {
			continue
		}
		notificationType, title, body, data := notificationFor(pattern)
		result, err := s.notifier.Send(ctx, userID, notificationType, title, body, data)
		if err != nil {
			s.logger.Error("failed to send pattern notification",
				"user_id", userID, "pattern", string(pattern.Type), "error", err)
			continue
		}
		s.logger.Info("pattern notification processed",
			"user_id", userID, "pattern", string(pattern.Type),
			"sent", result.Success, "reason", result.Reason)
	}
}

func passCovers(pass Pass, patternType PatternType) bool {
	covered, ok := passPatterns[pass]
	if !ok {
		return true
	}
	for _, t := range covered {
		if t == patternType {
			return true
		}
	}
	return false
}

// notificationFor maps a detected pattern onto gated notification content.
func notificationFor(pattern Pattern) (notificationType, title, body string, data map[string]string) {
	data = map[string]string{"pattern": string(pattern.Type)}

	switch pattern.Type {
	case PatternNegativeStreak:
		data["days"] = fmt.Sprintf("%d", pattern.NegativeStreak.Days)
		return notify.TypeMoodSupport,
			"Checking in with you",
			"The last few days have looked heavy. Small steps count, and support is here whenever you need it.",
			data
	case PatternHighStress:
		data["days"] = fmt.Sprintf("%d", pattern.HighStress.Days)
		return notify.TypeStressSupport,
			"Your stress has been running high",
			"You've logged high stress for a few days. A short walk or a few slow breaths can help you reset.",
			data
	case PatternStreakAtRisk:
		data["streak"] = fmt.Sprintf("%d", pattern.StreakAtRisk.CurrentStreak)
		return notify.TypeStreakReminder,
			"Keep your streak alive",
			fmt.Sprintf("You're on a %d-day check-in streak with %d hours left today. A quick check-in keeps it going.",
				pattern.StreakAtRisk.CurrentStreak, pattern.StreakAtRisk.HoursRemaining),
			data
	case PatternReEngagement:
		data["days_since"] = fmt.Sprintf("%d", pattern.ReEngagement.DaysSinceLastCheckIn)
		return notify.TypeReEngagement,
			"We've missed you",
			"It's been a few days since your last check-in. Taking a moment for yourself today might feel good.",
			data
	}

	return notify.TypeCheckinReminder, "Time to check in", "Take a moment to log how you're feeling today.", data
}
