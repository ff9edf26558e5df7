// Package service provides business logic implementations.
package service

import (
	"fmt"
	"time"

	"leetcode-practice-bot/internal/config"
	"leetcode-practice-bot/internal/model"
)

// ScoreResult is the breakdown of one scored submission: what to display
// and what to persist.
type ScoreResult struct {
	Base        int
	DailyBonus  int
	WeeklyBonus int
	Total       int

	DailyStreak  int
	WeeklyStreak int
	WeekToken    string
	SubmittedAt  time.Time
}

// Scorer computes points and streak transitions. It is pure: all rejection
// happens in validation, this stage only computes.
type Scorer struct {
	cfg config.ScoringConfig
}

// NewScorer creates a Scorer with the configured point values.
func NewScorer(cfg config.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// BasePoints maps a difficulty label to its point value.
// Unknown or absent difficulty earns the Easy-tier value.
func (s *Scorer) BasePoints(difficulty string) int {
	switch difficulty {
	case model.DifficultyMedium:
		return s.cfg.MediumPoints
	case model.DifficultyHard:
		return s.cfg.HardPoints
	default:
		return s.cfg.EasyPoints
	}
}

// Score computes the award for a validated submission.
//
// Daily streak, by calendar-day gap since the user's last submission:
// exactly one day continues the streak and earns the daily bonus; zero days
// leaves it untouched with no bonus; anything else resets it to 1.
// Weekly streak works the same way over ISO week tokens, with its own bonus
// on a consecutive week.
func (s *Scorer) Score(user *model.User, difficulty string, now time.Time) ScoreResult {
	result := ScoreResult{
		Base:        s.BasePoints(difficulty),
		WeekToken:   WeekToken(now),
		SubmittedAt: now,
	}

	// Daily streak
	switch {
	case user.LastSubmissionAt == nil:
		result.DailyStreak = 1
	default:
		switch daysBetween(*user.LastSubmissionAt, now) {
		case 0:
			result.DailyStreak = user.DailyStreak
		case 1:
			result.DailyStreak = user.DailyStreak + 1
			result.DailyBonus = s.cfg.DailyStreakBonus
		default:
			result.DailyStreak = 1
		}
	}
	if result.DailyStreak < 1 {
		result.DailyStreak = 1
	}

	// Weekly streak
	switch {
	case user.LastWeekSubmitted == nil:
		result.WeeklyStreak = 1
	case *user.LastWeekSubmitted == result.WeekToken:
		result.WeeklyStreak = user.WeeklyStreak
	case NextWeekToken(*user.LastWeekSubmitted) == result.WeekToken:
		result.WeeklyStreak = user.WeeklyStreak + 1
		result.WeeklyBonus = s.cfg.WeeklyStreakBonus
	default:
		result.WeeklyStreak = 1
	}
	if result.WeeklyStreak < 1 {
		result.WeeklyStreak = 1
	}

	result.Total = result.Base + result.DailyBonus + result.WeeklyBonus
	return result
}

// daysBetween returns the number of calendar days from a to b, evaluated
// in b's location. The midnights are reconstructed in UTC so DST
// transitions (23- and 25-hour local days) cannot skew the count.
func daysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	aDate := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bDate := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bDate.Sub(aDate) / (24 * time.Hour))
}

// WeekToken formats t's ISO week as "YYYY-Www", e.g. "2026-W35".
func WeekToken(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// NextWeekToken returns the token of the ISO week following the given one.
// Computed by real date arithmetic so year boundaries (52- and 53-week
// years) are handled correctly. Returns "" for an unparseable token.
func NextWeekToken(token string) string {
	var year, week int
	if _, err := fmt.Sscanf(token, "%d-W%d", &year, &week); err != nil {
		return ""
	}
	start := isoWeekStart(year, week)
	if start.IsZero() {
		return ""
	}
	return WeekToken(start.AddDate(0, 0, 7))
}

// isoWeekStart returns the Monday of the given ISO week.
// January 4th always falls in ISO week 1 of its year.
func isoWeekStart(year, week int) time.Time {
	if week < 1 || week > 53 {
		return time.Time{}
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := jan4.AddDate(0, 0, 1-weekday)
	return monday.AddDate(0, 0, (week-1)*7)
}
