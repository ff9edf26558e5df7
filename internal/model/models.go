// Package model defines the data models for the practice tracker bot.
package model

import "time"

// Difficulty levels as reported by the problem catalog.
const (
	DifficultyEasy   = "Easy"
	DifficultyMedium = "Medium"
	DifficultyHard   = "Hard"
)

// ValidDifficulty reports whether d is a recognized difficulty label.
func ValidDifficulty(d string) bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// Platforms a problem can belong to.
const (
	PlatformLeetCode   = "leetcode"
	PlatformCodeforces = "codeforces"
)

// Verification statuses for submissions.
const (
	StatusVerified = "verified" // confirmed against the catalog
	StatusManual   = "manual"   // admin-entered, no catalog check
)

// User represents a community member tracked by the bot.
type User struct {
	TelegramID        int64      `db:"telegram_id"`
	Username          string     `db:"username"`
	TotalPoints       int64      `db:"total_points"`
	DailyStreak       int        `db:"daily_streak"`
	WeeklyStreak      int        `db:"weekly_streak"`
	LastSubmissionAt  *time.Time `db:"last_submission_at"`
	LastWeekSubmitted *string    `db:"last_week_submitted"` // ISO token, e.g. "2026-W35"
	StudentYear       *int       `db:"student_year"`
	LeetCodeUsername  *string    `db:"leetcode_username"`
	CodeforcesHandle  *string    `db:"codeforces_handle"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

// Problem represents a catalog problem, identified by (slug, platform).
// Tier partitions the catalog by academic year; tier 0 is untiered.
type Problem struct {
	ID         int64      `db:"id"`
	Slug       string     `db:"slug"`
	Platform   string     `db:"platform"`
	Title      *string    `db:"title"`
	Difficulty *string    `db:"difficulty"`
	Topic      string     `db:"topic"`
	Tier       int        `db:"tier"`
	Potd       bool       `db:"potd"`
	PotdDate   *time.Time `db:"potd_date"`
	DatePosted *time.Time `db:"date_posted"`
	CreatedAt  time.Time  `db:"created_at"`
}

// URL returns the problem's page on its platform.
func (p *Problem) URL() string {
	switch p.Platform {
	case PlatformCodeforces:
		return "https://codeforces.com/problemset/problem/" + p.Slug
	default:
		return "https://leetcode.com/problems/" + p.Slug + "/"
	}
}

// Submission is an immutable record of a validated problem submission.
// PointsAwarded is fixed at creation and never recomputed.
type Submission struct {
	ID            int64     `db:"id"`
	UserID        int64     `db:"user_id"`
	ProblemSlug   string    `db:"problem_slug"`
	Platform      string    `db:"platform"`
	SubmittedAt   time.Time `db:"submitted_at"`
	PointsAwarded int       `db:"points_awarded"`
	Status        string    `db:"verification_status"`
}

// PotdPost records that a problem was featured for a given date and tier.
// The (PostDate, Tier) key doubles as the scheduler's re-entry guard.
type PotdPost struct {
	PostDate time.Time `db:"post_date"`
	Tier     int       `db:"tier"`
	Slug     string    `db:"slug"`
	Platform string    `db:"platform"`
	PostedAt time.Time `db:"posted_at"`
}

// RotationState is the persisted topic-rotation cursor.
type RotationState struct {
	TopicIndex int        `db:"topic_index"`
	WeekStart  *time.Time `db:"week_start"`
}

// LeaderboardRow is one entry of a points leaderboard.
type LeaderboardRow struct {
	UserID       int64  `db:"user_id"`
	Username     string `db:"username"`
	Points       int64  `db:"points"`
	DailyStreak  int    `db:"daily_streak"`
	WeeklyStreak int    `db:"weekly_streak"`
}
