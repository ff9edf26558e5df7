package service

import (
	"context"
	"time"

	"leetcode-practice-bot/internal/model"
	"leetcode-practice-bot/internal/repository"
)

// LeaderboardPeriod selects the time window for a leaderboard.
type LeaderboardPeriod string

// Leaderboard periods.
const (
	PeriodAllTime LeaderboardPeriod = "alltime"
	PeriodWeekly  LeaderboardPeriod = "weekly"
	PeriodMonthly LeaderboardPeriod = "monthly"
)

// UserStats bundles everything the stats command displays.
type UserStats struct {
	User        *model.User
	Rank        int
	Submissions int
	Recent      []*model.Submission
}

// StatsService handles leaderboards and per-user statistics.
type StatsService struct {
	userRepo       *repository.UserRepository
	submissionRepo *repository.SubmissionRepository
	timezone       *time.Location
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(
	userRepo *repository.UserRepository,
	submissionRepo *repository.SubmissionRepository,
	timezone *time.Location,
) *StatsService {
	if timezone == nil {
		timezone = time.UTC
	}
	return &StatsService{
		userRepo:       userRepo,
		submissionRepo: submissionRepo,
		timezone:       timezone,
	}
}

// Leaderboard returns the top users for the period. All-time ranks by
// accumulated totals; weekly and monthly aggregate points awarded inside
// the current Monday-to-Sunday week or calendar month.
func (s *StatsService) Leaderboard(ctx context.Context, period LeaderboardPeriod, limit int) ([]*model.LeaderboardRow, error) {
	now := time.Now().In(s.timezone)

	switch period {
	case PeriodWeekly:
		from, to := weekRange(now)
		return s.submissionRepo.PointsInRange(ctx, from, to, limit)
	case PeriodMonthly:
		from, to := monthRange(now)
		return s.submissionRepo.PointsInRange(ctx, from, to, limit)
	default:
		return s.userRepo.GetLeaderboard(ctx, limit)
	}
}

// UserStats collects profile statistics for one user.
func (s *StatsService) UserStats(ctx context.Context, telegramID int64, recentLimit int) (*UserStats, error) {
	user, err := s.userRepo.GetByID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	rank, err := s.userRepo.GetRank(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	count, err := s.submissionRepo.CountByUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	recent, err := s.submissionRepo.RecentByUser(ctx, telegramID, recentLimit)
	if err != nil {
		return nil, err
	}

	return &UserStats{
		User:        user,
		Rank:        rank,
		Submissions: count,
		Recent:      recent,
	}, nil
}

// weekRange returns the Monday 00:00 opening and the following Monday for
// the week containing t.
func weekRange(t time.Time) (time.Time, time.Time) {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1-weekday)
	return start, start.AddDate(0, 0, 7)
}

// monthRange returns the first of the month and the first of the next.
func monthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
