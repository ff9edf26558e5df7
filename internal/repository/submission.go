package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leetcode-practice-bot/internal/model"
)

// ErrSubmissionNotFound is returned when no matching submission exists.
var ErrSubmissionNotFound = errors.New("submission not found")

const submissionColumns = `id, user_id, problem_slug, platform, submitted_at, points_awarded, verification_status`

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.ProblemSlug,
		&s.Platform,
		&s.SubmittedAt,
		&s.PointsAwarded,
		&s.Status,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SubmissionRepository handles submission persistence.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository instance.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// CreateTx records a submission inside the pipeline transaction.
// Rows are immutable once committed.
func (r *SubmissionRepository) CreateTx(
	ctx context.Context,
	tx pgx.Tx,
	userID int64,
	slug, platform string,
	submittedAt time.Time,
	points int,
	status string,
) (*model.Submission, error) {
	const query = `
		INSERT INTO submissions (user_id, problem_slug, platform, submitted_at, points_awarded, verification_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + submissionColumns

	s, err := scanSubmission(tx.QueryRow(ctx, query, userID, slug, platform, submittedAt, points, status))
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}
	return s, nil
}

// LatestForProblemTx returns the user's most recent submission of one
// problem, for the duplicate-window check. Runs inside the pipeline
// transaction so the check and the insert cannot race.
func (r *SubmissionRepository) LatestForProblemTx(ctx context.Context, tx pgx.Tx, userID int64, slug, platform string) (*model.Submission, error) {
	const query = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1 AND problem_slug = $2 AND platform = $3
		ORDER BY submitted_at DESC
		LIMIT 1
	`

	s, err := scanSubmission(tx.QueryRow(ctx, query, userID, slug, platform))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get latest submission: %w", err)
	}
	return s, nil
}

// RecentByUser retrieves a user's most recent submissions, newest first.
func (r *SubmissionRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]*model.Submission, error) {
	const query = `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

// CountByUser returns the user's total number of submissions.
func (r *SubmissionRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE user_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}

// PointsInRange aggregates points awarded per user within [from, to),
// highest first, for the weekly and monthly leaderboards.
func (r *SubmissionRepository) PointsInRange(ctx context.Context, from, to time.Time, limit int) ([]*model.LeaderboardRow, error) {
	const query = `
		SELECT s.user_id, u.username, COALESCE(SUM(s.points_awarded), 0) AS points,
		       u.daily_streak, u.weekly_streak
		FROM submissions s
		JOIN users u ON s.user_id = u.telegram_id
		WHERE s.submitted_at >= $1 AND s.submitted_at < $2
		GROUP BY s.user_id, u.username, u.daily_streak, u.weekly_streak
		ORDER BY points DESC, s.user_id ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get points in range: %w", err)
	}
	defer rows.Close()

	var leaderboard []*model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.Points, &row.DailyStreak, &row.WeeklyStreak); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		leaderboard = append(leaderboard, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return leaderboard, nil
}
