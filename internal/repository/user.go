// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"leetcode-practice-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProblemNotFound = errors.New("problem not found")
	ErrProblemExists   = errors.New("problem already exists")
	ErrHandleTaken     = errors.New("handle already linked to another user")
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = `telegram_id, username, total_points, daily_streak, weekly_streak,
		last_submission_at, last_week_submitted, student_year,
		leetcode_username, codeforces_handle, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.TelegramID,
		&user.Username,
		&user.TotalPoints,
		&user.DailyStreak,
		&user.WeeklyStreak,
		&user.LastSubmissionAt,
		&user.LastWeekSubmitted,
		&user.StudentYear,
		&user.LeetCodeUsername,
		&user.CodeforcesHandle,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserRepository handles user data persistence.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user with zero points and no streaks.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (telegram_id, username, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID, username))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by their Telegram ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, telegramID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrCreate retrieves a user by Telegram ID, creating one if it doesn't exist.
func (r *UserRepository) GetOrCreate(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, telegramID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.Create(ctx, telegramID, username)
	if err != nil {
		// Handle race condition: another request might have created the user
		user, err = r.GetByID(ctx, telegramID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	return user, true, nil
}

// GetByIDTx retrieves a user inside an open transaction, locking the row
// for the duration of the transaction.
func (r *UserRepository) GetByIDTx(ctx context.Context, tx pgx.Tx, telegramID int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1 FOR UPDATE`

	user, err := scanUser(tx.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ApplyScoreTx accumulates awarded points and writes the new streak state.
// Must run in the same transaction as the submission insert so the two
// never diverge.
func (r *UserRepository) ApplyScoreTx(
	ctx context.Context,
	tx pgx.Tx,
	telegramID int64,
	points int,
	dailyStreak, weeklyStreak int,
	submittedAt time.Time,
	weekToken string,
) (*model.User, error) {
	const query = `
		UPDATE users
		SET total_points = total_points + $2,
		    daily_streak = $3,
		    weekly_streak = $4,
		    last_submission_at = $5,
		    last_week_submitted = $6,
		    updated_at = NOW()
		WHERE telegram_id = $1
		RETURNING ` + userColumns

	user, err := scanUser(tx.QueryRow(ctx, query, telegramID, points, dailyStreak, weeklyStreak, submittedAt, weekToken))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to apply score: %w", err)
	}
	return user, nil
}

// UpdateUsername updates a user's username.
func (r *UserRepository) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	const query = `
		UPDATE users
		SET username = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to update username: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetStudentYear updates the user's academic-year profile field.
func (r *UserRepository) SetStudentYear(ctx context.Context, telegramID int64, year int) error {
	const query = `
		UPDATE users
		SET student_year = $2, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.pool.Exec(ctx, query, telegramID, year)
	if err != nil {
		return fmt.Errorf("failed to set student year: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetHandle links an external platform handle to the user.
// Handles are unique per platform; returns ErrHandleTaken if another user
// already linked the same handle.
func (r *UserRepository) SetHandle(ctx context.Context, telegramID int64, platform, handle string) error {
	var query string
	switch platform {
	case model.PlatformLeetCode:
		query = `UPDATE users SET leetcode_username = $2, updated_at = NOW() WHERE telegram_id = $1`
	case model.PlatformCodeforces:
		query = `UPDATE users SET codeforces_handle = $2, updated_at = NOW() WHERE telegram_id = $1`
	default:
		return fmt.Errorf("unsupported platform %q", platform)
	}

	result, err := r.pool.Exec(ctx, query, telegramID, handle)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrHandleTaken
		}
		return fmt.Errorf("failed to link handle: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetLeaderboard retrieves the top N users by total points.
func (r *UserRepository) GetLeaderboard(ctx context.Context, limit int) ([]*model.LeaderboardRow, error) {
	const query = `
		SELECT telegram_id, username, total_points, daily_streak, weekly_streak
		FROM users
		WHERE total_points > 0
		ORDER BY total_points DESC, telegram_id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
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

// GetRank returns the user's 1-based position by total points.
func (r *UserRepository) GetRank(ctx context.Context, telegramID int64) (int, error) {
	const query = `
		SELECT COUNT(*) + 1
		FROM users
		WHERE total_points > (SELECT total_points FROM users WHERE telegram_id = $1)
	`

	var rank int
	err := r.pool.QueryRow(ctx, query, telegramID).Scan(&rank)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get rank: %w", err)
	}
	return rank, nil
}

// Delete removes a user; their submissions cascade.
func (r *UserRepository) Delete(ctx context.Context, telegramID int64) error {
	const query = `DELETE FROM users WHERE telegram_id = $1`

	result, err := r.pool.Exec(ctx, query, telegramID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
