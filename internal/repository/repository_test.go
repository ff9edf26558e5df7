// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"leetcode-practice-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runTestMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runTestMigrations applies the database schema
func runTestMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL,
			total_points BIGINT NOT NULL DEFAULT 0,
			daily_streak INT NOT NULL DEFAULT 0,
			weekly_streak INT NOT NULL DEFAULT 0,
			last_submission_at TIMESTAMPTZ,
			last_week_submitted VARCHAR(10),
			student_year INT,
			leetcode_username VARCHAR(255),
			codeforces_handle VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_leetcode
			ON users(leetcode_username) WHERE leetcode_username IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_codeforces
			ON users(codeforces_handle) WHERE codeforces_handle IS NOT NULL;
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS problems (
			id BIGSERIAL PRIMARY KEY,
			slug VARCHAR(255) NOT NULL,
			platform VARCHAR(50) NOT NULL,
			title VARCHAR(255),
			difficulty VARCHAR(10),
			topic VARCHAR(100) NOT NULL DEFAULT 'General',
			tier INT NOT NULL DEFAULT 0,
			potd BOOLEAN NOT NULL DEFAULT FALSE,
			potd_date DATE,
			date_posted DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (slug, platform)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(telegram_id) ON DELETE CASCADE,
			problem_slug VARCHAR(255) NOT NULL,
			platform VARCHAR(50) NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			points_awarded INT NOT NULL,
			verification_status VARCHAR(20) NOT NULL DEFAULT 'verified',
			FOREIGN KEY (problem_slug, platform) REFERENCES problems(slug, platform) ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS potd_posts (
			post_date DATE NOT NULL,
			tier INT NOT NULL,
			slug VARCHAR(255) NOT NULL,
			platform VARCHAR(50) NOT NULL,
			posted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (post_date, tier)
		);
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rotation_state (
			id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			topic_index INT NOT NULL DEFAULT 0,
			week_start DATE
		);
	`)
	return err
}

func strPtr(s string) *string { return &s }

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "testuser", user.Username)
	assert.Equal(t, int64(0), user.TotalPoints)
	assert.Equal(t, 0, user.DailyStreak)
	assert.Nil(t, user.LastSubmissionAt)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestUserRepository_GetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), user.TelegramID)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, created, err := repo.GetOrCreate(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(12345), user.TelegramID)

	user, created, err = repo.GetOrCreate(ctx, 12345, "testuser")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(12345), user.TelegramID)
}

func TestUserRepository_ApplyScore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	submittedAt := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)

	locked, err := repo.GetByIDTx(ctx, tx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(0), locked.TotalPoints)

	updated, err := repo.ApplyScoreTx(ctx, tx, 12345, 25, 1, 1, submittedAt, "2026-W35")
	require.NoError(t, err)
	assert.Equal(t, int64(25), updated.TotalPoints)
	require.NoError(t, tx.Commit(ctx))

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(25), user.TotalPoints)
	assert.Equal(t, 1, user.DailyStreak)
	assert.Equal(t, 1, user.WeeklyStreak)
	require.NotNil(t, user.LastSubmissionAt)
	assert.True(t, user.LastSubmissionAt.Equal(submittedAt))
	require.NotNil(t, user.LastWeekSubmitted)
	assert.Equal(t, "2026-W35", *user.LastWeekSubmitted)

	// Awards accumulate.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.ApplyScoreTx(ctx, tx, 12345, 45, 2, 1, submittedAt.AddDate(0, 0, 1), "2026-W35")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	user, err = repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, int64(70), user.TotalPoints)
	assert.Equal(t, 2, user.DailyStreak)
}

func TestUserRepository_SetHandle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 1, "alice")
	require.NoError(t, err)
	_, err = repo.Create(ctx, 2, "bob")
	require.NoError(t, err)

	err = repo.SetHandle(ctx, 1, model.PlatformLeetCode, "alice_lc")
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user.LeetCodeUsername)
	assert.Equal(t, "alice_lc", *user.LeetCodeUsername)

	// Same handle on another account is refused.
	err = repo.SetHandle(ctx, 2, model.PlatformLeetCode, "alice_lc")
	assert.ErrorIs(t, err, ErrHandleTaken)

	// Different platform is a separate namespace.
	err = repo.SetHandle(ctx, 2, model.PlatformCodeforces, "alice_lc")
	require.NoError(t, err)

	err = repo.SetHandle(ctx, 99999, model.PlatformLeetCode, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_SetStudentYear(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)

	err = repo.SetStudentYear(ctx, 12345, 3)
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, 12345)
	require.NoError(t, err)
	require.NotNil(t, user.StudentYear)
	assert.Equal(t, 3, *user.StudentYear)

	err = repo.SetStudentYear(ctx, 99999, 2)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_Leaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	seed := func(id int64, name string, points int) {
		_, err := repo.Create(ctx, id, name)
		require.NoError(t, err)
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		_, err = repo.ApplyScoreTx(ctx, tx, id, points, 1, 1, time.Now(), "2026-W35")
		require.NoError(t, err)
		require.NoError(t, tx.Commit(ctx))
	}

	seed(1, "low", 100)
	seed(2, "high", 500)
	seed(3, "mid", 300)
	_, err := repo.Create(ctx, 4, "zero")
	require.NoError(t, err)

	rows, err := repo.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3) // zero-point users excluded

	assert.Equal(t, int64(2), rows[0].UserID)
	assert.Equal(t, int64(500), rows[0].Points)
	assert.Equal(t, int64(3), rows[1].UserID)
	assert.Equal(t, int64(1), rows[2].UserID)

	rank, err := repo.GetRank(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)

	rank, err = repo.GetRank(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	problemRepo := NewProblemRepository(pool)
	subRepo := NewSubmissionRepository(pool)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)
	_, err = problemRepo.Create(ctx, "two-sum", model.PlatformLeetCode, strPtr("Two Sum"), strPtr(model.DifficultyEasy), "Arrays", 1)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = subRepo.CreateTx(ctx, tx, 12345, "two-sum", model.PlatformLeetCode, time.Now(), 10, model.StatusVerified)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	err = userRepo.Delete(ctx, 12345)
	require.NoError(t, err)

	count, err := subRepo.CountByUser(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = userRepo.Delete(ctx, 12345)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// ============================================================================
// ProblemRepository Tests
// ============================================================================

func TestProblemRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	p, err := repo.Create(ctx, "two-sum", model.PlatformLeetCode, strPtr("Two Sum"), strPtr(model.DifficultyEasy), "Arrays", 1)
	require.NoError(t, err)
	assert.Equal(t, "two-sum", p.Slug)
	assert.Equal(t, 1, p.Tier)
	assert.False(t, p.Potd)
	assert.Nil(t, p.PotdDate)

	got, err := repo.Get(ctx, "two-sum", model.PlatformLeetCode)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = repo.Create(ctx, "two-sum", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	assert.ErrorIs(t, err, ErrProblemExists)

	_, err = repo.Get(ctx, "missing", model.PlatformLeetCode)
	assert.ErrorIs(t, err, ErrProblemNotFound)

	// Same slug on a different platform is a distinct problem.
	_, err = repo.Create(ctx, "two-sum", model.PlatformCodeforces, nil, nil, "Arrays", 1)
	require.NoError(t, err)
}

func TestProblemRepository_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	// Bare row, no metadata yet.
	_, err := repo.Create(ctx, "two-sum", model.PlatformLeetCode, nil, nil, "Arrays", 2)
	require.NoError(t, err)

	// Upsert fills in catalog metadata without touching tier or topic.
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	p, err := repo.UpsertTx(ctx, tx, "two-sum", model.PlatformLeetCode, strPtr("Two Sum"), strPtr(model.DifficultyEasy), "General")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	require.NotNil(t, p.Title)
	assert.Equal(t, "Two Sum", *p.Title)
	require.NotNil(t, p.Difficulty)
	assert.Equal(t, model.DifficultyEasy, *p.Difficulty)
	assert.Equal(t, 2, p.Tier)
	assert.Equal(t, "Arrays", p.Topic)

	// Upsert with nil metadata keeps what is already there.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	p, err = repo.UpsertTx(ctx, tx, "two-sum", model.PlatformLeetCode, nil, nil, "General")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	require.NotNil(t, p.Title)
	assert.Equal(t, "Two Sum", *p.Title)

	// Upsert of an unknown problem inserts it.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	p, err = repo.UpsertTx(ctx, tx, "new-problem", model.PlatformLeetCode, nil, nil, "General")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, "new-problem", p.Slug)
	assert.Equal(t, 0, p.Tier)
}

func TestProblemRepository_NextUnusedFIFO(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	first, err := repo.Create(ctx, "first", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)
	second, err := repo.Create(ctx, "second", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "other-tier", model.PlatformLeetCode, nil, nil, "Arrays", 2)
	require.NoError(t, err)

	today := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	// Insertion order wins.
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	pick, err := repo.NextUnusedTx(ctx, tx, 1, nil, false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, pick.ID)
	require.NoError(t, repo.MarkPotdTx(ctx, tx, pick.ID, today))
	require.NoError(t, tx.Commit(ctx))

	// A featured problem never comes back.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	pick, err = repo.NextUnusedTx(ctx, tx, 1, nil, false)
	require.NoError(t, err)
	assert.Equal(t, second.ID, pick.ID)
	require.NoError(t, repo.MarkPotdTx(ctx, tx, pick.ID, today))
	require.NoError(t, tx.Commit(ctx))

	// Tier drained.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.NextUnusedTx(ctx, tx, 1, nil, false)
	assert.ErrorIs(t, err, ErrProblemNotFound)

	total, err := repo.CountTierTx(ctx, tx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// A tier with no rows at all.
	total, err = repo.CountTierTx(ctx, tx, 9)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	require.NoError(t, tx.Rollback(ctx))
}

func TestProblemRepository_NextUnusedTopicFilter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	arrays, err := repo.Create(ctx, "array-problem", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)
	graphs, err := repo.Create(ctx, "graph-problem", model.PlatformLeetCode, nil, nil, "Graphs", 1)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	// Filter to a topic.
	pick, err := repo.NextUnusedTx(ctx, tx, 1, []string{"Graphs"}, false)
	require.NoError(t, err)
	assert.Equal(t, graphs.ID, pick.ID)

	// Exclude the topic instead (revision day).
	pick, err = repo.NextUnusedTx(ctx, tx, 1, []string{"Graphs"}, true)
	require.NoError(t, err)
	assert.Equal(t, arrays.ID, pick.ID)

	// Filter matching nothing.
	_, err = repo.NextUnusedTx(ctx, tx, 1, []string{"Strings"}, false)
	assert.ErrorIs(t, err, ErrProblemNotFound)
}

func TestProblemRepository_SetTier(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	p, err := repo.Create(ctx, "movable", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.SetTierTx(ctx, tx, p.ID, 3))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.Get(ctx, "movable", model.PlatformLeetCode)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Tier)

	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	err = repo.SetTierTx(ctx, tx, p.ID+999, 2)
	assert.ErrorIs(t, err, ErrProblemNotFound)
	require.NoError(t, tx.Rollback(ctx))
}

func TestProblemRepository_PotdLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewProblemRepository(pool)
	ctx := context.Background()

	p1, err := repo.Create(ctx, "tier1-problem", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)
	p2, err := repo.Create(ctx, "tier2-problem", model.PlatformLeetCode, nil, nil, "Arrays", 2)
	require.NoError(t, err)

	today := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.MarkPotdTx(ctx, tx, p1.ID, today))
	require.NoError(t, repo.MarkPotdTx(ctx, tx, p2.ID, today))
	require.NoError(t, tx.Commit(ctx))

	current, err := repo.CurrentPotd(ctx)
	require.NoError(t, err)
	require.Len(t, current, 2)
	assert.Equal(t, 1, current[0].Tier) // ordered by tier
	assert.Equal(t, 2, current[1].Tier)

	// Clearing one tier leaves the other featured.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.ClearPotdTx(ctx, tx, 1))
	require.NoError(t, tx.Commit(ctx))

	current, err = repo.CurrentPotd(ctx)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, p2.ID, current[0].ID)

	// Unmark keeps potd_date, so the problem stays used.
	err = repo.UnmarkPotd(ctx, "tier2-problem", model.PlatformLeetCode)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "tier2-problem", model.PlatformLeetCode)
	require.NoError(t, err)
	assert.False(t, got.Potd)
	assert.NotNil(t, got.PotdDate)

	err = repo.UnmarkPotd(ctx, "tier2-problem", model.PlatformLeetCode)
	assert.ErrorIs(t, err, ErrProblemNotFound)

	queues, err := repo.QueueStatus(ctx)
	require.NoError(t, err)
	require.Len(t, queues, 2)
	assert.Equal(t, TierQueue{Tier: 1, Total: 1, Unused: 0}, queues[0])
	assert.Equal(t, TierQueue{Tier: 2, Total: 1, Unused: 0}, queues[1])
}

// ============================================================================
// SubmissionRepository Tests
// ============================================================================

func TestSubmissionRepository_CreateAndLatest(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	problemRepo := NewProblemRepository(pool)
	repo := NewSubmissionRepository(pool)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 12345, "testuser")
	require.NoError(t, err)
	_, err = problemRepo.Create(ctx, "two-sum", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)

	early := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 12345, "two-sum", model.PlatformLeetCode, early, 10, model.StatusVerified)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 12345, "two-sum", model.PlatformLeetCode, late, 10, model.StatusVerified)
	require.NoError(t, err)

	latest, err := repo.LatestForProblemTx(ctx, tx, 12345, "two-sum", model.PlatformLeetCode)
	require.NoError(t, err)
	assert.True(t, latest.SubmittedAt.Equal(late))

	_, err = repo.LatestForProblemTx(ctx, tx, 12345, "other", model.PlatformLeetCode)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	require.NoError(t, tx.Commit(ctx))

	recent, err := repo.RecentByUser(ctx, 12345, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].SubmittedAt.Equal(late)) // newest first

	count, err := repo.CountByUser(ctx, 12345)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSubmissionRepository_PointsInRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	userRepo := NewUserRepository(pool)
	problemRepo := NewProblemRepository(pool)
	repo := NewSubmissionRepository(pool)
	ctx := context.Background()

	_, err := userRepo.Create(ctx, 1, "alice")
	require.NoError(t, err)
	_, err = userRepo.Create(ctx, 2, "bob")
	require.NoError(t, err)
	_, err = problemRepo.Create(ctx, "two-sum", model.PlatformLeetCode, nil, nil, "Arrays", 1)
	require.NoError(t, err)

	inWindow := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	before := time.Date(2026, 8, 19, 12, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 1, "two-sum", model.PlatformLeetCode, inWindow, 20, model.StatusVerified)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 1, "two-sum", model.PlatformLeetCode, inWindow.Add(time.Hour), 10, model.StatusVerified)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 2, "two-sum", model.PlatformLeetCode, inWindow, 40, model.StatusVerified)
	require.NoError(t, err)
	_, err = repo.CreateTx(ctx, tx, 2, "two-sum", model.PlatformLeetCode, before, 100, model.StatusVerified)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	rows, err := repo.PointsInRange(ctx, from, to, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Points earned before the window do not count.
	assert.Equal(t, int64(2), rows[0].UserID)
	assert.Equal(t, int64(40), rows[0].Points)
	assert.Equal(t, int64(1), rows[1].UserID)
	assert.Equal(t, int64(30), rows[1].Points)
}

// ============================================================================
// PotdRepository Tests
// ============================================================================

func TestPotdRepository_DailyGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPotdRepository(pool)
	ctx := context.Background()

	today := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	posts, err := repo.PostsForDateTx(ctx, tx, today)
	require.NoError(t, err)
	assert.Empty(t, posts)

	require.NoError(t, repo.CreateTx(ctx, tx, today, 1, "two-sum", model.PlatformLeetCode))
	require.NoError(t, repo.CreateTx(ctx, tx, today, 2, "lru-cache", model.PlatformLeetCode))
	require.NoError(t, tx.Commit(ctx))

	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	posts, err = repo.PostsForDateTx(ctx, tx, today)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, 1, posts[0].Tier)
	assert.Equal(t, "two-sum", posts[0].Slug)

	// The primary key refuses a second record for the same slot.
	err = repo.CreateTx(ctx, tx, today, 1, "other", model.PlatformLeetCode)
	assert.Error(t, err)
	require.NoError(t, tx.Rollback(ctx))

	// Replace overwrites the slot instead.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceTx(ctx, tx, today, 1, "three-sum", model.PlatformLeetCode))
	posts, err = repo.PostsForDateTx(ctx, tx, today)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "three-sum", posts[0].Slug)
	require.NoError(t, tx.Commit(ctx))
}

func TestPotdRepository_RotationState(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPotdRepository(pool)
	ctx := context.Background()

	// First read creates the cursor at zero.
	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	state, err := repo.GetRotationStateTx(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 0, state.TopicIndex)
	assert.Nil(t, state.WeekStart)

	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	state.TopicIndex = 3
	state.WeekStart = &weekStart
	require.NoError(t, repo.SaveRotationStateTx(ctx, tx, state))
	require.NoError(t, tx.Commit(ctx))

	// Survives across transactions.
	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	state, err = repo.GetRotationStateTx(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.TopicIndex)
	require.NotNil(t, state.WeekStart)
	assert.Equal(t, weekStart.Year(), state.WeekStart.Year())
	assert.Equal(t, weekStart.YearDay(), state.WeekStart.YearDay())
	require.NoError(t, tx.Rollback(ctx))
}
