// Package main is the entry point for the practice tracker bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"leetcode-practice-bot/internal/bot"
	"leetcode-practice-bot/internal/catalog"
	"leetcode-practice-bot/internal/config"
	"leetcode-practice-bot/internal/pkg/db"
	"leetcode-practice-bot/internal/pkg/lock"
	"leetcode-practice-bot/internal/repository"
	"leetcode-practice-bot/internal/scheduler"
	"leetcode-practice-bot/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	loc, err := cfg.Rotation.Location()
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.Rotation.Timezone).Msg("Invalid rotation timezone")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dbPool.Pool)
	problemRepo := repository.NewProblemRepository(dbPool.Pool)
	submissionRepo := repository.NewSubmissionRepository(dbPool.Pool)
	potdRepo := repository.NewPotdRepository(dbPool.Pool)

	// Initialize user lock
	userLock := lock.NewUserLock()

	// Initialize services
	catalogClient := catalog.NewClient(cfg.Catalog.Endpoint, cfg.Catalog.Timeout)
	scorer := service.NewScorer(cfg.Scoring)

	submissionService := service.NewSubmissionService(
		dbPool.Pool,
		userRepo,
		problemRepo,
		submissionRepo,
		catalogClient,
		scorer,
		userLock,
		cfg.Scoring,
	)

	statsService := service.NewStatsService(userRepo, submissionRepo, loc)

	// The scheduler gets its poster after the bot exists, so build it
	// first without one.
	sched := scheduler.New(dbPool.Pool, problemRepo, potdRepo, nil, cfg.Rotation, loc)

	// Create bot dependencies
	deps := &bot.Dependencies{
		Config:            cfg,
		SubmissionService: submissionService,
		StatsService:      statsService,
		Scheduler:         sched,
		ProblemRepo:       problemRepo,
		UserRepo:          userRepo,
	}

	// Initialize bot
	telegramBot, err := bot.New(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}

	sched.SetPoster(bot.NewAnnouncer(telegramBot.GetBot(), cfg.Rotation.AnnounceChat))
	sched.Start(ctx)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	sched.Stop()
	telegramBot.Stop()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
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
		CREATE INDEX IF NOT EXISTS idx_users_points ON users(total_points DESC);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_leetcode
			ON users(leetcode_username) WHERE leetcode_username IS NOT NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_codeforces
			ON users(codeforces_handle) WHERE codeforces_handle IS NOT NULL;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create problems table
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
		CREATE INDEX IF NOT EXISTS idx_problems_tier_unused
			ON problems(tier, id) WHERE potd_date IS NULL;
		CREATE UNIQUE INDEX IF NOT EXISTS idx_problems_potd_tier
			ON problems(tier) WHERE potd;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: problems table created")

	// Migration 3: Create submissions table
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
		CREATE INDEX IF NOT EXISTS idx_submissions_user_problem
			ON submissions(user_id, problem_slug, platform, submitted_at DESC);
		CREATE INDEX IF NOT EXISTS idx_submissions_time ON submissions(submitted_at);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: submissions table created")

	// Migration 4: Create potd_posts table (the daily re-entry guard)
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
	log.Info().Msg("Migration 4: potd_posts table created")

	// Migration 5: Create rotation_state table (single row)
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rotation_state (
			id BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			topic_index INT NOT NULL DEFAULT 0,
			week_start DATE
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: rotation_state table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
