package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"leetcode-practice-bot/internal/catalog"
	"leetcode-practice-bot/internal/config"
	"leetcode-practice-bot/internal/model"
	"leetcode-practice-bot/internal/pkg/lock"
	"leetcode-practice-bot/internal/repository"
)

// CatalogClient is the external problem-metadata lookup the validator
// consults. Implemented by catalog.Client; tests substitute a fake.
type CatalogClient interface {
	GetProblem(ctx context.Context, slug string) (*catalog.Problem, error)
}

// SubmitResult is the outcome of an accepted submission.
type SubmitResult struct {
	Problem    *model.Problem
	Submission *model.Submission
	Score      ScoreResult
	User       *model.User // state after the award
	QuestionID string
}

// SubmissionService runs the submission pipeline: normalize, verify
// against the catalog, check cooldown and duplicate window, score, and
// persist, with the database work in a single transaction.
type SubmissionService struct {
	pool           *pgxpool.Pool
	userRepo       *repository.UserRepository
	problemRepo    *repository.ProblemRepository
	submissionRepo *repository.SubmissionRepository
	catalog        CatalogClient
	scorer         *Scorer
	userLock       *lock.UserLock
	cfg            config.ScoringConfig
}

// NewSubmissionService creates a new SubmissionService instance.
func NewSubmissionService(
	pool *pgxpool.Pool,
	userRepo *repository.UserRepository,
	problemRepo *repository.ProblemRepository,
	submissionRepo *repository.SubmissionRepository,
	catalogClient CatalogClient,
	scorer *Scorer,
	userLock *lock.UserLock,
	cfg config.ScoringConfig,
) *SubmissionService {
	return &SubmissionService{
		pool:           pool,
		userRepo:       userRepo,
		problemRepo:    problemRepo,
		submissionRepo: submissionRepo,
		catalog:        catalogClient,
		scorer:         scorer,
		userLock:       userLock,
		cfg:            cfg,
	}
}

// NormalizeSlug converts a free-text problem reference into its canonical
// slug: lower-case, whitespace collapsed to single hyphens, punctuation
// stripped. "Two Sum" becomes "two-sum".
func NormalizeSlug(raw string) string {
	return slug.Make(raw)
}

// EnsureUser ensures a user row exists, refreshing the username when it
// changed. Returns the user and whether it was newly created.
func (s *SubmissionService) EnsureUser(ctx context.Context, telegramID int64, username string) (*model.User, bool, error) {
	user, created, err := s.userRepo.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to ensure user: %w", err)
	}

	if !created && user.Username != username && username != "" {
		if err := s.userRepo.UpdateUsername(ctx, telegramID, username); err != nil {
			log.Warn().Err(err).Int64("user_id", telegramID).Msg("Failed to refresh username")
		} else {
			user.Username = username
		}
	}

	return user, created, nil
}

// Submit runs the full pipeline for one submission attempt.
// Expected refusals come back as a *Rejection error; anything else is a
// persistence or internal failure with state left unchanged.
func (s *SubmissionService) Submit(ctx context.Context, telegramID int64, username, rawName string, now time.Time) (*SubmitResult, error) {
	canonical := NormalizeSlug(rawName)
	if canonical == "" {
		return nil, rejectValidation("empty problem name")
	}

	// Serialize the user's submissions in-process; the row lock inside
	// the transaction covers other writers.
	s.userLock.Lock(telegramID)
	defer s.userLock.Unlock(telegramID)

	if _, _, err := s.EnsureUser(ctx, telegramID, username); err != nil {
		return nil, err
	}

	// Catalog lookup happens before the transaction opens: it is a
	// network call with its own timeout and must not hold a row lock.
	info, err := s.catalog.GetProblem(ctx, canonical)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, rejectValidation(fmt.Sprintf("problem %q not found in the catalog", canonical))
		}
		log.Warn().Err(err).Str("slug", canonical).Msg("Catalog lookup failed")
		return nil, rejectValidation("catalog lookup failed, try again in a moment")
	}
	if info.TitleSlug != "" {
		canonical = info.TitleSlug
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.userRepo.GetByIDTx(ctx, tx, telegramID)
	if err != nil {
		return nil, err
	}

	// Per-user cooldown against the last accepted submission.
	if user.LastSubmissionAt != nil {
		if elapsed := now.Sub(*user.LastSubmissionAt); elapsed < s.cfg.Cooldown {
			return nil, rejectCooldown(s.cfg.Cooldown - elapsed)
		}
	}

	// Duplicate window for this (user, problem) pair.
	prior, err := s.submissionRepo.LatestForProblemTx(ctx, tx, telegramID, canonical, model.PlatformLeetCode)
	if err != nil && !errors.Is(err, repository.ErrSubmissionNotFound) {
		return nil, err
	}
	if prior != nil && now.Sub(prior.SubmittedAt) < s.cfg.DuplicateWindow {
		return nil, rejectDuplicate(prior.SubmittedAt, fmt.Sprintf(
			"already submitted on %s; the same problem counts again after %d days",
			prior.SubmittedAt.Format("2006-01-02"),
			int(s.cfg.DuplicateWindow.Hours()/24),
		))
	}

	difficulty := info.Difficulty
	var diffPtr *string
	if model.ValidDifficulty(difficulty) {
		diffPtr = &difficulty
	}
	var titlePtr *string
	if info.Title != "" {
		titlePtr = &info.Title
	}

	problem, err := s.problemRepo.UpsertTx(ctx, tx, canonical, model.PlatformLeetCode, titlePtr, diffPtr, "General")
	if err != nil {
		return nil, err
	}

	score := s.scorer.Score(user, difficulty, now)

	submission, err := s.submissionRepo.CreateTx(ctx, tx, telegramID, canonical, model.PlatformLeetCode, now, score.Total, model.StatusVerified)
	if err != nil {
		return nil, err
	}

	updated, err := s.userRepo.ApplyScoreTx(ctx, tx, telegramID, score.Total, score.DailyStreak, score.WeeklyStreak, now, score.WeekToken)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit submission: %w", err)
	}

	log.Info().
		Int64("user_id", telegramID).
		Str("slug", canonical).
		Str("difficulty", difficulty).
		Int("points", score.Total).
		Int("daily_streak", score.DailyStreak).
		Int("weekly_streak", score.WeeklyStreak).
		Msg("Submission accepted")

	return &SubmitResult{
		Problem:    problem,
		Submission: submission,
		Score:      score,
		User:       updated,
		QuestionID: info.QuestionID,
	}, nil
}
