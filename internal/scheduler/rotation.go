// Package scheduler selects and rotates the daily featured problem.
//
// One cycle runs per calendar day in the configured timezone. A cycle
// expires the previous day's featured problems and selects a fresh,
// never-used candidate per tier, all inside one transaction, then records
// a per-date guard row so a restart or a concurrent force trigger cannot
// repeat the day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"leetcode-practice-bot/internal/config"
	"leetcode-practice-bot/internal/model"
	"leetcode-practice-bot/internal/repository"
)

// ErrBankExhausted reports that a tier had problems but none left unused.
// Operational condition: the bank needs refilling, distinct from a tier
// that was never configured.
var ErrBankExhausted = errors.New("problem bank exhausted")

// Poster publishes the day's selection to the outside world after the
// cycle commits. The bot implements it; tests use a fake.
type Poster interface {
	PostDaily(date time.Time, picks []Pick)
}

// Pick is one tier's featured problem for the day.
type Pick struct {
	Tier    int
	Problem *model.Problem
	Topic   string
}

// CycleResult describes what one rotation cycle did.
type CycleResult struct {
	Date      time.Time
	Picks     []Pick
	Exhausted []int // tiers with rows but no unused candidate
	Empty     []int // tiers with no rows at all
	Skipped   bool  // today's cycle had already run
}

// Scheduler drives the daily rotation. Natural ticks and force triggers
// are serialized behind the same mutex and the same persisted per-date
// guard, so overlapping runs collapse into one.
type Scheduler struct {
	pool        *pgxpool.Pool
	problemRepo *repository.ProblemRepository
	potdRepo    *repository.PotdRepository
	poster      Poster
	cfg         config.RotationConfig
	loc         *time.Location

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a Scheduler. loc must be the timezone the daily boundary is
// evaluated in.
func New(
	pool *pgxpool.Pool,
	problemRepo *repository.ProblemRepository,
	potdRepo *repository.PotdRepository,
	poster Poster,
	cfg config.RotationConfig,
	loc *time.Location,
) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		pool:        pool,
		problemRepo: problemRepo,
		potdRepo:    potdRepo,
		poster:      poster,
		cfg:         cfg,
		loc:         loc,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// SetPoster installs the announcement sink. Must be called before Start.
func (s *Scheduler) SetPoster(p Poster) {
	s.poster = p
}

// Start launches the daily loop in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		for {
			next := s.nextRunTime(time.Now().In(s.loc))
			timer := time.NewTimer(time.Until(next))
			log.Info().Time("next_run", next).Msg("Rotation scheduled")

			select {
			case <-timer.C:
				result, err := s.Run(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Rotation cycle failed")
				} else {
					s.report(result)
				}
			case <-s.stop:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}

// Stop terminates the daily loop and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.stop)
	<-s.done
	log.Info().Msg("Rotation scheduler stopped")
}

// nextRunTime returns the next occurrence of the configured post time
// strictly after now.
func (s *Scheduler) nextRunTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.PostHour, s.cfg.PostMinute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run executes one rotation cycle for today. Safe to call from the timer
// and from an admin force trigger concurrently: the second caller either
// waits and then observes the guard row, or runs first itself.
func (s *Scheduler) Run(ctx context.Context) (*CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().In(s.loc)
	return s.runCycle(ctx, now)
}

func (s *Scheduler) runCycle(ctx context.Context, now time.Time) (*CycleResult, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	result := &CycleResult{Date: today}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin rotation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Idempotent re-entry: if today's guard rows exist the stored choice
	// stands and selection is skipped entirely.
	existing, err := s.potdRepo.PostsForDateTx(ctx, tx, today)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		result.Skipped = true
		return result, nil
	}

	state, err := s.potdRepo.GetRotationStateTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	revision := s.isRevisionDay(today)
	if !revision && s.shouldRotateTopic(state, today) {
		s.advanceTopic(state, today)
	}
	topic := s.currentTopic(state)

	for _, tier := range s.tiers() {
		// Expire before selecting, in the same transaction, so no commit
		// ever shows two days featured at once or none at all.
		if err := s.problemRepo.ClearPotdTx(ctx, tx, tier); err != nil {
			return nil, err
		}

		pick, err := s.selectForTier(ctx, tx, tier, topic, revision)
		if err != nil {
			if errors.Is(err, repository.ErrProblemNotFound) {
				total, countErr := s.problemRepo.CountTierTx(ctx, tx, tier)
				if countErr != nil {
					return nil, countErr
				}
				if total == 0 {
					result.Empty = append(result.Empty, tier)
				} else {
					result.Exhausted = append(result.Exhausted, tier)
				}
				continue
			}
			return nil, err
		}

		if err := s.problemRepo.MarkPotdTx(ctx, tx, pick.ID, today); err != nil {
			return nil, err
		}
		if err := s.potdRepo.CreateTx(ctx, tx, today, tier, pick.Slug, pick.Platform); err != nil {
			return nil, err
		}
		result.Picks = append(result.Picks, Pick{Tier: tier, Problem: pick, Topic: pick.Topic})
	}

	if err := s.potdRepo.SaveRotationStateTx(ctx, tx, state); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rotation: %w", err)
	}

	// External posting only after the cycle is durable.
	if s.poster != nil && len(result.Picks) > 0 {
		s.poster.PostDaily(today, result.Picks)
	}

	return result, nil
}

// selectForTier picks the next unused candidate. The topic filter narrows
// the choice to the current topic on regular days and to every other topic
// on revision days; if the filter leaves nothing, the rest of the tier's
// bank is considered before declaring exhaustion.
func (s *Scheduler) selectForTier(ctx context.Context, tx pgx.Tx, tier int, topic string, revision bool) (*model.Problem, error) {
	if topic != "" {
		pick, err := s.problemRepo.NextUnusedTx(ctx, tx, tier, []string{topic}, revision)
		if err == nil {
			return pick, nil
		}
		if !errors.Is(err, repository.ErrProblemNotFound) {
			return nil, err
		}
	}
	return s.problemRepo.NextUnusedTx(ctx, tx, tier, nil, false)
}

// Preview computes what the next cycle would select without committing.
func (s *Scheduler) Preview(ctx context.Context) (*CycleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	result := &CycleResult{Date: today}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin preview transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	state, err := s.potdRepo.GetRotationStateTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	// Same cursor logic as the real cycle, on an in-memory copy of the
	// state; the rollback below discards everything.
	revision := s.isRevisionDay(today)
	if !revision && s.shouldRotateTopic(state, today) {
		s.advanceTopic(state, today)
	}
	topic := s.currentTopic(state)

	for _, tier := range s.tiers() {
		pick, err := s.selectForTier(ctx, tx, tier, topic, revision)
		if err != nil {
			if errors.Is(err, repository.ErrProblemNotFound) {
				result.Exhausted = append(result.Exhausted, tier)
				continue
			}
			return nil, err
		}
		result.Picks = append(result.Picks, Pick{Tier: tier, Problem: pick, Topic: pick.Topic})
	}

	// Rolled back by the deferred Rollback: nothing is marked.
	return result, nil
}

// SetPotd manually features a problem for a tier today, through the same
// uniqueness rules as the automatic path: the tier's previous flag is
// cleared first and the guard row is replaced.
func (s *Scheduler) SetPotd(ctx context.Context, tier int, slugName, platform string) (*model.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin override transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	problem, err := s.problemRepo.UpsertTx(ctx, tx, slugName, platform, nil, nil, "General")
	if err != nil {
		return nil, err
	}

	if problem.Tier != tier {
		if err := s.problemRepo.SetTierTx(ctx, tx, problem.ID, tier); err != nil {
			return nil, err
		}
		problem.Tier = tier
	}

	if err := s.problemRepo.ClearPotdTx(ctx, tx, tier); err != nil {
		return nil, err
	}
	if err := s.problemRepo.MarkPotdTx(ctx, tx, problem.ID, today); err != nil {
		return nil, err
	}
	if err := s.potdRepo.ReplaceTx(ctx, tx, today, tier, problem.Slug, problem.Platform); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit override: %w", err)
	}

	problem.Potd = true
	return problem, nil
}

// tiers returns the configured tier list, defaulting to the single
// untiered slot.
func (s *Scheduler) tiers() []int {
	if len(s.cfg.Tiers) == 0 {
		return []int{0}
	}
	return s.cfg.Tiers
}

// isRevisionDay reports whether date is the weekly revision day (Sunday),
// when selection flips to previously covered topics. Only meaningful with
// at least two topics configured.
func (s *Scheduler) isRevisionDay(date time.Time) bool {
	return date.Weekday() == time.Sunday && len(s.cfg.Topics) > 1
}

// shouldRotateTopic reports whether a full week elapsed since the cursor
// last advanced. week_start is a date column, so compare by calendar date
// rather than instants.
func (s *Scheduler) shouldRotateTopic(state *model.RotationState, today time.Time) bool {
	if len(s.cfg.Topics) == 0 {
		return false
	}
	if state.WeekStart == nil {
		return true
	}
	y, m, d := state.WeekStart.Date()
	weekStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return !today.Before(weekStart.AddDate(0, 0, 7))
}

func (s *Scheduler) advanceTopic(state *model.RotationState, today time.Time) {
	if state.WeekStart != nil {
		state.TopicIndex = (state.TopicIndex + 1) % len(s.cfg.Topics)
	}
	weekStart := today
	state.WeekStart = &weekStart
	log.Info().Int("topic_index", state.TopicIndex).Msg("Topic cursor advanced")
}

func (s *Scheduler) currentTopic(state *model.RotationState) string {
	if len(s.cfg.Topics) == 0 {
		return ""
	}
	return s.cfg.Topics[state.TopicIndex%len(s.cfg.Topics)]
}

// report logs the outcome of an automatic cycle. Exhaustion is surfaced
// loudly; it means the bank ran dry, not that nothing was scheduled.
func (s *Scheduler) report(result *CycleResult) {
	if result.Skipped {
		log.Info().Time("date", result.Date).Msg("Rotation already ran for today, skipping")
		return
	}
	for _, pick := range result.Picks {
		log.Info().
			Int("tier", pick.Tier).
			Str("slug", pick.Problem.Slug).
			Time("date", result.Date).
			Msg("Featured problem selected")
	}
	if len(result.Exhausted) > 0 {
		log.Error().
			Ints("tiers", result.Exhausted).
			Err(ErrBankExhausted).
			Msg("No unused problems left for tiers, admin attention required")
	}
}
