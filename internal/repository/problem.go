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

const problemColumns = `id, slug, platform, title, difficulty, topic, tier,
		potd, potd_date, date_posted, created_at`

func scanProblem(row pgx.Row) (*model.Problem, error) {
	var p model.Problem
	err := row.Scan(
		&p.ID,
		&p.Slug,
		&p.Platform,
		&p.Title,
		&p.Difficulty,
		&p.Topic,
		&p.Tier,
		&p.Potd,
		&p.PotdDate,
		&p.DatePosted,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProblems(rows pgx.Rows) ([]*model.Problem, error) {
	defer rows.Close()

	var problems []*model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan problem: %w", err)
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating problems: %w", err)
	}
	return problems, nil
}

// TierQueue summarizes the problem bank for one tier.
type TierQueue struct {
	Tier   int
	Total  int
	Unused int
}

// ProblemRepository handles problem catalog persistence.
type ProblemRepository struct {
	pool *pgxpool.Pool
}

// NewProblemRepository creates a new ProblemRepository instance.
func NewProblemRepository(pool *pgxpool.Pool) *ProblemRepository {
	return &ProblemRepository{pool: pool}
}

// Get retrieves a problem by slug and platform.
// Returns ErrProblemNotFound if it does not exist.
func (r *ProblemRepository) Get(ctx context.Context, slug, platform string) (*model.Problem, error) {
	const query = `SELECT ` + problemColumns + ` FROM problems WHERE slug = $1 AND platform = $2`

	p, err := scanProblem(r.pool.QueryRow(ctx, query, slug, platform))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProblemNotFound
		}
		return nil, fmt.Errorf("failed to get problem: %w", err)
	}
	return p, nil
}

// Create inserts a new problem row.
// Returns ErrProblemExists when (slug, platform) is already present.
func (r *ProblemRepository) Create(ctx context.Context, slug, platform string, title, difficulty *string, topic string, tier int) (*model.Problem, error) {
	const query = `
		INSERT INTO problems (slug, platform, title, difficulty, topic, tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING ` + problemColumns

	p, err := scanProblem(r.pool.QueryRow(ctx, query, slug, platform, title, difficulty, topic, tier))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrProblemExists
		}
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}
	return p, nil
}

// UpsertTx inserts the problem if missing, otherwise refreshes catalog
// metadata (title, difficulty) without touching rotation state.
func (r *ProblemRepository) UpsertTx(ctx context.Context, tx pgx.Tx, slug, platform string, title, difficulty *string, topic string) (*model.Problem, error) {
	const query = `
		INSERT INTO problems (slug, platform, title, difficulty, topic, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (slug, platform) DO UPDATE
		SET title = COALESCE(EXCLUDED.title, problems.title),
		    difficulty = COALESCE(EXCLUDED.difficulty, problems.difficulty)
		RETURNING ` + problemColumns

	p, err := scanProblem(tx.QueryRow(ctx, query, slug, platform, title, difficulty, topic))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert problem: %w", err)
	}
	return p, nil
}

// Delete removes a problem; its submissions cascade.
func (r *ProblemRepository) Delete(ctx context.Context, slug, platform string) error {
	const query = `DELETE FROM problems WHERE slug = $1 AND platform = $2`

	result, err := r.pool.Exec(ctx, query, slug, platform)
	if err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProblemNotFound
	}
	return nil
}

// CurrentPotd retrieves all problems currently flagged as problem of the
// day, ordered by tier.
func (r *ProblemRepository) CurrentPotd(ctx context.Context) ([]*model.Problem, error) {
	const query = `SELECT ` + problemColumns + ` FROM problems WHERE potd ORDER BY tier ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get current potd: %w", err)
	}
	return scanProblems(rows)
}

// ClearPotdTx clears the POTD flag for every problem in the tier.
// Run inside the rotation transaction so expiry and selection commit
// together.
func (r *ProblemRepository) ClearPotdTx(ctx context.Context, tx pgx.Tx, tier int) error {
	const query = `UPDATE problems SET potd = FALSE WHERE potd AND tier = $1`

	if _, err := tx.Exec(ctx, query, tier); err != nil {
		return fmt.Errorf("failed to clear potd flag: %w", err)
	}
	return nil
}

// ClearPotdAll clears the POTD flag everywhere (admin override).
func (r *ProblemRepository) ClearPotdAll(ctx context.Context) (int64, error) {
	const query = `UPDATE problems SET potd = FALSE WHERE potd`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to clear potd flags: %w", err)
	}
	return result.RowsAffected(), nil
}

// ClearPotd clears the POTD flag for a single tier (admin override).
func (r *ProblemRepository) ClearPotd(ctx context.Context, tier int) (int64, error) {
	const query = `UPDATE problems SET potd = FALSE WHERE potd AND tier = $1`

	result, err := r.pool.Exec(ctx, query, tier)
	if err != nil {
		return 0, fmt.Errorf("failed to clear potd flags: %w", err)
	}
	return result.RowsAffected(), nil
}

// NextUnusedTx selects the next rotation candidate for a tier: never
// featured before, earliest-inserted first so the bank is covered without
// repetition until exhaustion. An empty topics slice means any topic;
// excludeTopics inverts the filter for revision days.
// Locks the chosen row; returns pgx.ErrNoRows wrapped as ErrProblemNotFound
// when the tier has no unused candidates.
func (r *ProblemRepository) NextUnusedTx(ctx context.Context, tx pgx.Tx, tier int, topics []string, excludeTopics bool) (*model.Problem, error) {
	query := `SELECT ` + problemColumns + `
		FROM problems
		WHERE tier = $1 AND potd_date IS NULL`
	args := []any{tier}

	if len(topics) > 0 {
		if excludeTopics {
			query += ` AND NOT (topic = ANY($2))`
		} else {
			query += ` AND topic = ANY($2)`
		}
		args = append(args, topics)
	}
	query += ` ORDER BY id ASC LIMIT 1 FOR UPDATE`

	p, err := scanProblem(tx.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProblemNotFound
		}
		return nil, fmt.Errorf("failed to select next unused problem: %w", err)
	}
	return p, nil
}

// CountTierTx returns how many problems exist in a tier, used to tell an
// unconfigured tier apart from an exhausted one.
func (r *ProblemRepository) CountTierTx(ctx context.Context, tx pgx.Tx, tier int) (int, error) {
	const query = `SELECT COUNT(*) FROM problems WHERE tier = $1`

	var count int
	if err := tx.QueryRow(ctx, query, tier).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tier problems: %w", err)
	}
	return count, nil
}

// SetTierTx moves a problem to another tier.
func (r *ProblemRepository) SetTierTx(ctx context.Context, tx pgx.Tx, id int64, tier int) error {
	const query = `UPDATE problems SET tier = $2 WHERE id = $1`

	result, err := tx.Exec(ctx, query, id, tier)
	if err != nil {
		return fmt.Errorf("failed to set tier: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProblemNotFound
	}
	return nil
}

// MarkPotdTx flags a problem as featured for the given date.
func (r *ProblemRepository) MarkPotdTx(ctx context.Context, tx pgx.Tx, id int64, date time.Time) error {
	const query = `
		UPDATE problems
		SET potd = TRUE, potd_date = $2, date_posted = COALESCE(date_posted, $2)
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, date)
	if err != nil {
		return fmt.Errorf("failed to mark potd: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProblemNotFound
	}
	return nil
}

// UnmarkPotd removes the POTD flag from one problem (admin override).
// The rotation history (potd_date) is kept so the problem is not reused.
func (r *ProblemRepository) UnmarkPotd(ctx context.Context, slug, platform string) error {
	const query = `UPDATE problems SET potd = FALSE WHERE slug = $1 AND platform = $2 AND potd`

	result, err := r.pool.Exec(ctx, query, slug, platform)
	if err != nil {
		return fmt.Errorf("failed to unmark potd: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProblemNotFound
	}
	return nil
}

// QueueStatus reports, per tier, how many problems exist and how many have
// never been featured.
func (r *ProblemRepository) QueueStatus(ctx context.Context) ([]TierQueue, error) {
	const query = `
		SELECT tier,
		       COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE potd_date IS NULL) AS unused
		FROM problems
		GROUP BY tier
		ORDER BY tier ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue status: %w", err)
	}
	defer rows.Close()

	var queues []TierQueue
	for rows.Next() {
		var q TierQueue
		if err := rows.Scan(&q.Tier, &q.Total, &q.Unused); err != nil {
			return nil, fmt.Errorf("failed to scan queue status: %w", err)
		}
		queues = append(queues, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue status: %w", err)
	}

	return queues, nil
}
