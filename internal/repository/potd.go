package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leetcode-practice-bot/internal/model"
)

// PotdRepository persists the rotation history and the topic cursor.
type PotdRepository struct {
	pool *pgxpool.Pool
}

// NewPotdRepository creates a new PotdRepository instance.
func NewPotdRepository(pool *pgxpool.Pool) *PotdRepository {
	return &PotdRepository{pool: pool}
}

// PostsForDateTx returns the rotation records for one calendar date.
// An existing record for (date, tier) means that tier already ran today;
// the scheduler reads this at the start of each cycle instead of trusting
// in-process memory.
func (r *PotdRepository) PostsForDateTx(ctx context.Context, tx pgx.Tx, date time.Time) ([]*model.PotdPost, error) {
	const query = `
		SELECT post_date, tier, slug, platform, posted_at
		FROM potd_posts
		WHERE post_date = $1
		ORDER BY tier ASC
	`

	rows, err := tx.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get potd posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.PotdPost
	for rows.Next() {
		var p model.PotdPost
		if err := rows.Scan(&p.PostDate, &p.Tier, &p.Slug, &p.Platform, &p.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan potd post: %w", err)
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating potd posts: %w", err)
	}

	return posts, nil
}

// CreateTx records that a problem was featured for (date, tier).
// The primary key rejects a second record for the same slot, which is what
// makes concurrent cycles safe even across processes.
func (r *PotdRepository) CreateTx(ctx context.Context, tx pgx.Tx, date time.Time, tier int, slug, platform string) error {
	const query = `
		INSERT INTO potd_posts (post_date, tier, slug, platform, posted_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	if _, err := tx.Exec(ctx, query, date, tier, slug, platform); err != nil {
		return fmt.Errorf("failed to record potd post: %w", err)
	}
	return nil
}

// ReplaceTx records a featured problem for (date, tier), overwriting any
// earlier record for the slot. Used by the manual override path.
func (r *PotdRepository) ReplaceTx(ctx context.Context, tx pgx.Tx, date time.Time, tier int, slug, platform string) error {
	const query = `
		INSERT INTO potd_posts (post_date, tier, slug, platform, posted_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (post_date, tier) DO UPDATE
		SET slug = EXCLUDED.slug, platform = EXCLUDED.platform, posted_at = NOW()
	`

	if _, err := tx.Exec(ctx, query, date, tier, slug, platform); err != nil {
		return fmt.Errorf("failed to replace potd post: %w", err)
	}
	return nil
}

// GetRotationStateTx reads the persisted topic cursor, creating the row on
// first use.
func (r *PotdRepository) GetRotationStateTx(ctx context.Context, tx pgx.Tx) (*model.RotationState, error) {
	const query = `
		INSERT INTO rotation_state (id, topic_index)
		VALUES (TRUE, 0)
		ON CONFLICT (id) DO UPDATE SET id = rotation_state.id
		RETURNING topic_index, week_start
	`

	var state model.RotationState
	if err := tx.QueryRow(ctx, query).Scan(&state.TopicIndex, &state.WeekStart); err != nil {
		return nil, fmt.Errorf("failed to get rotation state: %w", err)
	}
	return &state, nil
}

// SaveRotationStateTx persists the topic cursor.
func (r *PotdRepository) SaveRotationStateTx(ctx context.Context, tx pgx.Tx, state *model.RotationState) error {
	const query = `UPDATE rotation_state SET topic_index = $1, week_start = $2 WHERE id`

	if _, err := tx.Exec(ctx, query, state.TopicIndex, state.WeekStart); err != nil {
		return fmt.Errorf("failed to save rotation state: %w", err)
	}
	return nil
}
