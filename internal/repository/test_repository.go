package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

type TestRepository struct {
	pool *pgxpool.Pool
}

func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, theme_id, name, default_duration,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = tests.id),
		        created_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.ThemeID, &t.Name, &t.DefaultDuration, &t.QuestionCount, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetOrCreateForTheme returns the theme's oldest test, creating an
// auto-named one when none exists yet. The unique index on (theme_id, name)
// makes the create race-safe across processes: a concurrent loser simply
// re-reads the winner's row.
func (r *TestRepository) GetOrCreateForTheme(ctx context.Context, theme *model.Theme) (*model.Test, error) {
	t, err := r.firstByTheme(ctx, theme.ID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("first test by theme: %w", err)
	}

	defaultDuration := theme.Duration
	if defaultDuration <= 0 {
		defaultDuration = 30
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO tests (theme_id, name, default_duration)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (theme_id, name) DO NOTHING`,
		theme.ID, fmt.Sprintf("Auto (%s)", theme.Name), defaultDuration)
	if err != nil {
		return nil, fmt.Errorf("create test: %w", err)
	}

	t, err = r.firstByTheme(ctx, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("reread test: %w", err)
	}
	return t, nil
}

func (r *TestRepository) firstByTheme(ctx context.Context, themeID uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, theme_id, name, default_duration,
		        (SELECT COUNT(*) FROM questions q WHERE q.test_id = tests.id),
		        created_at
		 FROM tests
		 WHERE theme_id = $1
		 ORDER BY created_at ASC
		 LIMIT 1`, themeID,
	).Scan(&t.ID, &t.ThemeID, &t.Name, &t.DefaultDuration, &t.QuestionCount, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}
