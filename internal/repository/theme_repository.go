package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

type ThemeRepository struct {
	pool *pgxpool.Pool
}

func NewThemeRepository(pool *pgxpool.Pool) *ThemeRepository {
	return &ThemeRepository{pool: pool}
}

// GetAll retrieves every theme, ordered by creation time.
func (r *ThemeRepository) GetAll(ctx context.Context) ([]model.Theme, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, name, duration, created_at, updated_at
		 FROM themes
		 ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []model.Theme
	for rows.Next() {
		var t model.Theme
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

// ListBySubject retrieves all themes of a subject, ordered by creation time.
func (r *ThemeRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Theme, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject_id, name, duration, created_at, updated_at
		 FROM themes
		 WHERE subject_id = $1
		 ORDER BY created_at ASC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var themes []model.Theme
	for rows.Next() {
		var t model.Theme
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		themes = append(themes, t)
	}
	return themes, rows.Err()
}

func (r *ThemeRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Theme, error) {
	t := &model.Theme{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject_id, name, duration, created_at, updated_at
		 FROM themes WHERE id = $1`, id,
	).Scan(&t.ID, &t.SubjectID, &t.Name, &t.Duration, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *ThemeRepository) Create(ctx context.Context, t *model.Theme) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO themes (subject_id, name, duration) VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		t.SubjectID, t.Name, t.Duration).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}
