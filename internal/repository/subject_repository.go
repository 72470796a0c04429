package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

type SubjectRepository struct {
	pool *pgxpool.Pool
}

func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{pool: pool}
}

func (r *SubjectRepository) GetAll(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, COALESCE(s.description, ''),
		        (SELECT COUNT(*) FROM themes t WHERE t.subject_id = s.id),
		        s.created_at, s.updated_at
		 FROM subjects s
		 ORDER BY s.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.ThemeCount, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error) {
	s := &model.Subject{}
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.name, COALESCE(s.description, ''),
		        (SELECT COUNT(*) FROM themes t WHERE t.subject_id = s.id),
		        s.created_at, s.updated_at
		 FROM subjects s
		 WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Description, &s.ThemeCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SubjectRepository) Create(ctx context.Context, s *model.Subject) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO subjects (name, description) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		s.Name, s.Description).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}
