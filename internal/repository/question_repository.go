package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

// QuestionRepository handles question and option data access. Questions are
// read-only from the engine's perspective; all list methods return them in
// stable creation order with their options attached.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTheme retrieves the full question pool of a theme (all its tests).
func (r *QuestionRepository) ListByTheme(ctx context.Context, themeID uuid.UUID) ([]model.Question, error) {
	return r.list(ctx,
		`SELECT q.id, q.test_id, COALESCE(q.text, ''), COALESCE(q.image, ''), q.created_at
		 FROM questions q
		 JOIN tests t ON q.test_id = t.id
		 WHERE t.theme_id = $1
		 ORDER BY q.created_at ASC, q.id ASC`, themeID)
}

// ListBySubject retrieves the question pool across every theme of a subject.
func (r *QuestionRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Question, error) {
	return r.list(ctx,
		`SELECT q.id, q.test_id, COALESCE(q.text, ''), COALESCE(q.image, ''), q.created_at
		 FROM questions q
		 JOIN tests t ON q.test_id = t.id
		 JOIN themes th ON t.theme_id = th.id
		 WHERE th.subject_id = $1
		 ORDER BY q.created_at ASC, q.id ASC`, subjectID)
}

// ListByIDs retrieves questions by id, returned in the order of ids.
func (r *QuestionRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	questions, err := r.list(ctx,
		`SELECT q.id, q.test_id, COALESCE(q.text, ''), COALESCE(q.image, ''), q.created_at
		 FROM questions q
		 WHERE q.id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered, nil
}

// Create inserts a question with its options in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO questions (test_id, text, image) VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		q.TestID, q.Text, q.Image).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}

	for i := range q.Options {
		opt := &q.Options[i]
		opt.QuestionID = q.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO options (question_id, text, image, is_correct)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			opt.QuestionID, opt.Text, opt.Image, opt.IsCorrect).Scan(&opt.ID)
		if err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// list runs a question query and attaches options to every returned row.
func (r *QuestionRepository) list(ctx context.Context, query string, arg any) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Text, &q.Image, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(questions))
	index := make(map[uuid.UUID]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
		index[q.ID] = i
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT id, question_id, COALESCE(text, ''), COALESCE(image, ''), is_correct
		 FROM options
		 WHERE question_id = ANY($1::uuid[])
		 ORDER BY created_at ASC, id ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var o model.Option
		if err := optRows.Scan(&o.ID, &o.QuestionID, &o.Text, &o.Image, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[o.QuestionID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}
