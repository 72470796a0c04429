package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
)

// AttemptRepository handles the durable attempt and answer rows. These are
// the source of truth for scoring; the Redis session entry is only a cache
// on top of them.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// GetByIDAndUser retrieves an attempt owned by the given user.
// Returns pgx.ErrNoRows for unknown or foreign attempts.
func (r *AttemptRepository) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, mode, started_at, finished_at, score, duration
		 FROM test_attempts
		 WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&a.ID, &a.TestID, &a.UserID, &a.Mode, &a.StartedAt, &a.FinishedAt, &a.Score, &a.Duration)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetActiveByTestAndUser returns the newest unsealed attempt for the
// (test, user) pair, or nil when there is none.
func (r *AttemptRepository) GetActiveByTestAndUser(ctx context.Context, testID, userID uuid.UUID) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, mode, started_at, finished_at, score, duration
		 FROM test_attempts
		 WHERE test_id = $1 AND user_id = $2 AND finished_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`, testID, userID,
	).Scan(&a.ID, &a.TestID, &a.UserID, &a.Mode, &a.StartedAt, &a.FinishedAt, &a.Score, &a.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// CreateWithAnswers inserts the attempt and one empty answer row per drawn
// question in a single transaction. The answer row set is fixed here and
// never grows or shrinks afterwards.
func (r *AttemptRepository) CreateWithAnswers(ctx context.Context, a *model.TestAttempt, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO test_attempts (test_id, user_id, mode)
		 VALUES ($1, $2, $3)
		 RETURNING id, started_at`,
		a.TestID, a.UserID, a.Mode).Scan(&a.ID, &a.StartedAt)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}

	// position records the presentation order of the drawn questions.
	_, err = tx.Exec(ctx,
		`INSERT INTO answers (attempt_id, question_id, position)
		 SELECT $1, q.id, q.ord
		 FROM UNNEST($2::uuid[]) WITH ORDINALITY AS q (id, ord)`,
		a.ID, questionIDs)
	if err != nil {
		return fmt.Errorf("insert answers: %w", err)
	}

	return tx.Commit(ctx)
}

// UpdateAnswer records a selection on the attempt's answer row for the
// question. Last write wins; resubmitting the same question overwrites the
// previous selection. Returns pgx.ErrNoRows when the question is not part of
// the attempt or the option does not belong to the question.
func (r *AttemptRepository) UpdateAnswer(ctx context.Context, attemptID, questionID, optionID uuid.UUID, isCorrect bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE answers
		 SET selected_option_id = $3, is_correct = $4
		 WHERE attempt_id = $1 AND question_id = $2
		   AND EXISTS (SELECT 1 FROM options o WHERE o.id = $3 AND o.question_id = $2)`,
		attemptID, questionID, optionID, isCorrect)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Counts aggregates the attempt's answer rows.
func (r *AttemptRepository) Counts(ctx context.Context, attemptID uuid.UUID) (model.AnswerCounts, error) {
	var c model.AnswerCounts
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE selected_option_id IS NOT NULL),
		        COUNT(*) FILTER (WHERE is_correct)
		 FROM answers
		 WHERE attempt_id = $1`, attemptID,
	).Scan(&c.Total, &c.Answered, &c.Correct)
	return c, err
}

// Seal writes finished_at, duration and score together, once. The
// finished_at IS NULL guard makes concurrent sealers race safely: exactly
// one caller gets sealed=true.
func (r *AttemptRepository) Seal(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, durationMinutes int, score float64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_attempts
		 SET finished_at = $2, duration = $3, score = $4
		 WHERE id = $1 AND finished_at IS NULL`,
		attemptID, finishedAt, durationMinutes, score)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
