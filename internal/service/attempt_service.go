package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
	"github.com/sodiqdevpython/quizcore-backend/internal/signing"
)

// Domain errors surfaced to the HTTP layer.
var (
	ErrPoolEmpty  = errors.New("no questions available in the requested scope")
	ErrNotFound   = errors.New("attempt not found")
	ErrInvalidTag = errors.New("tag matches neither expected value")
)

const (
	// metaGrace keeps the session entry alive past the deadline so a slow
	// finish or a reconnect can still observe the expiry instead of a miss.
	metaGrace = time.Hour
	// defaultMinutesPerQuestion sizes the exam when neither the request nor
	// the test specifies a duration.
	defaultMinutesPerQuestion = 2
)

type themeSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Theme, error)
}

type testSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error)
	GetOrCreateForTheme(ctx context.Context, theme *model.Theme) (*model.Test, error)
}

type questionSource interface {
	ListByTheme(ctx context.Context, themeID uuid.UUID) ([]model.Question, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]model.Question, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

type attemptStore interface {
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*model.TestAttempt, error)
	GetActiveByTestAndUser(ctx context.Context, testID, userID uuid.UUID) (*model.TestAttempt, error)
	CreateWithAnswers(ctx context.Context, a *model.TestAttempt, questionIDs []uuid.UUID) error
	UpdateAnswer(ctx context.Context, attemptID, questionID, optionID uuid.UUID, isCorrect bool) error
	Counts(ctx context.Context, attemptID uuid.UUID) (model.AnswerCounts, error)
	Seal(ctx context.Context, attemptID uuid.UUID, finishedAt time.Time, durationMinutes int, score float64) (bool, error)
}

type metaStore interface {
	Put(ctx context.Context, attemptID uuid.UUID, meta *model.AttemptMeta, ttl time.Duration) error
	Get(ctx context.Context, attemptID uuid.UUID) (*model.AttemptMeta, error)
	Delete(ctx context.Context, attemptID uuid.UUID) error
}

type statsNotifier interface {
	NotifyAttemptSealed(ctx context.Context, userID uuid.UUID) error
}

// AttemptService drives the attempt state machine: start (with resume),
// answer submission with tag verification, lazy expiry and exactly-once
// sealing.
type AttemptService struct {
	themes    themeSource
	tests     testSource
	questions questionSource
	attempts  attemptStore
	meta      metaStore
	stats     statsNotifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	themes themeSource,
	tests testSource,
	questions questionSource,
	attempts attemptStore,
	meta metaStore,
	stats statsNotifier,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		themes:    themes,
		tests:     tests,
		questions: questions,
		attempts:  attempts,
		meta:      meta,
		stats:     stats,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// Start begins a new attempt for the user against the theme's test, or
// resumes the user's active attempt when its session is still alive. An
// active attempt whose session is gone or past the deadline is sealed first,
// so at most one active attempt exists per (user, test) pair.
func (s *AttemptService) Start(ctx context.Context, themeID, userID uuid.UUID, req model.StartAttemptRequest) (*model.StartAttemptResponse, error) {
	theme, err := s.themes.GetByID(ctx, themeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get theme: %w", err)
	}

	test, err := s.tests.GetOrCreateForTheme(ctx, theme)
	if err != nil {
		return nil, fmt.Errorf("get or create test: %w", err)
	}

	active, err := s.attempts.GetActiveByTestAndUser(ctx, test.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	if active != nil {
		meta, err := s.meta.Get(ctx, active.ID)
		if err != nil {
			return nil, fmt.Errorf("get attempt meta: %w", err)
		}
		if meta != nil && s.now().Before(meta.ExpiresAt) {
			return s.resume(ctx, active, theme.ID, test.ID, meta, req)
		}
		// Session lost or deadline passed: score whatever was answered and
		// fall through to a fresh attempt.
		if _, err := s.seal(ctx, active); err != nil {
			return nil, fmt.Errorf("seal stale attempt: %w", err)
		}
	}

	pool, err := s.loadPool(ctx, theme, req.Scope)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrPoolEmpty
	}

	questions := drawQuestions(pool, req.Order, req.Count)

	attempt := &model.TestAttempt{
		TestID: test.ID,
		UserID: userID,
		Mode:   req.Mode,
	}
	orderIDs := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		orderIDs[i] = q.ID
	}
	if err := s.attempts.CreateWithAnswers(ctx, attempt, orderIDs); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	duration := s.effectiveDuration(req.Duration, test.DefaultDuration, len(questions))
	expiresAt := attempt.StartedAt.Add(time.Duration(duration) * time.Minute)

	secret, err := signing.NewSecret()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	salts := make(map[string]string)
	for _, q := range questions {
		for _, opt := range q.Options {
			salt, err := signing.NewSalt()
			if err != nil {
				return nil, fmt.Errorf("generate salt: %w", err)
			}
			salts[opt.ID.String()] = salt
		}
	}

	meta := &model.AttemptMeta{
		Secret:     secret,
		Salts:      salts,
		OrderIDs:   orderIDs,
		CurrentIdx: 0,
		ExpiresAt:  expiresAt,
	}
	ttl := time.Duration(duration)*time.Minute + metaGrace
	if err := s.meta.Put(ctx, attempt.ID, meta, ttl); err != nil {
		return nil, fmt.Errorf("store attempt meta: %w", err)
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("user_id", userID.String()).
		Int("questions", len(questions)).
		Int("duration_minutes", duration).
		Msg("Attempt started")

	return s.buildStartResponse(attempt, theme.ID, test.ID, questions, meta, req, duration, false), nil
}

// Answer verifies the claimed tag and records the selection. When the
// deadline has passed (or the session entry is gone) the answer is not
// recorded: the attempt is sealed and the finish result returned instead.
func (s *AttemptService) Answer(ctx context.Context, attemptID, userID uuid.UUID, req model.SubmitAnswerRequest) (*model.SubmitAnswerResponse, *model.FinishAttemptResponse, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.FinishedAt != nil {
		fin, err := s.sealedResult(ctx, attempt)
		return nil, fin, err
	}

	meta, err := s.meta.Get(ctx, attemptID)
	if err != nil {
		return nil, nil, fmt.Errorf("get attempt meta: %w", err)
	}
	// A lost session entry also carried the anti-cheat secret, so the only
	// safe degradation is toward ending the attempt.
	if meta == nil || !s.now().Before(meta.ExpiresAt) {
		fin, err := s.seal(ctx, attempt)
		return nil, fin, err
	}

	salt, ok := meta.Salts[req.OptionID.String()]
	if !ok {
		return nil, nil, ErrInvalidTag
	}

	signer := signing.NewSigner(meta.Secret)
	claim := signing.Claim{
		QuestionID: req.QuestionID,
		OptionID:   req.OptionID,
		Salt:       salt,
	}
	var isCorrect bool
	claim.Correct = true
	switch {
	case signer.Verify(req.Tag, claim):
		isCorrect = true
	default:
		claim.Correct = false
		if !signer.Verify(req.Tag, claim) {
			return nil, nil, ErrInvalidTag
		}
		isCorrect = false
	}

	if err := s.attempts.UpdateAnswer(ctx, attemptID, req.QuestionID, req.OptionID, isCorrect); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("update answer: %w", err)
	}

	// current_idx is a high-water mark, not a gate: out-of-order answers are
	// always accepted.
	for idx, qid := range meta.OrderIDs {
		if qid == req.QuestionID {
			if idx+1 > meta.CurrentIdx {
				meta.CurrentIdx = idx + 1
			}
			break
		}
	}
	ttl := time.Until(meta.ExpiresAt) + metaGrace
	if err := s.meta.Put(ctx, attemptID, meta, ttl); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to refresh attempt meta")
	}

	remaining := int(meta.ExpiresAt.Sub(s.now()).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	return &model.SubmitAnswerResponse{
		AttemptID:        attemptID,
		QuestionID:       req.QuestionID,
		OptionID:         req.OptionID,
		IsCorrect:        isCorrect,
		CurrentIdx:       meta.CurrentIdx,
		Total:            len(meta.OrderIDs),
		RemainingSeconds: remaining,
	}, nil, nil
}

// State returns the progress snapshot. A passed deadline observed here seals
// the attempt before responding.
func (s *AttemptService) State(ctx context.Context, attemptID, userID uuid.UUID) (*model.AttemptStateResponse, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	meta, err := s.meta.Get(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt meta: %w", err)
	}

	var expiresAt time.Time
	var currentIdx, total int

	if meta != nil {
		expiresAt = meta.ExpiresAt
		if !s.now().Before(expiresAt) && attempt.FinishedAt == nil {
			if _, err := s.seal(ctx, attempt); err != nil {
				return nil, err
			}
		}
		currentIdx = meta.CurrentIdx
		total = len(meta.OrderIDs)
	}

	counts, err := s.attempts.Counts(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	if meta == nil {
		// Cache entry evicted: reconstruct a best-effort deadline from the
		// durable rows and the test default.
		test, err := s.tests.GetByID(ctx, attempt.TestID)
		if err != nil {
			return nil, fmt.Errorf("get test: %w", err)
		}
		expiresAt = attempt.StartedAt.Add(time.Duration(test.DefaultDuration) * time.Minute)
		currentIdx = counts.Answered
		total = counts.Total
	}

	return &model.AttemptStateResponse{
		AttemptID:  attempt.ID,
		StartedAt:  attempt.StartedAt,
		ExpiresAt:  expiresAt,
		FinishedAt: attempt.FinishedAt,
		CurrentIdx: currentIdx,
		Total:      total,
		Answered:   counts.Answered,
		Correct:    counts.Correct,
		Score:      attempt.Score,
	}, nil
}

// Finish seals the attempt, idempotently: a second call returns the stored
// result unchanged.
func (s *AttemptService) Finish(ctx context.Context, attemptID, userID uuid.UUID) (*model.FinishAttemptResponse, error) {
	attempt, err := s.getOwned(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.FinishedAt != nil {
		return s.sealedResult(ctx, attempt)
	}
	return s.seal(ctx, attempt)
}

// ────────────────────────────────────────────────────────────────────────────
// Internals
// ────────────────────────────────────────────────────────────────────────────

func (s *AttemptService) getOwned(ctx context.Context, attemptID, userID uuid.UUID) (*model.TestAttempt, error) {
	attempt, err := s.attempts.GetByIDAndUser(ctx, attemptID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

func (s *AttemptService) loadPool(ctx context.Context, theme *model.Theme, scope model.PoolScope) ([]model.Question, error) {
	if scope == model.ScopeSubject {
		pool, err := s.questions.ListBySubject(ctx, theme.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("list subject pool: %w", err)
		}
		return pool, nil
	}
	pool, err := s.questions.ListByTheme(ctx, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("list theme pool: %w", err)
	}
	return pool, nil
}

func (s *AttemptService) effectiveDuration(requested, testDefault, questionCount int) int {
	if requested > 0 {
		return requested
	}
	if testDefault > 0 {
		return testDefault
	}
	return defaultMinutesPerQuestion * questionCount
}

// resume returns the active attempt unchanged: same id, secret, salts and
// question order. Only the option order is fresh, it is re-shuffled on every
// read.
func (s *AttemptService) resume(ctx context.Context, attempt *model.TestAttempt, themeID, testID uuid.UUID, meta *model.AttemptMeta, req model.StartAttemptRequest) (*model.StartAttemptResponse, error) {
	questions, err := s.questions.ListByIDs(ctx, meta.OrderIDs)
	if err != nil {
		return nil, fmt.Errorf("load attempt questions: %w", err)
	}

	duration := int(meta.ExpiresAt.Sub(attempt.StartedAt) / time.Minute)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("user_id", attempt.UserID.String()).
		Msg("Attempt resumed")

	return s.buildStartResponse(attempt, themeID, testID, questions, meta, req, duration, true), nil
}

func (s *AttemptService) buildStartResponse(
	attempt *model.TestAttempt,
	themeID, testID uuid.UUID,
	questions []model.Question,
	meta *model.AttemptMeta,
	req model.StartAttemptRequest,
	duration int,
	resumed bool,
) *model.StartAttemptResponse {
	signer := signing.NewSigner(meta.Secret)

	out := make([]model.AttemptQuestion, 0, len(questions))
	for _, q := range questions {
		aq := model.AttemptQuestion{
			ID:    q.ID,
			Text:  q.Text,
			Image: q.Image,
		}
		for _, opt := range shuffledOptions(q.Options) {
			salt := meta.Salts[opt.ID.String()]
			claim := signing.Claim{QuestionID: q.ID, OptionID: opt.ID, Salt: salt}
			claim.Correct = true
			tagTrue := signer.Sign(claim)
			claim.Correct = false
			tagFalse := signer.Sign(claim)

			if opt.IsCorrect {
				aq.CorrectToken = tagTrue
			}

			// The pair is sorted so its order never reveals which tag carries
			// the true flag.
			pair := [2]string{tagTrue, tagFalse}
			sort.Strings(pair[:])

			aq.Options = append(aq.Options, model.AttemptOption{
				ID:    opt.ID,
				Text:  opt.Text,
				Image: opt.Image,
				Tags:  pair,
			})
		}
		out = append(out, aq)
	}

	return &model.StartAttemptResponse{
		AttemptID: attempt.ID,
		ThemeID:   themeID,
		TestID:    testID,
		Count:     len(questions),
		Order:     req.Order,
		Mode:      attempt.Mode,
		Duration:  duration,
		ExpiresAt: meta.ExpiresAt,
		Resumed:   resumed,
		Questions: out,
	}
}

// seal computes the final score from the durable answer rows and writes
// finished_at, duration and score together. The conditional update makes the
// transition exactly-once even when Answer, State and Finish race to seal.
func (s *AttemptService) seal(ctx context.Context, attempt *model.TestAttempt) (*model.FinishAttemptResponse, error) {
	counts, err := s.attempts.Counts(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	score := ComputeScore(counts.Correct, counts.Total)
	finishedAt := s.now()
	durationMinutes := int(finishedAt.Sub(attempt.StartedAt) / time.Minute)

	sealed, err := s.attempts.Seal(ctx, attempt.ID, finishedAt, durationMinutes, score)
	if err != nil {
		return nil, fmt.Errorf("seal attempt: %w", err)
	}

	if sealed {
		attempt.FinishedAt = &finishedAt
		attempt.Duration = &durationMinutes
		attempt.Score = &score

		if err := s.stats.NotifyAttemptSealed(ctx, attempt.UserID); err != nil {
			s.log.Warn().Err(err).Str("user_id", attempt.UserID.String()).Msg("Failed to enqueue user stats")
		}
		if err := s.meta.Delete(ctx, attempt.ID); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to delete attempt meta")
		}

		s.log.Info().
			Str("attempt_id", attempt.ID.String()).
			Float64("score", score).
			Int("correct", counts.Correct).
			Int("total", counts.Total).
			Msg("Attempt sealed")
	} else {
		// Lost the race to a concurrent sealer: report its stored result.
		stored, err := s.attempts.GetByIDAndUser(ctx, attempt.ID, attempt.UserID)
		if err != nil {
			return nil, fmt.Errorf("reread sealed attempt: %w", err)
		}
		*attempt = *stored
		if attempt.Score != nil {
			score = *attempt.Score
		}
	}

	return &model.FinishAttemptResponse{
		AttemptID: attempt.ID,
		Finished:  true,
		Correct:   counts.Correct,
		Total:     counts.Total,
		Score:     score,
	}, nil
}

// sealedResult rebuilds the finish response of an already sealed attempt
// from its durable rows, without touching finished_at.
func (s *AttemptService) sealedResult(ctx context.Context, attempt *model.TestAttempt) (*model.FinishAttemptResponse, error) {
	counts, err := s.attempts.Counts(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	score := 0.0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	return &model.FinishAttemptResponse{
		AttemptID: attempt.ID,
		Finished:  true,
		Correct:   counts.Correct,
		Total:     counts.Total,
		Score:     score,
	}, nil
}
