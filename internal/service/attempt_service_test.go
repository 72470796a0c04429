package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/sodiqdevpython/quizcore-backend/internal/model"
	"github.com/sodiqdevpython/quizcore-backend/internal/signing"
)

// ── in-memory fakes ─────────────────────────────────────────────────────────

type fakeThemes struct {
	themes map[uuid.UUID]*model.Theme
}

func (f *fakeThemes) GetByID(_ context.Context, id uuid.UUID) (*model.Theme, error) {
	t, ok := f.themes[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

type fakeTests struct {
	byID    map[uuid.UUID]*model.Test
	byTheme map[uuid.UUID]*model.Test
}

func (f *fakeTests) GetByID(_ context.Context, id uuid.UUID) (*model.Test, error) {
	t, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTests) GetOrCreateForTheme(_ context.Context, theme *model.Theme) (*model.Test, error) {
	if t, ok := f.byTheme[theme.ID]; ok {
		cp := *t
		return &cp, nil
	}
	dur := theme.Duration
	if dur <= 0 {
		dur = 30
	}
	t := &model.Test{ID: uuid.New(), ThemeID: theme.ID, Name: theme.Name, DefaultDuration: dur}
	f.byID[t.ID] = t
	f.byTheme[theme.ID] = t
	cp := *t
	return &cp, nil
}

type fakeQuestions struct {
	byTheme   map[uuid.UUID][]model.Question
	bySubject map[uuid.UUID][]model.Question
}

func (f *fakeQuestions) ListByTheme(_ context.Context, themeID uuid.UUID) ([]model.Question, error) {
	return f.byTheme[themeID], nil
}

func (f *fakeQuestions) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]model.Question, error) {
	return f.bySubject[subjectID], nil
}

func (f *fakeQuestions) ListByIDs(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	index := make(map[uuid.UUID]model.Question)
	for _, pool := range f.byTheme {
		for _, q := range pool {
			index[q.ID] = q
		}
	}
	for _, pool := range f.bySubject {
		for _, q := range pool {
			index[q.ID] = q
		}
	}
	out := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := index[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

type answerRow struct {
	questionID uuid.UUID
	optionID   *uuid.UUID
	isCorrect  bool
}

type fakeAttempts struct {
	now      func() time.Time
	attempts map[uuid.UUID]*model.TestAttempt
	answers  map[uuid.UUID][]*answerRow
}

func (f *fakeAttempts) GetByIDAndUser(_ context.Context, id, userID uuid.UUID) (*model.TestAttempt, error) {
	a, ok := f.attempts[id]
	if !ok || a.UserID != userID {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) GetActiveByTestAndUser(_ context.Context, testID, userID uuid.UUID) (*model.TestAttempt, error) {
	for _, a := range f.attempts {
		if a.TestID == testID && a.UserID == userID && a.FinishedAt == nil {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAttempts) CreateWithAnswers(_ context.Context, a *model.TestAttempt, questionIDs []uuid.UUID) error {
	a.ID = uuid.New()
	a.StartedAt = f.now()
	cp := *a
	f.attempts[a.ID] = &cp
	rows := make([]*answerRow, len(questionIDs))
	for i, qid := range questionIDs {
		rows[i] = &answerRow{questionID: qid}
	}
	f.answers[a.ID] = rows
	return nil
}

func (f *fakeAttempts) UpdateAnswer(_ context.Context, attemptID, questionID, optionID uuid.UUID, isCorrect bool) error {
	for _, row := range f.answers[attemptID] {
		if row.questionID == questionID {
			oid := optionID
			row.optionID = &oid
			row.isCorrect = isCorrect
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeAttempts) Counts(_ context.Context, attemptID uuid.UUID) (model.AnswerCounts, error) {
	var c model.AnswerCounts
	for _, row := range f.answers[attemptID] {
		c.Total++
		if row.optionID != nil {
			c.Answered++
			if row.isCorrect {
				c.Correct++
			}
		}
	}
	return c, nil
}

func (f *fakeAttempts) Seal(_ context.Context, attemptID uuid.UUID, finishedAt time.Time, durationMinutes int, score float64) (bool, error) {
	a, ok := f.attempts[attemptID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if a.FinishedAt != nil {
		return false, nil
	}
	a.FinishedAt = &finishedAt
	a.Duration = &durationMinutes
	a.Score = &score
	return true, nil
}

type fakeMeta struct {
	data map[uuid.UUID]*model.AttemptMeta
}

func (f *fakeMeta) Put(_ context.Context, attemptID uuid.UUID, meta *model.AttemptMeta, _ time.Duration) error {
	cp := *meta
	f.data[attemptID] = &cp
	return nil
}

func (f *fakeMeta) Get(_ context.Context, attemptID uuid.UUID) (*model.AttemptMeta, error) {
	m, ok := f.data[attemptID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMeta) Delete(_ context.Context, attemptID uuid.UUID) error {
	delete(f.data, attemptID)
	return nil
}

type fakeStats struct {
	notified []uuid.UUID
}

func (f *fakeStats) NotifyAttemptSealed(_ context.Context, userID uuid.UUID) error {
	f.notified = append(f.notified, userID)
	return nil
}

// ── fixture ─────────────────────────────────────────────────────────────────

type attemptEnv struct {
	svc       *AttemptService
	themes    *fakeThemes
	tests     *fakeTests
	questions *fakeQuestions
	attempts  *fakeAttempts
	meta      *fakeMeta
	stats     *fakeStats
	clock     time.Time

	userID    uuid.UUID
	subjectID uuid.UUID
	themeID   uuid.UUID
}

func newAttemptEnv(t *testing.T, questionCount int) *attemptEnv {
	t.Helper()

	env := &attemptEnv{
		themes:    &fakeThemes{themes: make(map[uuid.UUID]*model.Theme)},
		tests:     &fakeTests{byID: make(map[uuid.UUID]*model.Test), byTheme: make(map[uuid.UUID]*model.Test)},
		questions: &fakeQuestions{byTheme: make(map[uuid.UUID][]model.Question), bySubject: make(map[uuid.UUID][]model.Question)},
		meta:      &fakeMeta{data: make(map[uuid.UUID]*model.AttemptMeta)},
		stats:     &fakeStats{},
		clock:     time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		userID:    uuid.New(),
		subjectID: uuid.New(),
		themeID:   uuid.New(),
	}
	env.attempts = &fakeAttempts{
		now:      func() time.Time { return env.clock },
		attempts: make(map[uuid.UUID]*model.TestAttempt),
		answers:  make(map[uuid.UUID][]*answerRow),
	}

	env.themes.themes[env.themeID] = &model.Theme{
		ID:        env.themeID,
		SubjectID: env.subjectID,
		Name:      "Algebra",
		Duration:  30,
	}

	pool := make([]model.Question, questionCount)
	for i := range pool {
		q := model.Question{ID: uuid.New(), Text: "question"}
		for j := 0; j < 4; j++ {
			q.Options = append(q.Options, model.Option{
				ID:         uuid.New(),
				QuestionID: q.ID,
				Text:       "option",
				IsCorrect:  j == 0,
			})
		}
		pool[i] = q
	}
	env.questions.byTheme[env.themeID] = pool
	env.questions.bySubject[env.subjectID] = pool

	env.svc = NewAttemptService(env.themes, env.tests, env.questions, env.attempts, env.meta, env.stats, zerolog.Nop())
	env.svc.now = func() time.Time { return env.clock }

	return env
}

func (e *attemptEnv) advance(d time.Duration) {
	e.clock = e.clock.Add(d)
}

func (e *attemptEnv) start(t *testing.T, req model.StartAttemptRequest) *model.StartAttemptResponse {
	t.Helper()
	resp, err := e.svc.Start(context.Background(), e.themeID, e.userID, req)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return resp
}

func defaultStartReq() model.StartAttemptRequest {
	return model.StartAttemptRequest{
		Count: 10,
		Order: model.OrderRandom,
		Mode:  model.AttemptModeSequential,
	}
}

// correctChoice returns the correct option's id together with its true-flag
// tag, identified through the question's correct_token.
func correctChoice(t *testing.T, q model.AttemptQuestion) (uuid.UUID, string) {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Tags[0] == q.CorrectToken || opt.Tags[1] == q.CorrectToken {
			return opt.ID, q.CorrectToken
		}
	}
	t.Fatalf("no option carries the correct token")
	return uuid.Nil, ""
}

// wrongChoice returns the correct option's id with its false-flag tag, which
// is the tag of the pair that is not the correct token.
func wrongChoice(t *testing.T, q model.AttemptQuestion) (uuid.UUID, string) {
	t.Helper()
	for _, opt := range q.Options {
		if opt.Tags[0] == q.CorrectToken {
			return opt.ID, opt.Tags[1]
		}
		if opt.Tags[1] == q.CorrectToken {
			return opt.ID, opt.Tags[0]
		}
	}
	t.Fatalf("no option carries the correct token")
	return uuid.Nil, ""
}

// ── Start ───────────────────────────────────────────────────────────────────

func TestStartAttempt_DrawCounts(t *testing.T) {
	tests := []struct {
		name  string
		pool  int
		count int
		want  int
	}{
		{name: "count below pool", pool: 30, count: 10, want: 10},
		{name: "count equals pool", pool: 20, count: 20, want: 20},
		{name: "count above pool", pool: 7, count: 50, want: 7},
		{name: "count zero takes all", pool: 17, count: 0, want: 17},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newAttemptEnv(t, tc.pool)
			req := defaultStartReq()
			req.Count = tc.count

			resp := env.start(t, req)

			if resp.Count != tc.want || len(resp.Questions) != tc.want {
				t.Fatalf("got count=%d questions=%d, want %d", resp.Count, len(resp.Questions), tc.want)
			}
			meta := env.meta.data[resp.AttemptID]
			if meta == nil {
				t.Fatal("no session entry stored")
			}
			if len(meta.OrderIDs) != tc.want {
				t.Fatalf("session holds %d question ids, want %d", len(meta.OrderIDs), tc.want)
			}
		})
	}
}

func TestStartAttempt_EmptyPool(t *testing.T) {
	env := newAttemptEnv(t, 0)

	_, err := env.svc.Start(context.Background(), env.themeID, env.userID, defaultStartReq())
	if !errors.Is(err, ErrPoolEmpty) {
		t.Fatalf("got %v, want ErrPoolEmpty", err)
	}
	if len(env.attempts.attempts) != 0 {
		t.Fatal("attempt created despite empty pool")
	}
}

func TestStartAttempt_UnknownTheme(t *testing.T) {
	env := newAttemptEnv(t, 5)

	_, err := env.svc.Start(context.Background(), uuid.New(), env.userID, defaultStartReq())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestStartAttempt_SequentialOrderIsStable(t *testing.T) {
	env := newAttemptEnv(t, 12)
	req := defaultStartReq()
	req.Order = model.OrderSequential
	req.Count = 10

	resp := env.start(t, req)

	pool := env.questions.byTheme[env.themeID]
	for i, q := range resp.Questions {
		if q.ID != pool[i].ID {
			t.Fatalf("question %d out of pool order", i)
		}
	}
}

func TestStartAttempt_DurationPrecedence(t *testing.T) {
	tests := []struct {
		name        string
		reqDuration int
		testDefault int
		count       int
		want        int
	}{
		{name: "request overrides", reqDuration: 45, testDefault: 30, count: 10, want: 45},
		{name: "test default", reqDuration: 0, testDefault: 30, count: 10, want: 30},
		{name: "per question fallback", reqDuration: 0, testDefault: 0, count: 10, want: 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newAttemptEnv(t, 10)
			test := &model.Test{ID: uuid.New(), ThemeID: env.themeID, Name: "Algebra", DefaultDuration: tc.testDefault}
			env.tests.byID[test.ID] = test
			env.tests.byTheme[env.themeID] = test

			req := defaultStartReq()
			req.Count = tc.count
			req.Duration = tc.reqDuration

			resp := env.start(t, req)

			if resp.Duration != tc.want {
				t.Fatalf("duration = %d, want %d", resp.Duration, tc.want)
			}
			wantExpiry := env.clock.Add(time.Duration(tc.want) * time.Minute)
			if !resp.ExpiresAt.Equal(wantExpiry) {
				t.Fatalf("expires_at = %v, want %v", resp.ExpiresAt, wantExpiry)
			}
		})
	}
}

func TestStartAttempt_TagContract(t *testing.T) {
	env := newAttemptEnv(t, 5)
	resp := env.start(t, defaultStartReq())

	meta := env.meta.data[resp.AttemptID]
	signer := signing.NewSigner(meta.Secret)

	for _, q := range resp.Questions {
		if len(q.CorrectToken) != 64 {
			t.Fatalf("correct token length = %d, want 64", len(q.CorrectToken))
		}
		correctTokens := 0
		for _, opt := range q.Options {
			if opt.Tags[0] >= opt.Tags[1] {
				t.Fatal("tag pair not sorted")
			}
			salt := meta.Salts[opt.ID.String()]
			if len(salt) != 16 {
				t.Fatalf("salt length = %d, want 16", len(salt))
			}
			trueTag := signer.Sign(signing.Claim{QuestionID: q.ID, OptionID: opt.ID, Correct: true, Salt: salt})
			falseTag := signer.Sign(signing.Claim{QuestionID: q.ID, OptionID: opt.ID, Correct: false, Salt: salt})
			if opt.Tags[0] != trueTag && opt.Tags[1] != trueTag {
				t.Fatal("true tag missing from pair")
			}
			if opt.Tags[0] != falseTag && opt.Tags[1] != falseTag {
				t.Fatal("false tag missing from pair")
			}
			if trueTag == q.CorrectToken {
				correctTokens++
			}
		}
		if correctTokens != 1 {
			t.Fatalf("correct token matches %d options, want exactly 1", correctTokens)
		}
	}
}

func TestStartAttempt_ResumesActive(t *testing.T) {
	env := newAttemptEnv(t, 20)
	first := env.start(t, defaultStartReq())

	env.advance(5 * time.Minute)
	second := env.start(t, defaultStartReq())

	if !second.Resumed {
		t.Fatal("second start did not resume")
	}
	if second.AttemptID != first.AttemptID {
		t.Fatal("resume returned a different attempt")
	}
	if len(env.attempts.attempts) != 1 {
		t.Fatalf("attempt count = %d, want 1", len(env.attempts.attempts))
	}
	if len(second.Questions) != len(first.Questions) {
		t.Fatalf("resumed question count = %d, want %d", len(second.Questions), len(first.Questions))
	}
	for i := range first.Questions {
		if second.Questions[i].ID != first.Questions[i].ID {
			t.Fatalf("resumed question %d differs from original order", i)
		}
		if second.Questions[i].CorrectToken != first.Questions[i].CorrectToken {
			t.Fatalf("resumed question %d has a different correct token", i)
		}
	}
	if !second.ExpiresAt.Equal(first.ExpiresAt) {
		t.Fatal("resume moved the deadline")
	}
}

func TestStartAttempt_ExpiredActiveIsSealed(t *testing.T) {
	env := newAttemptEnv(t, 20)
	first := env.start(t, defaultStartReq())

	q := first.Questions[0]
	optID, tag := correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), first.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	env.advance(31 * time.Minute)
	second := env.start(t, defaultStartReq())

	if second.Resumed {
		t.Fatal("expired attempt resumed")
	}
	if second.AttemptID == first.AttemptID {
		t.Fatal("expected a fresh attempt")
	}

	old := env.attempts.attempts[first.AttemptID]
	if old.FinishedAt == nil {
		t.Fatal("expired attempt not sealed")
	}
	if old.Score == nil || *old.Score != 10.0 {
		t.Fatalf("sealed score = %v, want 10.0", old.Score)
	}
	if len(env.stats.notified) != 1 || env.stats.notified[0] != env.userID {
		t.Fatalf("stats notifications = %v, want one for the user", env.stats.notified)
	}
}

// ── Answer ──────────────────────────────────────────────────────────────────

func TestAnswer_RecordsCorrectAndWrong(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q0 := resp.Questions[0]
	optID, tag := correctChoice(t, q0)
	ans, fin, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q0.ID, OptionID: optID, Tag: tag,
	})
	if err != nil || fin != nil {
		t.Fatalf("Answer: ans=%v fin=%v err=%v", ans, fin, err)
	}
	if !ans.IsCorrect {
		t.Fatal("true-flag tag not recorded as correct")
	}
	if ans.CurrentIdx != 1 || ans.Total != 10 {
		t.Fatalf("progress = %d/%d, want 1/10", ans.CurrentIdx, ans.Total)
	}

	q1 := resp.Questions[1]
	optID, tag = wrongChoice(t, q1)
	ans, fin, err = env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q1.ID, OptionID: optID, Tag: tag,
	})
	if err != nil || fin != nil {
		t.Fatalf("Answer: fin=%v err=%v", fin, err)
	}
	if ans.IsCorrect {
		t.Fatal("false-flag tag recorded as correct")
	}

	counts, _ := env.attempts.Counts(context.Background(), resp.AttemptID)
	if counts.Answered != 2 || counts.Correct != 1 {
		t.Fatalf("counts = %+v, want answered=2 correct=1", counts)
	}
}

func TestAnswer_ReselectionOverwrites(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := wrongChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	optID, tag = correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	counts, _ := env.attempts.Counts(context.Background(), resp.AttemptID)
	if counts.Answered != 1 || counts.Correct != 1 {
		t.Fatalf("counts = %+v, want answered=1 correct=1", counts)
	}
}

func TestAnswer_RejectsBadTags(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())
	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)

	tests := []struct {
		name string
		req  model.SubmitAnswerRequest
	}{
		{name: "garbage tag", req: model.SubmitAnswerRequest{
			QuestionID: q.ID, OptionID: optID, Tag: strings.Repeat("ab", 32),
		}},
		{name: "unknown option", req: model.SubmitAnswerRequest{
			QuestionID: q.ID, OptionID: uuid.New(), Tag: tag,
		}},
		{name: "tag of another question", req: model.SubmitAnswerRequest{
			QuestionID: resp.Questions[1].ID, OptionID: resp.Questions[1].Options[0].ID, Tag: tag,
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, tc.req)
			if !errors.Is(err, ErrInvalidTag) {
				t.Fatalf("got %v, want ErrInvalidTag", err)
			}
		})
	}

	counts, _ := env.attempts.Counts(context.Background(), resp.AttemptID)
	if counts.Answered != 0 {
		t.Fatalf("rejected tags still recorded answers: %+v", counts)
	}
}

func TestAnswer_OtherUsersAttempt(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())
	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)

	_, _, err := env.svc.Answer(context.Background(), resp.AttemptID, uuid.New(), model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestAnswer_CurrentIdxIsHighWater(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q4 := resp.Questions[4]
	optID, tag := correctChoice(t, q4)
	ans, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q4.ID, OptionID: optID, Tag: tag,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.CurrentIdx != 5 {
		t.Fatalf("current_idx = %d, want 5", ans.CurrentIdx)
	}

	q1 := resp.Questions[1]
	optID, tag = correctChoice(t, q1)
	ans, _, err = env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q1.ID, OptionID: optID, Tag: tag,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans.CurrentIdx != 5 {
		t.Fatalf("current_idx dropped to %d after out-of-order answer", ans.CurrentIdx)
	}
}

func TestAnswer_AfterDeadlineSealsWithoutRecording(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)

	env.advance(31 * time.Minute)
	ans, fin, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans != nil || fin == nil {
		t.Fatalf("expected finish result, got ans=%v fin=%v", ans, fin)
	}
	if !fin.Finished || fin.Score != 0.0 {
		t.Fatalf("finish result = %+v, want finished with score 0", fin)
	}

	counts, _ := env.attempts.Counts(context.Background(), resp.AttemptID)
	if counts.Answered != 0 {
		t.Fatal("late answer was recorded")
	}
}

func TestAnswer_LostSessionSeals(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	delete(env.meta.data, resp.AttemptID)

	q1 := resp.Questions[1]
	optID, tag = correctChoice(t, q1)
	ans, fin, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q1.ID, OptionID: optID, Tag: tag,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if ans != nil || fin == nil {
		t.Fatal("expected forced finish after session loss")
	}
	if fin.Correct != 1 || fin.Total != 10 || fin.Score != 10.0 {
		t.Fatalf("finish result = %+v, want correct=1 total=10 score=10", fin)
	}
}

// ── State ───────────────────────────────────────────────────────────────────

func TestState_Snapshot(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	for i := 0; i < 3; i++ {
		q := resp.Questions[i]
		optID, tag := correctChoice(t, q)
		if i == 2 {
			optID, tag = wrongChoice(t, q)
		}
		if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
			QuestionID: q.ID, OptionID: optID, Tag: tag,
		}); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	state, err := env.svc.State(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Answered != 3 || state.Correct != 2 || state.Total != 10 {
		t.Fatalf("state = %+v, want answered=3 correct=2 total=10", state)
	}
	if state.FinishedAt != nil || state.Score != nil {
		t.Fatal("active attempt reported as finished")
	}
	if !state.ExpiresAt.Equal(resp.ExpiresAt) {
		t.Fatal("state deadline differs from start deadline")
	}
}

func TestState_PastDeadlineSeals(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	env.advance(31 * time.Minute)
	state, err := env.svc.State(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.FinishedAt == nil {
		t.Fatal("expired attempt not sealed by state read")
	}

	sealed := env.attempts.attempts[resp.AttemptID]
	if sealed.Score == nil || *sealed.Score != 10.0 {
		t.Fatalf("sealed score = %v, want 10.0", sealed.Score)
	}
}

func TestState_SessionEvictedFallsBackToRows(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	delete(env.meta.data, resp.AttemptID)

	state, err := env.svc.State(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Total != 10 || state.Answered != 1 || state.CurrentIdx != 1 {
		t.Fatalf("fallback state = %+v, want total=10 answered=1 current_idx=1", state)
	}
	wantExpiry := state.StartedAt.Add(30 * time.Minute)
	if !state.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("fallback deadline = %v, want %v", state.ExpiresAt, wantExpiry)
	}
}

// ── Finish ──────────────────────────────────────────────────────────────────

func TestFinish_ScoresAndNotifies(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	for i := 0; i < 7; i++ {
		q := resp.Questions[i]
		optID, tag := correctChoice(t, q)
		if i >= 4 {
			optID, tag = wrongChoice(t, q)
		}
		if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
			QuestionID: q.ID, OptionID: optID, Tag: tag,
		}); err != nil {
			t.Fatalf("Answer: %v", err)
		}
	}

	env.advance(12 * time.Minute)
	fin, err := env.svc.Finish(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if fin.Correct != 4 || fin.Total != 10 || fin.Score != 40.0 {
		t.Fatalf("finish = %+v, want correct=4 total=10 score=40", fin)
	}

	sealed := env.attempts.attempts[resp.AttemptID]
	if sealed.Duration == nil || *sealed.Duration != 12 {
		t.Fatalf("duration = %v, want 12", sealed.Duration)
	}
	if len(env.stats.notified) != 1 {
		t.Fatalf("stats notified %d times, want 1", len(env.stats.notified))
	}
	if _, ok := env.meta.data[resp.AttemptID]; ok {
		t.Fatal("session entry survived sealing")
	}
}

func TestFinish_Idempotent(t *testing.T) {
	env := newAttemptEnv(t, 10)
	resp := env.start(t, defaultStartReq())

	q := resp.Questions[0]
	optID, tag := correctChoice(t, q)
	if _, _, err := env.svc.Answer(context.Background(), resp.AttemptID, env.userID, model.SubmitAnswerRequest{
		QuestionID: q.ID, OptionID: optID, Tag: tag,
	}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	first, err := env.svc.Finish(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	env.advance(time.Hour)
	second, err := env.svc.Finish(context.Background(), resp.AttemptID, env.userID)
	if err != nil {
		t.Fatalf("second Finish: %v", err)
	}

	if second.Score != first.Score || second.Correct != first.Correct || second.Total != first.Total {
		t.Fatalf("second finish %+v differs from first %+v", second, first)
	}
	if len(env.stats.notified) != 1 {
		t.Fatalf("stats notified %d times, want 1", len(env.stats.notified))
	}

	sealed := env.attempts.attempts[resp.AttemptID]
	if sealed.Duration == nil || *sealed.Duration != 0 {
		t.Fatalf("second finish rewrote duration: %v", sealed.Duration)
	}
}

func TestFinish_UnknownAttempt(t *testing.T) {
	env := newAttemptEnv(t, 10)

	_, err := env.svc.Finish(context.Background(), uuid.New(), env.userID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
