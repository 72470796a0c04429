package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptMode enumerates how the client presents the drawn questions.
type AttemptMode string

const (
	AttemptModeSequential AttemptMode = "sequential"
	AttemptModeAllInOne   AttemptMode = "all_in_one"
)

// OrderMode enumerates how questions are drawn from the pool.
type OrderMode string

const (
	OrderRandom     OrderMode = "random"
	OrderSequential OrderMode = "sequential"
)

// PoolScope restricts question selection to one theme or widens it to the
// theme's whole subject.
type PoolScope string

const (
	ScopeTheme   PoolScope = "theme"
	ScopeSubject PoolScope = "subject"
)

// TestAttempt is the durable record of one test-taking session.
// FinishedAt, Duration and Score are written together exactly once (sealing);
// until then they are all nil.
type TestAttempt struct {
	ID         uuid.UUID   `json:"id"`
	TestID     uuid.UUID   `json:"test_id"`
	UserID     uuid.UUID   `json:"user_id"`
	Mode       AttemptMode `json:"mode"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Score      *float64    `json:"score,omitempty"`
	Duration   *int        `json:"duration,omitempty"`
}

// Answer is one durable row per question drawn into an attempt. Rows are
// created empty at attempt start; the row set never changes afterwards.
type Answer struct {
	ID               uuid.UUID  `json:"id"`
	AttemptID        uuid.UUID  `json:"attempt_id"`
	QuestionID       uuid.UUID  `json:"question_id"`
	SelectedOptionID *uuid.UUID `json:"selected_option_id,omitempty"`
	IsCorrect        bool       `json:"is_correct"`
}

// AnswerCounts aggregates an attempt's durable answer rows for scoring.
type AnswerCounts struct {
	Total    int
	Answered int
	Correct  int
}

// AttemptMeta is the ephemeral, cache-backed session record for an active
// attempt. It is a security/performance cache, never the source of truth for
// scoring: losing it degrades the attempt to "expired", nothing more.
type AttemptMeta struct {
	Secret     string            `json:"secret"`
	Salts      map[string]string `json:"salts"` // option id -> per-option salt
	OrderIDs   []uuid.UUID       `json:"order_ids"`
	CurrentIdx int               `json:"current_idx"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// StartAttemptRequest is the payload for starting (or resuming) an attempt.
// Count 0 means "all available questions in scope".
type StartAttemptRequest struct {
	Count    int         `json:"count" binding:"oneof=0 10 20 30 50"`
	Order    OrderMode   `json:"order" binding:"required,oneof=random sequential"`
	Mode     AttemptMode `json:"mode" binding:"required,oneof=sequential all_in_one"`
	Duration int         `json:"duration" binding:"omitempty,min=1,max=240"`
	Scope    PoolScope   `json:"scope" binding:"omitempty,oneof=theme subject"`
}

// SubmitAnswerRequest carries the client's chosen option together with one of
// the two tags it was handed at start time. The tag, not a boolean, is what
// proves the claimed correctness flag.
type SubmitAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	OptionID   uuid.UUID `json:"option_id" binding:"required"`
	Tag        string    `json:"tag" binding:"required,len=64,hexadecimal"`
}

// AttemptOption is an option as presented to the client: content plus the
// two opaque tags, never the correctness flag.
type AttemptOption struct {
	ID    uuid.UUID `json:"id"`
	Text  string    `json:"text,omitempty"`
	Image string    `json:"image,omitempty"`
	Tags  [2]string `json:"tags"`
}

// AttemptQuestion is a question as presented to the client. CorrectToken is
// the true-flag tag of the actually-correct option so the UI can reveal
// correctness after an answer without another round trip.
type AttemptQuestion struct {
	ID           uuid.UUID       `json:"id"`
	Text         string          `json:"text,omitempty"`
	Image        string          `json:"image,omitempty"`
	CorrectToken string          `json:"correct_token"`
	Options      []AttemptOption `json:"options"`
}

// StartAttemptResponse echoes the attempt parameters and carries the tagged
// question set.
type StartAttemptResponse struct {
	AttemptID uuid.UUID         `json:"attempt_id"`
	ThemeID   uuid.UUID         `json:"theme_id"`
	TestID    uuid.UUID         `json:"test_id"`
	Count     int               `json:"count"`
	Order     OrderMode         `json:"order"`
	Mode      AttemptMode       `json:"mode"`
	Duration  int               `json:"duration"`
	ExpiresAt time.Time         `json:"expires_at"`
	Resumed   bool              `json:"resumed"`
	Questions []AttemptQuestion `json:"questions"`
}

// SubmitAnswerResponse is the progress snapshot returned for an accepted
// answer.
type SubmitAnswerResponse struct {
	AttemptID        uuid.UUID `json:"attempt_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	OptionID         uuid.UUID `json:"option_id"`
	IsCorrect        bool      `json:"is_correct"`
	CurrentIdx       int       `json:"current_idx"`
	Total            int       `json:"total"`
	RemainingSeconds int       `json:"remaining_seconds"`
}

// AttemptStateResponse is the read-only progress snapshot.
type AttemptStateResponse struct {
	AttemptID  uuid.UUID  `json:"attempt_id"`
	StartedAt  time.Time  `json:"started_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CurrentIdx int        `json:"current_idx"`
	Total      int        `json:"total"`
	Answered   int        `json:"answered"`
	Correct    int        `json:"correct"`
	Score      *float64   `json:"score,omitempty"`
}

// FinishAttemptResponse is the sealed final result. Finishing an already
// sealed attempt returns the stored values unchanged.
type FinishAttemptResponse struct {
	AttemptID uuid.UUID `json:"attempt_id"`
	Finished  bool      `json:"finished"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
	Score     float64   `json:"score"`
}
