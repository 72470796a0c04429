package model

import (
	"time"

	"github.com/google/uuid"
)

// Test is a question container bound to a theme. A theme gets one
// auto-created test the first time an attempt is started against it.
type Test struct {
	ID              uuid.UUID `json:"id"`
	ThemeID         uuid.UUID `json:"theme_id"`
	Name            string    `json:"name"`
	DefaultDuration int       `json:"default_duration"`
	QuestionCount   int       `json:"question_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// Question is immutable content from the engine's perspective: text and/or
// image plus a set of options, exactly one of which is correct.
type Question struct {
	ID        uuid.UUID `json:"id"`
	TestID    uuid.UUID `json:"test_id"`
	Text      string    `json:"text,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Options   []Option  `json:"options,omitempty"`
}

// Option is a single answer choice. IsCorrect never leaves the server.
type Option struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text,omitempty"`
	Image      string    `json:"image,omitempty"`
	IsCorrect  bool      `json:"-"`
}
