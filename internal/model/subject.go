package model

import (
	"time"

	"github.com/google/uuid"
)

// Subject groups themes (e.g. one school subject).
type Subject struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ThemeCount  int       `json:"theme_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Theme is a single topic inside a subject. Duration is the suggested exam
// length in minutes; zero means "no suggestion".
type Theme struct {
	ID        uuid.UUID `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Name      string    `json:"name"`
	Duration  int       `json:"duration"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
