package model

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the user roles.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// User represents a platform account. The aggregate stats columns are
// recomputed asynchronously every time one of the user's attempts is sealed.
type User struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Role          Role      `json:"role"`
	TotalAttempts int       `json:"total_attempts"`
	TotalCorrect  int       `json:"total_correct"`
	TotalWrong    int       `json:"total_wrong"`
	AverageScore  float64   `json:"average_score"`
	CreatedAt     time.Time `json:"created_at"`
}

// LoginRequest is the payload for username/password login.
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=150"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}
