// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"time"
)

// User represents a registered user of the site.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	ExperienceID int64     `json:"experienceId"`
	Avatar       string    `json:"avatar"`
	IsAdmin      bool      `json:"isAdmin"`
	IsGuide      bool      `json:"isGuide"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session represents an active user session.
type Session struct {
	Token     string
	UserID    int64
	UserAgent string
	IP        string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Experience is a hiking experience level a user picks at registration.
type Experience struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DefaultExperiences seeds the experience table.
var DefaultExperiences = []Experience{
	{ID: 1, Name: "beginner"},
	{ID: 2, Name: "intermediate"},
	{ID: 3, Name: "advanced"},
	{ID: 4, Name: "expert"},
}

// UserRepository defines the port for user persistence operations.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, u *User) (*User, error)
	Update(ctx context.Context, u *User) error
	Count(ctx context.Context) (int, error)
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// ExperienceRepository lists the known experience levels.
type ExperienceRepository interface {
	ListExperiences(ctx context.Context) ([]Experience, error)
}
