package domain

import (
	"context"
	"errors"
	"time"
)

// User is a player account. Its UserID is the player id used across games
// and the token ledger.
type User struct {
	UserID       int64      `json:"user_id" gorm:"primaryKey;column:user_id;autoIncrement"`
	Username     string     `json:"username" gorm:"column:username;uniqueIndex;not null"`
	DisplayName  string     `json:"display_name" gorm:"column:display_name"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	Status       int        `json:"status" gorm:"column:status;default:1"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
}

// Session backs a refresh token.
type Session struct {
	SessionID string    `json:"session_id" gorm:"primaryKey;column:session_id"`
	UserID    int64     `json:"user_id" gorm:"column:user_id;index"`
	Token     string    `json:"-" gorm:"column:token;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"column:expires_at;index"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

const (
	UserStatusActive    = 1
	UserStatusSuspended = 2
)

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountInactive    = errors.New("account is not active")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionExpired     = errors.New("refresh token expired")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenPair is what a successful login or refresh hands back.
type TokenPair struct {
	UserID       int64     `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserRepository persists accounts and their sessions.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateLastLogin(ctx context.Context, userID int64, at time.Time) error
	SetStatus(ctx context.Context, userID int64, status int) error

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	UpdateSessionToken(ctx context.Context, sessionID, token string) error
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteSessionsByToken(ctx context.Context, token string) error
}

// UserUseCase is the surface the HTTP adapter calls.
type UserUseCase interface {
	Register(ctx context.Context, username, password, displayName string) (int64, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Logout(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ValidateToken(ctx context.Context, token string) (int64, string, time.Time, error)
}
