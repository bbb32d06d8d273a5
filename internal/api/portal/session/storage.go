package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned by storage operations targeting a session that does not exist
var ErrSessionNotFound = errors.New("session not found")

// Storage defines the session storage API
type Storage interface {
	// GetByRawToken retrieves a session by its raw (prior hashing) token.
	// A nil session without an error is returned if no session is associated with the token.
	GetByRawToken(ctx context.Context, rawToken string) (*Session, error)

	// Create creates a new session and returns its raw token
	Create(ctx context.Context, create *Create) (string, error)

	// UpdateTokens replaces the OAuth2 tokens and the expiry of the session associated with the given raw token
	UpdateTokens(ctx context.Context, rawToken string, update *TokenUpdate) error

	// TerminateByRawToken terminates the session associated with the given raw token
	TerminateByRawToken(ctx context.Context, rawToken string) error

	// TerminateBySessionID terminates a session by its session ID
	TerminateBySessionID(ctx context.Context, sessionID string) error

	// TerminateByUserID terminates all sessions of a specific user ID
	TerminateByUserID(ctx context.Context, userID string) error

	// TerminateExpired terminates all sessions that are expired
	TerminateExpired(ctx context.Context) (int, error)
}

// Create is used to create a new session
type Create struct {
	SessionID    string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	TokenExpires int64
	Expires      int64
}

// TokenUpdate is used to store refreshed OAuth2 tokens
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	TokenExpires int64
	Expires      int64
}
