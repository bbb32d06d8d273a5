package session

import "github.com/skybi/assetdesk/internal/user"

// Session represents a persisted user session at the portal.
// A session is identified by its (hashed) token rather than its session ID as the session ID is an optional field whose
// presence depends on whether the OIDC provider implements OpenID session management.
// The OAuth2 tokens of the provider are kept server-side and never handed to the browser.
type Session struct {
	Token        string `json:"token"`
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	TokenExpires int64  `json:"token_expires"`
	Expires      int64  `json:"expires"`
}

// Context represents the per-request session data made available to handlers behind the guard.
// It is built from the validation outcome of every request and never persisted by the guard itself.
type Context struct {
	User         *user.User
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    int64
}
