package identity

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/user"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"net/http"
	"time"
)

// CookieNameSession is the name of the cookie carrying the raw session token
const CookieNameSession = "session_token"

// ErrNoRefreshToken is returned if a session has to be refreshed but the provider did not hand out a refresh token
var ErrNoRefreshToken = errors.New("the session requires a refresh but holds no refresh token")

// Provider is the identity-provider client the session guard delegates to.
// It resolves the session cookie against the session storage, refreshes the OAuth2 tokens of sessions that are about
// to expire and slides the session cookie.
type Provider struct {
	Sessions  session.Storage
	Users     user.Repository
	Refresher TokenRefresher

	// Lifetime is the duration a session stays valid after its last refresh
	Lifetime time.Duration

	// RefreshLeeway is the duration before the access token expiry in which the token gets refreshed
	RefreshLeeway time.Duration

	// Secure defines whether the session cookie is restricted to HTTPS
	Secure bool

	now func() time.Time

	// refreshes deduplicates concurrent refreshes of the same session
	refreshes singleflight.Group
}

var _ session.Validator = (*Provider)(nil)

func (provider *Provider) currentTime() time.Time {
	if provider.now != nil {
		return provider.now()
	}
	return time.Now()
}

// Validate implements session.Validator
func (provider *Provider) Validate(ctx context.Context, request *http.Request) (*session.Outcome, error) {
	cookie, err := request.Cookie(CookieNameSession)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	rawToken := cookie.Value

	ses, err := provider.Sessions.GetByRawToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if ses == nil {
		return provider.unauthenticated(), nil
	}

	now := provider.currentTime()

	// Refresh the OAuth2 tokens if they are about to expire
	if provider.needsRefresh(ses, now) {
		refreshed, err := provider.refreshShared(ctx, rawToken, ses, now)
		if err != nil {
			log.Debug().Err(err).Str("user_id", ses.UserID).Msg("could not refresh the session tokens")
			if err := provider.Sessions.TerminateByRawToken(ctx, rawToken); err != nil {
				return nil, err
			}
			return provider.unauthenticated(), nil
		}
		ses.AccessToken = refreshed.AccessToken
		ses.RefreshToken = refreshed.RefreshToken
		ses.TokenType = refreshed.TokenType
		ses.TokenExpires = refreshed.TokenExpires
	}

	// Slide the session expiry and persist the (possibly refreshed) tokens
	ses.Expires = now.Add(provider.Lifetime).Unix()
	err = provider.Sessions.UpdateTokens(ctx, rawToken, &session.TokenUpdate{
		AccessToken:  ses.AccessToken,
		RefreshToken: ses.RefreshToken,
		TokenType:    ses.TokenType,
		TokenExpires: ses.TokenExpires,
		Expires:      ses.Expires,
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return provider.unauthenticated(), nil
		}
		return nil, err
	}

	// Resolve the principal
	obj, err := provider.Users.GetByID(ctx, ses.UserID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		if err := provider.Sessions.TerminateByUserID(ctx, ses.UserID); err != nil {
			return nil, err
		}
		return provider.unauthenticated(), nil
	}

	var expiresIn int64
	if ses.TokenExpires > 0 {
		expiresIn = ses.TokenExpires - now.Unix()
	}
	return &session.Outcome{
		Context: &session.Context{
			User:         obj,
			AccessToken:  ses.AccessToken,
			RefreshToken: ses.RefreshToken,
			TokenType:    ses.TokenType,
			ExpiresIn:    expiresIn,
			ExpiresAt:    ses.TokenExpires,
		},
		Cookies: []*http.Cookie{provider.sessionCookie(rawToken, ses.Expires)},
	}, nil
}

// Establish creates a new session for a user who just logged in and returns the session cookie to set
func (provider *Provider) Establish(ctx context.Context, userID, sessionID string, token *oauth2.Token) (*http.Cookie, error) {
	expires := provider.currentTime().Add(provider.Lifetime).Unix()
	create := &session.Create{
		SessionID:    sessionID,
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		Expires:      expires,
	}
	if !token.Expiry.IsZero() {
		create.TokenExpires = token.Expiry.Unix()
	}

	rawToken, err := provider.Sessions.Create(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("could not create session: %w", err)
	}
	return provider.sessionCookie(rawToken, expires), nil
}

// Terminate terminates the session the request carries (if any) and returns the cookie that clears it
func (provider *Provider) Terminate(ctx context.Context, request *http.Request) (*http.Cookie, error) {
	if cookie, err := request.Cookie(CookieNameSession); err == nil && cookie.Value != "" {
		if err := provider.Sessions.TerminateByRawToken(ctx, cookie.Value); err != nil {
			return nil, err
		}
	}
	return provider.clearingCookie(), nil
}

type refreshedTokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	TokenExpires int64
}

func tokensOf(ses *session.Session) *refreshedTokens {
	return &refreshedTokens{
		AccessToken:  ses.AccessToken,
		RefreshToken: ses.RefreshToken,
		TokenType:    ses.TokenType,
		TokenExpires: ses.TokenExpires,
	}
}

func (provider *Provider) needsRefresh(ses *session.Session, now time.Time) bool {
	return ses.TokenExpires > 0 && now.Add(provider.RefreshLeeway).Unix() >= ses.TokenExpires
}

// refreshShared refreshes the tokens of a session at most once at a time and persists them right away, so requests
// arriving with the same session while a refresh is running reuse its result instead of spending the refresh token
// a second time
func (provider *Provider) refreshShared(ctx context.Context, rawToken string, ses *session.Session, now time.Time) (*refreshedTokens, error) {
	result, err, _ := provider.refreshes.Do(ses.Token, func() (any, error) {
		// Another request may have refreshed the tokens in the meantime
		current, err := provider.Sessions.GetByRawToken(ctx, rawToken)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, session.ErrSessionNotFound
		}
		if !provider.needsRefresh(current, now) {
			return tokensOf(current), nil
		}

		refreshed, err := provider.refresh(ctx, current)
		if err != nil {
			// The refresh token may have been rotated by another instance sharing the session storage
			latest, getErr := provider.Sessions.GetByRawToken(ctx, rawToken)
			if getErr == nil && latest != nil && latest.RefreshToken != current.RefreshToken {
				return tokensOf(latest), nil
			}
			return nil, err
		}

		err = provider.Sessions.UpdateTokens(ctx, rawToken, &session.TokenUpdate{
			AccessToken:  refreshed.AccessToken,
			RefreshToken: refreshed.RefreshToken,
			TokenType:    refreshed.TokenType,
			TokenExpires: refreshed.TokenExpires,
			Expires:      current.Expires,
		})
		if err != nil {
			return nil, err
		}
		return refreshed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*refreshedTokens), nil
}

func (provider *Provider) refresh(ctx context.Context, ses *session.Session) (*refreshedTokens, error) {
	if ses.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	token, err := provider.Refresher.Refresh(ctx, ses.RefreshToken)
	if err != nil {
		return nil, err
	}

	refreshed := &refreshedTokens{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
	}
	// Providers may omit the refresh token if it was not rotated
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = ses.RefreshToken
	}
	if !token.Expiry.IsZero() {
		refreshed.TokenExpires = token.Expiry.Unix()
	}
	return refreshed, nil
}

func (provider *Provider) unauthenticated() *session.Outcome {
	return &session.Outcome{
		Cookies: []*http.Cookie{provider.clearingCookie()},
	}
}

func (provider *Provider) sessionCookie(rawToken string, expires int64) *http.Cookie {
	return &http.Cookie{
		Name:     CookieNameSession,
		Value:    rawToken,
		Path:     "/",
		Expires:  time.Unix(expires, 0),
		Secure:   provider.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (provider *Provider) clearingCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieNameSession,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   provider.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
