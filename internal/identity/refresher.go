package identity

import (
	"context"
	"errors"
	"golang.org/x/oauth2"
)

// ErrRefresherNotConfigured is returned if a refresh is attempted without an OAuth2 configuration
var ErrRefresherNotConfigured = errors.New("no OAuth2 configuration to refresh tokens with")

// TokenRefresher exchanges a refresh token for a new OAuth2 token at the identity provider
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// OAuth2Refresher implements TokenRefresher using the refresh token grant of an OAuth2 configuration
type OAuth2Refresher struct {
	Config *oauth2.Config
}

var _ TokenRefresher = (*OAuth2Refresher)(nil)

// Refresh performs the refresh token grant
func (refresher *OAuth2Refresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refresher.Config == nil {
		return nil, ErrRefresherNotConfigured
	}
	expired := &oauth2.Token{RefreshToken: refreshToken}
	return refresher.Config.TokenSource(ctx, expired).Token()
}
