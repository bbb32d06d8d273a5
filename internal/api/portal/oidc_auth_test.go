package portal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

const (
	testIssuer   = "https://id.example.com"
	testClientID = "assetdesk"
)

// trustingKeySet accepts every signature and hands out the token payload
type trustingKeySet struct{}

func (trustingKeySet) VerifySignature(_ context.Context, jwt string) ([]byte, error) {
	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return nil, errors.New("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func signTestToken(t *testing.T, claims map[string]any) string {
	claims["iss"] = testIssuer
	claims["aud"] = testClientID
	claims["iat"] = time.Now().Unix()
	claims["exp"] = time.Now().Add(time.Minute).Unix()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	encode := base64.RawURLEncoding.EncodeToString
	return encode([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + encode(payload) + "." + encode([]byte("signature"))
}

func (portal *testPortal) backchannelLogout(token string) int {
	form := url.Values{"logout_token": {token}}
	rr := portal.do(http.MethodPost, "/api/auth/oidc/backchannel_logout", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil)
	return rr.Code
}

func newBackchannelTestPortal(t *testing.T) *testPortal {
	portal := newTestPortal(t, nil)
	portal.service.oidcIDTokenVerifier = oidc.NewVerifier(testIssuer, trustingKeySet{}, &oidc.Config{ClientID: testClientID})
	return portal
}

func TestBackchannelLogoutTerminatesSession(t *testing.T) {
	portal := newBackchannelTestPortal(t)
	cookie := portal.login(t, false)

	code := portal.backchannelLogout(signTestToken(t, map[string]any{
		"sub":    "user-1",
		"sid":    "sid-1",
		"events": map[string]any{oidcBackchannelLogoutEvent: map[string]any{}},
	}))
	require.Equal(t, http.StatusOK, code)

	ses, err := portal.service.SessionStorage.GetByRawToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.Nil(t, ses)
}

func TestBackchannelLogoutRejectsNonLogoutTokens(t *testing.T) {
	portal := newBackchannelTestPortal(t)
	cookie := portal.login(t, false)

	tokens := map[string]map[string]any{
		"id token": {
			"sub":   "user-1",
			"sid":   "sid-1",
			"nonce": "abc",
		},
		"logout event with nonce": {
			"sub":    "user-1",
			"sid":    "sid-1",
			"nonce":  "abc",
			"events": map[string]any{oidcBackchannelLogoutEvent: map[string]any{}},
		},
		"other event": {
			"sub":    "user-1",
			"events": map[string]any{"http://schemas.openid.net/event/other": map[string]any{}},
		},
		"neither subject nor session": {
			"events": map[string]any{oidcBackchannelLogoutEvent: map[string]any{}},
		},
	}
	for name, claims := range tokens {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, http.StatusBadRequest, portal.backchannelLogout(signTestToken(t, claims)))
		})
	}

	ses, err := portal.service.SessionStorage.GetByRawToken(context.Background(), cookie.Value)
	require.NoError(t, err)
	require.NotNil(t, ses)
}
