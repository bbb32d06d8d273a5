package portal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/random"
	"github.com/skybi/assetdesk/internal/user"
	"net/http"
	"time"
)

// oidcBackchannelLogoutEvent is the event a logout token has to carry
const oidcBackchannelLogoutEvent = "http://schemas.openid.net/event/backchannel-logout"

const (
	stateLength         = 16
	nonceLength         = 16
	cookieNameState     = "login_state"
	cookieLifetimeState = int(time.Hour / time.Second)
)

var (
	errAuthNoLoginFlow = &schema.Error{
		Type:    "auth.noLoginFlow",
		Message: "No login flow was initiated or the state cookie is malformed.",
		Details: map[string]any{},
	}
	errAuthStateMismatch = &schema.Error{
		Type:    "auth.stateMismatch",
		Message: "The login flow states do not match.",
		Details: map[string]any{},
	}
	errAuthInvalidCode = &schema.Error{
		Type:    "auth.invalidCode",
		Message: "The login code is invalid (expired?).",
		Details: map[string]any{},
	}
	errAuthNonceMismatch = &schema.Error{
		Type:    "auth.nonceMismatch",
		Message: "The login flow nonces do not match.",
		Details: map[string]any{},
	}
	errAuthInvalidLogoutToken = &schema.Error{
		Type:    "auth.invalidLogoutToken",
		Message: "The logout token is missing or invalid.",
		Details: map[string]any{},
	}
)

type oidcLogoutTokenClaims struct {
	SessionID string                     `json:"sid"`
	Events    map[string]json.RawMessage `json:"events"`
}

type oidcLoginFlowState struct {
	ID         string `json:"id"`
	Nonce      string `json:"nonce"`
	Afterwards string `json:"afterwards"`
}

type oidcIDTokenClaims struct {
	SessionID         string `json:"sid"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// EndpointOIDCLoginFlow handles the 'GET /api/auth/oidc/login_flow?afterwards={string?}' endpoint
func (service *Service) EndpointOIDCLoginFlow(writer http.ResponseWriter, request *http.Request) {
	// Create and set the login flow state cookie
	state := oidcLoginFlowState{
		ID:         random.String(stateLength, random.CharsetAlphanumeric),
		Nonce:      random.String(nonceLength, random.CharsetAlphanumeric),
		Afterwards: safeRedirectTarget(request.URL.Query().Get("afterwards")),
	}
	stateJSON, err := json.Marshal(state)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameState,
		Value:    base64.RawURLEncoding.EncodeToString(stateJSON),
		Path:     "/api/auth/oidc",
		MaxAge:   cookieLifetimeState,
		Secure:   service.Config.IsSecure(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	// Redirect the user to the authentication endpoint of the OIDC provider
	http.Redirect(writer, request, service.oidcOAuth2Config.AuthCodeURL(state.ID, oidc.Nonce(state.Nonce)), http.StatusFound)
}

// EndpointOIDCLoginCallback handles the 'GET /api/auth/oidc/callback' endpoint
func (service *Service) EndpointOIDCLoginCallback(writer http.ResponseWriter, request *http.Request) {
	// Extract the state cookie
	stateCookie, err := request.Cookie(cookieNameState)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthNoLoginFlow)
		return
	}
	stateJSON, err := base64.RawURLEncoding.DecodeString(stateCookie.Value)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthNoLoginFlow)
		return
	}
	state := new(oidcLoginFlowState)
	if err := json.Unmarshal(stateJSON, state); err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthNoLoginFlow)
		return
	}

	// Validate the state ID
	if request.URL.Query().Get("state") != state.ID {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthStateMismatch)
		return
	}

	// Unset the state cookie
	http.SetCookie(writer, &http.Cookie{
		Name:     cookieNameState,
		Value:    "",
		Path:     "/api/auth/oidc",
		MaxAge:   -1,
		HttpOnly: true,
	})

	// Retrieve the OAuth2 access token and extract and verify the ID token + nonce
	oauth2Token, err := service.oidcOAuth2Config.Exchange(request.Context(), request.URL.Query().Get("code"))
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusForbidden, errAuthInvalidCode)
		return
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		service.writer.WriteInternalError(writer, errors.New("no 'id_token' field in OAuth2 access token; most likely an OIDC provider error"))
		return
	}
	idToken, err := service.oidcIDTokenVerifier.Verify(request.Context(), rawIDToken)
	if err != nil {
		service.writer.WriteInternalError(writer, errors.New("received invalid ID token; most likely an OIDC provider error"))
		return
	}
	if idToken.Nonce != state.Nonce {
		service.writer.WriteErrors(writer, http.StatusForbidden, errAuthNonceMismatch)
		return
	}
	claims := new(oidcIDTokenClaims)
	if err := idToken.Claims(claims); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	// Create the user if they log in for the first time
	if err := service.ensureUser(request, idToken.Subject, claims); err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}

	// Create the session and set its cookie
	cookie, err := service.identity.Establish(request.Context(), idToken.Subject, claims.SessionID, oauth2Token)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, cookie)

	// Redirect the user to the URL specified on login flow initiating
	http.Redirect(writer, request, safeRedirectTarget(state.Afterwards), http.StatusFound)
}

func (service *Service) ensureUser(request *http.Request, id string, claims *oidcIDTokenClaims) error {
	obj, err := service.Storage.Users().GetByID(request.Context(), id)
	if err != nil {
		return err
	}
	if obj != nil {
		return nil
	}

	displayName := claims.Name
	if displayName == "" {
		displayName = claims.PreferredUsername
	}
	obj, err = service.Storage.Users().Create(request.Context(), &user.Create{
		ID:          id,
		DisplayName: displayName,
		Email:       claims.Email,
	})
	if err != nil {
		return err
	}
	log.Info().Str("user_id", obj.ID).Msg("registered a new user")
	return nil
}

// EndpointOIDCBackchannelLogout handles the 'POST /api/auth/oidc/backchannel_logout' endpoint
func (service *Service) EndpointOIDCBackchannelLogout(writer http.ResponseWriter, request *http.Request) {
	rawLogoutToken := request.PostFormValue("logout_token")
	if rawLogoutToken == "" || service.oidcIDTokenVerifier == nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthInvalidLogoutToken)
		return
	}
	logoutToken, err := service.oidcIDTokenVerifier.Verify(request.Context(), rawLogoutToken)
	if err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthInvalidLogoutToken)
		return
	}
	claims := new(oidcLogoutTokenClaims)
	if err := logoutToken.Claims(claims); err != nil {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthInvalidLogoutToken)
		return
	}

	// Logout tokens carry the logout event and never a nonce, so ID tokens are not accepted in their place
	if _, ok := claims.Events[oidcBackchannelLogoutEvent]; !ok || logoutToken.Nonce != "" {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthInvalidLogoutToken)
		return
	}
	if claims.SessionID == "" && logoutToken.Subject == "" {
		service.writer.WriteErrors(writer, http.StatusBadRequest, errAuthInvalidLogoutToken)
		return
	}

	// Terminate the single session if the provider names it, every session of the subject otherwise
	if claims.SessionID != "" {
		err = service.SessionStorage.TerminateBySessionID(request.Context(), claims.SessionID)
	} else {
		err = service.SessionStorage.TerminateByUserID(request.Context(), logoutToken.Subject)
	}
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	writer.Header().Set("Cache-Control", "no-store")
	writer.WriteHeader(http.StatusOK)
}

// EndpointLogout handles the 'POST /api/auth/logout' endpoint
func (service *Service) EndpointLogout(writer http.ResponseWriter, request *http.Request) {
	cookie, err := service.identity.Terminate(request.Context(), request)
	if err != nil {
		service.writer.WriteInternalError(writer, err)
		return
	}
	http.SetCookie(writer, cookie)

	// Browsers submitting the logout form are sent back to the login page
	if isFormRequest(request) {
		http.Redirect(writer, request, "/auth/login", http.StatusSeeOther)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}
