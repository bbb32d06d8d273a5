// Package storagetest provides a test suite every session.Storage implementation has to pass
package storagetest

import (
	"context"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// Run runs the session storage test suite against storages created by the given factory.
// The factory is called once per sub-test and has to return an empty storage.
func Run(t *testing.T, factory func(t *testing.T) session.Storage) {
	t.Run("create and get", func(t *testing.T) {
		testCreateAndGet(t, factory(t))
	})
	t.Run("unknown token", func(t *testing.T) {
		testUnknownToken(t, factory(t))
	})
	t.Run("update tokens", func(t *testing.T) {
		testUpdateTokens(t, factory(t))
	})
	t.Run("terminate by raw token", func(t *testing.T) {
		testTerminateByRawToken(t, factory(t))
	})
	t.Run("terminate by session ID", func(t *testing.T) {
		testTerminateBySessionID(t, factory(t))
	})
	t.Run("terminate by user ID", func(t *testing.T) {
		testTerminateByUserID(t, factory(t))
	})
	t.Run("terminate expired", func(t *testing.T) {
		testTerminateExpired(t, factory(t))
	})
}

func newCreate(userID, sessionID string, expires time.Time) *session.Create {
	return &session.Create{
		SessionID:    sessionID,
		UserID:       userID,
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "Bearer",
		TokenExpires: time.Now().Add(time.Hour).Unix(),
		Expires:      expires.Unix(),
	}
}

func testCreateAndGet(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	rawToken, err := storage.Create(ctx, newCreate("alice", "sid-1", expires))
	require.NoError(t, err)
	require.NotEmpty(t, rawToken)

	ses, err := storage.GetByRawToken(ctx, rawToken)
	require.NoError(t, err)
	require.NotNil(t, ses)
	require.Equal(t, "alice", ses.UserID)
	require.Equal(t, "sid-1", ses.SessionID)
	require.Equal(t, "access-alice", ses.AccessToken)
	require.Equal(t, "refresh-alice", ses.RefreshToken)
	require.Equal(t, "Bearer", ses.TokenType)
	require.Equal(t, expires.Unix(), ses.Expires)
	require.NotEqual(t, rawToken, ses.Token, "tokens must be stored hashed")

	other, err := storage.Create(ctx, newCreate("alice", "", expires))
	require.NoError(t, err)
	require.NotEqual(t, rawToken, other)
}

func testUnknownToken(t *testing.T, storage session.Storage) {
	ses, err := storage.GetByRawToken(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.Nil(t, ses)

	err = storage.UpdateTokens(context.Background(), "does-not-exist", &session.TokenUpdate{})
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func testUpdateTokens(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	rawToken, err := storage.Create(ctx, newCreate("alice", "sid-1", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	newExpires := time.Now().Add(2 * time.Hour).Unix()
	err = storage.UpdateTokens(ctx, rawToken, &session.TokenUpdate{
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		TokenType:    "Bearer",
		TokenExpires: newExpires,
		Expires:      newExpires,
	})
	require.NoError(t, err)

	ses, err := storage.GetByRawToken(ctx, rawToken)
	require.NoError(t, err)
	require.NotNil(t, ses)
	require.Equal(t, "access-2", ses.AccessToken)
	require.Equal(t, "refresh-2", ses.RefreshToken)
	require.Equal(t, newExpires, ses.TokenExpires)
	require.Equal(t, newExpires, ses.Expires)
	require.Equal(t, "sid-1", ses.SessionID)
}

func testTerminateByRawToken(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	rawToken, err := storage.Create(ctx, newCreate("alice", "", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, storage.TerminateByRawToken(ctx, rawToken))

	ses, err := storage.GetByRawToken(ctx, rawToken)
	require.NoError(t, err)
	require.Nil(t, ses)

	// Terminating an unknown session is not an error
	require.NoError(t, storage.TerminateByRawToken(ctx, rawToken))
}

func testTerminateBySessionID(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	first, err := storage.Create(ctx, newCreate("alice", "sid-1", expires))
	require.NoError(t, err)
	second, err := storage.Create(ctx, newCreate("alice", "sid-2", expires))
	require.NoError(t, err)

	require.NoError(t, storage.TerminateBySessionID(ctx, "sid-1"))

	ses, err := storage.GetByRawToken(ctx, first)
	require.NoError(t, err)
	require.Nil(t, ses)
	ses, err = storage.GetByRawToken(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, ses)
}

func testTerminateByUserID(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)
	first, err := storage.Create(ctx, newCreate("alice", "sid-1", expires))
	require.NoError(t, err)
	second, err := storage.Create(ctx, newCreate("alice", "", expires))
	require.NoError(t, err)
	other, err := storage.Create(ctx, newCreate("bob", "sid-3", expires))
	require.NoError(t, err)

	require.NoError(t, storage.TerminateByUserID(ctx, "alice"))

	for _, rawToken := range []string{first, second} {
		ses, err := storage.GetByRawToken(ctx, rawToken)
		require.NoError(t, err)
		require.Nil(t, ses)
	}
	ses, err := storage.GetByRawToken(ctx, other)
	require.NoError(t, err)
	require.NotNil(t, ses)
}

func testTerminateExpired(t *testing.T, storage session.Storage) {
	ctx := context.Background()
	expired, err := storage.Create(ctx, newCreate("alice", "sid-1", time.Now().Add(-time.Minute)))
	require.NoError(t, err)
	valid, err := storage.Create(ctx, newCreate("bob", "sid-2", time.Now().Add(time.Hour)))
	require.NoError(t, err)

	// Expired sessions are never handed out, even before they are cleaned up
	ses, err := storage.GetByRawToken(ctx, expired)
	require.NoError(t, err)
	require.Nil(t, ses)

	n, err := storage.TerminateExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	ses, err = storage.GetByRawToken(ctx, valid)
	require.NoError(t, err)
	require.NotNil(t, ses)

	n, err = storage.TerminateExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
