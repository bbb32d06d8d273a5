package redis

import (
	"context"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/api/portal/session/storagetest"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func newTestDriver(t *testing.T) (*Driver, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return New(client), mr
}

func TestDriver(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) session.Storage {
		driver, _ := newTestDriver(t)
		return driver
	})
}

func TestDriverPing(t *testing.T) {
	driver, _ := newTestDriver(t)
	require.NoError(t, driver.Ping(context.Background()))
}

func TestSessionDocumentsExpire(t *testing.T) {
	ctx := context.Background()
	driver, mr := newTestDriver(t)

	rawToken, err := driver.Create(ctx, &session.Create{
		UserID:  "alice",
		Expires: time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 4)

	mr.FastForward(2 * time.Hour)
	ses, err := driver.GetByRawToken(ctx, rawToken)
	require.NoError(t, err)
	require.Nil(t, ses)
}

func TestTerminateExpiredCleansIndexesOfExpiredDocuments(t *testing.T) {
	ctx := context.Background()
	driver, mr := newTestDriver(t)

	_, err := driver.Create(ctx, &session.Create{
		SessionID: "sid-1",
		UserID:    "alice",
		Expires:   time.Now().Add(-time.Second).Unix(),
	})
	require.NoError(t, err)

	// The document is gone long before the cleanup task runs; the meta hash, both index sets and the expiry set remain
	mr.FastForward(time.Hour)
	require.Len(t, mr.Keys(), 4)

	n, err := driver.TerminateExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	members, err := driver.client.SMembers(ctx, keyPrefixUserIndex+"alice").Result()
	require.NoError(t, err)
	require.Empty(t, members)
	members, err = driver.client.SMembers(ctx, keyPrefixSIDIndex+"sid-1").Result()
	require.NoError(t, err)
	require.Empty(t, members)
	require.Empty(t, mr.Keys())
}

func TestUpdateTokensDoesNotResurrectTerminatedSessions(t *testing.T) {
	ctx := context.Background()
	driver, mr := newTestDriver(t)

	rawToken, err := driver.Create(ctx, &session.Create{
		SessionID: "sid-1",
		UserID:    "alice",
		Expires:   time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	require.NoError(t, driver.TerminateByRawToken(ctx, rawToken))

	err = driver.UpdateTokens(ctx, rawToken, &session.TokenUpdate{
		AccessToken: "access-2",
		Expires:     time.Now().Add(2 * time.Hour).Unix(),
	})
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.Empty(t, mr.Keys())
}
