package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/redis/go-redis/v9"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/secret"
	"strconv"
	"time"
)

var tokenLength = 32

// maxUpdateRetries is the number of times an optimistic session update is retried if the session changed concurrently
const maxUpdateRetries = 4

const (
	keyPrefixSession   = "session:"
	keyPrefixMeta      = "sessions:meta:"
	keyPrefixUserIndex = "sessions:user:"
	keyPrefixSIDIndex  = "sessions:sid:"
	keyExpiryIndex     = "sessions:expiry"
)

// Driver represents the Redis session storage driver.
// Sessions are stored as JSON documents expiring together with the session. Secondary indexes (user ID, session ID and
// expiry) are kept in sets so that sessions can be terminated in bulk. The user and session ID of every session are
// additionally kept in a non-expiring meta hash, so the indexes can still be cleaned up after the document expired.
type Driver struct {
	client redis.UniversalClient
}

var _ session.Storage = (*Driver)(nil)

// New creates a new Redis session storage driver using the given client
func New(client redis.UniversalClient) *Driver {
	return &Driver{client: client}
}

// Ping checks the connection to the Redis server
func (driver *Driver) Ping(ctx context.Context) error {
	return driver.client.Ping(ctx).Err()
}

// GetByRawToken retrieves a session by its raw (prior hashing) token.
// Expired sessions are treated as non-existent.
func (driver *Driver) GetByRawToken(ctx context.Context, rawToken string) (*session.Session, error) {
	ses, err := driver.get(ctx, secret.Hash(rawToken))
	if err != nil || ses == nil {
		return nil, err
	}
	if ses.Expires <= time.Now().Unix() {
		return nil, nil
	}
	return ses, nil
}

// Create creates a new session
func (driver *Driver) Create(ctx context.Context, create *session.Create) (string, error) {
	rawToken, token := secret.MustNew(tokenLength)

	ses := &session.Session{
		Token:        token,
		SessionID:    create.SessionID,
		UserID:       create.UserID,
		AccessToken:  create.AccessToken,
		RefreshToken: create.RefreshToken,
		TokenType:    create.TokenType,
		TokenExpires: create.TokenExpires,
		Expires:      create.Expires,
	}
	if err := driver.put(ctx, ses); err != nil {
		return "", err
	}
	return rawToken, nil
}

// UpdateTokens replaces the OAuth2 tokens and the expiry of the session associated with the given raw token.
// The session key is watched, so a session terminated concurrently is never brought back.
func (driver *Driver) UpdateTokens(ctx context.Context, rawToken string, update *session.TokenUpdate) error {
	token := secret.Hash(rawToken)
	key := keyPrefixSession + token

	for i := 0; i < maxUpdateRetries; i++ {
		err := driver.client.Watch(ctx, func(tx *redis.Tx) error {
			ses, err := get(ctx, tx, token)
			if err != nil {
				return err
			}
			if ses == nil {
				return session.ErrSessionNotFound
			}

			ses.AccessToken = update.AccessToken
			ses.RefreshToken = update.RefreshToken
			ses.TokenType = update.TokenType
			ses.TokenExpires = update.TokenExpires
			ses.Expires = update.Expires
			raw, err := json.Marshal(ses)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				queuePut(ctx, pipe, ses, raw)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("could not update session: %w", redis.TxFailedErr)
}

// TerminateByRawToken terminates the session associated with the given raw token
func (driver *Driver) TerminateByRawToken(ctx context.Context, rawToken string) error {
	return driver.terminate(ctx, secret.Hash(rawToken))
}

// TerminateBySessionID terminates a session by its session ID
func (driver *Driver) TerminateBySessionID(ctx context.Context, sessionID string) error {
	return driver.terminateIndex(ctx, keyPrefixSIDIndex+sessionID)
}

// TerminateByUserID terminates all sessions of a specific user ID
func (driver *Driver) TerminateByUserID(ctx context.Context, userID string) error {
	return driver.terminateIndex(ctx, keyPrefixUserIndex+userID)
}

// TerminateExpired terminates all sessions that are expired.
// The session documents themselves expire automatically; this cleans up the meta hashes and the secondary indexes.
func (driver *Driver) TerminateExpired(ctx context.Context) (int, error) {
	tokens, err := driver.client.ZRangeByScore(ctx, keyExpiryIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	for _, token := range tokens {
		if err := driver.terminate(ctx, token); err != nil {
			return 0, err
		}
	}
	return len(tokens), nil
}

func (driver *Driver) get(ctx context.Context, token string) (*session.Session, error) {
	return get(ctx, driver.client, token)
}

// getter is satisfied by both clients and transactions
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, client getter, token string) (*session.Session, error) {
	raw, err := client.Get(ctx, keyPrefixSession+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	ses := new(session.Session)
	if err := json.Unmarshal(raw, ses); err != nil {
		return nil, err
	}
	return ses, nil
}

func (driver *Driver) put(ctx context.Context, ses *session.Session) error {
	raw, err := json.Marshal(ses)
	if err != nil {
		return err
	}
	_, err = driver.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queuePut(ctx, pipe, ses, raw)
		return nil
	})
	return err
}

func queuePut(ctx context.Context, pipe redis.Pipeliner, ses *session.Session, raw []byte) {
	pipe.Set(ctx, keyPrefixSession+ses.Token, raw, 0)
	pipe.ExpireAt(ctx, keyPrefixSession+ses.Token, time.Unix(ses.Expires, 0))
	pipe.HSet(ctx, keyPrefixMeta+ses.Token, "user", ses.UserID, "sid", ses.SessionID)
	pipe.SAdd(ctx, keyPrefixUserIndex+ses.UserID, ses.Token)
	if ses.SessionID != "" {
		pipe.SAdd(ctx, keyPrefixSIDIndex+ses.SessionID, ses.Token)
	}
	pipe.ZAdd(ctx, keyExpiryIndex, redis.Z{Score: float64(ses.Expires), Member: ses.Token})
}

// terminate removes the session document, its meta hash and every index entry pointing to it
func (driver *Driver) terminate(ctx context.Context, token string) error {
	meta, err := driver.client.HGetAll(ctx, keyPrefixMeta+token).Result()
	if err != nil {
		return err
	}
	_, err = driver.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefixSession+token, keyPrefixMeta+token)
		pipe.ZRem(ctx, keyExpiryIndex, token)
		if userID, ok := meta["user"]; ok {
			pipe.SRem(ctx, keyPrefixUserIndex+userID, token)
		}
		if sessionID := meta["sid"]; sessionID != "" {
			pipe.SRem(ctx, keyPrefixSIDIndex+sessionID, token)
		}
		return nil
	})
	return err
}

func (driver *Driver) terminateIndex(ctx context.Context, indexKey string) error {
	tokens, err := driver.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}
	for _, token := range tokens {
		if err := driver.terminate(ctx, token); err != nil {
			return err
		}
	}
	return driver.client.Del(ctx, indexKey).Err()
}
