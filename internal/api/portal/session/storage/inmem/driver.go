package inmem

import (
	"context"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/secret"
	"time"
)

var tokenLength = 32

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Token"},
				},
				"sessionID": {
					Name:         "sessionID",
					Unique:       false,
					AllowMissing: true,
					Indexer:      &memdb.StringFieldIndex{Field: "SessionID"},
				},
				"userID": {
					Name:         "userID",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
	},
}

// Driver represents the in-memory session storage driver built using hashicorp/go-memdb
type Driver struct {
	db *memdb.MemDB
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty in-memory session storage driver
func New() (*Driver, error) {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}
	return &Driver{db}, nil
}

// GetByRawToken retrieves a session by its raw (prior hashing) token.
// Expired sessions are treated as non-existent.
func (driver *Driver) GetByRawToken(_ context.Context, rawToken string) (*session.Session, error) {
	txn := driver.db.Txn(false)
	obj, err := txn.First("sessions", "id", secret.Hash(rawToken))
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	ses := *obj.(*session.Session)
	if ses.Expires <= time.Now().Unix() {
		return nil, nil
	}
	return &ses, nil
}

// Create creates a new session
func (driver *Driver) Create(_ context.Context, create *session.Create) (string, error) {
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

	txn := driver.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", ses); err != nil {
		return "", err
	}
	txn.Commit()

	return rawToken, nil
}

// UpdateTokens replaces the OAuth2 tokens and the expiry of the session associated with the given raw token
func (driver *Driver) UpdateTokens(_ context.Context, rawToken string, update *session.TokenUpdate) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First("sessions", "id", secret.Hash(rawToken))
	if err != nil {
		return err
	}
	if obj == nil {
		return session.ErrSessionNotFound
	}

	// Stored objects must not be mutated, so the update is applied to a copy
	ses := *obj.(*session.Session)
	ses.AccessToken = update.AccessToken
	ses.RefreshToken = update.RefreshToken
	ses.TokenType = update.TokenType
	ses.TokenExpires = update.TokenExpires
	ses.Expires = update.Expires
	if err := txn.Insert("sessions", &ses); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByRawToken terminates the session associated with the given raw token
func (driver *Driver) TerminateByRawToken(_ context.Context, rawToken string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", secret.Hash(rawToken)); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateBySessionID terminates a session by its session ID
func (driver *Driver) TerminateBySessionID(_ context.Context, sessionID string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "sessionID", sessionID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByUserID terminates all sessions of a specific user ID
func (driver *Driver) TerminateByUserID(_ context.Context, userID string) error {
	txn := driver.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "userID", userID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (driver *Driver) TerminateExpired(_ context.Context) (int, error) {
	txn := driver.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("sessions", "expires", int64(0))
	if err != nil {
		return 0, err
	}

	// Collect first as deleting while iterating a write transaction is not supported
	now := time.Now().Unix()
	var expired []*session.Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*session.Session)
		if ses.Expires > now {
			break
		}
		expired = append(expired, ses)
	}
	for _, ses := range expired {
		if err := txn.Delete("sessions", ses); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}
