package memory

import (
	"context"
	"errors"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/assetdesk/internal/user"
)

var ErrUserExists = errors.New("a user with this ID already exists")

// UserRepository implements the user.Repository interface using an in-memory database
type UserRepository struct {
	db *memdb.MemDB
}

var _ user.Repository = (*UserRepository)(nil)

// GetByID retrieves a user by their ID
func (repo *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First(tableUsers, "id", id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	cpy := *obj.(*user.User)
	return &cpy, nil
}

// Create creates a new user
func (repo *UserRepository) Create(_ context.Context, create *user.Create) (*user.User, error) {
	obj := &user.User{
		ID:          create.ID,
		DisplayName: create.DisplayName,
		Email:       create.Email,
		Admin:       create.Admin,
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(tableUsers, "id", create.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUserExists
	}
	if err := txn.Insert(tableUsers, obj); err != nil {
		return nil, err
	}
	txn.Commit()

	cpy := *obj
	return &cpy, nil
}

// Update updates an existing user
func (repo *UserRepository) Update(_ context.Context, id string, update *user.Update) (*user.User, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableUsers, "id", id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	// Stored objects must not be mutated, so the update is applied to a copy
	obj := *raw.(*user.User)
	if update.DisplayName != nil {
		obj.DisplayName = *update.DisplayName
	}
	if update.Email != nil {
		obj.Email = *update.Email
	}
	if update.Admin != nil {
		obj.Admin = *update.Admin
	}
	if err := txn.Insert(tableUsers, &obj); err != nil {
		return nil, err
	}
	txn.Commit()

	cpy := obj
	return &cpy, nil
}

// Delete deletes a user by their ID
func (repo *UserRepository) Delete(_ context.Context, id string) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableUsers, "id", id); err != nil {
		return err
	}
	txn.Commit()
	return nil
}
