package postgres

import (
	"context"
	"errors"
	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/assetdesk/internal/user"
)

// UserRepository implements the user.Repository interface using PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

var _ user.Repository = (*UserRepository)(nil)

// GetByID retrieves a user by their ID
func (repo *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	row := repo.db.QueryRow(ctx, "SELECT user_id, display_name, email, admin FROM users WHERE user_id = $1", id)
	obj, err := repo.rowToUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new user
func (repo *UserRepository) Create(ctx context.Context, create *user.Create) (*user.User, error) {
	_, err := repo.db.Exec(
		ctx,
		"INSERT INTO users (user_id, display_name, email, admin) VALUES ($1, $2, $3, $4)",
		create.ID,
		create.DisplayName,
		create.Email,
		create.Admin,
	)
	if err != nil {
		return nil, err
	}

	return &user.User{
		ID:          create.ID,
		DisplayName: create.DisplayName,
		Email:       create.Email,
		Admin:       create.Admin,
	}, nil
}

// Update updates an existing user
func (repo *UserRepository) Update(ctx context.Context, id string, update *user.Update) (*user.User, error) {
	if update.DisplayName != nil || update.Email != nil || update.Admin != nil {
		query := squirrel.Update("users").Where(squirrel.Eq{"user_id": id})
		if update.DisplayName != nil {
			query = query.Set("display_name", *update.DisplayName)
		}
		if update.Email != nil {
			query = query.Set("email", *update.Email)
		}
		if update.Admin != nil {
			query = query.Set("admin", *update.Admin)
		}

		sql, values, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return nil, err
		}
		if _, err := repo.db.Exec(ctx, sql, values...); err != nil {
			return nil, err
		}
	}

	// Re-fetch the user
	return repo.GetByID(ctx, id)
}

// Delete deletes a user by their ID
func (repo *UserRepository) Delete(ctx context.Context, id string) error {
	_, err := repo.db.Exec(ctx, "DELETE FROM users WHERE user_id = $1", id)
	return err
}

func (repo *UserRepository) rowToUser(row pgx.Row) (*user.User, error) {
	obj := new(user.User)
	if err := row.Scan(&obj.ID, &obj.DisplayName, &obj.Email, &obj.Admin); err != nil {
		return nil, err
	}
	return obj, nil
}
