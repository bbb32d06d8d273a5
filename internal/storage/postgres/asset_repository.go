package postgres

import (
	"context"
	"errors"
	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/assetdesk/internal/asset"
	"time"
)

const assetColumns = "asset_uid, name, location, description, created_at"

// AssetRepository implements the asset.Repository interface using PostgreSQL
type AssetRepository struct {
	db *pgxpool.Pool
}

var _ asset.Repository = (*AssetRepository)(nil)

// Get retrieves multiple assets ordered by their name together with the total amount of assets.
// If limit <= 0, a default limit value of 10 is used.
func (repo *AssetRepository) Get(ctx context.Context, offset, limit uint64) ([]*asset.Asset, uint64, error) {
	query := squirrel.Select(assetColumns).From("assets").OrderBy("name ASC", "asset_uid ASC")
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	} else {
		query = query.Limit(10)
	}
	sql, vals, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, 0, err
	}

	var n uint64
	if err := repo.db.QueryRow(ctx, "SELECT COUNT(*) FROM assets").Scan(&n); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []*asset.Asset{}, 0, nil
	}

	rows, err := repo.db.Query(ctx, sql, vals...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []*asset.Asset{}, n, nil
		}
		return nil, 0, err
	}
	defer rows.Close()

	assets := []*asset.Asset{}
	for rows.Next() {
		obj, err := repo.rowToAsset(rows)
		if err != nil {
			return nil, 0, err
		}
		assets = append(assets, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return assets, n, nil
}

// GetByUID retrieves an asset by its UID
func (repo *AssetRepository) GetByUID(ctx context.Context, uid string) (*asset.Asset, error) {
	row := repo.db.QueryRow(ctx, "SELECT "+assetColumns+" FROM assets WHERE asset_uid = $1", uid)
	obj, err := repo.rowToAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create creates a new asset
func (repo *AssetRepository) Create(ctx context.Context, create *asset.Create) (*asset.Asset, error) {
	obj := &asset.Asset{
		UID:         uuid.NewString(),
		Name:        create.Name,
		Location:    create.Location,
		Description: create.Description,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	_, err := repo.db.Exec(
		ctx,
		"INSERT INTO assets ("+assetColumns+") VALUES ($1, $2, $3, $4, $5)",
		obj.UID,
		obj.Name,
		obj.Location,
		obj.Description,
		obj.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// Update updates an existing asset
func (repo *AssetRepository) Update(ctx context.Context, uid string, update *asset.Update) (*asset.Asset, error) {
	if update.Name != nil || update.Location != nil || update.Description != nil {
		query := squirrel.Update("assets").Where(squirrel.Eq{"asset_uid": uid})
		if update.Name != nil {
			query = query.Set("name", *update.Name)
		}
		if update.Location != nil {
			query = query.Set("location", *update.Location)
		}
		if update.Description != nil {
			query = query.Set("description", *update.Description)
		}

		sql, values, err := query.PlaceholderFormat(squirrel.Dollar).ToSql()
		if err != nil {
			return nil, err
		}
		if _, err := repo.db.Exec(ctx, sql, values...); err != nil {
			return nil, err
		}
	}

	// Re-fetch the asset
	return repo.GetByUID(ctx, uid)
}

// Delete deletes an asset by its UID
func (repo *AssetRepository) Delete(ctx context.Context, uid string) error {
	_, err := repo.db.Exec(ctx, "DELETE FROM assets WHERE asset_uid = $1", uid)
	return err
}

func (repo *AssetRepository) rowToAsset(row pgx.Row) (*asset.Asset, error) {
	obj := new(asset.Asset)
	var createdAt int64
	if err := row.Scan(&obj.UID, &obj.Name, &obj.Location, &obj.Description, &createdAt); err != nil {
		return nil, err
	}
	obj.CreatedAt = time.Unix(createdAt, 0).UTC()
	return obj, nil
}
