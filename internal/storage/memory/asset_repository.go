package memory

import (
	"context"
	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/assetdesk/internal/asset"
	"sort"
	"time"
)

// AssetRepository implements the asset.Repository interface using an in-memory database
type AssetRepository struct {
	db *memdb.MemDB
}

var _ asset.Repository = (*AssetRepository)(nil)

// Get retrieves multiple assets ordered by their name together with the total amount of assets.
// If limit <= 0, a default limit value of 10 is used.
func (repo *AssetRepository) Get(_ context.Context, offset, limit uint64) ([]*asset.Asset, uint64, error) {
	txn := repo.db.Txn(false)
	it, err := txn.Get(tableAssets, "id")
	if err != nil {
		return nil, 0, err
	}

	all := []*asset.Asset{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		cpy := *obj.(*asset.Asset)
		all = append(all, &cpy)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].UID < all[j].UID
	})

	return paginate(all, offset, limit), uint64(len(all)), nil
}

// GetByUID retrieves an asset by its UID
func (repo *AssetRepository) GetByUID(_ context.Context, uid string) (*asset.Asset, error) {
	txn := repo.db.Txn(false)
	obj, err := txn.First(tableAssets, "id", uid)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}
	cpy := *obj.(*asset.Asset)
	return &cpy, nil
}

// Create creates a new asset
func (repo *AssetRepository) Create(_ context.Context, create *asset.Create) (*asset.Asset, error) {
	obj := &asset.Asset{
		UID:         uuid.NewString(),
		Name:        create.Name,
		Location:    create.Location,
		Description: create.Description,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tableAssets, obj); err != nil {
		return nil, err
	}
	txn.Commit()

	cpy := *obj
	return &cpy, nil
}

// Update updates an existing asset
func (repo *AssetRepository) Update(_ context.Context, uid string, update *asset.Update) (*asset.Asset, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableAssets, "id", uid)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	obj := *raw.(*asset.Asset)
	if update.Name != nil {
		obj.Name = *update.Name
	}
	if update.Location != nil {
		obj.Location = *update.Location
	}
	if update.Description != nil {
		obj.Description = *update.Description
	}
	if err := txn.Insert(tableAssets, &obj); err != nil {
		return nil, err
	}
	txn.Commit()

	cpy := obj
	return &cpy, nil
}

// Delete deletes an asset by its UID
func (repo *AssetRepository) Delete(_ context.Context, uid string) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll(tableAssets, "id", uid); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func paginate[T any](all []T, offset, limit uint64) []T {
	if limit == 0 {
		limit = 10
	}
	if offset >= uint64(len(all)) {
		return []T{}
	}
	end := offset + limit
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	return all[offset:end]
}
