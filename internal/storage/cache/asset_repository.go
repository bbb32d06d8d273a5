package cache

import (
	"context"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/hashmap"
)

// AssetRepository implements the asset.Repository interface in order to implement caching
type AssetRepository struct {
	repo  asset.Repository
	cache *hashmap.ExpiringMap[string, *asset.Asset]
}

var _ asset.Repository = (*AssetRepository)(nil)

// Get retrieves multiple assets ordered by their name together with the total amount of assets.
// If limit <= 0, a default limit value of 10 is used.
func (repo *AssetRepository) Get(ctx context.Context, offset, limit uint64) ([]*asset.Asset, uint64, error) {
	assets, n, err := repo.repo.Get(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for _, obj := range assets {
		repo.cache.Set(obj.UID, obj)
	}
	return assets, n, nil
}

// GetByUID retrieves an asset by its UID
func (repo *AssetRepository) GetByUID(ctx context.Context, uid string) (*asset.Asset, error) {
	cached, ok := repo.cache.Lookup(uid)
	if ok {
		return cached, nil
	}
	obj, err := repo.repo.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if obj != nil {
		repo.cache.Set(obj.UID, obj)
	}
	return obj, nil
}

// Create creates a new asset
func (repo *AssetRepository) Create(ctx context.Context, create *asset.Create) (*asset.Asset, error) {
	obj, err := repo.repo.Create(ctx, create)
	if err != nil {
		return nil, err
	}
	repo.cache.Set(obj.UID, obj)
	return obj, nil
}

// Update updates an existing asset
func (repo *AssetRepository) Update(ctx context.Context, uid string, update *asset.Update) (*asset.Asset, error) {
	obj, err := repo.repo.Update(ctx, uid, update)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		repo.cache.Unset(uid)
		return nil, nil
	}
	repo.cache.Set(obj.UID, obj)
	return obj, nil
}

// Delete deletes an asset by its UID
func (repo *AssetRepository) Delete(ctx context.Context, uid string) error {
	if err := repo.repo.Delete(ctx, uid); err != nil {
		return err
	}
	repo.cache.Unset(uid)
	return nil
}
