package cache

import (
	"context"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/hashmap"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/storage"
	"github.com/skybi/assetdesk/internal/user"
	"time"
)

var cleanupInterval = 10 * time.Second

// Driver represents a storage driver implementation that wraps another one in order to implement in-memory caching.
// Issues change too often to be worth caching and are always served by the underlying driver.
type Driver struct {
	underlying storage.Driver
	lifetime   time.Duration
	users      *UserRepository
	assets     *AssetRepository
}

var _ storage.Driver = (*Driver)(nil)

// New returns a new caching storage driver whose entries live for the given lifetime.
// The underlying driver has to be initialized before Initialize is called on the caching one.
func New(underlying storage.Driver, lifetime time.Duration) *Driver {
	return &Driver{
		underlying: underlying,
		lifetime:   lifetime,
	}
}

// Initialize initializes the caching repositories
func (driver *Driver) Initialize(_ context.Context) error {
	userCache := hashmap.NewExpiring[string, *user.User](driver.lifetime)
	userCache.ScheduleCleanupTask(cleanupInterval)
	driver.users = &UserRepository{
		repo:  driver.underlying.Users(),
		cache: userCache,
	}

	assetCache := hashmap.NewExpiring[string, *asset.Asset](driver.lifetime)
	assetCache.ScheduleCleanupTask(cleanupInterval)
	driver.assets = &AssetRepository{
		repo:  driver.underlying.Assets(),
		cache: assetCache,
	}

	return nil
}

// Users provides the caching user repository implementation
func (driver *Driver) Users() user.Repository {
	return driver.users
}

// Assets provides the caching asset repository implementation
func (driver *Driver) Assets() asset.Repository {
	return driver.assets
}

// Issues provides the issue repository of the underlying driver
func (driver *Driver) Issues() issue.Repository {
	return driver.underlying.Issues()
}

// Close closes the caching repositories and the underlying driver
func (driver *Driver) Close() {
	driver.users.cache.StopCleanupTask()
	driver.users = nil
	driver.assets.cache.StopCleanupTask()
	driver.assets = nil
	driver.underlying.Close()
}
