package storage

import (
	"context"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/user"
)

// Driver represents a storage driver
type Driver interface {
	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Users provides a user repository implementation
	Users() user.Repository

	// Assets provides an asset repository implementation
	Assets() asset.Repository

	// Issues provides an issue repository implementation
	Issues() issue.Repository

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}
