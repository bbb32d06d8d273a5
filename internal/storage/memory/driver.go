package memory

import (
	"context"
	"github.com/hashicorp/go-memdb"
	"github.com/skybi/assetdesk/internal/asset"
	"github.com/skybi/assetdesk/internal/issue"
	"github.com/skybi/assetdesk/internal/storage"
	"github.com/skybi/assetdesk/internal/user"
)

const (
	tableUsers  = "users"
	tableAssets = "assets"
	tableIssues = "issues"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableUsers: {
			Name: tableUsers,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
			},
		},
		tableAssets: {
			Name: tableAssets,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "UID"},
				},
			},
		},
		tableIssues: {
			Name: tableIssues,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"status": {
					Name:    "status",
					Indexer: &memdb.StringFieldIndex{Field: "Status"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb.
// Its data does not survive a restart; it is meant for development and tests.
type Driver struct {
	db     *memdb.MemDB
	users  *UserRepository
	assets *AssetRepository
	issues *IssueRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver
func New() *Driver {
	return &Driver{}
}

// Initialize creates the in-memory database and the repository implementations
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.users = &UserRepository{db: db}
	driver.assets = &AssetRepository{db: db}
	driver.issues = &IssueRepository{db: db}
	return nil
}

// Users provides the in-memory user repository implementation
func (driver *Driver) Users() user.Repository {
	return driver.users
}

// Assets provides the in-memory asset repository implementation
func (driver *Driver) Assets() asset.Repository {
	return driver.assets
}

// Issues provides the in-memory issue repository implementation
func (driver *Driver) Issues() issue.Repository {
	return driver.issues
}

// Close discards the repository implementations and the stored data
func (driver *Driver) Close() {
	driver.users = nil
	driver.assets = nil
	driver.issues = nil
	driver.db = nil
}
