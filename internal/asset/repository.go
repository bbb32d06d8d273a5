package asset

import "context"

// Repository defines the asset repository API
type Repository interface {
	// Get retrieves multiple assets ordered by their name together with the total amount of assets.
	// If limit <= 0, a default limit value of 10 is used.
	Get(ctx context.Context, offset, limit uint64) ([]*Asset, uint64, error)

	// GetByUID retrieves an asset by its UID
	GetByUID(ctx context.Context, uid string) (*Asset, error)

	// Create creates a new asset
	Create(ctx context.Context, create *Create) (*Asset, error)

	// Update updates an existing asset
	Update(ctx context.Context, uid string, update *Update) (*Asset, error)

	// Delete deletes an asset by its UID
	Delete(ctx context.Context, uid string) error
}

// Create is used to create a new asset
type Create struct {
	Name        string
	Location    string
	Description string
}

// Update is used to update an existing asset
type Update struct {
	Name        *string
	Location    *string
	Description *string
}
