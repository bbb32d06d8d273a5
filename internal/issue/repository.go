package issue

import (
	"context"
	"github.com/google/uuid"
)

// Repository defines the issue repository API
type Repository interface {
	// Get retrieves multiple issues following a filter, ordered by their creation date (descending), together with the
	// total amount of issues matching the filter.
	// If limit <= 0, a default limit value of 10 is used.
	Get(ctx context.Context, filter *Filter, offset, limit uint64) ([]*Issue, uint64, error)

	// GetByID retrieves an issue by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Issue, error)

	// Create creates a new open issue
	Create(ctx context.Context, create *Create) (*Issue, error)

	// UpdateStatus changes the status of an existing issue
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Issue, error)
}

// Filter is used to query issues based on a filter
type Filter struct {
	Status   *Status
	AssetUID *string
}

// Create is used to create a new issue
type Create struct {
	AssetUID      string
	AssetName     string
	AssetLocation string
	Description   string
	Reporter      string
}
