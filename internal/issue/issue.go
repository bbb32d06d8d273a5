package issue

import (
	"github.com/google/uuid"
	"time"
)

// Status represents the processing status of an issue
type Status string

const (
	StatusOpen     Status = "open"
	StatusResolved Status = "resolved"
)

// Valid reports whether the status is one of the known ones
func (status Status) Valid() bool {
	return status == StatusOpen || status == StatusResolved
}

// Issue represents a problem reported for a physical asset.
// The asset name and location are a snapshot of the report link the issue was submitted from.
type Issue struct {
	ID            uuid.UUID  `json:"id"`
	AssetUID      string     `json:"asset_uid"`
	AssetName     string     `json:"asset_name"`
	AssetLocation string     `json:"asset_location"`
	Description   string     `json:"description"`
	Reporter      string     `json:"reporter"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}
