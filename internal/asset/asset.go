package asset

import "time"

// Asset represents a physical asset managed by the application
type Asset struct {
	UID         string    `json:"uid"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref returns the minimal identifying data of the asset used in public report links
func (asset *Asset) Ref() Ref {
	return Ref{
		UID:      asset.UID,
		Name:     asset.Name,
		Location: asset.Location,
	}
}
