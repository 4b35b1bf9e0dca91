package common

import (
	"time"

	"github.com/go-spatial/geom"
)

// Scene is one candidate product returned by a catalog search.
// The order of the scenes is the one returned by the provider.
type Scene struct {
	ID         string    `json:"id"`
	ItemType   string    `json:"item_type"`
	Instrument string    `json:"instrument"`
	Acquired   time.Time `json:"acquired"`
	CloudCover float64   `json:"cloud_cover"`
	ViewAngle  float64   `json:"view_angle"`

	// Footprint is the scene outline in EPSG:4326
	Footprint geom.Geometry `json:"-"`
}

// OrderLogEntry is the record appended to each order-log sink for every
// terminal order outcome.
type OrderLogEntry struct {
	Time       time.Time `json:"time"`
	OrderID    string    `json:"order_id"`
	SceneID    string    `json:"scene_id"`
	ItemType   string    `json:"item_type"`
	Bundle     Bundle    `json:"bundle"`
	Status     Status    `json:"status"`
	OutputPath string    `json:"output_path,omitempty"`
	Message    string    `json:"message,omitempty"`
}
