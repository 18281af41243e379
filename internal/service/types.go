// Package service holds the application context of the legend engine: the
// layer registry, the layer loader, property redirection, zoom labels and
// the file-backed source and base-layer services.
package service

import (
	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// GeometryKind selects point markers or styled paths.
type GeometryKind string

const (
	Point GeometryKind = "point"
	Shape GeometryKind = "shape"
)

// LoadState is where a layer is in its load lifecycle.
type LoadState int

const (
	Registered LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return "registered"
}

// LabelRule places a property value as a zoom-tiered annotation.
type LabelRule struct {
	Property string  `json:"property" doc:"Feature property rendered as the label"`
	MinZoom  float64 `json:"minZoom" doc:"Zoom at which labels appear"`
	Tier     int     `json:"tier" doc:"Label tier, ceil(minZoom)"`
	DivClass string  `json:"divClass" doc:"CSS class of the label marker"`
}

// Layer is one overlay layer: its decoded configuration plus load state.
type Layer struct {
	ID             string
	Name           string
	Kind           GeometryKind
	SourceURL      string
	Rules          style.RuleSet
	Icon           icon.Rule
	Anchor         [2]float64
	Label          *LabelRule
	PopupURL       string
	AttributionURL string
	Selectable     []string
	// Row is the blank-stripped configuration row, the attribution context.
	Row tabular.Row

	State     LoadState
	Enabled   bool
	LastError error

	drawable *mapview.Drawable
}

// Drawable returns the layer's map drawable.
func (l *Layer) Drawable() *mapview.Drawable { return l.drawable }

// LayerSummary is the API view of a layer.
type LayerSummary struct {
	ID          string            `json:"id" doc:"Layer id derived from the name" example:"census_tracts"`
	Name        string            `json:"name" doc:"Display name" example:"Census Tracts"`
	Geometry    GeometryKind      `json:"geometry" enum:"point,shape" doc:"Geometry kind"`
	Source      string            `json:"source" doc:"Geometry URL"`
	State       string            `json:"state" enum:"registered,loading,loaded" doc:"Load state"`
	Enabled     bool              `json:"enabled" doc:"Whether the overlay is shown"`
	Error       string            `json:"error,omitempty" doc:"Last load failure"`
	Features    int               `json:"features" doc:"Number of loaded features"`
	Selectable  []string          `json:"selectable,omitempty" doc:"Properties styling may be redirected to"`
	Scaled      map[string]string `json:"scaled,omitempty" doc:"Scaled channel to the property driving it"`
	Label       *LabelRule        `json:"label,omitempty" doc:"Zoom label rule"`
	Attribution string            `json:"attribution,omitempty" doc:"Rendered attribution"`
}

// LayerFeatures is everything drawn for one loaded layer.
type LayerFeatures struct {
	ID       string                `json:"id"`
	Features []mapview.FeatureView `json:"features"`
	Labels   []mapview.Label       `json:"labels"`
}

// SourceFile represents a source data file (GeoJSON, etc.).
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"tracts.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type" example:"GeoJSON"`
	URL      string `json:"url" doc:"URL usable in the layer config" example:"sources/tracts.geojson"`
}

// TileFile represents a PMTiles file offered as a base layer.
type TileFile struct {
	Name     string    `json:"name" doc:"PMTiles file name" example:"bay.pmtiles"`
	Size     string    `json:"size" doc:"Human-readable file size" example:"5.4 MB"`
	TileType string    `json:"tileType,omitempty" doc:"Tile format from the header" example:"png"`
	MinZoom  int       `json:"minZoom" doc:"Minimum zoom"`
	MaxZoom  int       `json:"maxZoom" doc:"Maximum zoom"`
	Bounds   []float64 `json:"bounds,omitempty" doc:"[west, south, east, north]"`
	Error    string    `json:"error,omitempty" doc:"Header read failure"`
}
