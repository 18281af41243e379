// Package mapview is the server-side model of the interactive map: the base
// layers, the view, and one Drawable per visible data layer with its
// styling, popups, markers and zoom labels.
//
// A Map is owned by the event loop and is not safe for concurrent use.
package mapview

import (
	"fmt"
	"html"
	"slices"

	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-legend/internal/zoom"
)

// Initial view.
var (
	DefaultCenter = orb.Point{-122.25, 37.5}
	DefaultZoom   = 9
)

// Built-in base layers.
var (
	OpenStreetMap = BaseLayer{
		Name:        "OpenStreetMap",
		URL:         "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`,
		MaxZoom:     19,
	}
	CartoDB = BaseLayer{
		Name:        "CartoDB",
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
		MaxZoom:     19,
	}
)

// BaseLayer is a raster or vector tile source drawn under the data layers.
type BaseLayer struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Attribution string `json:"attribution,omitempty"`
	MinZoom     int    `json:"minZoom,omitempty"`
	MaxZoom     int    `json:"maxZoom,omitempty"`
	// Bounds is [west, south, east, north] when known.
	Bounds []float64 `json:"bounds,omitempty"`
}

// Map holds the view and the visible data layers in draw order.
type Map struct {
	center orb.Point
	zoom   int
	bases  []BaseLayer
	active string
	layers map[string]*Drawable
	order  []string
}

// New creates a map at the default view with OpenStreetMap and CartoDB,
// CartoDB active.
func New() *Map {
	return &Map{
		center: DefaultCenter,
		zoom:   DefaultZoom,
		bases:  []BaseLayer{OpenStreetMap, CartoDB},
		active: CartoDB.Name,
		layers: map[string]*Drawable{},
	}
}

// AddBaseLayer registers another base layer; a name already present is
// replaced.
func (m *Map) AddBaseLayer(b BaseLayer) {
	for i := range m.bases {
		if m.bases[i].Name == b.Name {
			m.bases[i] = b
			return
		}
	}
	m.bases = append(m.bases, b)
}

// SetBaseLayer switches the active base layer.
func (m *Map) SetBaseLayer(name string) error {
	for _, b := range m.bases {
		if b.Name == name {
			m.active = name
			return nil
		}
	}
	return fmt.Errorf("unknown base layer %q", name)
}

// BaseLayer returns the active base layer name.
func (m *Map) BaseLayer() string { return m.active }

// SetView moves the map.
func (m *Map) SetView(center orb.Point, z int) {
	m.center = center
	m.zoom = z
}

// SetZoom changes the zoom, keeping the center.
func (m *Map) SetZoom(z int) { m.zoom = z }

// Zoom returns the current zoom.
func (m *Map) Zoom() int { return m.zoom }

// Center returns the current center as [lon, lat].
func (m *Map) Center() orb.Point { return m.center }

// Add shows a drawable on top of the others. Adding a visible drawable is a
// no-op.
func (m *Map) Add(d *Drawable) {
	if _, ok := m.layers[d.ID]; ok {
		return
	}
	m.layers[d.ID] = d
	m.order = append(m.order, d.ID)
}

// Remove hides a drawable. Unknown ids are ignored.
func (m *Map) Remove(id string) {
	if _, ok := m.layers[id]; !ok {
		return
	}
	delete(m.layers, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
}

// Has reports whether a drawable is visible.
func (m *Map) Has(id string) bool {
	_, ok := m.layers[id]
	return ok
}

// Layers lists the visible drawables in draw order.
func (m *Map) Layers() []*Drawable {
	out := make([]*Drawable, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.layers[id])
	}
	return out
}

// SetTierVisible shows or hides every label of a tier on the visible layers.
func (m *Map) SetTierVisible(tier int, visible bool) {
	for _, d := range m.layers {
		for i := range d.labels {
			if d.labels[i].Tier == tier {
				d.labels[i].Hidden = !visible
			}
		}
	}
}

var _ zoom.Surface = (*Map)(nil)

// View is a snapshot of the map state.
type View struct {
	// Center is [lat, lon].
	Center     [2]float64  `json:"center" doc:"Map center as [lat, lon]"`
	Zoom       int         `json:"zoom" doc:"Current zoom level"`
	BaseLayer  string      `json:"baseLayer" doc:"Active base layer"`
	BaseLayers []BaseLayer `json:"baseLayers" doc:"Available base layers"`
	Layers     []string    `json:"layers" doc:"Visible data layers in draw order"`
}

// Snapshot captures the current view.
func (m *Map) Snapshot() View {
	return View{
		Center:     [2]float64{m.center.Lat(), m.center.Lon()},
		Zoom:       m.zoom,
		BaseLayer:  m.active,
		BaseLayers: slices.Clone(m.bases),
		Layers:     slices.Clone(m.order),
	}
}

// Label is a zoom-tiered text annotation.
type Label struct {
	Position orb.Point `json:"position"`
	Tier     int       `json:"tier"`
	DivClass string    `json:"divClass"`
	Value    string    `json:"value"`
	Hidden   bool      `json:"hidden"`
}

// Class is the marker class: the tier class then the configured div class.
func (l Label) Class() string {
	return zoom.TierClass(l.Tier) + " " + l.DivClass
}

// HTML renders the label body.
func (l Label) HTML() string {
	style := ""
	if l.Hidden {
		style = ` style="display: none"`
	}
	return fmt.Sprintf(`<p class="%s"%s>%s</p>`, zoom.TierClass(l.Tier), style, html.EscapeString(l.Value))
}
