package mapview

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-legend/internal/style"
)

// Marker is the symbol drawn for a point feature.
type Marker struct {
	IconURL string     `json:"iconUrl"`
	Size    [2]float64 `json:"iconSize"`
	Anchor  [2]float64 `json:"iconAnchor"`
}

// StyleFunc computes path options for a feature.
type StyleFunc func(f *geojson.Feature) style.Style

// PopupFunc computes popup HTML for a feature.
type PopupFunc func(f *geojson.Feature) string

// PointFunc builds the marker of a point feature.
type PointFunc func(f *geojson.Feature, at orb.Point) Marker

// Drawable is the rendered form of one data layer.
type Drawable struct {
	ID          string
	Attribution string

	features []*geojson.Feature
	style    StyleFunc
	popup    PopupFunc
	point    PointFunc
	labels   []Label
}

// NewDrawable creates an empty drawable.
func NewDrawable(id string) *Drawable {
	return &Drawable{ID: id}
}

// AddData appends the features of a collection.
func (d *Drawable) AddData(fc *geojson.FeatureCollection) {
	if fc == nil {
		return
	}
	d.features = append(d.features, fc.Features...)
}

// Features returns a copy of the loaded feature list. The features
// themselves are shared and must not be mutated.
func (d *Drawable) Features() []*geojson.Feature { return slices.Clone(d.features) }

// SetStyle replaces the style function; later feature views use it.
func (d *Drawable) SetStyle(fn StyleFunc) { d.style = fn }

// BindPopup sets the popup function.
func (d *Drawable) BindPopup(fn PopupFunc) { d.popup = fn }

// SetPointToLayer sets how point features become markers.
func (d *Drawable) SetPointToLayer(fn PointFunc) { d.point = fn }

// AddLabels appends zoom labels.
func (d *Drawable) AddLabels(labels ...Label) { d.labels = append(d.labels, labels...) }

// UpdateLabels applies fn to every label in place.
func (d *Drawable) UpdateLabels(fn func(*Label)) {
	for i := range d.labels {
		fn(&d.labels[i])
	}
}

// Labels returns a snapshot of the layer's labels. Later tier toggles do
// not reach it.
func (d *Drawable) Labels() []Label { return slices.Clone(d.labels) }

// FeatureView is one feature as the map would draw it.
type FeatureView struct {
	Feature *geojson.Feature `json:"feature"`
	Style   style.Style      `json:"style,omitempty"`
	Popup   string           `json:"popup,omitempty"`
	Marker  *Marker          `json:"marker,omitempty"`
}

// Views evaluates style, popup and marker for every feature.
func (d *Drawable) Views() []FeatureView {
	out := make([]FeatureView, 0, len(d.features))
	for _, f := range d.features {
		out = append(out, d.View(f))
	}
	return out
}

// View evaluates a single feature.
func (d *Drawable) View(f *geojson.Feature) FeatureView {
	v := FeatureView{Feature: f}
	if pt, ok := f.Geometry.(orb.Point); ok && d.point != nil {
		m := d.point(f, pt)
		v.Marker = &m
	} else if d.style != nil {
		v.Style = d.style(f)
	}
	if d.popup != nil {
		v.Popup = d.popup(f)
	}
	return v
}
