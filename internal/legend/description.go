package legend

import (
	"fmt"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// Geometry kinds of a legend.
const (
	GeometryPoint = "point"
	GeometryShape = "shape"
)

// Subject is everything the analyzer needs to know about one layer.
type Subject struct {
	ID         string
	Name       string
	Point      bool
	Rules      style.RuleSet
	Icon       icon.Rule
	IconTable  *tabular.Table
	Selectable []string
}

// Swatch is a path style drawn as a small rectangle.
type Swatch struct {
	Stroke      string `json:"stroke,omitempty"`
	StrokeWidth string `json:"strokeWidth,omitempty"`
	Opacity     string `json:"opacity,omitempty"`
	Fill        string `json:"fill,omitempty"`
}

// Option is one entry of a dimension's property selector.
type Option struct {
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
}

// Row is one sample of a shape dimension.
type Row struct {
	Label  string `json:"label"`
	Swatch Swatch `json:"swatch"`
}

// ShapeLegend is the table drawn for one dimension of a shape layer.
type ShapeLegend struct {
	Dimension Dimension `json:"dimension"`
	Options   []Option  `json:"options,omitempty"`
	Rows      []Row     `json:"rows"`
}

// PointRow is one lookup-table row of a point legend.
type PointRow struct {
	Values  []string `json:"values"`
	IconURL string   `json:"iconUrl"`
}

// PointLegend is the icon table of a point layer.
type PointLegend struct {
	Columns []string   `json:"columns"`
	Rows    []PointRow `json:"rows"`
}

// Description is the full legend of one layer, ready to render.
type Description struct {
	LayerID    string `json:"layerId"`
	LayerName  string `json:"layerName"`
	Geometry   string `json:"geometry"`
	Degenerate bool   `json:"degenerate"`
	// IconURL and Swatch are the single indicator of a degenerate legend.
	IconURL string        `json:"iconUrl,omitempty"`
	Swatch  *Swatch       `json:"swatch,omitempty"`
	Shapes  []ShapeLegend `json:"shapes,omitempty"`
	Points  *PointLegend  `json:"points,omitempty"`
}

// Build analyzes a layer and describes its legend.
func Build(s Subject, levels int) Description {
	d := Description{LayerID: s.ID, LayerName: s.Name}
	if s.Point {
		d.Geometry = GeometryPoint
		buildPoint(&d, s)
	} else {
		d.Geometry = GeometryShape
		buildShape(&d, s, levels)
	}
	return d
}

func buildPoint(d *Description, s Subject) {
	cols := PointDimensions(s.IconTable)
	if len(cols) == 0 {
		d.Degenerate = true
		d.IconURL = s.Icon.URL
		if d.IconURL == "" {
			d.IconURL = icon.UnknownURL
		}
		return
	}
	p := &PointLegend{Columns: append(cols, "icon")}
	for _, row := range s.IconTable.Rows {
		url := row[icon.KeyValue]
		if url == "" {
			url = row[icon.KeyURL]
		}
		if url == "" {
			continue
		}
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = row[c]
		}
		p.Rows = append(p.Rows, PointRow{Values: vals, IconURL: url})
	}
	d.Points = p
}

func buildShape(d *Description, s Subject, levels int) {
	dims := ShapeDimensions(s.Rules, levels)
	if len(dims) == 0 {
		d.Degenerate = true
		sw := swatchFor(s.Rules, geojson.Properties{})
		d.Swatch = &sw
		return
	}
	for _, dim := range dims {
		sl := ShapeLegend{Dimension: dim}
		for _, p := range s.Selectable {
			sl.Options = append(sl.Options, Option{Value: p, Selected: p == dim.Property})
		}
		for _, sample := range dim.Samples {
			props := make(geojson.Properties, len(sample.Properties))
			for k, v := range sample.Properties {
				props[k] = v
			}
			sl.Rows = append(sl.Rows, Row{Label: dim.Label(sample), Swatch: swatchFor(s.Rules, props)})
		}
		d.Shapes = append(d.Shapes, sl)
	}
}

// swatchFor evaluates the layer's rules against a synthetic feature.
func swatchFor(rules style.RuleSet, props geojson.Properties) Swatch {
	f := geojson.NewFeature(orb.Point{})
	f.Properties = props
	st := rules.Evaluate(f)
	return Swatch{
		Stroke:      attr(st[style.Color]),
		StrokeWidth: attr(st[style.Weight]),
		Opacity:     attr(st[style.FillOpacity]),
		Fill:        attr(st[style.FillColor]),
	}
}

func attr(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
