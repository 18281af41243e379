// Package icon resolves marker icons for point layers: the icon URL for a
// feature and the anchor offset within the icon image.
package icon

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// UnknownURL is returned whenever no icon can be chosen.
const UnknownURL = "icons/Unknown.png"

// Config keys. Each concept has two historical spellings.
const (
	KeyValue       = "icon:value"
	KeyURL         = "icon:url"
	KeyCategorical = "icon:categoricalMapCsv"
	KeyMap         = "icon:mapCsv"
	KeyAnchor      = "icon:anchor"
)

// DefaultSize is the marker icon size in pixels.
var DefaultSize = [2]float64{16, 16}

// DefaultAnchor is used when no anchor is configured.
var DefaultAnchor = [2]float64{8, 16}

// Rule is a layer's icon configuration. At most one of URL and TableURL
// is set; with neither, every feature gets UnknownURL.
type Rule struct {
	URL      string
	TableURL string
}

// RuleFromRow reads the icon keys of a configuration row.
func RuleFromRow(row tabular.Row) Rule {
	if v, ok := firstOf(row, KeyValue, KeyURL); ok {
		return Rule{URL: v}
	}
	if v, ok := firstOf(row, KeyCategorical, KeyMap); ok {
		return Rule{TableURL: v}
	}
	return Rule{}
}

func firstOf(row tabular.Row, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok {
			return v, true
		}
	}
	return "", false
}

// TableSource returns the lookup table for a URL, or nil while it has not
// arrived.
type TableSource func(url string) *tabular.Table

// URLFunc maps a feature to its icon URL.
type URLFunc func(f *geojson.Feature) string

// BuildURLFunc returns the icon chooser for a rule. Lookup tables are read
// through tables on every call, so a table that arrives later is honoured;
// until then every lookup misses.
func BuildURLFunc(rule Rule, tables TableSource) URLFunc {
	switch {
	case rule.URL != "":
		url := rule.URL
		return func(*geojson.Feature) string { return url }
	case rule.TableURL != "":
		tableURL := rule.TableURL
		return func(f *geojson.Feature) string {
			if tables == nil {
				return UnknownURL
			}
			return Lookup(tables(tableURL), f)
		}
	default:
		return func(*geojson.Feature) string { return UnknownURL }
	}
}

// IsURLColumn reports whether a lookup-table column holds the icon URL.
func IsURLColumn(col string) bool {
	return col == KeyValue || col == KeyURL
}

// Lookup scans rows in order and returns the icon of the first row whose
// every other non-blank cell equals the feature's property of that name.
func Lookup(t *tabular.Table, f *geojson.Feature) string {
	if t == nil || f == nil {
		return UnknownURL
	}
	for _, row := range t.Rows {
		url, ok := firstOf(row, KeyValue, KeyURL)
		if !ok {
			continue
		}
		if rowMatches(row, f.Properties) {
			return url
		}
	}
	return UnknownURL
}

func rowMatches(row tabular.Row, props geojson.Properties) bool {
	for col, want := range row {
		if IsURLColumn(col) {
			continue
		}
		got, ok := props[col]
		if !ok || got == nil {
			return false
		}
		if strings.TrimSpace(propertyString(got)) != want {
			return false
		}
	}
	return true
}

func propertyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

var anchorFractions = map[string][2]float64{
	"top-left":      {0, 0},
	"left-top":      {0, 0},
	"top-center":    {0.5, 0},
	"center-top":    {0.5, 0},
	"top-right":     {1, 0},
	"right-top":     {1, 0},
	"center-left":   {0, 0.5},
	"left-center":   {0, 0.5},
	"center-center": {0.5, 0.5},
	"center":        {0.5, 0.5},
	"center-right":  {1, 0.5},
	"right-center":  {1, 0.5},
	"bottom-left":   {0, 1},
	"left-bottom":   {0, 1},
	"bottom-center": {0.5, 1},
	"center-bottom": {0.5, 1},
	"bottom-right":  {1, 1},
	"right-bottom":  {1, 1},
}

// ResolveAnchorOffset scales a named anchor position by the icon size. An
// empty anchor gives DefaultAnchor.
func ResolveAnchorOffset(layer string, size [2]float64, anchor string) ([2]float64, error) {
	anchor = strings.TrimSpace(anchor)
	if anchor == "" {
		return DefaultAnchor, nil
	}
	frac, ok := anchorFractions[strings.ToLower(anchor)]
	if !ok {
		return [2]float64{}, errs.Configf(layer, KeyAnchor, "unknown icon:anchor %q", anchor)
	}
	return [2]float64{frac[0] * size[0], frac[1] * size[1]}, nil
}
