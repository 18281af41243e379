package service

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// Config row keys outside the channel and icon families.
const (
	KeyName          = "name"
	KeyURL           = "url"
	KeyGeomType      = "geomType:value"
	KeyProperties    = "properties"
	KeyLabelProperty = "label:property"
	KeyLabelMinZoom  = "label:minzoom"
	KeyLabelDivClass = "label:divclass"
	KeyPopup         = "popupMst"
	KeyAttribution   = "attributionMst"
)

const (
	defaultLabelMinZoom  = 1
	defaultLabelDivClass = "label_div"
)

var idUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// LayerID turns a layer name into a DOM-safe id.
func LayerID(name string) string {
	return idUnsafe.ReplaceAllString(name, "_")
}

// DecodeRow builds a layer from one configuration row. Cells are trimmed and
// blanks dropped first.
func DecodeRow(raw tabular.Row) (*Layer, error) {
	row := tabular.RemoveBlanks(raw)
	name := row[KeyName]
	if name == "" {
		return nil, errs.Configf("", "", "row has no %s", KeyName)
	}

	l := &Layer{
		ID:             LayerID(name),
		Name:           name,
		SourceURL:      row[KeyURL],
		PopupURL:       row[KeyPopup],
		AttributionURL: row[KeyAttribution],
		Row:            row,
		Anchor:         icon.DefaultAnchor,
	}
	if l.SourceURL == "" {
		return nil, errs.Configf(name, "", "row has no %s", KeyURL)
	}

	switch strings.ToLower(row[KeyGeomType]) {
	case "point":
		l.Kind = Point
	case "", "shape", "polygon", "line":
		l.Kind = Shape
	default:
		return nil, errs.Configf(name, KeyGeomType, "unknown geometry type %q", row[KeyGeomType])
	}

	rules, err := style.ParseDirectives(name, row)
	if err != nil {
		return nil, err
	}
	l.Rules = rules

	if l.Kind == Point {
		l.Icon = icon.RuleFromRow(row)
		if a, ok := row[icon.KeyAnchor]; ok {
			off, err := icon.ResolveAnchorOffset(name, icon.DefaultSize, a)
			if err != nil {
				return nil, err
			}
			l.Anchor = off
		}
	}

	if p, ok := row[KeyProperties]; ok {
		l.Selectable = strings.Fields(p)
	}

	if p, ok := row[KeyLabelProperty]; ok {
		label := &LabelRule{Property: p, MinZoom: defaultLabelMinZoom, DivClass: defaultLabelDivClass}
		if z, ok := row[KeyLabelMinZoom]; ok {
			mz, err := strconv.ParseFloat(z, 64)
			if err != nil {
				return nil, errs.Configf(name, KeyLabelMinZoom, "%q is not a number", z)
			}
			label.MinZoom = mz
		}
		if c, ok := row[KeyLabelDivClass]; ok {
			label.DivClass = c
		}
		label.Tier = int(math.Ceil(label.MinZoom))
		l.Label = label
	}
	return l, nil
}
