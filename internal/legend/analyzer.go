// Package legend derives a layer's legend from its active style rules and
// renders it.
//
// The analyzer never looks at geometry: it reads the fitted scale domains of
// the scaled rules (and, for point layers, the icon lookup table) and builds
// representative sample values from them.
package legend

import (
	"math"
	"strconv"

	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// DefaultLevels is the number of samples drawn across a continuous domain.
const DefaultLevels = 5

// Sample is one legend row: a value for the dimension's property plus the
// midpoint of every other varying property.
type Sample struct {
	Properties map[string]float64 `json:"properties"`
	Formatted  map[string]string  `json:"formatted,omitempty"`
}

// Dimension is a property currently driving at least one scaled channel.
type Dimension struct {
	Property string          `json:"property"`
	Channels []style.Channel `json:"channels"`
	Domain   []float64       `json:"domain"`
	Midpoint float64         `json:"midpoint"`
	// Decimals is the formatter precision for continuous domains, -1 otherwise.
	Decimals int      `json:"decimals"`
	Samples  []Sample `json:"samples"`
}

// Continuous reports whether the domain is a [low, high] pair.
func (d Dimension) Continuous() bool {
	return len(d.Domain) == 2
}

// Label formats a sample value of this dimension for display.
func (d Dimension) Label(s Sample) string {
	if txt, ok := s.Formatted[d.Property]; ok {
		return txt
	}
	return strconv.FormatFloat(s.Properties[d.Property], 'f', -1, 64)
}

// DecimalsFor picks formatter precision from the domain width: more digits
// for narrow ranges. A zero-width range formats like a width of 1.
func DecimalsFor(width float64) int {
	width = math.Abs(width)
	if width == 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		width = 1
	}
	// Log10 of an exact power of ten can land a hair off the integer.
	d := math.Floor(3 - math.Log10(width) + 1e-9)
	return int(math.Max(0, math.Min(d, 12)))
}

// ShapeDimensions groups the scaled channels of a rule set by property, in
// channel order. levels below 2 fall back to DefaultLevels.
func ShapeDimensions(rules style.RuleSet, levels int) []Dimension {
	if levels < 2 {
		levels = DefaultLevels
	}

	var dims []Dimension
	index := map[string]int{}
	for _, ch := range rules.ScaledChannels() {
		r := rules[ch]
		domain := r.EffectiveDomain()
		i, ok := index[r.Property]
		if !ok {
			index[r.Property] = len(dims)
			dims = append(dims, Dimension{
				Property: r.Property,
				Channels: []style.Channel{ch},
				Domain:   append([]float64(nil), domain...),
			})
			continue
		}
		d := &dims[i]
		d.Channels = append(d.Channels, ch)
		d.Domain = widest(d.Domain, domain)
	}

	for i := range dims {
		d := &dims[i]
		d.Decimals = -1
		if n := len(d.Domain); n > 2 {
			d.Midpoint = d.Domain[n/2]
		} else {
			d.Midpoint = (d.Domain[0] + d.Domain[1]) / 2
			d.Decimals = DecimalsFor(d.Domain[1] - d.Domain[0])
		}
	}

	for i := range dims {
		d := &dims[i]
		if d.Continuous() {
			lo, hi := d.Domain[0], d.Domain[1]
			for j := 0; j < levels; j++ {
				v := lo + float64(j)/float64(levels-1)*(hi-lo)
				d.Samples = append(d.Samples, Sample{
					Properties: map[string]float64{d.Property: v},
					Formatted:  map[string]string{d.Property: strconv.FormatFloat(v, 'f', d.Decimals, 64)},
				})
			}
		} else {
			for _, v := range d.Domain {
				d.Samples = append(d.Samples, Sample{Properties: map[string]float64{d.Property: v}})
			}
		}
		for _, other := range dims {
			if other.Property == d.Property {
				continue
			}
			for k := range d.Samples {
				d.Samples[k].Properties[other.Property] = other.Midpoint
			}
		}
	}
	return dims
}

// widest keeps the longer domain; two continuous domains merge into their
// union extent.
func widest(cur, next []float64) []float64 {
	switch {
	case len(next) > len(cur):
		return append([]float64(nil), next...)
	case len(next) == 2 && len(cur) == 2:
		return []float64{math.Min(cur[0], next[0]), math.Max(cur[1], next[1])}
	default:
		return cur
	}
}

// PointDimensions lists the lookup-table columns that select an icon: every
// column used by some row, except the icon URL column, in header order.
func PointDimensions(t *tabular.Table) []string {
	if t == nil {
		return nil
	}
	used := map[string]bool{}
	for _, row := range t.Rows {
		for col := range row {
			used[col] = true
		}
	}
	var cols []string
	seen := map[string]bool{}
	for _, col := range t.Columns {
		if icon.IsURLColumn(col) || !used[col] || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, col)
	}
	return cols
}
