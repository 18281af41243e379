// Package style turns per-layer style directives into inspectable rules and
// evaluates them against features.
//
// Each style channel of a layer carries at most one Rule. A Rule is either
// Constant (a fixed value) or Scaled (a feature property mapped through a
// linear scale whose domain is refit to the loaded data).
package style

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// Channel is one independently configurable visual attribute. The names are
// the Leaflet path option names used as config-key prefixes.
type Channel string

const (
	Color       Channel = "color"
	FillColor   Channel = "fillColor"
	Opacity     Channel = "opacity"
	FillOpacity Channel = "fillOpacity"
	Weight      Channel = "weight"
)

// Channels lists every channel in evaluation order.
var Channels = []Channel{Color, FillColor, Opacity, FillOpacity, Weight}

// Numeric reports whether constant values on the channel are numbers.
func (c Channel) Numeric() bool {
	return c == Opacity || c == FillOpacity || c == Weight
}

// Kind tags the Rule union.
type Kind int

const (
	Constant Kind = iota
	Scaled
)

func (k Kind) String() string {
	if k == Scaled {
		return "scaled"
	}
	return "constant"
}

// Rule is the tagged union for one channel. Value is set for Constant rules;
// Property, Default and Scale for Scaled rules.
type Rule struct {
	Kind     Kind
	Value    any
	Property string
	Default  *float64
	Scale    Scale
}

// ConstantRule builds a fixed-value rule.
func ConstantRule(v any) Rule {
	return Rule{Kind: Constant, Value: v}
}

// ScaledRule builds a property-driven rule with an unfitted domain.
func ScaledRule(property string, rng Range, def *float64) Rule {
	return Rule{Kind: Scaled, Property: property, Default: def, Scale: Scale{Range: rng}}
}

// Get reads the rule's property from a feature as a number. A nil feature
// yields 0; an absent or non-numeric property yields the default, or 0.
func (r Rule) Get(f *geojson.Feature) float64 {
	if f == nil {
		return 0
	}
	if v, ok := f.Properties[r.Property]; ok {
		if n, ok := toFloat(v); ok {
			return n
		}
	}
	if r.Default != nil {
		return *r.Default
	}
	return 0
}

// Evaluate returns the style value for a feature.
func (r Rule) Evaluate(f *geojson.Feature) any {
	if r.Kind == Constant {
		return r.Value
	}
	return r.Scale.Apply(r.Get(f))
}

// Refit sets the scale domain to the [min, max] of the getter over features.
// With no usable values the domain is reset to the unfitted [0, 1].
func (r *Rule) Refit(features []*geojson.Feature) {
	if r.Kind != Scaled {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, f := range features {
		v := r.Get(f)
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		r.Scale.Domain = nil
		return
	}
	r.Scale.Domain = []float64{lo, hi}
}

// Redirect returns a copy of a Scaled rule reading newProperty instead. The
// copy keeps the current domain until the next Refit.
func (r Rule) Redirect(newProperty string) Rule {
	out := r
	out.Property = newProperty
	if r.Scale.Domain != nil {
		out.Scale.Domain = append([]float64(nil), r.Scale.Domain...)
	}
	return out
}

// EffectiveDomain returns the fitted domain, or [0, 1] when unfitted.
func (r Rule) EffectiveDomain() []float64 {
	if len(r.Scale.Domain) >= 2 {
		return r.Scale.Domain
	}
	return []float64{0, 1}
}

// ParseDirectives decodes the channel:* keys of one configuration row.
// A channel with a property must carry both range bounds; otherwise it must
// carry a value. Any other combination is a ConfigError.
func ParseDirectives(layer string, row tabular.Row) (RuleSet, error) {
	rules := RuleSet{}
	for _, ch := range Channels {
		key := func(suffix string) (string, bool) {
			v, ok := row[string(ch)+":"+suffix]
			return v, ok
		}
		value, hasValue := key("value")
		property, hasProperty := key("property")
		low, hasLow := key("range:low")
		high, hasHigh := key("range:high")
		def, hasDefault := key("default")
		interp, hasInterp := key("interpolate")

		if !hasValue && !hasProperty && !hasLow && !hasHigh && !hasDefault && !hasInterp {
			continue
		}

		if hasProperty || hasLow || hasHigh {
			if !(hasProperty && hasLow && hasHigh) {
				return nil, errs.Configf(layer, string(ch), "does not have all of property, range:low, range:high")
			}
			rng, err := ParseRange(low, high, Interpolation(strings.ToLower(interp)))
			if err != nil {
				return nil, errs.Configf(layer, string(ch), "%v", err)
			}
			var defPtr *float64
			if hasDefault {
				d, err := strconv.ParseFloat(def, 64)
				if err != nil {
					return nil, errs.Configf(layer, string(ch), "default %q is not a number", def)
				}
				defPtr = &d
			}
			rules[ch] = ScaledRule(property, rng, defPtr)
			continue
		}

		if !hasValue {
			return nil, errs.Configf(layer, string(ch), "lacks a range and property, but does not have a value")
		}
		rules[ch] = ConstantRule(constantValue(ch, value))
	}
	return rules, nil
}

func constantValue(ch Channel, raw string) any {
	if ch.Numeric() {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
	}
	return raw
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
