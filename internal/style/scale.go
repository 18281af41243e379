package style

import (
	"fmt"
	"math"
	"strconv"

	"github.com/hsluv/hsluv-go"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// Interpolation selects how colour ranges are blended.
type Interpolation string

const (
	InterpolateRGB   Interpolation = "rgb"
	InterpolateHSLuv Interpolation = "hsluv"
)

// Endpoint is one end of a scale's output range: a number or a colour.
type Endpoint struct {
	Raw   string
	Num   float64
	Color colorful.Color
}

// Range is the configured [low, high] output of a scale.
type Range struct {
	Low, High   Endpoint
	IsColor     bool
	Interpolate Interpolation
}

// ParseRange classifies both bounds. They must both be numbers or both be
// colours.
func ParseRange(low, high string, mode Interpolation) (Range, error) {
	if mode == "" {
		mode = InterpolateRGB
	}
	if mode != InterpolateRGB && mode != InterpolateHSLuv {
		return Range{}, fmt.Errorf("unknown interpolation %q", mode)
	}
	lo, loErr := strconv.ParseFloat(low, 64)
	hi, hiErr := strconv.ParseFloat(high, 64)
	if loErr == nil && hiErr == nil {
		return Range{
			Low:         Endpoint{Raw: low, Num: lo},
			High:        Endpoint{Raw: high, Num: hi},
			Interpolate: mode,
		}, nil
	}
	loC, okLo := ParseColor(low)
	hiC, okHi := ParseColor(high)
	if okLo && okHi {
		return Range{
			Low:         Endpoint{Raw: low, Color: loC},
			High:        Endpoint{Raw: high, Color: hiC},
			IsColor:     true,
			Interpolate: mode,
		}, nil
	}
	return Range{}, fmt.Errorf("range %q..%q must be two numbers or two colours", low, high)
}

// At maps t in [0,1] onto the range. Numbers extrapolate outside it;
// colours clamp to the valid gamut.
func (r Range) At(t float64) any {
	if !r.IsColor {
		return r.Low.Num + t*(r.High.Num-r.Low.Num)
	}
	if r.Interpolate == InterpolateHSLuv {
		return lerpHSLuv(r.Low.Color, r.High.Color, t)
	}
	return r.Low.Color.BlendRgb(r.High.Color, t).Clamped().Hex()
}

func lerpHSLuv(a, b colorful.Color, t float64) string {
	t = math.Max(0, math.Min(1, t))
	h1, s1, l1 := hsluv.HsluvFromHex(a.Hex())
	h2, s2, l2 := hsluv.HsluvFromHex(b.Hex())
	// Shortest way round the hue circle.
	dh := h2 - h1
	if dh > 180 {
		dh -= 360
	} else if dh < -180 {
		dh += 360
	}
	h := math.Mod(h1+t*dh+360, 360)
	return hsluv.HsluvToHex(h, s1+t*(s2-s1), l1+t*(l2-l1))
}

// Scale is a linear mapping from a data domain onto a Range. An unfitted
// scale has the domain [0, 1].
type Scale struct {
	Domain []float64
	Range  Range
}

// Apply maps x through the scale. A degenerate domain maps to the range low.
func (s Scale) Apply(x float64) any {
	lo, hi := 0.0, 1.0
	if n := len(s.Domain); n >= 2 {
		lo, hi = s.Domain[0], s.Domain[n-1]
	}
	t := 0.0
	if hi != lo {
		t = (x - lo) / (hi - lo)
	}
	return s.Range.At(t)
}

// ParseColor accepts any CSS colour: hex, rgb(), hsl(), hwb() and the
// named colours. Alpha is dropped.
func ParseColor(s string) (colorful.Color, bool) {
	c, err := csscolorparser.Parse(s)
	if err != nil {
		return colorful.Color{}, false
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}, true
}
