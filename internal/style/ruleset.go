package style

import "github.com/paulmach/orb/geojson"

// Style is the evaluated set of path options for one feature.
type Style map[Channel]any

// RuleSet holds the rules of one layer, keyed by channel.
type RuleSet map[Channel]Rule

// Evaluate resolves every configured channel for a feature.
func (rs RuleSet) Evaluate(f *geojson.Feature) Style {
	out := make(Style, len(rs))
	for _, ch := range Channels {
		if r, ok := rs[ch]; ok {
			out[ch] = r.Evaluate(f)
		}
	}
	return out
}

// Value resolves a single channel; ok is false when the channel is unset.
func (rs RuleSet) Value(ch Channel, f *geojson.Feature) (any, bool) {
	r, ok := rs[ch]
	if !ok {
		return nil, false
	}
	return r.Evaluate(f), true
}

// Refit recomputes every scaled domain over the loaded features.
func (rs RuleSet) Refit(features []*geojson.Feature) {
	for ch, r := range rs {
		if r.Kind != Scaled {
			continue
		}
		r.Refit(features)
		rs[ch] = r
	}
}

// ScaledChannels lists the channels driven by a property, in channel order.
func (rs RuleSet) ScaledChannels() []Channel {
	var out []Channel
	for _, ch := range Channels {
		if r, ok := rs[ch]; ok && r.Kind == Scaled {
			out = append(out, ch)
		}
	}
	return out
}

// Redirect returns a new set where every scaled rule reading from now reads
// to. changed is false when no rule read from.
func (rs RuleSet) Redirect(from, to string) (out RuleSet, changed bool) {
	out = make(RuleSet, len(rs))
	for ch, r := range rs {
		if r.Kind == Scaled && r.Property == from {
			r = r.Redirect(to)
			changed = true
		}
		out[ch] = r
	}
	return out, changed
}
