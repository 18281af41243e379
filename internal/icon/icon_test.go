package icon

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

func point(props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{-122, 37})
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}

func lookupTable() *tabular.Table {
	return &tabular.Table{
		Columns: []string{"color", "size", "icon:value"},
		Rows: []tabular.Row{
			{"color": "red", "size": "S", "icon:value": "a.png"},
			{"color": "red", "size": "L", "icon:value": "b.png"},
		},
	}
}

func TestLookup_FirstMatchingRow(t *testing.T) {
	tbl := lookupTable()
	assert.Equal(t, "b.png", Lookup(tbl, point(map[string]any{"color": "red", "size": "L"})))
	assert.Equal(t, "a.png", Lookup(tbl, point(map[string]any{"color": "red", "size": "S", "extra": 1.0})))
	assert.Equal(t, UnknownURL, Lookup(tbl, point(map[string]any{"color": "blue"})))
}

func TestLookup_BlankCellIsWildcard(t *testing.T) {
	tbl := &tabular.Table{
		Columns: []string{"kind", "status", "icon:url"},
		Rows: []tabular.Row{
			{"kind": "school", "status": "closed", "icon:url": "closed.png"},
			{"kind": "school", "icon:url": "school.png"},
			{"icon:url": "fallback.png"},
		},
	}
	assert.Equal(t, "closed.png", Lookup(tbl, point(map[string]any{"kind": "school", "status": "closed"})))
	assert.Equal(t, "school.png", Lookup(tbl, point(map[string]any{"kind": "school", "status": "open"})))
	assert.Equal(t, "fallback.png", Lookup(tbl, point(map[string]any{"kind": "park"})))
}

func TestLookup_NumericProperties(t *testing.T) {
	tbl := &tabular.Table{Rows: []tabular.Row{{"floors": "3", "icon:value": "three.png"}}}
	assert.Equal(t, "three.png", Lookup(tbl, point(map[string]any{"floors": 3.0})))
}

func TestBuildURLFunc(t *testing.T) {
	constant := BuildURLFunc(Rule{URL: "pin.png"}, nil)
	assert.Equal(t, "pin.png", constant(point(nil)))

	none := BuildURLFunc(Rule{}, nil)
	assert.Equal(t, UnknownURL, none(point(nil)))

	var loaded *tabular.Table
	lookup := BuildURLFunc(Rule{TableURL: "icons.csv"}, func(url string) *tabular.Table {
		assert.Equal(t, "icons.csv", url)
		return loaded
	})
	f := point(map[string]any{"color": "red", "size": "L"})
	assert.Equal(t, UnknownURL, lookup(f), "table not loaded yet")
	loaded = lookupTable()
	assert.Equal(t, "b.png", lookup(f))
}

func TestRuleFromRow_BothSpellings(t *testing.T) {
	assert.Equal(t, Rule{URL: "a.png"}, RuleFromRow(tabular.Row{"icon:value": "a.png"}))
	assert.Equal(t, Rule{URL: "b.png"}, RuleFromRow(tabular.Row{"icon:url": "b.png"}))
	assert.Equal(t, Rule{TableURL: "m.csv"}, RuleFromRow(tabular.Row{"icon:categoricalMapCsv": "m.csv"}))
	assert.Equal(t, Rule{TableURL: "n.csv"}, RuleFromRow(tabular.Row{"icon:mapCsv": "n.csv"}))
	assert.Equal(t, Rule{}, RuleFromRow(tabular.Row{}))
}

func TestResolveAnchorOffset(t *testing.T) {
	size := [2]float64{16, 16}

	got, err := ResolveAnchorOffset("L", size, "bottom-right")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{16, 16}, got)

	got, err = ResolveAnchorOffset("L", size, "center")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{8, 8}, got)

	got, err = ResolveAnchorOffset("L", size, "")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{8, 16}, got)

	got, err = ResolveAnchorOffset("L", [2]float64{20, 10}, "center-top")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{10, 0}, got)

	_, err = ResolveAnchorOffset("L", size, "middle")
	var cfgErr *errs.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
