package service

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
	"github.com/joeblew999/plat-legend/internal/zoom"
)

// manualFetcher records requests; tests decide when each completes.
type manualFetcher struct {
	features map[string][]func(*geojson.FeatureCollection, error)
	tables   map[string][]func(*tabular.Table, error)
	texts    map[string][]func(string, error)
	calls    map[string]int
}

func newManualFetcher() *manualFetcher {
	return &manualFetcher{
		features: map[string][]func(*geojson.FeatureCollection, error){},
		tables:   map[string][]func(*tabular.Table, error){},
		texts:    map[string][]func(string, error){},
		calls:    map[string]int{},
	}
}

func (m *manualFetcher) Features(_ context.Context, url string, done func(*geojson.FeatureCollection, error)) {
	m.calls[url]++
	m.features[url] = append(m.features[url], done)
}

func (m *manualFetcher) Table(_ context.Context, url string, done func(*tabular.Table, error)) {
	m.calls[url]++
	m.tables[url] = append(m.tables[url], done)
}

func (m *manualFetcher) Text(_ context.Context, url string, done func(string, error)) {
	m.calls[url]++
	m.texts[url] = append(m.texts[url], done)
}

func (m *manualFetcher) completeFeatures(url string, fc *geojson.FeatureCollection, err error) {
	pending := m.features[url]
	m.features[url] = nil
	for _, done := range pending {
		done(fc, err)
	}
}

func (m *manualFetcher) completeTable(url string, t *tabular.Table) {
	pending := m.tables[url]
	m.tables[url] = nil
	for _, done := range pending {
		done(t, nil)
	}
}

func (m *manualFetcher) completeText(url, text string) {
	pending := m.texts[url]
	m.texts[url] = nil
	for _, done := range pending {
		done(text, nil)
	}
}

type recordingSurface struct {
	shown map[string]legend.Description
}

func (r *recordingSurface) Replace(d legend.Description) error {
	r.shown[d.LayerID] = d
	return nil
}

func (r *recordingSurface) Remove(id string) { delete(r.shown, id) }

func newTestApp(t *testing.T, rows ...tabular.Row) (*App, *manualFetcher, *recordingSurface) {
	t.Helper()
	f := newManualFetcher()
	s := &recordingSurface{shown: map[string]legend.Description{}}
	a := NewApp(nil, f, Options{Surface: s}, zerolog.Nop())
	require.NoError(t, a.LoadConfig(context.Background(), &tabular.Table{Rows: rows}))
	return a, f, s
}

func tracts() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, p := range []struct{ pop, income float64 }{{100, 10}, {300, 50}, {500, 90}} {
		poly := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
		f := geojson.NewFeature(poly)
		f.ID = i
		f.Properties["pop"] = p.pop
		f.Properties["income"] = p.income
		f.Properties["name"] = []string{"A", "B", "C"}[i]
		fc.Append(f)
	}
	return fc
}

var tractsRow = tabular.Row{
	"name":                 "Census Tracts",
	"url":                  "tracts.geojson",
	"properties":           "pop income",
	"fillColor:property":   "pop",
	"fillColor:range:low":  "#000000",
	"fillColor:range:high": "#ffffff",
	"weight:value":         "2",
	"popupMst":             "popup.hbs",
	"label:property":       "name",
	"label:minzoom":        "10.5",
}

func TestLoadConfig_RegistersFetchesOnce(t *testing.T) {
	a, f, _ := newTestApp(t,
		tabular.Row{"name": "Schools", "url": "schools.geojson", "geomType:value": "point", "icon:categoricalMapCsv": "icons.csv", "popupMst": "popup.hbs"},
		tabular.Row{"name": "Parks", "url": "parks.geojson", "geomType:value": "point", "icon:mapCsv": "icons.csv", "attributionMst": "attr.hbs"},
	)
	assert.Equal(t, 1, f.calls["icons.csv"])
	assert.Equal(t, 1, f.calls["popup.hbs"])
	assert.Equal(t, 1, f.calls["attr.hbs"])
	assert.Zero(t, f.calls["schools.geojson"])
	assert.Equal(t, 2, a.Registry().Len())
	assert.Len(t, a.Tables(), 1)
	assert.Equal(t, "pending", a.Tables()[0].State)
}

func TestLoadConfig_RejectsBadRowsAndDuplicates(t *testing.T) {
	f := newManualFetcher()
	a := NewApp(nil, f, Options{}, zerolog.Nop())
	err := a.LoadConfig(context.Background(), &tabular.Table{Rows: []tabular.Row{
		{"name": "Roads", "url": "roads.geojson", "color:property": "lanes"},
	}})
	var ce *errs.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Roads", ce.Layer)
	assert.Equal(t, "color", ce.Channel)

	err = a.LoadConfig(context.Background(), &tabular.Table{Rows: []tabular.Row{
		{"name": "a b", "url": "x.geojson"},
		{"name": "a-b", "url": "y.geojson"},
	}})
	require.ErrorAs(t, err, &ce)
}

func TestEnable_LoadFlow(t *testing.T) {
	a, f, s := newTestApp(t, tractsRow)
	ctx := context.Background()
	id := "Census_Tracts"

	require.NoError(t, a.Enable(ctx, id))
	l, _ := a.Registry().Get(id)
	assert.Equal(t, Loading, l.State)
	assert.Equal(t, 1, f.calls["tracts.geojson"])

	// Toggling while the fetch is in flight neither refetches nor blocks
	// completion.
	require.NoError(t, a.Disable(id))
	require.NoError(t, a.Enable(ctx, id))
	require.NoError(t, a.Disable(id))
	assert.Equal(t, 1, f.calls["tracts.geojson"])

	f.completeFeatures("tracts.geojson", tracts(), nil)
	assert.Equal(t, Loaded, l.State)
	assert.Len(t, l.Drawable().Features(), 3)
	assert.Empty(t, s.shown, "no legend while disabled")

	require.NoError(t, a.Enable(ctx, id))
	assert.Equal(t, 1, f.calls["tracts.geojson"])
	require.Contains(t, s.shown, id)
	d, ok, err := a.Legend(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, d.Shapes, 1)
	assert.Equal(t, []float64{100, 500}, d.Shapes[0].Dimension.Domain)
	assert.Equal(t, "100", d.Shapes[0].Rows[0].Label)

	require.NoError(t, a.Disable(id))
	assert.NotContains(t, s.shown, id)
	_, ok, _ = a.Legend(id)
	assert.False(t, ok)
	assert.Len(t, l.Drawable().Features(), 3, "data survives disable")
}

func TestEnable_FailureLeavesLayerRetryable(t *testing.T) {
	a, f, s := newTestApp(t, tractsRow)
	ctx := context.Background()
	id := "Census_Tracts"

	require.NoError(t, a.Enable(ctx, id))
	f.completeFeatures("tracts.geojson", nil, errors.New("connection refused"))

	l, _ := a.Registry().Get(id)
	assert.Equal(t, Registered, l.State)
	var le *errs.LoadError
	require.ErrorAs(t, l.LastError, &le)
	assert.Equal(t, "tracts.geojson", le.URL)
	assert.Empty(t, s.shown)
	assert.Equal(t, "registered", a.Summary(l).State)
	assert.Contains(t, a.Summary(l).Error, "connection refused")

	require.NoError(t, a.Disable(id))
	require.NoError(t, a.Enable(ctx, id))
	assert.Equal(t, 2, f.calls["tracts.geojson"])
	f.completeFeatures("tracts.geojson", tracts(), nil)
	assert.Equal(t, Loaded, l.State)
	assert.Nil(t, l.LastError)
	assert.Contains(t, s.shown, id)
}

func TestEnable_UnknownLayer(t *testing.T) {
	a, _, _ := newTestApp(t)
	err := a.Enable(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrLayerNotFound)
	assert.ErrorIs(t, a.Disable("nope"), ErrLayerNotFound)
}

func TestRedirectProperty_RoundTrip(t *testing.T) {
	a, f, s := newTestApp(t, tractsRow)
	id := "Census_Tracts"
	require.NoError(t, a.Enable(context.Background(), id))
	f.completeFeatures("tracts.geojson", tracts(), nil)

	before, err := a.Features(id)
	require.NoError(t, err)
	fills := func(lf LayerFeatures) []any {
		var out []any
		for _, v := range lf.Features {
			out = append(out, v.Style[style.FillColor])
		}
		return out
	}
	want := fills(before)
	assert.Equal(t, []any{"#000000", "#808080", "#ffffff"}, want)

	require.NoError(t, a.RedirectProperty(id, "pop", "income"))
	assert.Equal(t, "income", s.shown[id].Shapes[0].Dimension.Property)
	assert.Equal(t, []float64{10, 90}, s.shown[id].Shapes[0].Dimension.Domain)
	after, _ := a.Features(id)
	assert.Equal(t, []any{"#000000", "#808080", "#ffffff"}, fills(after))

	require.NoError(t, a.RedirectProperty(id, "income", "pop"))
	back, _ := a.Features(id)
	assert.Equal(t, want, fills(back))
	assert.Equal(t, "pop", s.shown[id].Shapes[0].Dimension.Property)

	var ce *errs.ConfigError
	assert.ErrorAs(t, a.RedirectProperty(id, "missing", "pop"), &ce)
}

func TestPopups_RenderOnceTemplateArrives(t *testing.T) {
	a, f, _ := newTestApp(t, tractsRow)
	id := "Census_Tracts"
	require.NoError(t, a.Enable(context.Background(), id))
	f.completeFeatures("tracts.geojson", tracts(), nil)

	lf, _ := a.Features(id)
	assert.Equal(t, "TEMPLATE NOT LOADED", lf.Features[0].Popup)

	f.completeText("popup.hbs", "{{properties.name}}: {{float0 properties.pop}}")
	lf, _ = a.Features(id)
	assert.Equal(t, "A: 100", lf.Features[0].Popup)
}

func TestAttribution_RendersConfigRow(t *testing.T) {
	row := tabular.Row{"name": "Parks", "url": "parks.geojson", "attributionMst": "attr.hbs", "source": "County"}
	a, f, _ := newTestApp(t, row)
	l, _ := a.Registry().Get("Parks")
	assert.Equal(t, "TEMPLATE NOT LOADED", a.Summary(l).Attribution)
	f.completeText("attr.hbs", "Data: {{source}}")
	assert.Equal(t, "Data: County", a.Summary(l).Attribution)
}

var schoolsRow = tabular.Row{
	"name":                   "Schools",
	"url":                    "schools.geojson",
	"geomType:value":         "point",
	"icon:categoricalMapCsv": "icons.csv",
	"icon:anchor":            "center",
}

func schools() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	pt := geojson.NewFeature(orb.Point{-122, 37})
	pt.Properties["kind"] = "high"
	fc.Append(pt)
	return fc
}

func iconTable() *tabular.Table {
	return &tabular.Table{
		Columns: []string{"kind", "icon:url"},
		Rows: []tabular.Row{
			{"kind": "high", "icon:url": "icons/high.png"},
			{"kind": "elementary", "icon:url": "icons/elementary.png"},
		},
	}
}

func TestPointLayer_MarkersAndLegendFollowTable(t *testing.T) {
	a, f, s := newTestApp(t, schoolsRow)
	id := "Schools"
	require.NoError(t, a.Enable(context.Background(), id))
	f.completeFeatures("schools.geojson", schools(), nil)

	lf, _ := a.Features(id)
	require.NotNil(t, lf.Features[0].Marker)
	assert.Equal(t, icon.UnknownURL, lf.Features[0].Marker.IconURL)
	assert.Equal(t, [2]float64{8, 8}, lf.Features[0].Marker.Anchor)
	assert.True(t, s.shown[id].Degenerate)

	f.completeTable("icons.csv", iconTable())
	lf, _ = a.Features(id)
	assert.Equal(t, "icons/high.png", lf.Features[0].Marker.IconURL)
	require.NotNil(t, s.shown[id].Points)
	assert.Equal(t, []string{"kind", "icon"}, s.shown[id].Points.Columns)
}

func TestLabels_FollowZoom(t *testing.T) {
	a, f, _ := newTestApp(t, tractsRow)
	id := "Census_Tracts"
	require.NoError(t, a.Enable(context.Background(), id))
	fc := tracts()
	fc.Features[0].Properties["intptlat"] = "37.7"
	fc.Features[0].Properties["intptlon"] = "-122.4"
	f.completeFeatures("tracts.geojson", fc, nil)

	lf, _ := a.Features(id)
	require.Len(t, lf.Labels, 3)
	first := lf.Labels[0]
	assert.Equal(t, orb.Point{-122.4, 37.7}, first.Position)
	assert.Equal(t, 11, first.Tier)
	assert.True(t, first.Hidden)
	assert.Equal(t, "label_zoom_11 label_div", first.Class())
	assert.InDelta(t, 0.5, lf.Labels[1].Position.Lon(), 1e-9)

	a.ZoomStart()
	toggles := a.ZoomEnd(12)
	assert.Equal(t, []zoom.Toggle{{Tier: 10, Visible: true}, {Tier: 11, Visible: true}, {Tier: 12, Visible: true}}, toggles)
	lf, _ = a.Features(id)
	assert.False(t, lf.Labels[0].Hidden)

	// Hidden while the layer is off; re-enabling resyncs with the zoom.
	require.NoError(t, a.Disable(id))
	a.ZoomStart()
	a.ZoomEnd(9)
	require.NoError(t, a.Enable(context.Background(), id))
	lf, _ = a.Features(id)
	assert.True(t, lf.Labels[0].Hidden)
}

func TestSummaries(t *testing.T) {
	a, _, _ := newTestApp(t, tractsRow, tabular.Row{"name": "Roads", "url": "roads.geojson"})
	sums := a.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, "Census_Tracts", sums[0].ID)
	assert.Equal(t, map[string]string{"fillColor": "pop"}, sums[0].Scaled)
	assert.Equal(t, []string{"pop", "income"}, sums[0].Selectable)
	assert.Equal(t, Shape, sums[1].Geometry)
	assert.Nil(t, sums[1].Scaled)
}
