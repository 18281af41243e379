package mapview

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-legend/internal/style"
)

func TestNew_InitialView(t *testing.T) {
	m := New()
	v := m.Snapshot()
	assert.Equal(t, [2]float64{37.5, -122.25}, v.Center)
	assert.Equal(t, 9, v.Zoom)
	assert.Equal(t, "CartoDB", v.BaseLayer)
	require.Len(t, v.BaseLayers, 2)
	assert.Equal(t, "OpenStreetMap", v.BaseLayers[0].Name)
}

func TestMap_BaseLayers(t *testing.T) {
	m := New()
	require.NoError(t, m.SetBaseLayer("OpenStreetMap"))
	assert.Error(t, m.SetBaseLayer("nope"))
	assert.Equal(t, "OpenStreetMap", m.BaseLayer())

	m.AddBaseLayer(BaseLayer{Name: "local", URL: "/tiles/local/{z}/{x}/{y}"})
	require.NoError(t, m.SetBaseLayer("local"))
	assert.Len(t, m.Snapshot().BaseLayers, 3)
}

func TestMap_AddRemoveOrder(t *testing.T) {
	m := New()
	a, b := NewDrawable("a"), NewDrawable("b")
	m.Add(a)
	m.Add(b)
	m.Add(a)
	assert.Equal(t, []string{"a", "b"}, m.Snapshot().Layers)

	m.Remove("a")
	m.Remove("missing")
	assert.False(t, m.Has("a"))
	assert.Equal(t, []*Drawable{b}, m.Layers())
}

func TestMap_SetTierVisible(t *testing.T) {
	m := New()
	d := NewDrawable("tracts")
	d.AddLabels(
		Label{Tier: 10, DivClass: "label_div", Value: "A", Hidden: true},
		Label{Tier: 11, DivClass: "label_div", Value: "B", Hidden: true},
	)
	m.Add(d)

	m.SetTierVisible(10, true)
	assert.False(t, d.Labels()[0].Hidden)
	assert.True(t, d.Labels()[1].Hidden)
	assert.Equal(t, `<p class="label_zoom_10">A</p>`, d.Labels()[0].HTML())
	assert.Equal(t, `<p class="label_zoom_11" style="display: none">B</p>`, d.Labels()[1].HTML())
	assert.Equal(t, "label_zoom_11 label_div", d.Labels()[1].Class())
}

func TestDrawable_LabelsAndFeaturesAreSnapshots(t *testing.T) {
	m := New()
	d := NewDrawable("tracts")
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	d.AddData(fc)
	d.AddLabels(Label{Tier: 10, Value: "A", Hidden: true})
	m.Add(d)

	labels := d.Labels()
	features := d.Features()
	m.SetTierVisible(10, true)
	features[0] = nil

	assert.True(t, labels[0].Hidden)
	assert.False(t, d.Labels()[0].Hidden)
	assert.NotNil(t, d.Features()[0])
}

func TestDrawable_Views(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	line := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	line.Properties["w"] = 3.0
	fc.Append(line)
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))

	d := NewDrawable("mixed")
	d.AddData(fc)
	d.SetStyle(func(f *geojson.Feature) style.Style {
		return style.Style{style.Weight: f.Properties["w"]}
	})
	d.SetPointToLayer(func(f *geojson.Feature, at orb.Point) Marker {
		return Marker{IconURL: "icons/x.png", Size: [2]float64{16, 16}}
	})
	d.BindPopup(func(f *geojson.Feature) string { return "hi" })

	views := d.Views()
	require.Len(t, views, 2)
	assert.Equal(t, 3.0, views[0].Style[style.Weight])
	assert.Nil(t, views[0].Marker)
	require.NotNil(t, views[1].Marker)
	assert.Equal(t, "icons/x.png", views[1].Marker.IconURL)
	assert.Equal(t, "hi", views[1].Popup)
}
