package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/pmtiles"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

func TestLayerID(t *testing.T) {
	assert.Equal(t, "Census_Tracts__2020_", LayerID("Census Tracts (2020)"))
	assert.Equal(t, "roads_v2", LayerID("roads_v2"))
}

func TestDecodeRow(t *testing.T) {
	l, err := DecodeRow(tabular.Row{
		"name":           " Schools ",
		"url":            "schools.geojson",
		"geomType:value": "Point",
		"icon:value":     "icons/school.png",
		"icon:anchor":    "bottom-right",
		"properties":     "kind  grade",
		"label:property": "name",
		"opacity:value":  "0.5",
		"popupMst":       " ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Schools", l.ID)
	assert.Equal(t, Point, l.Kind)
	assert.Equal(t, icon.Rule{URL: "icons/school.png"}, l.Icon)
	assert.Equal(t, [2]float64{16, 16}, l.Anchor)
	assert.Equal(t, []string{"kind", "grade"}, l.Selectable)
	assert.Equal(t, &LabelRule{Property: "name", MinZoom: 1, Tier: 1, DivClass: "label_div"}, l.Label)
	assert.Empty(t, l.PopupURL, "blank cells are dropped")
	assert.Equal(t, 0.5, l.Rules[style.Opacity].Value)
}

func TestDecodeRow_Defaults(t *testing.T) {
	l, err := DecodeRow(tabular.Row{"name": "Roads", "url": "roads.geojson", "label:property": "n", "label:minzoom": "12.2", "label:divclass": "big"})
	require.NoError(t, err)
	assert.Equal(t, Shape, l.Kind)
	assert.Equal(t, icon.DefaultAnchor, l.Anchor)
	assert.Equal(t, 13, l.Label.Tier)
	assert.Equal(t, "big", l.Label.DivClass)
	assert.Empty(t, l.Rules)
}

func TestDecodeRow_Errors(t *testing.T) {
	cases := map[string]tabular.Row{
		"no name":       {"url": "x"},
		"no url":        {"name": "x"},
		"bad geometry":  {"name": "x", "url": "x", "geomType:value": "raster"},
		"bad anchor":    {"name": "x", "url": "x", "geomType:value": "point", "icon:anchor": "middle-ish"},
		"bad minzoom":   {"name": "x", "url": "x", "label:property": "n", "label:minzoom": "soon"},
		"partial range": {"name": "x", "url": "x", "weight:property": "n", "weight:range:low": "1"},
		"value missing": {"name": "x", "url": "x", "weight:default": "1"},
	}
	for name, row := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeRow(row)
			var ce *errs.ConfigError
			assert.ErrorAs(t, err, &ce)
		})
	}
}

func TestEventBus_FiltersByResource(t *testing.T) {
	b := NewEventBus()
	all := b.Subscribe()
	legends := b.Subscribe(ResourceLegend)

	b.Publish(Event{Resource: ResourceLayer, Action: ActionLoaded, ID: "a"})
	b.Publish(Event{Resource: ResourceLegend, Action: ActionUpdated, ID: "a"})

	assert.Len(t, all, 2)
	require.Len(t, legends, 1)
	assert.Equal(t, ActionUpdated, (<-legends).Action)

	b.Unsubscribe(legends)
	b.Unsubscribe(legends)
	assert.Equal(t, 1, b.Subscribers())
}

func TestSourceService_List(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sources")
	require.NoError(t, os.MkdirAll(src, 0755))
	for _, name := range []string{"tracts.geojson", "icons.csv", "notes.txt", "popup.hbs"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte("x"), 0644))
	}

	files, err := NewSourceService(dir).List()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "icons.csv", files[0].Name)
	assert.Equal(t, "CSV", files[0].FileType)
	assert.Equal(t, "sources/tracts.geojson", files[2].URL)

	files, err = NewSourceService(filepath.Join(dir, "missing")).List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestTileService_BaseLayers(t *testing.T) {
	dir := t.TempDir()
	tiles := filepath.Join(dir, "tiles")
	require.NoError(t, os.MkdirAll(tiles, 0755))

	meta, err := pmtiles.SerializeMetadata(map[string]any{"attribution": "Bay Area"}, pmtiles.NoCompression)
	require.NoError(t, err)
	h := pmtiles.HeaderV3{
		InternalCompression: pmtiles.NoCompression,
		TileType:            pmtiles.Mvt,
		MinZoom:             4,
		MaxZoom:             15,
		MetadataOffset:      pmtiles.HeaderV3LenBytes,
		MetadataLength:      uint64(len(meta)),
	}
	data := append(pmtiles.SerializeHeader(h), meta...)
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "bay.pmtiles"), data, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tiles, "broken.pmtiles"), []byte("nope"), 0644))

	svc := NewTileService(dir, "/tiles/")
	files, err := svc.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "mvt", files[0].TileType)
	assert.NotEmpty(t, files[1].Error)

	bases, err := svc.BaseLayers()
	require.NoError(t, err)
	require.Len(t, bases, 1)
	assert.Equal(t, "bay", bases[0].Name)
	assert.Equal(t, "pmtiles:///tiles/bay.pmtiles", bases[0].URL)
	assert.Equal(t, "Bay Area", bases[0].Attribution)
	assert.Equal(t, 15, bases[0].MaxZoom)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2<<20))
}
