package pmtiles

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func archive(t *testing.T, h HeaderV3, meta map[string]any) []byte {
	t.Helper()
	raw, err := SerializeMetadata(meta, h.InternalCompression)
	require.NoError(t, err)
	h.MetadataOffset = HeaderV3LenBytes
	h.MetadataLength = uint64(len(raw))
	return append(SerializeHeader(h), raw...)
}

func TestReadHeaderAndMetadata(t *testing.T) {
	data := archive(t, HeaderV3{
		InternalCompression: Gzip,
		TileType:            Png,
		MinZoom:             2,
		MaxZoom:             14,
		MinLonE7:            -1225000000,
		MinLatE7:            370000000,
		MaxLonE7:            -1220000000,
		MaxLatE7:            380000000,
	}, map[string]any{"name": "bay", "attribution": "me"})

	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), h.SpecVersion)
	assert.Equal(t, uint8(14), h.MaxZoom)
	assert.True(t, h.TileType.Raster())
	assert.Equal(t, "png", h.TileType.String())
	assert.InDeltaSlice(t, []float64{-122.5, 37, -122, 38}, h.Bounds(), 1e-9)

	meta, err := ReadMetadata(r, h)
	require.NoError(t, err)
	assert.Equal(t, "me", meta["attribution"])
}

func TestReadHeader_Rejects(t *testing.T) {
	_, err := ReadHeader(bytes.NewReader([]byte("short")))
	assert.Error(t, err)

	bad := make([]byte, HeaderV3LenBytes)
	copy(bad, "NOTPMTL")
	_, err = ReadHeader(bytes.NewReader(bad))
	assert.ErrorContains(t, err, "magic")
}

func TestReadMetadata_Uncompressed(t *testing.T) {
	data := archive(t, HeaderV3{InternalCompression: NoCompression, TileType: Mvt}, map[string]any{"name": "v"})
	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	require.NoError(t, err)
	assert.False(t, h.TileType.Raster())
	meta, err := ReadMetadata(r, h)
	require.NoError(t, err)
	assert.Equal(t, "v", meta["name"])
}
