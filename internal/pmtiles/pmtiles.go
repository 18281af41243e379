// Package pmtiles reads the header and metadata of PMTiles v3 archives so
// local archives can be offered as base layers.
//
// The header layout follows github.com/protomaps/go-pmtiles (BSD-3-Clause).
// Spec: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
package pmtiles

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Compression is the compression algorithm applied to individual tiles.
type Compression uint8

const (
	UnknownCompression Compression = 0
	NoCompression      Compression = 1
	Gzip               Compression = 2
	Brotli             Compression = 3
	Zstd               Compression = 4
)

// TileType is the format of individual tile contents.
type TileType uint8

const (
	UnknownTileType TileType = 0
	Mvt             TileType = 1
	Png             TileType = 2
	Jpeg            TileType = 3
	Webp            TileType = 4
	Avif            TileType = 5
)

func (t TileType) String() string {
	switch t {
	case Mvt:
		return "mvt"
	case Png:
		return "png"
	case Jpeg:
		return "jpg"
	case Webp:
		return "webp"
	case Avif:
		return "avif"
	}
	return "unknown"
}

// Raster reports whether tiles are images rather than vector tiles.
func (t TileType) Raster() bool {
	return t == Png || t == Jpeg || t == Webp || t == Avif
}

// HeaderV3LenBytes is the fixed-size binary header.
const HeaderV3LenBytes = 127

// HeaderV3 is a binary header for PMTiles v3.
type HeaderV3 struct {
	SpecVersion         uint8
	RootOffset          uint64
	RootLength          uint64
	MetadataOffset      uint64
	MetadataLength      uint64
	LeafDirectoryOffset uint64
	LeafDirectoryLength uint64
	TileDataOffset      uint64
	TileDataLength      uint64
	AddressedTilesCount uint64
	TileEntriesCount    uint64
	TileContentsCount   uint64
	Clustered           bool
	InternalCompression Compression
	TileCompression     Compression
	TileType            TileType
	MinZoom             uint8
	MaxZoom             uint8
	MinLonE7            int32
	MinLatE7            int32
	MaxLonE7            int32
	MaxLatE7            int32
	CenterZoom          uint8
	CenterLonE7         int32
	CenterLatE7         int32
}

// Bounds returns [west, south, east, north] in degrees.
func (h HeaderV3) Bounds() []float64 {
	return []float64{
		float64(h.MinLonE7) / 1e7,
		float64(h.MinLatE7) / 1e7,
		float64(h.MaxLonE7) / 1e7,
		float64(h.MaxLatE7) / 1e7,
	}
}

// SerializeHeader converts a header to bytes.
func SerializeHeader(header HeaderV3) []byte {
	b := make([]byte, HeaderV3LenBytes)
	copy(b[0:7], "PMTiles")

	b[7] = 3
	binary.LittleEndian.PutUint64(b[8:8+8], header.RootOffset)
	binary.LittleEndian.PutUint64(b[16:16+8], header.RootLength)
	binary.LittleEndian.PutUint64(b[24:24+8], header.MetadataOffset)
	binary.LittleEndian.PutUint64(b[32:32+8], header.MetadataLength)
	binary.LittleEndian.PutUint64(b[40:40+8], header.LeafDirectoryOffset)
	binary.LittleEndian.PutUint64(b[48:48+8], header.LeafDirectoryLength)
	binary.LittleEndian.PutUint64(b[56:56+8], header.TileDataOffset)
	binary.LittleEndian.PutUint64(b[64:64+8], header.TileDataLength)
	binary.LittleEndian.PutUint64(b[72:72+8], header.AddressedTilesCount)
	binary.LittleEndian.PutUint64(b[80:80+8], header.TileEntriesCount)
	binary.LittleEndian.PutUint64(b[88:88+8], header.TileContentsCount)
	if header.Clustered {
		b[96] = 0x1
	}
	b[97] = uint8(header.InternalCompression)
	b[98] = uint8(header.TileCompression)
	b[99] = uint8(header.TileType)
	b[100] = header.MinZoom
	b[101] = header.MaxZoom
	binary.LittleEndian.PutUint32(b[102:102+4], uint32(header.MinLonE7))
	binary.LittleEndian.PutUint32(b[106:106+4], uint32(header.MinLatE7))
	binary.LittleEndian.PutUint32(b[110:110+4], uint32(header.MaxLonE7))
	binary.LittleEndian.PutUint32(b[114:114+4], uint32(header.MaxLatE7))
	b[118] = header.CenterZoom
	binary.LittleEndian.PutUint32(b[119:119+4], uint32(header.CenterLonE7))
	binary.LittleEndian.PutUint32(b[123:123+4], uint32(header.CenterLatE7))
	return b
}

// DeserializeHeader parses a binary header.
func DeserializeHeader(d []byte) (HeaderV3, error) {
	h := HeaderV3{}
	if len(d) < HeaderV3LenBytes {
		return h, errors.New("buffer too small for header")
	}
	if string(d[0:7]) != "PMTiles" {
		return h, errors.New("magic number not detected")
	}

	h.SpecVersion = d[7]
	h.RootOffset = binary.LittleEndian.Uint64(d[8 : 8+8])
	h.RootLength = binary.LittleEndian.Uint64(d[16 : 16+8])
	h.MetadataOffset = binary.LittleEndian.Uint64(d[24 : 24+8])
	h.MetadataLength = binary.LittleEndian.Uint64(d[32 : 32+8])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(d[40 : 40+8])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(d[48 : 48+8])
	h.TileDataOffset = binary.LittleEndian.Uint64(d[56 : 56+8])
	h.TileDataLength = binary.LittleEndian.Uint64(d[64 : 64+8])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(d[72 : 72+8])
	h.TileEntriesCount = binary.LittleEndian.Uint64(d[80 : 80+8])
	h.TileContentsCount = binary.LittleEndian.Uint64(d[88 : 88+8])
	h.Clustered = (d[96] == 0x1)
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])
	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = int32(binary.LittleEndian.Uint32(d[102 : 102+4]))
	h.MinLatE7 = int32(binary.LittleEndian.Uint32(d[106 : 106+4]))
	h.MaxLonE7 = int32(binary.LittleEndian.Uint32(d[110 : 110+4]))
	h.MaxLatE7 = int32(binary.LittleEndian.Uint32(d[114 : 114+4]))
	h.CenterZoom = d[118]
	h.CenterLonE7 = int32(binary.LittleEndian.Uint32(d[119 : 119+4]))
	h.CenterLatE7 = int32(binary.LittleEndian.Uint32(d[123 : 123+4]))

	return h, nil
}

// ReadHeader reads the header at the start of an archive.
func ReadHeader(r io.ReaderAt) (HeaderV3, error) {
	buf := make([]byte, HeaderV3LenBytes)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return HeaderV3{}, fmt.Errorf("reading header: %w", err)
	}
	return DeserializeHeader(buf)
}

// ReadMetadata reads and decompresses the archive's JSON metadata.
func ReadMetadata(r io.ReaderAt, h HeaderV3) (map[string]any, error) {
	if h.MetadataLength == 0 {
		return map[string]any{}, nil
	}
	raw := make([]byte, h.MetadataLength)
	if _, err := r.ReadAt(raw, int64(h.MetadataOffset)); err != nil {
		return nil, fmt.Errorf("reading metadata: %w", err)
	}

	var body io.Reader = bytes.NewReader(raw)
	switch h.InternalCompression {
	case NoCompression, UnknownCompression:
	case Gzip:
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("metadata gzip: %w", err)
		}
		defer zr.Close()
		body = zr
	default:
		return nil, fmt.Errorf("metadata compression %d not supported", h.InternalCompression)
	}

	var meta map[string]any
	if err := json.NewDecoder(body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	return meta, nil
}

// SerializeMetadata converts metadata JSON to compressed bytes.
func SerializeMetadata(metadata map[string]any, compression Compression) ([]byte, error) {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	if compression == NoCompression {
		return jsonBytes, nil
	} else if compression == Gzip {
		var b bytes.Buffer
		w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
		if err != nil {
			return nil, err
		}
		w.Write(jsonBytes)
		w.Close()
		return b.Bytes(), nil
	}
	return nil, errors.New("compression not supported")
}
