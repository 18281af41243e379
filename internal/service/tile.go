package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/pmtiles"
)

// TileService offers the PMTiles archives under <data-dir>/tiles as base
// layers.
type TileService struct {
	tilesDir string
	urlBase  string
}

// NewTileService creates a new tile service. Archives are served under
// urlBase, e.g. "/tiles/".
func NewTileService(dataDir, urlBase string) *TileService {
	return &TileService{
		tilesDir: filepath.Join(dataDir, "tiles"),
		urlBase:  urlBase,
	}
}

// List returns every archive with its header summary. An unreadable header
// is reported on the entry rather than failing the listing.
func (s *TileService) List() ([]TileFile, error) {
	entries, err := os.ReadDir(s.tilesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TileFile{}, nil
		}
		return nil, err
	}

	files := []TileFile{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".pmtiles" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		tf := TileFile{Name: entry.Name(), Size: formatSize(info.Size())}
		if h, err := s.header(entry.Name()); err != nil {
			tf.Error = err.Error()
		} else {
			tf.TileType = h.TileType.String()
			tf.MinZoom = int(h.MinZoom)
			tf.MaxZoom = int(h.MaxZoom)
			tf.Bounds = h.Bounds()
		}
		files = append(files, tf)
	}
	return files, nil
}

func (s *TileService) header(name string) (pmtiles.HeaderV3, error) {
	f, err := os.Open(filepath.Join(s.tilesDir, name))
	if err != nil {
		return pmtiles.HeaderV3{}, err
	}
	defer f.Close()
	return pmtiles.ReadHeader(f)
}

// BaseLayers turns the readable archives into map base layers named after
// the file, with attribution from the archive metadata when present.
func (s *TileService) BaseLayers() ([]mapview.BaseLayer, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	var out []mapview.BaseLayer
	for _, tf := range files {
		if tf.Error != "" {
			continue
		}
		out = append(out, mapview.BaseLayer{
			Name:        strings.TrimSuffix(tf.Name, ".pmtiles"),
			URL:         "pmtiles://" + s.urlBase + tf.Name,
			Attribution: s.attribution(tf.Name),
			MinZoom:     tf.MinZoom,
			MaxZoom:     tf.MaxZoom,
			Bounds:      tf.Bounds,
		})
	}
	return out, nil
}

func (s *TileService) attribution(name string) string {
	f, err := os.Open(filepath.Join(s.tilesDir, name))
	if err != nil {
		return ""
	}
	defer f.Close()
	h, err := pmtiles.ReadHeader(f)
	if err != nil {
		return ""
	}
	meta, err := pmtiles.ReadMetadata(f, h)
	if err != nil {
		return ""
	}
	attr, _ := meta["attribution"].(string)
	return attr
}

// TilesDir returns the path to the tiles directory.
func (s *TileService) TilesDir() string {
	return s.tilesDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
