package service

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// sourceTypes maps the extensions a layer or lookup table can be read from
// to a display type.
var sourceTypes = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
	".csv":     "CSV",
	".yaml":    "YAML",
	".yml":     "YAML",
	".parquet": "Parquet",
	".hbs":     "Template",
	".mst":     "Template",
	".png":     "Icon",
	".svg":     "Icon",
}

// SourceService lists the files under <data-dir>/sources that layer
// configurations can reference.
type SourceService struct {
	sourcesDir string
}

// NewSourceService creates a new source service.
func NewSourceService(dataDir string) *SourceService {
	return &SourceService{
		sourcesDir: filepath.Join(dataDir, "sources"),
	}
}

// List returns the usable source files, sorted by name.
func (s *SourceService) List() ([]SourceFile, error) {
	entries, err := os.ReadDir(s.sourcesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SourceFile{}, nil
		}
		return nil, err
	}

	files := []SourceFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fileType, ok := sourceTypes[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, SourceFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
			URL:      "sources/" + entry.Name(),
		})
	}
	slices.SortFunc(files, func(a, b SourceFile) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

// SourcesDir returns the path to the sources directory.
func (s *SourceService) SourcesDir() string {
	return s.sourcesDir
}
