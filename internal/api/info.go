package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	layers  string
	dbOK    bool
}

func NewInfoHandler(dataDir, layers string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, layers: layers, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Layers   string   `json:"layers" doc:"Layer configuration table"`
	DB       bool     `json:"db" doc:"Whether Parquet lookup tables can be read"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"legend", "labels", "popups", "pmtiles"}
	if h.dbOK {
		features = append(features, "parquet")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-legend",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Layers:   h.layers,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}
