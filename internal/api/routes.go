// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/service"
	"github.com/joeblew999/plat-legend/internal/tabular"
	"github.com/joeblew999/plat-legend/internal/zoom"
)

// TableReader reads a lookup table synchronously.
type TableReader interface {
	TableSync(ctx context.Context, url string) (*tabular.Table, error)
}

// Services holds the service dependencies for API handlers.
type Services struct {
	App    *service.App
	Source *service.SourceService
	Tile   *service.TileService
	Tables TableReader
}

// RegisterRoutes registers every JSON route.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"Census_Tracts"`
}

type EnableInput struct {
	IDInput
	Wait bool `query:"wait" doc:"Block until the layer geometry and icon table have loaded or failed"`
}

type RedirectInput struct {
	IDInput
	Body struct {
		From string `json:"from" minLength:"1" doc:"Property currently driving the scaled channels" example:"pop"`
		To   string `json:"to" minLength:"1" doc:"Property to drive them instead" example:"income"`
	}
}

type ZoomInput struct {
	Body struct {
		Zoom int `json:"zoom" minimum:"0" maximum:"24" doc:"New zoom level"`
	}
}

type ZoomBody struct {
	Zoom    int           `json:"zoom" doc:"Current zoom"`
	Prior   int           `json:"prior" doc:"Zoom before the gesture"`
	Toggles []zoom.Toggle `json:"toggles" doc:"Label tiers shown or hidden by the gesture"`
}

type BaseLayerInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" doc:"Base layer name" example:"OpenStreetMap"`
	}
}

type LayerOutput struct {
	Body LayerBody
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Layers  int    `json:"layers" doc:"Configured layers"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers map view routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/zoom", h.Zoom, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/base", h.SetBaseLayer, huma.OperationTags("map"))
}

// RegisterLayers registers layer routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}", h.GetLayer, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/enable", h.EnableLayer, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/disable", h.DisableLayer, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/layers/{id}/redirect", h.RedirectLayer, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/legend", h.GetLegend, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/features", h.GetFeatures, huma.OperationTags("layers"))
}

// RegisterSources registers source listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
	huma.Get(api, "/api/v1/sources/{name}/table", h.GetSourceTable, huma.OperationTags("sources"))
}

// RegisterTiles registers tile listing routes.
func (h *APIHandler) RegisterTiles(api huma.API) {
	huma.Get(api, "/api/v1/tiles", h.GetTiles, huma.OperationTags("tiles"))
}

// RegisterResources registers resource cache routes.
func (h *APIHandler) RegisterResources(api huma.API) {
	huma.Get(api, "/api/v1/resources", h.GetResources, huma.OperationTags("resources"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: "1.0.0"}
	err := h.svc.App.Do(ctx, func() error {
		body.Layers = h.svc.App.Registry().Len()
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body mapview.View }, error) {
	var view mapview.View
	err := h.svc.App.Do(ctx, func() error {
		view = h.svc.App.Map().Snapshot()
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body mapview.View }{Body: view}, nil
}

func (h *APIHandler) Zoom(ctx context.Context, input *ZoomInput) (*struct{ Body ZoomBody }, error) {
	body := ZoomBody{Zoom: input.Body.Zoom}
	err := h.svc.App.Do(ctx, func() error {
		body.Prior = h.svc.App.Map().Zoom()
		h.svc.App.ZoomStart()
		body.Toggles = h.svc.App.ZoomEnd(input.Body.Zoom)
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	if body.Toggles == nil {
		body.Toggles = []zoom.Toggle{}
	}
	return &struct{ Body ZoomBody }{Body: body}, nil
}

func (h *APIHandler) SetBaseLayer(ctx context.Context, input *BaseLayerInput) (*struct{ Body mapview.View }, error) {
	var view mapview.View
	err := h.svc.App.Do(ctx, func() error {
		if err := h.svc.App.Map().SetBaseLayer(input.Body.Name); err != nil {
			return huma.Error422UnprocessableEntity(err.Error())
		}
		view = h.svc.App.Map().Snapshot()
		return nil
	})
	if err != nil {
		if se, ok := err.(huma.StatusError); ok {
			return nil, se
		}
		return nil, apiError(err)
	}
	return &struct{ Body mapview.View }{Body: view}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body []service.LayerSummary }, error) {
	var layers []service.LayerSummary
	err := h.svc.App.Do(ctx, func() error {
		layers = h.svc.App.Summaries()
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body []service.LayerSummary }{Body: layers}, nil
}

// layer reads one layer summary on the loop.
func (h *APIHandler) layer(ctx context.Context, id string) (*LayerOutput, error) {
	var out LayerOutput
	err := h.svc.App.Do(ctx, func() error {
		l, err := h.svc.App.Registry().Get(id)
		if err != nil {
			return err
		}
		out.Body = LayerBody{h.svc.App.Summary(l)}
		return nil
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &out, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	return h.layer(ctx, input.ID)
}

func (h *APIHandler) EnableLayer(ctx context.Context, input *EnableInput) (*LayerOutput, error) {
	var err error
	if input.Wait {
		err = h.svc.App.EnableAndWait(ctx, input.ID)
	} else {
		err = h.svc.App.Do(ctx, func() error { return h.svc.App.Enable(ctx, input.ID) })
	}
	if err != nil {
		return nil, apiError(err)
	}
	return h.layer(ctx, input.ID)
}

func (h *APIHandler) DisableLayer(ctx context.Context, input *IDInput) (*LayerOutput, error) {
	if err := h.svc.App.Do(ctx, func() error { return h.svc.App.Disable(input.ID) }); err != nil {
		return nil, apiError(err)
	}
	return h.layer(ctx, input.ID)
}

func (h *APIHandler) RedirectLayer(ctx context.Context, input *RedirectInput) (*LayerOutput, error) {
	err := h.svc.App.Do(ctx, func() error {
		return h.svc.App.RedirectProperty(input.ID, input.Body.From, input.Body.To)
	})
	if err != nil {
		return nil, apiError(err)
	}
	return h.layer(ctx, input.ID)
}

func (h *APIHandler) GetLegend(ctx context.Context, input *IDInput) (*struct{ Body legend.Description }, error) {
	var (
		d     legend.Description
		shown bool
	)
	err := h.svc.App.Do(ctx, func() error {
		var err error
		d, shown, err = h.svc.App.Legend(input.ID)
		return err
	})
	if err != nil {
		return nil, apiError(err)
	}
	if !shown {
		return nil, huma.Error404NotFound("legend not shown: layer " + input.ID + " is disabled or not loaded")
	}
	return &struct{ Body legend.Description }{Body: d}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *IDInput) (*struct{ Body service.LayerFeatures }, error) {
	var out service.LayerFeatures
	err := h.svc.App.Do(ctx, func() error {
		var err error
		out, err = h.svc.App.Features(input.ID)
		return err
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &struct{ Body service.LayerFeatures }{Body: out}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sources", err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetTiles(ctx context.Context, input *struct{}) (*struct{ Body []service.TileFile }, error) {
	if h.svc.Tile == nil {
		return &struct{ Body []service.TileFile }{Body: []service.TileFile{}}, nil
	}
	tiles, err := h.svc.Tile.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("listing tiles", err)
	}
	return &struct{ Body []service.TileFile }{Body: tiles}, nil
}
