package editor

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-legend/internal/humastar"
	"github.com/joeblew999/plat-legend/internal/service"
)

// LayerHandler renders the overlay checklist and toggles layers from it.
type LayerHandler struct {
	*LegendHandler
}

func NewLayerHandler(legend *LegendHandler) *LayerHandler {
	return &LayerHandler{LegendHandler: legend}
}

func (h *LayerHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/layers", h.ListLayers, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/layers/{id}/enable", h.EnableLayer, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/layers/{id}/disable", h.DisableLayer, huma.OperationTags("editor"))
}

type LayerInput struct {
	ID string `path:"id" doc:"Layer ID"`
}

// ListLayers sends the checklist, then re-sends an item whenever its layer
// changes state.
func (h *LayerHandler) ListLayers(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		events := h.app.Bus().Subscribe(service.ResourceLayer)
		defer h.app.Bus().Unsubscribe(events)

		var layers []service.LayerSummary
		if err := h.app.Do(ctx, func() error {
			layers = h.app.Summaries()
			return nil
		}); err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Replace(h.MustRender("layer-list", layers), "#layer-list")

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.patchItem(ctx, sse, ev.ID)
			}
		}
	}), nil
}

func (h *LayerHandler) patchItem(ctx context.Context, sse humastar.SSE, id string) {
	var s service.LayerSummary
	err := h.app.Do(ctx, func() error {
		l, err := h.app.Registry().Get(id)
		if err != nil {
			return err
		}
		s = h.app.Summary(l)
		return nil
	})
	if err != nil {
		return
	}
	sse.Replace(h.MustRender("layer-item", s), "#layer-"+id)
	sse.DispatchCustomEvent("layer-changed", map[string]any{
		"id": s.ID, "state": s.State, "enabled": s.Enabled,
	})
}

func (h *LayerHandler) EnableLayer(ctx context.Context, input *LayerInput) (*huma.StreamResponse, error) {
	return h.toggle(ctx, input.ID, func() error { return h.app.Enable(ctx, input.ID) })
}

func (h *LayerHandler) DisableLayer(ctx context.Context, input *LayerInput) (*huma.StreamResponse, error) {
	return h.toggle(ctx, input.ID, func() error { return h.app.Disable(input.ID) })
}

func (h *LayerHandler) toggle(ctx context.Context, id string, fn func() error) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if err := h.app.Do(ctx, fn); err != nil {
			sse.Error(err.Error())
			return
		}
		h.patchItem(ctx, sse, id)
	}), nil
}
