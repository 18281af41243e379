// Package editor contains Datastar SSE handlers for the legend and layer
// controls of the viewer.
package editor

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-legend/internal/humastar"
	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/service"
	"github.com/joeblew999/plat-legend/internal/templates"
)

// LegendHandler streams legend blocks and applies dimension selections.
type LegendHandler struct {
	humastar.Handler
	app     *service.App
	surface *legend.HTMLSurface
	logger  zerolog.Logger
}

// NewLegendHandler creates a legend handler over the surface the App renders to.
func NewLegendHandler(app *service.App, surface *legend.HTMLSurface, renderer *templates.Renderer, logger zerolog.Logger) *LegendHandler {
	return &LegendHandler{
		Handler: humastar.Handler{Renderer: renderer},
		app:     app,
		surface: surface,
		logger:  logger.With().Str("component", "editor").Logger(),
	}
}

func (h *LegendHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/legend", h.Legend, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/layers/{id}/redirect", h.Redirect, huma.OperationTags("editor"))
}

func blockID(layerID string) string { return "legend-" + layerID }

// Legend sends the whole legend container, then keeps each layer's block
// current until the client goes away.
func (h *LegendHandler) Legend(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		events := h.app.Bus().Subscribe(service.ResourceLegend)
		defer h.app.Bus().Unsubscribe(events)

		html, err := h.surface.HTML()
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Replace(html, "#legend")

		shown := map[string]bool{}
		for _, id := range h.surface.Layers() {
			shown[id] = true
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				h.apply(sse, shown, ev)
			}
		}
	}), nil
}

// apply mirrors one legend event onto the page. New blocks are appended,
// matching the surface's first-shown order.
func (h *LegendHandler) apply(sse humastar.SSE, shown map[string]bool, ev service.Event) {
	switch ev.Action {
	case service.ActionRemoved:
		if shown[ev.ID] {
			sse.RemoveElementByID(blockID(ev.ID))
			delete(shown, ev.ID)
		}
	case service.ActionUpdated:
		html, ok := h.surface.Block(ev.ID)
		if !ok {
			return
		}
		if shown[ev.ID] {
			sse.Replace(html, "#"+blockID(ev.ID))
		} else {
			sse.Append(html, "#legend")
			shown[ev.ID] = true
		}
	}
}

type RedirectInput struct {
	ID      string `path:"id" doc:"Layer ID"`
	RawBody []byte
}

// Redirect restyles a layer by the property picked in a legend selector.
// Signals: legendfrom (property shown) and legendprop (property picked).
func (h *LegendHandler) Redirect(ctx context.Context, input *RedirectInput) (*huma.StreamResponse, error) {
	signals, err := humastar.ParseSignals(input.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	from, to := signals.String("legendfrom"), signals.String("legendprop")
	if from == "" || to == "" {
		return nil, huma.Error400BadRequest("legendfrom and legendprop are required")
	}

	return h.Stream(func(sse humastar.SSE) {
		err := h.app.Do(ctx, func() error {
			return h.app.RedirectProperty(input.ID, from, to)
		})
		if err != nil {
			h.logger.Warn().Err(err).Str("layer", input.ID).Msg("redirect rejected")
			sse.Error(err.Error())
			return
		}
		if html, ok := h.surface.Block(input.ID); ok {
			sse.Replace(html, "#"+blockID(input.ID))
		}
		sse.Signals(map[string]any{"legendfrom": "", "legendprop": ""})
		sse.Success(fmt.Sprintf("%s now styled by %s", input.ID, to))
	}), nil
}
