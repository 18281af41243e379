// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming to the Datastar SSE protocol via [SSE] and [NewSSE]
//   - Signals: Datastar signal parsing via [Signals] and [ParseSignals]
//   - Handler: an embeddable base for SSE handlers via [Handler]
//   - Links: RFC 8288 Link headers derived from the OpenAPI document
//
// Usage:
//
//	type LegendHandler struct {
//	    humastar.Handler
//	}
//
//	func (h *LegendHandler) Show(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        sse.Replace(h.MustRender("legend-container", nil), "#legend")
//	    }), nil
//	}
package humastar

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/plat-legend/internal/templates"
)

// ---------------------------------------------------------------------------
// Handler: embeddable base for Datastar SSE handlers
// ---------------------------------------------------------------------------

// Handler is an embeddable base for Huma handlers that produce Datastar SSE
// responses.
type Handler struct {
	Renderer *templates.Renderer
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// MustRender renders a named fragment.
func (h *Handler) MustRender(name string, data any) string {
	return h.Renderer.MustRender(name, data)
}

// ---------------------------------------------------------------------------
// SSE: Huma to Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with the patch modes the legend uses.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context served
// through the chi adapter.
func NewSSE(ctx huma.Context) SSE {
	r, w := humachi.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner())
}

// Replace swaps the element at a CSS selector for html.
func (s SSE) Replace(html, selector string) {
	s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeOuter())
}

// Append adds HTML as the last child of a CSS selector.
func (s SSE) Append(html, selector string) {
	s.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeAppend())
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Success sends a success signal to the UI.
func (s SSE) Success(msg string) {
	s.MarshalAndPatchSignals(map[string]any{"success": msg})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// ---------------------------------------------------------------------------
// Signals: Datastar signal parsing
// ---------------------------------------------------------------------------

// Signals provides type-safe access to Datastar signal values.
// Datastar sends all signals as a flat JSON object in the request body.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal, or "" when absent or not a string.
func (s Signals) String(key string) string {
	str, _ := s[key].(string)
	return str
}

// Int returns a numeric signal truncated to int, or 0.
func (s Signals) Int(key string) int {
	n, _ := s[key].(float64)
	return int(n)
}

// Has returns true if the signal key exists (even if zero-valued).
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// ---------------------------------------------------------------------------
// Input types
// ---------------------------------------------------------------------------

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}
