package api

import (
	"net/http"

	"github.com/joeblew999/plat-legend/internal/humastar"
	"github.com/joeblew999/plat-legend/internal/service"
)

var (
	enableAction   = humastar.ActionDef{Rel: "enable", Pattern: "/api/v1/layers/%s/enable", Method: http.MethodPost, Title: "Show layer"}
	disableAction  = humastar.ActionDef{Rel: "disable", Pattern: "/api/v1/layers/%s/disable", Method: http.MethodPost, Title: "Hide layer"}
	redirectAction = humastar.ActionDef{Rel: "redirect", Pattern: "/api/v1/layers/%s/redirect", Method: http.MethodPost, Title: "Restyle by another property"}
	legendAction   = humastar.ActionDef{Rel: "legend", Pattern: "/api/v1/layers/%s/legend", Method: http.MethodGet, Title: "Legend"}
	featuresAction = humastar.ActionDef{Rel: "features", Pattern: "/api/v1/layers/%s/features", Method: http.MethodGet, Title: "Styled features"}
)

// LayerBody is a layer summary that advertises the actions its state allows.
type LayerBody struct {
	service.LayerSummary
}

// Actions implements humastar.Actor.
func (b LayerBody) Actions() []humastar.Action {
	var out []humastar.Action
	if b.Enabled {
		out = append(out, disableAction.For(b.ID))
	} else {
		out = append(out, enableAction.For(b.ID))
	}
	if len(b.Scaled) > 0 {
		out = append(out, redirectAction.For(b.ID))
	}
	if b.State == service.Loaded.String() {
		out = append(out, featuresAction.For(b.ID))
		if b.Enabled {
			out = append(out, legendAction.For(b.ID))
		}
	}
	return out
}
