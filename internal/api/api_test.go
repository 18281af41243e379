package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/eventloop"
	"github.com/joeblew999/plat-legend/internal/service"
)

func TestAPIError_Statuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("get: %w", service.ErrLayerNotFound), http.StatusNotFound},
		{errs.Configf("Roads", "weight", "bad range"), http.StatusUnprocessableEntity},
		{&errs.LoadError{Layer: "Roads", URL: "r.geojson", Err: errors.New("x")}, http.StatusBadGateway},
		{&errs.FetchError{URL: "icons.csv", Err: errors.New("x")}, http.StatusBadGateway},
		{eventloop.ErrStopped, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		var se huma.StatusError
		require.ErrorAs(t, apiError(c.err), &se, c.err.Error())
		assert.Equal(t, c.status, se.GetStatus(), c.err.Error())
	}
	assert.NoError(t, apiError(nil))
}

func rels(b LayerBody) []string {
	var out []string
	for _, a := range b.Actions() {
		out = append(out, a.Rel)
	}
	return out
}

func TestLayerBody_Actions(t *testing.T) {
	b := LayerBody{service.LayerSummary{ID: "roads", State: "registered"}}
	assert.Equal(t, []string{"enable"}, rels(b))

	b.Scaled = map[string]string{"weight": "lanes"}
	b.State = "loaded"
	assert.Equal(t, []string{"enable", "redirect", "features"}, rels(b))

	b.Enabled = true
	assert.Equal(t, []string{"disable", "redirect", "features", "legend"}, rels(b))
	assert.Equal(t, "/api/v1/layers/roads/legend", b.Actions()[3].Href)
}
