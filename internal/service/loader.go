package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/icon"
	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// startLoad moves a layer to Loading and requests its geometry. The fetch
// is never cancelled: a layer disabled meanwhile still finishes loading.
func (a *App) startLoad(ctx context.Context, l *Layer) {
	l.State = Loading
	l.LastError = nil
	a.logger.Info().Str("layer", l.ID).Str("url", l.SourceURL).Msg("loading layer")
	a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionLoading, ID: l.ID})
	a.fetcher.Features(ctx, l.SourceURL, func(fc *geojson.FeatureCollection, err error) {
		a.finishLoad(l, fc, err)
	})
}

func (a *App) finishLoad(l *Layer, fc *geojson.FeatureCollection, err error) {
	a.metrics.Fetch("geometry", err)
	if err == nil && fc == nil {
		err = fmt.Errorf("empty response")
	}
	if err != nil {
		l.State = Registered
		l.LastError = &errs.LoadError{Layer: l.Name, URL: l.SourceURL, Err: err}
		a.metrics.LayerLoad(l.LastError)
		a.logger.Error().Err(err).Str("layer", l.ID).Str("url", l.SourceURL).Msg("layer load failed")
		a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionFailed, ID: l.ID})
		a.notifyLoaded(l)
		return
	}

	d := l.drawable
	if l.PopupURL != "" {
		url := l.PopupURL
		d.BindPopup(func(f *geojson.Feature) string {
			return a.render(url, popupContext(f))
		})
	}
	if l.Kind == Point {
		iconURL := icon.BuildURLFunc(l.Icon, func(url string) *tabular.Table { return a.tables.Value(url) })
		anchor := l.Anchor
		d.SetPointToLayer(func(f *geojson.Feature, _ orb.Point) mapview.Marker {
			return mapview.Marker{IconURL: iconURL(f), Size: icon.DefaultSize, Anchor: anchor}
		})
	}
	d.AddData(fc)
	a.restyle(l)
	if l.Label != nil {
		d.AddLabels(a.labels(l, fc.Features)...)
	}
	l.State = Loaded
	a.metrics.LayerLoad(nil)
	a.logger.Info().Str("layer", l.ID).Int("features", len(fc.Features)).Msg("layer loaded")
	a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionLoaded, ID: l.ID})

	if l.Enabled {
		a.buildLegend(l)
	}
	a.notifyLoaded(l)
}

// popupContext is the data a popup template sees.
func popupContext(f *geojson.Feature) map[string]any {
	return map[string]any{
		"type":       "Feature",
		"id":         f.ID,
		"properties": map[string]any(f.Properties),
	}
}

// labels builds one label per feature carrying the label property.
func (a *App) labels(l *Layer, features []*geojson.Feature) []mapview.Label {
	rule := l.Label
	hidden := float64(a.view.Zoom()) < rule.MinZoom
	var out []mapview.Label
	for _, f := range features {
		v, ok := f.Properties[rule.Property]
		if !ok || v == nil {
			continue
		}
		pos, ok := labelPosition(f)
		if !ok {
			continue
		}
		out = append(out, mapview.Label{
			Position: pos,
			Tier:     rule.Tier,
			DivClass: rule.DivClass,
			Value:    labelText(v),
			Hidden:   hidden,
		})
	}
	return out
}

// syncLabels re-derives visibility from the current zoom, for labels that
// missed tier toggles while their layer was hidden.
func (a *App) syncLabels(l *Layer) {
	if l.Label == nil {
		return
	}
	hidden := float64(a.view.Zoom()) < l.Label.MinZoom
	l.drawable.UpdateLabels(func(lb *mapview.Label) { lb.Hidden = hidden })
}

// labelPosition prefers the internal point columns of census-style data,
// falling back to the centroid taken in Web Mercator.
func labelPosition(f *geojson.Feature) (orb.Point, bool) {
	lat, okLat := number(f.Properties["intptlat"])
	lon, okLon := number(f.Properties["intptlon"])
	if okLat && okLon {
		return orb.Point{lon, lat}, true
	}
	if f.Geometry == nil {
		return orb.Point{}, false
	}
	merc := project.Geometry(orb.Clone(f.Geometry), project.WGS84.ToMercator)
	c, _ := planar.CentroidArea(merc)
	return project.Mercator.ToWGS84(c), true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func labelText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
