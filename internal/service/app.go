package service

import (
	"context"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-legend/internal/errs"
	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/mapview"
	"github.com/joeblew999/plat-legend/internal/popup"
	"github.com/joeblew999/plat-legend/internal/resource"
	"github.com/joeblew999/plat-legend/internal/style"
	"github.com/joeblew999/plat-legend/internal/tabular"
	"github.com/joeblew999/plat-legend/internal/zoom"
)

// Fetcher delivers resources asynchronously. Every callback must run on the
// event loop that owns the App.
type Fetcher interface {
	Features(ctx context.Context, url string, done func(*geojson.FeatureCollection, error))
	Table(ctx context.Context, url string, done func(*tabular.Table, error))
	Text(ctx context.Context, url string, done func(string, error))
}

// Metrics receives engine counters. Implementations must tolerate a nil
// receiver.
type Metrics interface {
	Fetch(kind string, err error)
	LayerLoad(err error)
	LegendBuilt()
	Redirected()
}

type noMetrics struct{}

func (noMetrics) Fetch(string, error) {}
func (noMetrics) LayerLoad(error)     {}
func (noMetrics) LegendBuilt()        {}
func (noMetrics) Redirected()         {}

// Options configures an App.
type Options struct {
	// Levels is the number of legend samples per continuous dimension.
	Levels  int
	Surface legend.Surface
	Bus     *EventBus
	Metrics Metrics
}

// Executor runs a function on the event loop and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func() error) error
}

// App is the application context: every layer, cache and the map live
// here. All methods must run on the event loop; outside callers go
// through Do.
type App struct {
	loop     Executor
	fetcher  Fetcher
	registry *Registry
	tables   *resource.Cache[*tabular.Table]
	texts    *resource.Cache[string]
	compiled map[string]popup.Renderer
	view     *mapview.Map
	zoom     *zoom.Controller
	legends  map[string]legend.Description
	// waiters are called when a layer's current load attempt ends.
	waiters  map[string][]func(error)
	surface  legend.Surface
	bus      *EventBus
	metrics  Metrics
	levels   int
	logger   zerolog.Logger
}

// NewApp creates an application context with an empty registry.
func NewApp(loop Executor, f Fetcher, opts Options, logger zerolog.Logger) *App {
	if opts.Levels < 2 {
		opts.Levels = legend.DefaultLevels
	}
	if opts.Bus == nil {
		opts.Bus = NewEventBus()
	}
	if opts.Metrics == nil {
		opts.Metrics = noMetrics{}
	}
	view := mapview.New()
	a := &App{
		loop:     loop,
		fetcher:  f,
		registry: NewRegistry(),
		compiled: map[string]popup.Renderer{},
		view:     view,
		zoom:     zoom.NewController(view),
		legends:  map[string]legend.Description{},
		waiters:  map[string][]func(error){},
		surface:  opts.Surface,
		bus:      opts.Bus,
		metrics:  opts.Metrics,
		levels:   opts.Levels,
		logger:   logger.With().Str("component", "app").Logger(),
	}
	a.tables = resource.New[*tabular.Table]("table", nil, f.Table, logger)
	a.tables.Observe(func(_ string, err error) { a.metrics.Fetch("table", err) })
	a.texts = resource.New[string]("template", popup.NotLoaded, f.Text, logger)
	a.texts.Observe(func(_ string, err error) { a.metrics.Fetch("template", err) })
	return a
}

// Do runs fn on the event loop.
func (a *App) Do(ctx context.Context, fn func() error) error {
	return a.loop.Call(ctx, fn)
}

// Bus returns the event bus.
func (a *App) Bus() *EventBus { return a.bus }

// Map returns the map model.
func (a *App) Map() *mapview.Map { return a.view }

// Registry returns the layer registry.
func (a *App) Registry() *Registry { return a.registry }

// Tables lists the lookup-table cache entries.
func (a *App) Tables() []resource.Entry { return a.tables.Entries() }

// Templates lists the template cache entries.
func (a *App) Templates() []resource.Entry { return a.texts.Entries() }

// LoadConfig decodes and registers every row. The first malformed row
// aborts with its ConfigError; rows before it stay registered.
func (a *App) LoadConfig(ctx context.Context, t *tabular.Table) error {
	ctx = context.WithoutCancel(ctx)
	for _, row := range t.Rows {
		l, err := DecodeRow(row)
		if err != nil {
			return err
		}
		if err := a.registry.Add(l); err != nil {
			return err
		}
		l.drawable = mapview.NewDrawable(l.ID)
		a.registerFetches(ctx, l)
		a.logger.Debug().Str("layer", l.ID).Str("geometry", string(l.Kind)).Msg("layer registered")
	}
	a.logger.Info().Int("layers", a.registry.Len()).Msg("configuration loaded")
	return nil
}

// registerFetches requests the layer's auxiliary resources up front.
func (a *App) registerFetches(ctx context.Context, l *Layer) {
	for _, url := range []string{l.PopupURL, l.AttributionURL} {
		if url != "" {
			a.texts.GetOrFetch(ctx, url, nil)
		}
	}
	if l.Icon.TableURL != "" {
		a.tables.GetOrFetch(ctx, l.Icon.TableURL, func(_ *tabular.Table, err error) {
			if err == nil && l.Enabled && l.State == Loaded {
				a.buildLegend(l)
			}
		})
	}
}

// Enable shows a layer. The first enable fetches its geometry; later ones
// only rebuild the legend.
func (a *App) Enable(ctx context.Context, id string) error {
	l, err := a.registry.Get(id)
	if err != nil {
		return err
	}
	l.Enabled = true
	a.view.Add(l.drawable)
	a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionEnabled, ID: l.ID})

	switch l.State {
	case Loaded:
		a.syncLabels(l)
		a.buildLegend(l)
	case Registered:
		a.startLoad(context.WithoutCancel(ctx), l)
	}
	return nil
}

// Disable hides a layer and drops its legend. Data and styling are kept.
func (a *App) Disable(id string) error {
	l, err := a.registry.Get(id)
	if err != nil {
		return err
	}
	l.Enabled = false
	a.view.Remove(l.ID)
	a.removeLegend(l)
	a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionDisabled, ID: l.ID})
	return nil
}

// RedirectProperty points every scaled channel reading from at to instead,
// then restyles and rebuilds the legend.
func (a *App) RedirectProperty(id, from, to string) error {
	l, err := a.registry.Get(id)
	if err != nil {
		return err
	}
	rules, changed := l.Rules.Redirect(from, to)
	if !changed {
		return errs.Configf(l.Name, "", "no scaled channel reads %q", from)
	}
	l.Rules = rules
	if l.State == Loaded {
		a.restyle(l)
		if l.Enabled {
			a.buildLegend(l)
		}
	}
	a.metrics.Redirected()
	a.logger.Info().Str("layer", l.ID).Str("from", from).Str("to", to).Msg("property redirected")
	a.bus.Publish(Event{Resource: ResourceLayer, Action: ActionRedirected, ID: l.ID})
	return nil
}

// ZoomStart records the zoom at the start of a gesture.
func (a *App) ZoomStart() {
	a.zoom.Start(a.view.Zoom())
}

// ZoomEnd applies a new zoom and toggles the label tiers crossed.
func (a *App) ZoomEnd(z int) []zoom.Toggle {
	a.view.SetZoom(z)
	toggles := a.zoom.End(z)
	for _, t := range toggles {
		a.logger.Debug().Int("tier", t.Tier).Bool("visible", t.Visible).Msg("label tier")
	}
	if len(toggles) > 0 {
		a.bus.Publish(Event{Resource: ResourceZoom, Action: ActionUpdated})
	}
	return toggles
}

// Legend returns the current legend of an enabled, loaded layer.
func (a *App) Legend(id string) (legend.Description, bool, error) {
	if _, err := a.registry.Get(id); err != nil {
		return legend.Description{}, false, err
	}
	d, ok := a.legends[id]
	return d, ok, nil
}

// Summary describes a layer.
func (a *App) Summary(l *Layer) LayerSummary {
	s := LayerSummary{
		ID:          l.ID,
		Name:        l.Name,
		Geometry:    l.Kind,
		Source:      l.SourceURL,
		State:       l.State.String(),
		Enabled:     l.Enabled,
		Features:    len(l.drawable.Features()),
		Selectable:  l.Selectable,
		Label:       l.Label,
		Attribution: a.attribution(l),
	}
	if l.LastError != nil {
		s.Error = l.LastError.Error()
	}
	for _, ch := range l.Rules.ScaledChannels() {
		if s.Scaled == nil {
			s.Scaled = map[string]string{}
		}
		s.Scaled[string(ch)] = l.Rules[ch].Property
	}
	return s
}

// Summaries describes every layer in configuration order.
func (a *App) Summaries() []LayerSummary {
	out := make([]LayerSummary, 0, a.registry.Len())
	for _, l := range a.registry.List() {
		out = append(out, a.Summary(l))
	}
	return out
}

// Features returns the drawn form of a layer.
func (a *App) Features(id string) (LayerFeatures, error) {
	l, err := a.registry.Get(id)
	if err != nil {
		return LayerFeatures{}, err
	}
	return LayerFeatures{
		ID:       l.ID,
		Features: l.drawable.Views(),
		Labels:   l.drawable.Labels(),
	}, nil
}

func (a *App) subject(l *Layer) legend.Subject {
	s := legend.Subject{
		ID:         l.ID,
		Name:       l.Name,
		Point:      l.Kind == Point,
		Rules:      l.Rules,
		Icon:       l.Icon,
		Selectable: l.Selectable,
	}
	if l.Icon.TableURL != "" {
		s.IconTable = a.tables.Value(l.Icon.TableURL)
	}
	return s
}

func (a *App) buildLegend(l *Layer) {
	d := legend.Build(a.subject(l), a.levels)
	a.legends[l.ID] = d
	a.metrics.LegendBuilt()
	if a.surface != nil {
		if err := a.surface.Replace(d); err != nil {
			a.logger.Error().Err(err).Str("layer", l.ID).Msg("legend render failed")
		}
	}
	a.bus.Publish(Event{Resource: ResourceLegend, Action: ActionUpdated, ID: l.ID})
}

func (a *App) removeLegend(l *Layer) {
	if _, ok := a.legends[l.ID]; !ok {
		return
	}
	delete(a.legends, l.ID)
	if a.surface != nil {
		a.surface.Remove(l.ID)
	}
	a.bus.Publish(Event{Resource: ResourceLegend, Action: ActionRemoved, ID: l.ID})
}

// restyle refits every scaled domain to the loaded features and installs
// a style function over a snapshot of the rules.
func (a *App) restyle(l *Layer) {
	l.Rules.Refit(l.drawable.Features())
	rules := l.Rules
	l.drawable.SetStyle(func(f *geojson.Feature) style.Style {
		return rules.Evaluate(f)
	})
}

// render compiles (once per distinct text) and runs a cached template.
func (a *App) render(url string, data any) string {
	text := a.texts.Value(url)
	r, ok := a.compiled[text]
	if !ok {
		var err error
		if r, err = popup.Compile(text); err != nil {
			a.logger.Warn().Err(err).Str("url", url).Msg("template compile failed")
			return text
		}
		a.compiled[text] = r
	}
	return r(data)
}

func (a *App) attribution(l *Layer) string {
	if l.AttributionURL == "" {
		return ""
	}
	return a.render(l.AttributionURL, map[string]string(l.Row))
}
