package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-legend/internal/db"
	"github.com/joeblew999/plat-legend/internal/eventloop"
	"github.com/joeblew999/plat-legend/internal/fetch"
	"github.com/joeblew999/plat-legend/internal/legend"
	"github.com/joeblew999/plat-legend/internal/logging"
	"github.com/joeblew999/plat-legend/internal/metrics"
	"github.com/joeblew999/plat-legend/internal/server"
	"github.com/joeblew999/plat-legend/internal/service"
	"github.com/joeblew999/plat-legend/internal/templates"
)

// Options defines all CLI flags and env vars for the legend server.
// Flags: --host, --port, --data-dir, --layers, --base-layer, --levels, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_LAYERS, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for sources, tiles and the DuckDB file" default:".data"`
	Layers    string `doc:"Layer configuration table (CSV, YAML or Parquet; path in the data dir or URL)" default:"layers.csv"`
	BaseLayer string `doc:"Initial base layer" default:"CartoDB"`
	Levels    int    `doc:"Legend samples per continuous dimension" default:"5"`
	LogLevel  string `doc:"trace, debug, info, warn or error" default:"info"`
}

// runtime is every long-lived component, started and ready to serve.
type runtime struct {
	logger   zerolog.Logger
	db       *db.DB
	client   *fetch.Client
	renderer *templates.Renderer
	surface  *legend.HTMLSurface
	metrics  *metrics.Metrics
	app      *service.App
	sources  *service.SourceService
	tiles    *service.TileService
	cancel   context.CancelFunc
}

// start builds the engine and runs its event loop. When load is set the
// base layers and the layer configuration are loaded too.
func start(opts *Options, load bool) (*runtime, error) {
	logger := logging.New(opts.LogLevel, "plat-legend")

	database, err := db.Open(db.Config{DataDir: opts.DataDir, DBName: "legend"})
	if err != nil {
		logger.Warn().Err(err).Msg("duckdb unavailable, parquet tables disabled")
		database = nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := eventloop.New(0)
	go loop.Run(ctx)

	renderer, err := templates.New()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	rt := &runtime{
		logger:   logger,
		db:       database,
		client:   fetch.New(loop, fetch.Options{Root: opts.DataDir, DB: database}, logger),
		renderer: renderer,
		surface:  legend.NewHTMLSurface(renderer, nil, nil),
		metrics:  metrics.New(),
		sources:  service.NewSourceService(opts.DataDir),
		tiles:    service.NewTileService(opts.DataDir, "/tiles/"),
		cancel:   cancel,
	}
	rt.app = service.NewApp(loop, rt.client, service.Options{
		Levels:  opts.Levels,
		Surface: rt.surface,
		Metrics: rt.metrics,
	}, logger)

	if !load {
		return rt, nil
	}
	if err := rt.load(ctx, opts); err != nil {
		rt.close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) load(ctx context.Context, opts *Options) error {
	bases, err := rt.tiles.BaseLayers()
	if err != nil {
		rt.logger.Warn().Err(err).Msg("listing pmtiles base layers")
	}

	table, err := rt.client.TableSync(ctx, opts.Layers)
	if err != nil {
		return fmt.Errorf("reading layer configuration %s: %w", opts.Layers, err)
	}

	return rt.app.Do(ctx, func() error {
		m := rt.app.Map()
		for _, b := range bases {
			m.AddBaseLayer(b)
		}
		if err := m.SetBaseLayer(opts.BaseLayer); err != nil {
			return err
		}
		return rt.app.LoadConfig(ctx, table)
	})
}

func (rt *runtime) close() {
	rt.cancel()
	if rt.db != nil {
		_ = rt.db.Close()
	}
}

func (rt *runtime) server(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		Layers:  opts.Layers,
		DBOK:    rt.db != nil,
	}, server.Deps{
		App:      rt.app,
		Surface:  rt.surface,
		Renderer: rt.renderer,
		Metrics:  rt.metrics,
		Sources:  rt.sources,
		Tiles:    rt.tiles,
		Tables:   rt.client,
	}, rt.logger)
}

// toYAML renders v as YAML using its JSON field names.
func toYAML(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}
	return yaml.Marshal(generic)
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var (
			rt  *runtime
			srv *http.Server
		)

		hooks.OnStart(func() {
			var err error
			rt, err = start(opts, true)
			if err != nil {
				fatal("Startup failed", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-legend server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Layers:  %s\n", opts.Layers)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			srv = &http.Server{Addr: addr, Handler: rt.server(opts), ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Fatal().Err(err).Msg("server error")
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
			if rt != nil {
				rt.close()
			}
		})
	})

	cli.Root().Use = "geo"
	cli.Root().Short = "Config-driven map styling and legend server"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			rt, err := start(opts, false)
			if err != nil {
				fatal("Startup failed", err)
			}
			defer rt.close()
			spec := rt.server(opts).OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// legend subcommand: load one layer and print its legend description
	legendCmd := &cobra.Command{
		Use:   "legend <layer-id>",
		Short: "Load a layer and print its legend as YAML",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			rt, err := start(opts, true)
			if err != nil {
				fatal("Startup failed", err)
			}
			defer rt.close()

			id := args[0]
			if err := rt.app.EnableAndWait(ctx, id); err != nil {
				fatal("Loading "+id, err)
			}

			var d legend.Description
			err = rt.app.Do(ctx, func() error {
				var (
					shown bool
					lerr  error
				)
				d, shown, lerr = rt.app.Legend(id)
				if lerr == nil && !shown {
					lerr = fmt.Errorf("layer %s has no legend", id)
				}
				return lerr
			})
			if err != nil {
				fatal("Building legend", err)
			}

			out, err := toYAML(d)
			if err != nil {
				fatal("Error marshaling legend", err)
			}
			fmt.Print(string(out))
		}),
	}
	legendCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the layer to load")
	cli.Root().AddCommand(legendCmd)

	cli.Run()
}
