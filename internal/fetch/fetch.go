// Package fetch retrieves layer resources (templates, lookup tables, feature
// collections) over HTTP or from the data directory, off the event loop,
// and delivers each completion back onto it.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-legend/internal/db"
	"github.com/joeblew999/plat-legend/internal/tabular"
)

// Poster schedules a callback on the event loop.
type Poster interface {
	Post(fn func())
}

// Options configures a Client.
type Options struct {
	// Root resolves URLs without a scheme; empty disables local reads.
	Root string
	// HTTP defaults to a client with a 30s timeout.
	HTTP *http.Client
	// DB, when set, reads .parquet tables.
	DB *db.DB
	// MaxBytes caps a response body; larger bodies fail. 0 means 64 MiB.
	MaxBytes int64
}

// Client fetches resources asynchronously.
type Client struct {
	root     string
	http     *http.Client
	db       *db.DB
	maxBytes int64
	loop     Poster
	logger   zerolog.Logger
}

// New creates a client delivering completions through loop.
func New(loop Poster, opts Options, logger zerolog.Logger) *Client {
	if opts.HTTP == nil {
		opts.HTTP = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 64 << 20
	}
	return &Client{
		root:     opts.Root,
		http:     opts.HTTP,
		db:       opts.DB,
		maxBytes: opts.MaxBytes,
		loop:     loop,
		logger:   logger.With().Str("component", "fetch").Logger(),
	}
}

// Remote reports whether a URL names an HTTP resource.
func Remote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// LocalPath maps a scheme-less URL into the root, refusing to escape it.
func (c *Client) LocalPath(url string) (string, error) {
	if c.root == "" {
		return "", fmt.Errorf("no data directory for %q", url)
	}
	url = strings.TrimPrefix(url, "file://")
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	clean := path.Clean("/" + url)
	return filepath.Join(c.root, filepath.FromSlash(clean)), nil
}

// Bytes reads a resource synchronously.
func (c *Client) Bytes(ctx context.Context, url string) ([]byte, error) {
	if !Remote(url) {
		p, err := c.LocalPath(url)
		if err != nil {
			return nil, err
		}
		return os.ReadFile(p)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > c.maxBytes {
		return nil, fmt.Errorf("GET %s: body exceeds %d bytes", url, c.maxBytes)
	}
	return b, nil
}

// async runs get off the loop and posts the result back.
func async[T any](c *Client, ctx context.Context, url string, get func() (T, error), done func(T, error)) {
	go func() {
		start := time.Now()
		v, err := get()
		ev := c.logger.Debug()
		if err != nil {
			ev = c.logger.Warn().Err(err)
		}
		ev.Str("url", url).Dur("took", time.Since(start)).Msg("fetch complete")
		c.loop.Post(func() { done(v, err) })
	}()
}

// Text fetches a resource as a string.
func (c *Client) Text(ctx context.Context, url string, done func(string, error)) {
	async(c, ctx, url, func() (string, error) {
		b, err := c.Bytes(ctx, url)
		return string(b), err
	}, done)
}

// Table fetches a CSV, YAML or Parquet table.
func (c *Client) Table(ctx context.Context, url string, done func(*tabular.Table, error)) {
	async(c, ctx, url, func() (*tabular.Table, error) {
		return c.TableSync(ctx, url)
	}, done)
}

// TableSync reads a table synchronously, for startup configuration.
func (c *Client) TableSync(ctx context.Context, url string) (*tabular.Table, error) {
	if strings.EqualFold(path.Ext(stripQuery(url)), ".parquet") {
		if c.db == nil {
			return nil, fmt.Errorf("%s: parquet tables need a database", url)
		}
		p := url
		if !Remote(url) {
			var err error
			if p, err = c.LocalPath(url); err != nil {
				return nil, err
			}
		}
		return c.db.ReadParquet(ctx, p)
	}
	b, err := c.Bytes(ctx, url)
	if err != nil {
		return nil, err
	}
	return tabular.Decode(url, b)
}

// Features fetches a GeoJSON FeatureCollection.
func (c *Client) Features(ctx context.Context, url string, done func(*geojson.FeatureCollection, error)) {
	async(c, ctx, url, func() (*geojson.FeatureCollection, error) {
		b, err := c.Bytes(ctx, url)
		if err != nil {
			return nil, err
		}
		fc, err := geojson.UnmarshalFeatureCollection(b)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", url, err)
		}
		return fc, nil
	}, done)
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}
