// Package resource implements the page-lifetime cache for auxiliary layer
// resources (icon lookup tables, popup templates). Each URL is fetched at most
// once; requesters that arrive while a fetch is in flight share its result.
package resource

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-legend/internal/errs"
)

// State of a cache entry.
type State int

const (
	Absent State = iota
	Pending
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "absent"
}

// Loader fetches and decodes one resource. It must invoke done exactly once,
// on the event loop.
type Loader[T any] func(ctx context.Context, url string, done func(T, error))

// Observer is told the outcome of every fetch.
type Observer func(url string, err error)

type entry[T any] struct {
	state   State
	value   T
	err     error
	waiters []func(T, error)
}

// Cache maps URL to a decoded resource. It is owned by the event loop and is
// not safe for concurrent use.
type Cache[T any] struct {
	kind     string
	pending  T
	load     Loader[T]
	entries  map[string]*entry[T]
	order    []string
	logger   zerolog.Logger
	observer Observer
}

// New creates a cache whose entries read as pending until loaded.
func New[T any](kind string, pending T, load Loader[T], logger zerolog.Logger) *Cache[T] {
	return &Cache[T]{
		kind:    kind,
		pending: pending,
		load:    load,
		entries: make(map[string]*entry[T]),
		logger:  logger.With().Str("cache", kind).Logger(),
	}
}

// Observe registers a fetch outcome hook.
func (c *Cache[T]) Observe(fn Observer) {
	c.observer = fn
}

// GetOrFetch ensures url is requested. An existing entry, whatever its state,
// is never refetched. done (optional) is called with the value once
// available, immediately if it already is. A failed fetch reports a
// FetchError to done and leaves the pending value observable.
func (c *Cache[T]) GetOrFetch(ctx context.Context, url string, done func(T, error)) {
	if e, ok := c.entries[url]; ok {
		switch e.state {
		case Loaded, Failed:
			if done != nil {
				done(e.value, e.err)
			}
		default:
			if done != nil {
				e.waiters = append(e.waiters, done)
			}
		}
		return
	}

	e := &entry[T]{state: Pending, value: c.pending}
	if done != nil {
		e.waiters = append(e.waiters, done)
	}
	c.entries[url] = e
	c.order = append(c.order, url)

	c.logger.Debug().Str("url", url).Msg("fetching")
	c.load(ctx, url, func(v T, err error) {
		if err != nil {
			e.state = Failed
			e.err = &errs.FetchError{URL: url, Err: err}
			c.logger.Error().Err(err).Str("url", url).Msg("fetch failed")
		} else {
			e.state = Loaded
			e.value = v
			c.logger.Debug().Str("url", url).Msg("fetched")
		}
		if c.observer != nil {
			c.observer(url, e.err)
		}
		waiters := e.waiters
		e.waiters = nil
		for _, w := range waiters {
			w(e.value, e.err)
		}
	})
}

// Get returns the current value for url (the pending value until loaded)
// and the entry state.
func (c *Cache[T]) Get(url string) (T, State) {
	e, ok := c.entries[url]
	if !ok {
		return c.pending, Absent
	}
	return e.value, e.state
}

// Value returns the loaded value or the pending value.
func (c *Cache[T]) Value(url string) T {
	v, _ := c.Get(url)
	return v
}

// Entry describes one cache entry.
type Entry struct {
	URL   string `json:"url" doc:"Resource URL"`
	State string `json:"state" doc:"absent, pending, loaded or failed"`
	Error string `json:"error,omitempty" doc:"Fetch error, if failed"`
}

// Entries lists entries in first-request order.
func (c *Cache[T]) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, url := range c.order {
		e := c.entries[url]
		item := Entry{URL: url, State: e.state.String()}
		if e.err != nil {
			item.Error = e.err.Error()
		}
		out = append(out, item)
	}
	return out
}
