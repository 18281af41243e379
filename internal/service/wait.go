package service

import (
	"context"

	"github.com/joeblew999/plat-legend/internal/tabular"
)

// EnableAndWait enables a layer from outside the event loop and blocks until
// its geometry has loaded or failed and, for point layers, until its icon
// lookup table has resolved. A failed geometry load returns the layer's
// *errs.LoadError; a failed table only leaves icons unresolved.
func (a *App) EnableAndWait(ctx context.Context, id string) error {
	done := make(chan error, 1)
	err := a.Do(ctx, func() error {
		if err := a.Enable(ctx, id); err != nil {
			return err
		}
		l, _ := a.registry.Get(id)
		a.whenReady(context.WithoutCancel(ctx), l, func(err error) { done <- err })
		return nil
	})
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// whenReady calls fn once, on the loop, after the layer's geometry and icon
// table have settled.
func (a *App) whenReady(ctx context.Context, l *Layer, fn func(error)) {
	a.whenLoaded(l, func(err error) {
		if err != nil || l.Icon.TableURL == "" {
			fn(err)
			return
		}
		a.tables.GetOrFetch(ctx, l.Icon.TableURL, func(*tabular.Table, error) { fn(nil) })
	})
}

// whenLoaded calls fn once the current load attempt finishes, immediately
// if the layer is already loaded.
func (a *App) whenLoaded(l *Layer, fn func(error)) {
	switch l.State {
	case Loaded:
		fn(nil)
	case Loading:
		a.waiters[l.ID] = append(a.waiters[l.ID], fn)
	default:
		fn(l.LastError)
	}
}

func (a *App) notifyLoaded(l *Layer) {
	waiters := a.waiters[l.ID]
	delete(a.waiters, l.ID)
	for _, fn := range waiters {
		fn(l.LastError)
	}
}
