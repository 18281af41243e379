// Package eventloop provides the single goroutine that owns all map and
// legend state. Network completions and HTTP requests are funneled through
// it, so the state it guards needs no further locking.
package eventloop

import (
	"context"
	"errors"
)

// ErrStopped is returned by Call when the loop is no longer running.
var ErrStopped = errors.New("event loop stopped")

// Loop serializes callbacks onto one goroutine.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// New creates a loop with the given queue depth.
func New(depth int) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Post schedules fn to run on the loop. It never runs fn inline.
// Posts after the loop stops are dropped.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.queue <- fn:
	}
}

// Call runs fn on the loop and waits for it to return.
func (l *Loop) Call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case l.queue <- func() { result <- fn() }:
	}
	select {
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case err := <-result:
		return err
	}
}

// Run executes posted callbacks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.queue:
			fn()
		}
	}
}
