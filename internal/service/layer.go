package service

import (
	"errors"
	"fmt"

	"github.com/joeblew999/plat-legend/internal/errs"
)

// ErrLayerNotFound is returned for an unknown layer id.
var ErrLayerNotFound = errors.New("layer not found")

// Registry holds layers by id in configuration order.
type Registry struct {
	layers map[string]*Layer
	order  []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{layers: make(map[string]*Layer)}
}

// Add registers a layer. Two rows sanitizing to the same id are a
// configuration error.
func (r *Registry) Add(l *Layer) error {
	if _, exists := r.layers[l.ID]; exists {
		return errs.Configf(l.Name, "", "layer id %q already registered", l.ID)
	}
	r.layers[l.ID] = l
	r.order = append(r.order, l.ID)
	return nil
}

// Get returns a layer by id.
func (r *Registry) Get(id string) (*Layer, error) {
	l, ok := r.layers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, id)
	}
	return l, nil
}

// List returns all layers in configuration order.
func (r *Registry) List() []*Layer {
	out := make([]*Layer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.layers[id])
	}
	return out
}

// Len returns the number of layers.
func (r *Registry) Len() int { return len(r.order) }
