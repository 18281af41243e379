package legend

import (
	"fmt"
	"html/template"
	"slices"
	"sync"

	"github.com/joeblew999/plat-legend/internal/templates"
)

// Surface displays legends, one block per layer.
type Surface interface {
	// Replace shows d in place of any legend previously shown for its layer.
	Replace(d Description) error
	// Remove drops a layer's legend; unknown layers are ignored.
	Remove(layerID string)
}

// Change is emitted whenever a layer's block on an HTMLSurface changes.
type Change struct {
	LayerID string
	HTML    string
	Removed bool
}

// RedirectURLFunc returns the endpoint a dimension selector posts to.
type RedirectURLFunc func(layerID string) string

// HTMLSurface renders legends to HTML fragments and keeps them in
// first-shown order. Safe for concurrent readers.
type HTMLSurface struct {
	renderer *templates.Renderer
	redirect RedirectURLFunc
	onChange func(Change)

	mu     sync.RWMutex
	order  []string
	blocks map[string]string
}

// NewHTMLSurface creates a surface. onChange may be nil.
func NewHTMLSurface(r *templates.Renderer, redirect RedirectURLFunc, onChange func(Change)) *HTMLSurface {
	if redirect == nil {
		redirect = func(id string) string { return fmt.Sprintf("/api/v1/editor/layers/%s/redirect", id) }
	}
	return &HTMLSurface{
		renderer: r,
		redirect: redirect,
		onChange: onChange,
		blocks:   map[string]string{},
	}
}

type layerView struct {
	Description
	RedirectURL string
}

// Replace renders d and swaps it in. Rendering the same description twice
// leaves a single identical block.
func (s *HTMLSurface) Replace(d Description) error {
	html, err := s.renderer.Render("legend-layer", layerView{Description: d, RedirectURL: s.redirect(d.LayerID)})
	if err != nil {
		return fmt.Errorf("rendering legend for %s: %w", d.LayerID, err)
	}

	s.mu.Lock()
	if _, ok := s.blocks[d.LayerID]; !ok {
		s.order = append(s.order, d.LayerID)
	}
	s.blocks[d.LayerID] = html
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange(Change{LayerID: d.LayerID, HTML: html})
	}
	return nil
}

// Remove drops a layer's block.
func (s *HTMLSurface) Remove(layerID string) {
	s.mu.Lock()
	_, ok := s.blocks[layerID]
	if ok {
		delete(s.blocks, layerID)
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == layerID })
	}
	s.mu.Unlock()

	if ok && s.onChange != nil {
		s.onChange(Change{LayerID: layerID, Removed: true})
	}
}

// Block returns the rendered block of one layer.
func (s *HTMLSurface) Block(layerID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	html, ok := s.blocks[layerID]
	return html, ok
}

// Layers lists the layers with a block, in first-shown order.
func (s *HTMLSurface) Layers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// HTML renders the whole legend container.
func (s *HTMLSurface) HTML() (string, error) {
	s.mu.RLock()
	blocks := make([]template.HTML, 0, len(s.order))
	for _, id := range s.order {
		blocks = append(blocks, template.HTML(s.blocks[id]))
	}
	s.mu.RUnlock()
	return s.renderer.Render("legend-container", blocks)
}
