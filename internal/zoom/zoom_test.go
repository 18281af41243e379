package zoom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSurface struct {
	toggles []Toggle
}

func (r *recordingSurface) SetTierVisible(tier int, visible bool) {
	r.toggles = append(r.toggles, Toggle{Tier: tier, Visible: visible})
}

func TestController_ZoomInThenOut(t *testing.T) {
	s := &recordingSurface{}
	c := NewController(s)

	c.Start(9)
	got := c.End(12)
	want := []Toggle{{10, true}, {11, true}, {12, true}}
	assert.Equal(t, want, got)
	assert.Equal(t, want, s.toggles)

	s.toggles = nil
	c.Start(12)
	got = c.End(9)
	want = []Toggle{{12, false}, {11, false}, {10, false}}
	assert.Equal(t, want, got)
	assert.Equal(t, want, s.toggles)
}

func TestController_NoChange(t *testing.T) {
	s := &recordingSurface{}
	c := NewController(s)
	c.Start(5)
	assert.Empty(t, c.End(5))
	assert.Empty(t, s.toggles)
	assert.Equal(t, 5, c.Prior())
}

func TestController_SingleStep(t *testing.T) {
	c := NewController(nil)
	c.Start(3)
	assert.Equal(t, []Toggle{{4, true}}, c.End(4))
	c.Start(4)
	assert.Equal(t, []Toggle{{4, false}}, c.End(3))
}

func TestTierClass(t *testing.T) {
	assert.Equal(t, "label_zoom_12", TierClass(12))
}
