// Package zoom reveals and hides zoom-tiered label annotations as the map
// zoom changes.
package zoom

import "fmt"

// TierClass is the CSS class shared by every label of a tier.
func TierClass(tier int) string {
	return fmt.Sprintf("label_zoom_%d", tier)
}

// Toggle is one visibility change of a label tier.
type Toggle struct {
	Tier    int  `json:"tier" doc:"Label tier (minimum zoom)"`
	Visible bool `json:"visible" doc:"Whether the tier is now shown"`
}

// Surface applies tier visibility, e.g. to every label marker of that tier.
type Surface interface {
	SetTierVisible(tier int, visible bool)
}

// Controller tracks the zoom level seen at the start of a zoom gesture.
type Controller struct {
	prior   int
	surface Surface
}

// NewController creates a controller with a prior zoom of 0.
func NewController(surface Surface) *Controller {
	return &Controller{surface: surface}
}

// Prior returns the zoom recorded at the last Start or End.
func (c *Controller) Prior() int {
	return c.prior
}

// Start records the zoom level at the start of a gesture.
func (c *Controller) Start(current int) {
	c.prior = current
}

// End applies the tiers crossed since Start. Zooming in reveals tiers
// prior+1..current in ascending order; zooming out hides prior..current+1 in
// descending order. Each crossed tier toggles exactly once.
func (c *Controller) End(current int) []Toggle {
	var toggles []Toggle
	if c.prior < current {
		for tier := c.prior + 1; tier <= current; tier++ {
			toggles = append(toggles, Toggle{Tier: tier, Visible: true})
		}
	} else {
		for tier := c.prior; tier > current; tier-- {
			toggles = append(toggles, Toggle{Tier: tier, Visible: false})
		}
	}
	c.prior = current
	if c.surface != nil {
		for _, t := range toggles {
			c.surface.SetTierVisible(t.Tier, t.Visible)
		}
	}
	return toggles
}
