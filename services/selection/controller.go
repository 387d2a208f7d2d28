// Package selection tracks the currently selected channel and implements
// keyboard-driven prev/next navigation over the catalog's ordered view.
package selection

import (
	"sync"

	"telecast/internal/events"
	"telecast/models"
	"telecast/services/catalog"
)

// Catalog is the ordered channel surface navigation operates over.
type Catalog interface {
	OrderedView(opts catalog.ViewOptions) []models.Channel
	FindChannel(identity models.ChannelIdentity) (models.Channel, bool)
}

// Controller is an owned selection state object: construct one per
// catalog, never share a global. The selection is either unselected or a
// channel identity that resolved against the catalog at selection time;
// a catalog reload revalidates it and clears a dangling identity.
type Controller struct {
	catalog    Catalog
	bus        *events.Bus
	wraparound bool

	mu      sync.RWMutex
	current *models.ChannelIdentity
}

// NewController creates a selection controller bound to a catalog. It
// subscribes to catalog reload notifications to revalidate the selection.
func NewController(cat Catalog, bus *events.Bus, wraparound bool) *Controller {
	c := &Controller{catalog: cat, bus: bus, wraparound: wraparound}
	if bus != nil {
		bus.Subscribe(events.CatalogReloaded, func(any) {
			c.revalidate()
		})
	}
	return c
}

// Current returns the currently selected channel, resolved against the
// live catalog.
func (c *Controller) Current() (models.Channel, bool) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	if current == nil {
		return models.Channel{}, false
	}
	return c.catalog.FindChannel(*current)
}

// Select sets the current selection to the channel the identity resolves
// to. When the identity does not resolve the selection is left unchanged,
// but listeners are still notified with a nil channel so the UI can react.
func (c *Controller) Select(identity models.ChannelIdentity) (models.Channel, bool) {
	ch, ok := c.catalog.FindChannel(identity)
	if !ok {
		c.notify(nil)
		return models.Channel{}, false
	}

	c.mu.Lock()
	resolved := ch.Identity()
	c.current = &resolved
	c.mu.Unlock()

	c.notify(&ch)
	return ch, true
}

// SelectNext advances the selection within the ordered view. With no
// current selection the first channel is selected; past the end the
// selection wraps to the first. An empty view is a no-op.
func (c *Controller) SelectNext() (models.Channel, bool) {
	return c.step(1)
}

// SelectPrev retreats the selection within the ordered view. With no
// current selection the last channel is selected; before the start the
// selection wraps to the last. An empty view is a no-op.
func (c *Controller) SelectPrev() (models.Channel, bool) {
	return c.step(-1)
}

func (c *Controller) step(delta int) (models.Channel, bool) {
	view := c.catalog.OrderedView(catalog.ViewOptions{})
	if len(view) == 0 {
		return models.Channel{}, false
	}

	c.mu.Lock()
	index := c.indexOfCurrentLocked(view)

	var next int
	switch {
	case index < 0 && delta > 0:
		next = 0
	case index < 0 && delta < 0:
		next = len(view) - 1
	default:
		next = index + delta
		if next >= len(view) {
			if !c.wraparound {
				next = len(view) - 1
			} else {
				next = 0
			}
		}
		if next < 0 {
			if !c.wraparound {
				next = 0
			} else {
				next = len(view) - 1
			}
		}
	}

	ch := view[next]
	resolved := ch.Identity()
	c.current = &resolved
	c.mu.Unlock()

	c.notify(&ch)
	return ch, true
}

// indexOfCurrentLocked locates the current selection in the view, or -1
// when unselected or when the selected channel is filtered out of it.
func (c *Controller) indexOfCurrentLocked(view []models.Channel) int {
	if c.current == nil {
		return -1
	}
	for i, ch := range view {
		if ch.SourceID == c.current.SourceID && ch.ID == c.current.ItemID {
			return i
		}
	}
	return -1
}

// revalidate re-checks the selection after a catalog reload. A selection
// that no longer resolves transitions to unselected rather than keeping a
// dangling identity.
func (c *Controller) revalidate() {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if current == nil {
		return
	}
	if _, ok := c.catalog.FindChannel(*current); ok {
		return
	}

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
	c.notify(nil)
}

func (c *Controller) notify(ch *models.Channel) {
	if c.bus != nil {
		c.bus.Publish(events.SelectionChanged, ch)
	}
}
