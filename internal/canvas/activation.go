package canvas

import "resume-canvas/internal/domain"

// AnchorGap is the horizontal distance between an item and the coach bubble.
const AnchorGap = 15

// Tracker is the "current active id" register fed by focus and blur events.
type Tracker struct {
	activeID string
	anchor   *domain.Anchor
}

func NewTracker() *Tracker { return &Tracker{} }

// Activate makes id the active item and derives the bubble anchor from the
// item's screen rectangle.
func (t *Tracker) Activate(id string, rect domain.Rect) domain.Anchor {
	a := domain.Anchor{Top: rect.Top, Left: rect.Right + AnchorGap}
	t.activeID = id
	t.anchor = &a
	return a
}

// Deactivate clears the register only if id is the active item, so a late
// blur from an item that already lost focus cannot clear a newer activation.
func (t *Tracker) Deactivate(id string) bool {
	if t.activeID == "" || t.activeID != id {
		return false
	}
	t.activeID = ""
	t.anchor = nil
	return true
}

func (t *Tracker) ActiveID() string { return t.activeID }

// Anchor returns the current bubble anchor, or nil when nothing is active.
func (t *Tracker) Anchor() *domain.Anchor {
	if t.anchor == nil {
		return nil
	}
	a := *t.anchor
	return &a
}
