package canvas

import "resume-canvas/internal/domain"

// Minimum item size enforced while resizing interactively.
const (
	MinWidth  = 150
	MinHeight = 100
)

// Target is the region of an item that received the pointer-down.
type Target string

const (
	TargetBody         Target = "body"
	TargetResizeHandle Target = "resize-handle"
	TargetContent      Target = "content"
)

// Mode is the active gesture.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeDrag   Mode = "drag"
	ModeResize Mode = "resize"
)

// Update is the change a pointer move produces for the gesture's item.
// Exactly one of Position and Size is set.
type Update struct {
	ItemID   string
	Position *domain.Point
	Size     *domain.Size
}

// Engine turns a pointer-down/move/up stream into position or size updates.
// It tracks a single pointer. The gesture is not tied to the item's bounds:
// moves and the final pointer-up are accepted wherever the pointer is.
type Engine struct {
	mode   Mode
	itemID string
	offset domain.Point // drag: pointer - item top-left at pointer-down
	anchor domain.Point // resize: item top-left, fixed for the gesture
}

func NewEngine() *Engine {
	return &Engine{mode: ModeNone}
}

// PointerDown starts a gesture on item. Pointer-down on the editable content
// region starts nothing so text selection keeps working. Any gesture already
// in progress is replaced.
func (e *Engine) PointerDown(item domain.CanvasItem, target Target, pointer domain.Point) Mode {
	e.reset()
	switch target {
	case TargetResizeHandle:
		e.mode = ModeResize
		e.itemID = item.ID
		e.anchor = item.Position
	case TargetBody:
		e.mode = ModeDrag
		e.itemID = item.ID
		e.offset = pointer.Sub(item.Position)
	}
	return e.mode
}

// PointerMove computes the update for the current gesture. It returns false
// when no gesture is active.
func (e *Engine) PointerMove(pointer domain.Point) (Update, bool) {
	switch e.mode {
	case ModeDrag:
		p := pointer.Sub(e.offset)
		return Update{ItemID: e.itemID, Position: &p}, true
	case ModeResize:
		d := pointer.Sub(e.anchor)
		s := domain.Size{Width: max(MinWidth, d.X), Height: max(MinHeight, d.Y)}
		return Update{ItemID: e.itemID, Size: &s}, true
	}
	return Update{}, false
}

// PointerUp ends the gesture, whichever mode it was in.
func (e *Engine) PointerUp() { e.reset() }

func (e *Engine) Mode() Mode { return e.mode }

// ItemID returns the item under the active gesture, or "".
func (e *Engine) ItemID() string { return e.itemID }

func (e *Engine) reset() {
	*e = Engine{mode: ModeNone}
}
