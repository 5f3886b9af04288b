package usecase

import (
	"encoding/base64"
	"fmt"
	"strings"

	"resume-canvas/internal/canvas"
	"resume-canvas/internal/domain"
	"resume-canvas/internal/sse"
)

// ItemEvent is the payload of items.changed events.
type ItemEvent struct {
	Item  domain.CanvasItem `json:"item"`
	Count int               `json:"count"`
}

// ActivationEvent is the payload of activation.changed events.
type ActivationEvent struct {
	ActiveItemID string         `json:"activeItemId,omitempty"`
	Anchor       *domain.Anchor `json:"anchor,omitempty"`
}

// AddText adds a text note. Empty content yields the placeholder note.
func (w *Workspace) AddText(content string, position *domain.Point) (domain.CanvasItem, error) {
	if strings.TrimSpace(content) == "" {
		content = canvas.NewNotePlaceholder
	}
	return w.add(domain.ItemText, content, "", position)
}

// AddImage adds an image from base64 data.
func (w *Workspace) AddImage(data, mimeType string, position *domain.Point) (domain.CanvasItem, error) {
	if err := validateImage(data, mimeType); err != nil {
		return domain.CanvasItem{}, err
	}
	return w.add(domain.ItemImage, data, mimeType, position)
}

// Drop handles a file dropped on the canvas at position. Only images are
// accepted.
func (w *Workspace) Drop(data, mimeType string, position domain.Point) (domain.CanvasItem, error) {
	return w.AddImage(data, mimeType, &position)
}

func validateImage(data, mimeType string) error {
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.Invalid(fmt.Errorf("%w: got %q", domain.ErrUnsupportedMedia, mimeType))
	}
	if data == "" {
		return domain.Invalid(fmt.Errorf("image data is empty"))
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return domain.Invalid(fmt.Errorf("image data is not valid base64: %w", err))
	}
	return nil
}

func (w *Workspace) add(kind domain.ItemKind, content, mimeType string, position *domain.Point) (domain.CanvasItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, err := w.store.Add(kind, content, mimeType, position)
	if err != nil {
		return domain.CanvasItem{}, err
	}
	w.logger.Debug("item added", "item", item.ID, "type", item.Kind)
	w.itemsChangedLocked(item)
	return item, nil
}

func (w *Workspace) UpdatePosition(id string, p domain.Point) (domain.CanvasItem, error) {
	return w.mutate(func() (domain.CanvasItem, error) { return w.store.UpdatePosition(id, p) })
}

func (w *Workspace) UpdateContent(id, content string) (domain.CanvasItem, error) {
	return w.mutate(func() (domain.CanvasItem, error) { return w.store.UpdateContent(id, content) })
}

func (w *Workspace) Resize(id string, size domain.Size) (domain.CanvasItem, error) {
	return w.mutate(func() (domain.CanvasItem, error) { return w.store.Resize(id, size) })
}

func (w *Workspace) mutate(f func() (domain.CanvasItem, error)) (domain.CanvasItem, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, err := f()
	if err != nil {
		return domain.CanvasItem{}, err
	}
	w.itemsChangedLocked(item)
	return item, nil
}

func (w *Workspace) itemsChangedLocked(item domain.CanvasItem) {
	w.publishLocked(sse.EventItemsChanged, ItemEvent{Item: item, Count: w.store.Len()})
	w.coach.ItemsChanged(w.store.Snapshot())
}

// PointerDown starts a drag or resize gesture on item id.
func (w *Workspace) PointerDown(id string, target canvas.Target, pointer domain.Point) (canvas.Mode, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	item, err := w.store.Get(id)
	if err != nil {
		return canvas.ModeNone, err
	}
	return w.engine.PointerDown(item, target, pointer), nil
}

// PointerMove applies the active gesture. It returns false when no gesture
// is in progress.
func (w *Workspace) PointerMove(pointer domain.Point) (domain.CanvasItem, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	upd, ok := w.engine.PointerMove(pointer)
	if !ok {
		return domain.CanvasItem{}, false, nil
	}
	var (
		item domain.CanvasItem
		err  error
	)
	if upd.Position != nil {
		item, err = w.store.UpdatePosition(upd.ItemID, *upd.Position)
	} else {
		item, err = w.store.Resize(upd.ItemID, *upd.Size)
	}
	if err != nil {
		return domain.CanvasItem{}, false, err
	}
	w.itemsChangedLocked(item)
	return item, true, nil
}

func (w *Workspace) PointerUp() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.engine.PointerUp()
}

// Focus records item id as active with its on-screen bounds.
func (w *Workspace) Focus(id string, rect domain.Rect) (domain.Anchor, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.store.Get(id); err != nil {
		return domain.Anchor{}, err
	}
	a := w.tracker.Activate(id, rect)
	w.publishLocked(sse.EventActivationChanged, ActivationEvent{ActiveItemID: id, Anchor: &a})
	return a, nil
}

// Blur deactivates id if it is still the active item. It reports whether
// the activation was cleared.
func (w *Workspace) Blur(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tracker.Deactivate(id) {
		return false
	}
	w.publishLocked(sse.EventActivationChanged, ActivationEvent{})
	return true
}
