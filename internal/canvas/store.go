// Package canvas holds the positioned items of the canvas together with the
// pointer gesture engine and the focus register that drive them.
//
// None of the types here are safe for concurrent use; the workspace that owns
// them serializes access.
package canvas

import (
	"fmt"

	"resume-canvas/internal/domain"

	"github.com/google/uuid"
)

// Defaults applied to newly created items.
var (
	DefaultPosition  = domain.Point{X: 50, Y: 50}
	DefaultTextSize  = domain.Size{Width: 250, Height: 150}
	DefaultImageSize = domain.Size{Width: 300, Height: 200}
)

// NewNotePlaceholder is the content of a note created from the toolbar.
const NewNotePlaceholder = "New note..."

// Store is the ordered collection of canvas items.
type Store struct {
	items []domain.CanvasItem
	index map[string]int
	newID func() string
}

func NewStore() *Store {
	return &Store{
		index: map[string]int{},
		newID: func() string { return "item-" + uuid.NewString() },
	}
}

// Add appends a new item. A nil position places it at DefaultPosition.
func (s *Store) Add(kind domain.ItemKind, content, mimeType string, position *domain.Point) (domain.CanvasItem, error) {
	if !kind.Valid() {
		return domain.CanvasItem{}, domain.Invalid(fmt.Errorf("unknown item kind %q", kind))
	}
	item := domain.CanvasItem{
		ID:       s.newID(),
		Kind:     kind,
		Content:  content,
		MimeType: mimeType,
		Position: DefaultPosition,
		Size:     DefaultTextSize,
	}
	if kind == domain.ItemImage {
		item.Size = DefaultImageSize
	}
	if position != nil {
		item.Position = *position
	}
	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item)
	return item, nil
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (domain.CanvasItem, error) {
	i, ok := s.index[id]
	if !ok {
		return domain.CanvasItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	return s.items[i], nil
}

func (s *Store) UpdatePosition(id string, p domain.Point) (domain.CanvasItem, error) {
	return s.mutate(id, func(it *domain.CanvasItem) { it.Position = p })
}

func (s *Store) UpdateContent(id, content string) (domain.CanvasItem, error) {
	return s.mutate(id, func(it *domain.CanvasItem) { it.Content = content })
}

// Resize sets the size of an item. Negative dimensions are rejected; the
// interactive minimum is enforced by the gesture engine, not here.
func (s *Store) Resize(id string, size domain.Size) (domain.CanvasItem, error) {
	if size.Width < 0 || size.Height < 0 {
		return domain.CanvasItem{}, domain.Invalid(fmt.Errorf("size must be non-negative, got %vx%v", size.Width, size.Height))
	}
	return s.mutate(id, func(it *domain.CanvasItem) { it.Size = size })
}

func (s *Store) mutate(id string, f func(*domain.CanvasItem)) (domain.CanvasItem, error) {
	i, ok := s.index[id]
	if !ok {
		return domain.CanvasItem{}, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	f(&s.items[i])
	return s.items[i], nil
}

func (s *Store) Len() int { return len(s.items) }

// Snapshot returns a copy of the items in insertion order.
func (s *Store) Snapshot() []domain.CanvasItem {
	out := make([]domain.CanvasItem, len(s.items))
	copy(out, s.items)
	return out
}
