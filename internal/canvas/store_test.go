package canvas

import (
	"errors"
	"strings"
	"testing"

	"resume-canvas/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAddDefaults(t *testing.T) {
	s := NewStore()

	text, err := s.Add(domain.ItemText, NewNotePlaceholder, "", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text.ID, "item-"))
	assert.Equal(t, DefaultPosition, text.Position)
	assert.Equal(t, DefaultTextSize, text.Size)

	at := domain.Point{X: 400, Y: 120}
	img, err := s.Add(domain.ItemImage, "aGVsbG8=", "image/png", &at)
	require.NoError(t, err)
	assert.Equal(t, at, img.Position)
	assert.Equal(t, DefaultImageSize, img.Size)
	assert.Equal(t, "image/png", img.MimeType)

	assert.NotEqual(t, text.ID, img.ID)
	assert.Equal(t, 2, s.Len())
}

func TestStoreRejectsUnknownKind(t *testing.T) {
	s := NewStore()
	_, err := s.Add("video", "x", "", nil)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, 0, s.Len())
}

func TestStoreUpdatesInPlace(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(domain.ItemText, "a", "", nil)
	b, _ := s.Add(domain.ItemText, "b", "", nil)

	_, err := s.UpdateContent(a.ID, "5 years at Acme Corp")
	require.NoError(t, err)
	_, err = s.UpdatePosition(b.ID, domain.Point{X: 10, Y: 20})
	require.NoError(t, err)
	_, err = s.Resize(b.ID, domain.Size{Width: 500, Height: 300})
	require.NoError(t, err)

	items := s.Snapshot()
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID, "order is insertion order")
	assert.Equal(t, "5 years at Acme Corp", items[0].Content)
	assert.Equal(t, domain.Point{X: 10, Y: 20}, items[1].Position)
	assert.Equal(t, domain.Size{Width: 500, Height: 300}, items[1].Size)
}

func TestStoreUnknownID(t *testing.T) {
	s := NewStore()
	_, err := s.UpdatePosition("missing", domain.Point{})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = s.Get("missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStoreResizeRejectsNegative(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(domain.ItemText, "a", "", nil)
	_, err := s.Resize(a.ID, domain.Size{Width: -1, Height: 10})
	assert.True(t, domain.IsValidation(err))
	got, _ := s.Get(a.ID)
	assert.Equal(t, DefaultTextSize, got.Size)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	a, _ := s.Add(domain.ItemText, "original", "", nil)

	snap := s.Snapshot()
	snap[0].Content = "changed"

	got, _ := s.Get(a.ID)
	assert.Equal(t, "original", got.Content)
}

func TestLastPositionWins(t *testing.T) {
	s := NewStore()
	x, _ := s.Add(domain.ItemText, "x", "", nil)
	y, _ := s.Add(domain.ItemText, "y", "", nil)

	for i := 0; i < 50; i++ {
		_, _ = s.UpdatePosition(x.ID, domain.Point{X: float64(i), Y: float64(2 * i)})
		_, _ = s.UpdatePosition(y.ID, domain.Point{X: float64(-i), Y: 7})
	}

	got, _ := s.Get(x.ID)
	assert.Equal(t, domain.Point{X: 49, Y: 98}, got.Position)
}
