package canvas

import (
	"testing"

	"resume-canvas/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateAnchorsBesideItem(t *testing.T) {
	tr := NewTracker()
	a := tr.Activate("item-1", domain.Rect{Top: 40, Left: 100, Right: 350, Bottom: 190})

	assert.Equal(t, domain.Anchor{Top: 40, Left: 365}, a)
	assert.Equal(t, "item-1", tr.ActiveID())
	require.NotNil(t, tr.Anchor())
	assert.Equal(t, a, *tr.Anchor())
}

func TestStaleBlurIsIgnored(t *testing.T) {
	tr := NewTracker()
	tr.Activate("item-1", domain.Rect{})
	tr.Activate("item-2", domain.Rect{Top: 1, Right: 2})

	// item-1's blur arrives after item-2 took focus.
	assert.False(t, tr.Deactivate("item-1"))
	assert.Equal(t, "item-2", tr.ActiveID())
	assert.NotNil(t, tr.Anchor())

	assert.True(t, tr.Deactivate("item-2"))
	assert.Empty(t, tr.ActiveID())
	assert.Nil(t, tr.Anchor())
}

func TestDeactivateWhenNothingActive(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.Deactivate(""))
	assert.False(t, tr.Deactivate("item-1"))
}
