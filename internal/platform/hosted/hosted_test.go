package hosted

import (
	"testing"

	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time assertions that the hosted types satisfy the platform seam.
var (
	_ platform.Display = (*Display)(nil)
	_ platform.Input   = (*Input)(nil)
	_ platform.Tick    = (*Tick)(nil)
)

func TestInput_PollEventFIFOOrder(t *testing.T) {
	in := NewInput()
	assert.False(t, in.HasPending())

	in.Push(inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "a"})
	in.Push(inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "b"})
	require.True(t, in.HasPending())

	e, ok := in.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "a", e.KeyCode)

	e, ok = in.PollEvent()
	require.True(t, ok)
	assert.Equal(t, "b", e.KeyCode)

	_, ok = in.PollEvent()
	assert.False(t, ok)
	assert.False(t, in.HasPending())
}

func TestTick_AdvanceIsMonotonicAndExplicit(t *testing.T) {
	tk := NewTick()
	assert.Equal(t, uint64(0), tk.Current())
	assert.Equal(t, uint64(5), tk.Advance(5))
	assert.Equal(t, uint64(5), tk.Current())
	assert.Equal(t, uint64(8), tk.Advance(3))
}

func TestDisplay_RenderMainLineClearsOnEmpty(t *testing.T) {
	d := NewDisplay()
	require.NoError(t, d.RenderMainLine(0, "hello", 5))
	line, ok := d.Line(0)
	require.True(t, ok)
	assert.Equal(t, "hello", line)

	require.NoError(t, d.RenderMainLine(0, "", 0))
	_, ok = d.Line(0)
	assert.False(t, ok)

	assert.Len(t, d.WriteLog, 2)
}

func TestDisplay_ClearResetsAllSurfaces(t *testing.T) {
	d := NewDisplay()
	require.NoError(t, d.RenderMainLine(0, "x", 1))
	require.NoError(t, d.RenderStatus("status"))
	require.NoError(t, d.RenderStatusStrip("strip"))
	require.NoError(t, d.RenderBreadcrumbs("crumbs"))

	require.NoError(t, d.Clear())
	assert.Equal(t, 1, d.ClearCount)
	_, ok := d.Line(0)
	assert.False(t, ok)
	assert.Empty(t, d.Status)
	assert.Empty(t, d.StatusStrip)
	assert.Empty(t, d.Breadcrumbs)
}

func TestDisplay_PresentCountsFlushes(t *testing.T) {
	d := NewDisplay()
	require.NoError(t, d.Present())
	require.NoError(t, d.Present())
	assert.Equal(t, 2, d.PresentCount)
}
