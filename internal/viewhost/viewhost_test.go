package viewhost

import (
	"testing"

	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_MonotonicRevisionRequired(t *testing.T) {
	h := New(nil, nil)
	owner := ids.NewExecutionId()
	handle := h.AllocateView(owner, KindMain)

	require.NoError(t, h.Publish(handle, 1, TextFrame{Lines: []string{"a"}}, nil))
	require.NoError(t, h.Publish(handle, 2, TextFrame{Lines: []string{"b"}}, nil))

	err := h.Publish(handle, 2, TextFrame{Lines: []string{"c"}}, nil)
	assert.ErrorIs(t, err, errs.ErrStaleRevision)

	viewID, _ := h.ViewIDOf(handle)
	frame, ok := h.LatestFrame(viewID)
	require.True(t, ok)
	assert.Equal(t, uint64(2), frame.Revision, "stale publish never lands")
}

func TestLatestFrame_EmptyBeforeFirstPublish(t *testing.T) {
	h := New(nil, nil)
	handle := h.AllocateView(ids.NewExecutionId(), KindStatus)
	viewID, _ := h.ViewIDOf(handle)
	_, ok := h.LatestFrame(viewID)
	assert.False(t, ok)
}

func TestDestroyView_InvalidatesHandle(t *testing.T) {
	h := New(nil, nil)
	handle := h.AllocateView(ids.NewExecutionId(), KindMain)
	viewID, _ := h.ViewIDOf(handle)
	require.NoError(t, h.Publish(handle, 1, TextFrame{Lines: []string{"x"}}, nil))

	h.DestroyView(viewID)

	err := h.Publish(handle, 2, TextFrame{Lines: []string{"y"}}, nil)
	assert.ErrorIs(t, err, errs.ErrInsufficientAuthority)

	_, ok := h.LatestFrame(viewID)
	assert.False(t, ok)
}

func TestRenderer_DiffMain_RedrawsOnlyChangedLine(t *testing.T) {
	r := NewRenderer()
	view := ids.NewViewId()

	initial := make([]string, 24)
	for i := range initial {
		initial[i] = ""
	}
	r.DiffMain(view, TextFrame{Lines: initial})

	changed := append([]string(nil), initial...)
	changed[5] = "hello"
	deltas := r.DiffMain(view, TextFrame{Lines: changed})

	require.Len(t, deltas, 1, "scenario 6: one changed line produces exactly one delta")
	assert.Equal(t, 5, deltas[0].Line)
	assert.Equal(t, "hello", deltas[0].Text)
	assert.LessOrEqual(t, r.CharsWrittenLastFrame, len("hello")+2, "chars written bounded by line width plus cursor overhead")
}

func TestRenderer_DiffMain_WideRunesCountedCorrectly(t *testing.T) {
	r := NewRenderer()
	view := ids.NewViewId()
	deltas := r.DiffMain(view, TextFrame{Lines: []string{"日本語"}})
	require.Len(t, deltas, 1)
	assert.Equal(t, 6, deltas[0].Width, "each CJK rune in this frame is double-width")
}

func TestRenderer_InvalidateView_ForcesFullRedraw(t *testing.T) {
	r := NewRenderer()
	view := ids.NewViewId()
	r.DiffMain(view, TextFrame{Lines: []string{"a", "b"}})
	r.InvalidateView(view)
	deltas := r.DiffMain(view, TextFrame{Lines: []string{"a", "b"}})
	assert.Len(t, deltas, 2, "invalidated view redraws every line even if content is identical")
}
