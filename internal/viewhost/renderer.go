package viewhost

import (
	"github.com/mattn/go-runewidth"

	"github.com/capsule-systems/capsule/internal/ids"
)

// TextFrame is the Content shape for KindMain frames: a structured text
// buffer, one string per line (spec.md §3: "structured text buffer (lines
// of text)").
type TextFrame struct {
	Lines []string
}

// StatusFrame is the Content shape for KindStatus frames.
type StatusFrame struct {
	Line string
}

// lineKey identifies one cached line slot: a specific ViewId's specific
// row (spec.md §4.6: "a per-line view cache keyed by ViewId × line").
type lineKey struct {
	view ids.ViewId
	line int
}

// Delta is one changed-line instruction the renderer hands to a platform
// Display adapter.
type Delta struct {
	ViewID ids.ViewId
	Line   int
	Text   string
	Width  int // rune-width of Text, accounting for wide (CJK) runes
}

// Renderer diffs freshly-pulled frames against a per-line cache and emits
// only the lines that changed, plus instrumentation counters (spec.md
// §4.6: "tracking chars_written_per_frame and lines_redrawn_per_frame").
// It holds no capability of its own; the workspace runtime pulls frames via
// Host.LatestFrame and feeds them in.
type Renderer struct {
	cache map[lineKey]string

	CharsWrittenLastFrame int
	LinesRedrawnLastFrame int
}

// NewRenderer creates an empty renderer cache.
func NewRenderer() *Renderer {
	return &Renderer{cache: make(map[lineKey]string)}
}

// DiffMain computes the line deltas for a newly-pulled main TextFrame,
// updating the cache and the per-frame counters as it goes. Lines beyond
// the frame's current length that were previously cached are cleared.
func (r *Renderer) DiffMain(viewID ids.ViewId, frame TextFrame) []Delta {
	r.CharsWrittenLastFrame = 0
	r.LinesRedrawnLastFrame = 0
	var deltas []Delta

	for i, text := range frame.Lines {
		key := lineKey{viewID, i}
		if prev, ok := r.cache[key]; ok && prev == text {
			continue
		}
		r.cache[key] = text
		w := runewidth.StringWidth(text)
		deltas = append(deltas, Delta{ViewID: viewID, Line: i, Text: text, Width: w})
		r.CharsWrittenLastFrame += w
		r.LinesRedrawnLastFrame++
	}

	// Clear any previously cached lines past the new frame's length.
	for key := range r.cache {
		if key.view != viewID || key.line < len(frame.Lines) {
			continue
		}
		delete(r.cache, key)
		deltas = append(deltas, Delta{ViewID: viewID, Line: key.line, Text: "", Width: 0})
		r.LinesRedrawnLastFrame++
	}
	return deltas
}

// InvalidateView drops every cached line belonging to viewID, forcing a
// full redraw of that view on its next DiffMain (used when a view is
// re-created with a new ViewId on restore, spec.md §4.5).
func (r *Renderer) InvalidateView(viewID ids.ViewId) {
	for key := range r.cache {
		if key.view == viewID {
			delete(r.cache, key)
		}
	}
}
