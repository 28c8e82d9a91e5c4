// Package platform defines the three-trait seam of spec.md §4.7: Display,
// Input, and Tick. The hosted adapter (internal/platform/hosted) queues
// events for deterministic injection in tests and simulation; the
// terminal adapter (internal/platform/terminal) binds to a real TTY via
// readline and ANSI cell writes. A bare-metal implementation would bind
// the same interfaces to the PS/2 parser and a framebuffer backbuffer, but
// that driver layer is out of scope (spec.md §1).
package platform

import "github.com/capsule-systems/capsule/internal/inputfocus"

// Display renders the renderer's line deltas to whatever surface the
// platform owns: a real terminal's cell grid, a pixel framebuffer, or a
// hosted backbuffer used for test assertions (spec.md §4.7, §6 "Platform
// display surface").
type Display interface {
	// RenderMainLine writes line's text at main-view row `row`. An empty
	// text with zero width signals the row should be cleared (spec.md
	// §4.6 renderer: "Lines beyond the frame's current length ... are
	// cleared").
	RenderMainLine(row int, text string, width int) error
	// RenderStatus writes the focused component's single-line status
	// frame.
	RenderStatus(text string) error
	// RenderStatusStrip writes the workspace-level strip (component
	// counts, boot profile, etc.) below the status line.
	RenderStatusStrip(text string) error
	// RenderBreadcrumbs writes the short-path breadcrumb line.
	RenderBreadcrumbs(text string) error
	// SetCursor positions the cursor at (row, col) within the main view.
	// A cursor-only move is a two-cell write in spec.md §4.6's sense: the
	// adapter repaints the old and new cursor cells, nothing else.
	SetCursor(row, col int) error
	// Clear erases the whole display surface.
	Clear() error
	// Present flushes any buffered writes to the physical surface.
	Present() error
}

// Input is the platform's source of keyboard events (spec.md §4.7,
// §6 "Platform keyboard").
type Input interface {
	// PollEvent returns the next queued event, or ok=false if none is
	// pending. Non-blocking: the runtime's handle_input step drains
	// everything currently available and returns.
	PollEvent() (inputfocus.KeyEvent, bool)
	// HasPending reports whether at least one event is queued.
	HasPending() bool
}

// Tick is the platform's clock source (spec.md §4.7, §5 "all time is
// tick-based and embedder-driven"). There is no wall-clock timeout
// anywhere in capsule; every caller advances and reads through this seam.
type Tick interface {
	// Advance moves the platform's tick counter forward by delta and
	// returns the new count.
	Advance(delta uint64) uint64
	// Current returns the tick count without advancing it.
	Current() uint64
}
