// Package hosted implements a deterministic platform.Display/Input/Tick
// trio for tests and simulation (spec.md §4.7: "The hosted adapter queues
// events for deterministic injection"). It is grounded on the teacher's
// internal/bus: a plain in-memory FIFO feeding a single consumer, with no
// goroutines or real clock involved, so a test can push an exact event
// sequence and tick schedule and assert on the resulting audit trail
// byte-for-byte (spec.md §8 "Universal invariants").
package hosted

import (
	"github.com/capsule-systems/capsule/internal/inputfocus"
)

// Input is a FIFO queue of key events a test pushes in advance.
type Input struct {
	queue []inputfocus.KeyEvent
}

// NewInput creates an empty hosted input queue.
func NewInput() *Input { return &Input{} }

// Push enqueues event to be returned by a later PollEvent call.
func (in *Input) Push(event inputfocus.KeyEvent) {
	in.queue = append(in.queue, event)
}

// PollEvent implements platform.Input.
func (in *Input) PollEvent() (inputfocus.KeyEvent, bool) {
	if len(in.queue) == 0 {
		return inputfocus.KeyEvent{}, false
	}
	e := in.queue[0]
	in.queue = in.queue[1:]
	return e, true
}

// HasPending implements platform.Input.
func (in *Input) HasPending() bool { return len(in.queue) > 0 }

// Tick is a plain counter advanced only by explicit Advance calls — never
// by wall-clock time (spec.md §5 "no wall-clock timeouts").
type Tick struct {
	current uint64
}

// NewTick creates a hosted tick source starting at zero.
func NewTick() *Tick { return &Tick{} }

// Advance implements platform.Tick.
func (t *Tick) Advance(delta uint64) uint64 {
	t.current += delta
	return t.current
}

// Current implements platform.Tick.
func (t *Tick) Current() uint64 { return t.current }

// cell is one (row, col-range) entry of the hosted backbuffer.
type cell struct {
	text  string
	width int
}

// Display is an in-memory backbuffer recording every write instead of
// touching a real surface, so tests can assert on exactly which lines were
// redrawn (spec.md §8 scenario 6 "render delta minimality").
type Display struct {
	MainLines    map[int]cell
	Status       string
	StatusStrip  string
	Breadcrumbs  string
	CursorRow    int
	CursorCol    int
	ClearCount   int
	PresentCount int

	// WriteLog records every RenderMainLine call in order, including
	// clears, for tests asserting on write counts rather than final state.
	WriteLog []string
}

// NewDisplay creates an empty hosted display.
func NewDisplay() *Display {
	return &Display{MainLines: make(map[int]cell)}
}

func (d *Display) RenderMainLine(row int, text string, width int) error {
	if text == "" && width == 0 {
		delete(d.MainLines, row)
	} else {
		d.MainLines[row] = cell{text: text, width: width}
	}
	d.WriteLog = append(d.WriteLog, text)
	return nil
}

func (d *Display) RenderStatus(text string) error {
	d.Status = text
	return nil
}

func (d *Display) RenderStatusStrip(text string) error {
	d.StatusStrip = text
	return nil
}

func (d *Display) RenderBreadcrumbs(text string) error {
	d.Breadcrumbs = text
	return nil
}

func (d *Display) SetCursor(row, col int) error {
	d.CursorRow, d.CursorCol = row, col
	return nil
}

func (d *Display) Clear() error {
	d.ClearCount++
	d.MainLines = make(map[int]cell)
	d.Status = ""
	d.StatusStrip = ""
	d.Breadcrumbs = ""
	return nil
}

func (d *Display) Present() error {
	d.PresentCount++
	return nil
}

// Line returns the current text at row, for test assertions.
func (d *Display) Line(row int) (string, bool) {
	c, ok := d.MainLines[row]
	return c.text, ok
}
