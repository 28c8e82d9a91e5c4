// Package terminal implements the interactive platform.Display/Input/Tick
// trio for cmd/capsule: a real TTY driven through ANSI cell writes and
// readline's raw-mode terminal state. It is grounded on two teacher files:
// the cursor-control conventions of internal/ui/display.go ("\r\033[K"
// line-clear-and-rewrite, bold/dim/color escapes) and the readline wiring
// of cmd/agsh/main.go (readline.NewEx for raw-mode entry and history).
// capsule's input model is the closed KeyEvent enumeration of spec.md §6,
// never raw escape sequences (spec.md Non-goals: "terminal escape-code
// interpretation as a programming model") — readline's raw mode is used
// only to read one rune at a time off the TTY, not to parse line syntax.
package terminal

import (
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"
	"github.com/mattn/go-runewidth"

	"github.com/capsule-systems/capsule/internal/inputfocus"
)

const (
	ansiReset = "\033[0m"
	ansiBold  = "\033[1m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
)

// Display writes the renderer's line deltas to stdout using the same
// "\r\033[K" clear-and-rewrite convention as internal/ui/display.go,
// addressing rows with cursor-position escapes since capsule's main view
// is multi-line rather than the teacher's single status line.
type Display struct {
	out       io.Writer
	mainRows  int
	statusRow int
}

// New creates a terminal Display writing to out, reserving mainRows lines
// for the main view above the status/strip/breadcrumb lines.
func New(out io.Writer, mainRows int) *Display {
	return &Display{out: out, mainRows: mainRows, statusRow: mainRows}
}

// moveTo positions the cursor at the given 1-indexed terminal row, column 1.
func (d *Display) moveTo(row int) {
	fmt.Fprintf(d.out, "\033[%d;1H", row+1)
}

func (d *Display) RenderMainLine(row int, text string, width int) error {
	d.moveTo(row)
	if text == "" && width == 0 {
		fmt.Fprint(d.out, "\033[K")
		return nil
	}
	fmt.Fprintf(d.out, "\033[K%s", text)
	return nil
}

func (d *Display) RenderStatus(text string) error {
	d.moveTo(d.statusRow)
	fmt.Fprintf(d.out, "\033[K%s%s%s", ansiBold, text, ansiReset)
	return nil
}

func (d *Display) RenderStatusStrip(text string) error {
	d.moveTo(d.statusRow + 1)
	fmt.Fprintf(d.out, "\033[K%s%s%s", ansiDim, text, ansiReset)
	return nil
}

func (d *Display) RenderBreadcrumbs(text string) error {
	d.moveTo(d.statusRow + 2)
	fmt.Fprintf(d.out, "\033[K%s%s%s", ansiCyan, text, ansiReset)
	return nil
}

func (d *Display) SetCursor(row, col int) error {
	fmt.Fprintf(d.out, "\033[%d;%dH", row+1, col+1)
	return nil
}

func (d *Display) Clear() error {
	fmt.Fprint(d.out, "\033[2J\033[H")
	return nil
}

func (d *Display) Present() error {
	if f, ok := d.out.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// CellWidth reports the terminal column width of s, accounting for
// double-width CJK runes the same way internal/viewhost's renderer does.
func CellWidth(s string) int {
	return runewidth.StringWidth(s)
}

// keyListener adapts readline's per-keystroke Listener hook (Config.Listener,
// invoked on every rune typed during a Readline() call) into a queue
// PollEvent can drain without blocking on the line-oriented read itself.
type keyListener struct {
	queue chan rune
}

// OnChange implements readline.Listener. It forwards the newly typed key
// and declines to touch the line buffer, leaving readline's own editing
// (history, arrow keys, backspace) untouched.
func (l *keyListener) OnChange(line []rune, pos int, key rune) ([]rune, int, bool) {
	select {
	case l.queue <- key:
	default:
	}
	return line, pos, false
}

// Input drives a readline.Instance in a background goroutine purely to get
// raw-mode TTY access and per-keystroke notification; it never surfaces
// readline's assembled lines as input — every key reaches capsule through
// the closed KeyEvent enumeration instead.
type Input struct {
	rl     *readline.Instance
	events *keyListener
	done   chan struct{}
}

// NewInput opens a readline instance against the current TTY in raw mode
// and returns an Input that polls it for individual key events.
func NewInput() (*Input, error) {
	events := &keyListener{queue: make(chan rune, 256)}
	rl, err := readline.NewEx(&readline.Config{
		Listener: events,
	})
	if err != nil {
		return nil, fmt.Errorf("platform/terminal: open input: %w", err)
	}
	in := &Input{rl: rl, events: events, done: make(chan struct{})}
	go in.pump()
	return in, nil
}

// pump keeps readline's Readline() loop alive so its Listener keeps firing;
// the line it ultimately returns is discarded, since capsule's authority
// over input is the per-key stream, not assembled lines (spec.md Non-goals).
func (in *Input) pump() {
	for {
		select {
		case <-in.done:
			return
		default:
		}
		if _, err := in.rl.Readline(); err != nil {
			return
		}
	}
}

// Close releases the underlying TTY raw-mode state.
func (in *Input) Close() error {
	close(in.done)
	return in.rl.Close()
}

// PollEvent returns the next queued key, or ok=false if none is pending.
func (in *Input) PollEvent() (inputfocus.KeyEvent, bool) {
	select {
	case r := <-in.events.queue:
		return runeToKeyEvent(r), true
	default:
		return inputfocus.KeyEvent{}, false
	}
}

// HasPending reports whether at least one key is queued.
func (in *Input) HasPending() bool {
	return len(in.events.queue) > 0
}

func runeToKeyEvent(r rune) inputfocus.KeyEvent {
	switch r {
	case '\r', '\n':
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "Enter"}
	case 127, '\b':
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "Backspace"}
	case 9:
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "Tab"}
	case 27:
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "Escape"}
	case 3:
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: "c", Ctrl: true}
	default:
		return inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, KeyCode: string(r), Text: string(r)}
	}
}

// Tick wraps the monotonic wall clock for the interactive front-end: the
// platform layer is the only place a real clock appears (spec.md §5 —
// every other component is tick-driven and embedder-controlled). Advance
// is still the only way the tick counter moves; Elapsed lets cmd/capsule
// decide how many ticks to credit for a given wall-clock interval.
type Tick struct {
	current uint64
	started time.Time
}

// NewTick starts a wall-clock-backed tick source at zero.
func NewTick() *Tick {
	return &Tick{started: time.Now()}
}

func (t *Tick) Advance(delta uint64) uint64 {
	t.current += delta
	return t.current
}

func (t *Tick) Current() uint64 { return t.current }

// Elapsed returns wall-clock time since the tick source was created, for
// cmd/capsule's main loop to decide how many ticks to advance per pass.
func (t *Tick) Elapsed() time.Duration {
	return time.Since(t.started)
}
