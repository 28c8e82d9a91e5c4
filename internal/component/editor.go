package component

import (
	"errors"

	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// ErrNotSupported is returned by a component body's OnSave when that
// variant has no save behavior of its own (spec.md §4.5 "Save action":
// "requires the focused component be an Editor instance; otherwise it
// reports a typed failure").
var ErrNotSupported = errors.New("operation not supported by this component type")

// SaveFunc persists an editor's current lines through whatever storage
// context the workspace bound at launch. A nil SaveFunc means no storage
// context was attached.
type SaveFunc func(lines []string) error

// Editor is the Body for TypeEditor: a line-oriented text buffer with a
// single insertion cursor (spec.md §8 scenario 1: typed keys append to the
// buffer; status frame reports mode).
type Editor struct {
	host       *viewhost.Host
	mainCap    viewhost.ViewHandleCap
	statusCap  viewhost.ViewHandleCap
	lines      []string
	cursorLine int
	cursorCol  int
	revision   uint64
	dirty      bool
	saveFn     SaveFunc
}

// NewEditor creates an editor body publishing through mainCap/statusCap on
// host. saveFn may be nil if no storage context was attached at launch.
func NewEditor(host *viewhost.Host, mainCap, statusCap viewhost.ViewHandleCap, saveFn SaveFunc) *Editor {
	e := &Editor{host: host, mainCap: mainCap, statusCap: statusCap, lines: []string{""}, saveFn: saveFn}
	e.publish()
	return e
}

func (e *Editor) publish() {
	e.revision++
	_ = e.host.Publish(e.mainCap, e.revision, viewhost.TextFrame{Lines: append([]string(nil), e.lines...)},
		&viewhost.Cursor{Line: e.cursorLine, Col: e.cursorCol})
	status := "INSERT"
	if e.dirty {
		status += " [modified]"
	}
	e.revision++
	_ = e.host.Publish(e.statusCap, e.revision, viewhost.StatusFrame{Line: status}, nil)
}

// DeliverInput inserts printable text at the cursor, or handles Enter/
// Backspace navigation. Every key that mutates the buffer republishes both
// views, each with a strictly increasing revision.
func (e *Editor) DeliverInput(event inputfocus.KeyEvent) error {
	if event.Kind != inputfocus.KeyPressed && event.Kind != inputfocus.KeyRepeat {
		return nil
	}
	switch event.KeyCode {
	case "Enter":
		tail := e.lines[e.cursorLine][e.cursorCol:]
		head := e.lines[e.cursorLine][:e.cursorCol]
		e.lines[e.cursorLine] = head
		e.lines = append(e.lines[:e.cursorLine+1], append([]string{tail}, e.lines[e.cursorLine+1:]...)...)
		e.cursorLine++
		e.cursorCol = 0
		e.dirty = true
	case "Backspace":
		if e.cursorCol > 0 {
			line := e.lines[e.cursorLine]
			e.lines[e.cursorLine] = line[:e.cursorCol-1] + line[e.cursorCol:]
			e.cursorCol--
			e.dirty = true
		} else if e.cursorLine > 0 {
			prevLen := len(e.lines[e.cursorLine-1])
			e.lines[e.cursorLine-1] += e.lines[e.cursorLine]
			e.lines = append(e.lines[:e.cursorLine], e.lines[e.cursorLine+1:]...)
			e.cursorLine--
			e.cursorCol = prevLen
			e.dirty = true
		}
	default:
		if event.Text == "" {
			return nil
		}
		line := e.lines[e.cursorLine]
		e.lines[e.cursorLine] = line[:e.cursorCol] + event.Text + line[e.cursorCol:]
		e.cursorCol += len(event.Text)
		e.dirty = true
	}
	e.publish()
	return nil
}

// OnTick is a no-op for Editor; it has no background work to advance.
func (e *Editor) OnTick() error { return nil }

// RequestFocusOnOpen reports true: editors request focus immediately on
// launch rather than waiting for an explicit user action.
func (e *Editor) RequestFocusOnOpen() bool { return true }

// OnSave persists the buffer through the injected SaveFunc, if any
// (spec.md §4.5 "Save action"). Republishes refreshed views on success.
func (e *Editor) OnSave() error {
	if e.saveFn == nil {
		return ErrNotSupported
	}
	if err := e.saveFn(e.lines); err != nil {
		return err
	}
	e.dirty = false
	e.publish()
	return nil
}

// OnTerminate releases no editor-private resources; views and
// subscriptions are torn down by the workspace.
func (e *Editor) OnTerminate() {}

// Content returns a defensive copy of the buffer, used by save_session.
func (e *Editor) Content() []string { return append([]string(nil), e.lines...) }
