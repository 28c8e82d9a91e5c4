package component

import (
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

// ListFunc resolves the entries a FilePicker displays for one directory
// view, injected by the workspace from the storage collaborator at launch
// (spec.md §4.5: FilePicker requires both a storage capability and a root
// directory context before this body is ever constructed).
type ListFunc func() ([]string, error)

// FilePicker is the Body for TypeFilePicker: a scrollable list of entries
// resolved from a capability-scoped directory view.
type FilePicker struct {
	host      *viewhost.Host
	mainCap   viewhost.ViewHandleCap
	statusCap viewhost.ViewHandleCap
	entries   []string
	selected  int
	revision  uint64
}

// NewFilePicker creates a file-picker body, eagerly resolving entries via
// list. A list error is surfaced in the status frame rather than failing
// construction — the launch preflight already guaranteed the capabilities
// exist; a transient read failure is this component's own problem.
func NewFilePicker(host *viewhost.Host, mainCap, statusCap viewhost.ViewHandleCap, list ListFunc) *FilePicker {
	f := &FilePicker{host: host, mainCap: mainCap, statusCap: statusCap}
	entries, err := list()
	if err == nil {
		f.entries = entries
	}
	f.publish(err)
	return f
}

func (f *FilePicker) publish(listErr error) {
	f.revision++
	_ = f.host.Publish(f.mainCap, f.revision, viewhost.TextFrame{Lines: append([]string(nil), f.entries...)}, nil)
	status := "ready"
	if listErr != nil {
		status = "error: " + listErr.Error()
	}
	f.revision++
	_ = f.host.Publish(f.statusCap, f.revision, viewhost.StatusFrame{Line: status}, nil)
}

// DeliverInput moves the selection cursor among entries; only Up/Down
// navigation is in scope for the picker's core contract.
func (f *FilePicker) DeliverInput(event inputfocus.KeyEvent) error {
	if event.Kind != inputfocus.KeyPressed && event.Kind != inputfocus.KeyRepeat {
		return nil
	}
	switch event.KeyCode {
	case "Down":
		if f.selected < len(f.entries)-1 {
			f.selected++
		}
	case "Up":
		if f.selected > 0 {
			f.selected--
		}
	default:
		return nil
	}
	f.publish(nil)
	return nil
}

// OnTick is a no-op.
func (f *FilePicker) OnTick() error { return nil }

// RequestFocusOnOpen reports true.
func (f *FilePicker) RequestFocusOnOpen() bool { return true }

// OnSave reports ErrNotSupported: a file picker has nothing to save.
func (f *FilePicker) OnSave() error { return ErrNotSupported }

// OnTerminate releases no file-picker-private resources.
func (f *FilePicker) OnTerminate() {}

// Selected returns the currently highlighted entry, or "" if the listing
// is empty.
func (f *FilePicker) Selected() string {
	if f.selected < 0 || f.selected >= len(f.entries) {
		return ""
	}
	return f.entries[f.selected]
}
