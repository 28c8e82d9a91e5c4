// Package audit implements the workspace's totally ordered event trail
// (spec.md §4.2, §8): "Given the same ordered input sequence ... the audit
// log of (TaskSelected, TaskPreempted, TaskExited, MessageSent,
// MessageDelivered, BudgetConsumed, PolicyDecision) is byte-identical
// across runs and platforms." Every layer — scheduler, kernel, workspace —
// emits into the same Log so tests can assert on one linear sequence.
//
// This generalizes the teacher's internal/tasklog: where tasklog opens one
// JSONL file per task, audit.Log keeps one in-memory, sequence-numbered
// trail per workspace run and can optionally mirror it to a JSONL file the
// same way tasklog does, for post-hoc inspection.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/capsule-systems/capsule/internal/ids"
)

// Kind enumerates every audit event kind named across spec.md.
type Kind string

const (
	KindTaskSelected       Kind = "TaskSelected"
	KindTaskPreempted      Kind = "TaskPreempted"
	KindTaskExited         Kind = "TaskExited"
	KindTaskBlocked        Kind = "TaskBlocked"
	KindTaskUnblocked      Kind = "TaskUnblocked"
	KindTaskEnqueued       Kind = "TaskEnqueued"
	KindMessageSent        Kind = "MessageSent"
	KindMessageDelivered   Kind = "MessageDelivered"
	KindBudgetConsumed     Kind = "BudgetConsumed"
	KindPolicyDecision     Kind = "PolicyDecision"
	KindComponentLaunched  Kind = "ComponentLaunched"
	KindComponentTerminated Kind = "ComponentTerminated"
	KindFocusGranted       Kind = "FocusGranted"
	KindFocusReleased      Kind = "FocusReleased"
	KindInputDelivered     Kind = "InputDelivered"
	KindInputDropped       Kind = "InputDropped"
	KindViewPublished      Kind = "ViewPublished"
	KindViewStale          Kind = "ViewStale"
	KindCommandExecuted    Kind = "CommandExecuted"
	KindSessionSaved       Kind = "SessionSaved"
	KindSessionRestored    Kind = "SessionRestored"
	KindSettingsSaved      Kind = "SettingsSaved"
	KindSettingsLoaded     Kind = "SettingsLoaded"
)

// Event is one record in the audit trail. Most fields are optional; which
// ones are populated depends on Kind, mirroring the teacher's tasklog.Event
// "one struct, many omitempty fields" shape.
type Event struct {
	Seq         uint64 `json:"seq"`
	Kind        Kind   `json:"kind"`
	Tick        uint64 `json:"tick"`
	TaskID      string `json:"task_id,omitempty"`
	ComponentID string `json:"component_id,omitempty"`
	ViewID      string `json:"view_id,omitempty"`
	ServiceID   string `json:"service_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Sink receives audit events in emission order. Implementations must not
// block or reorder — determinism (spec.md §4.2) depends on every emitter
// calling Sink.Emit synchronously within the operation that produced it.
type Sink interface {
	Emit(Event)
}

// Log is the concrete, in-memory Sink every capsule workspace run owns.
// It is safe for concurrent use, though a single deterministic run never
// actually needs concurrent emitters — the mutex exists so tests can read
// Events() while, e.g., a hosted platform adapter renders on another
// goroutine.
type Log struct {
	mu     sync.Mutex
	events []Event
	next   uint64
	file   *os.File
}

// NewLog creates an empty audit log.
func NewLog() *Log {
	return &Log{}
}

// Emit assigns the next sequence number to e and appends it.
func (l *Log) Emit(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.Seq = l.next
	l.next++
	l.events = append(l.events, e)
	if l.file != nil {
		data, err := json.Marshal(e)
		if err == nil {
			fmt.Fprintf(l.file, "%s\n", data)
		}
	}
}

// Events returns a copy of every event recorded so far, in emission order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len reports how many events have been recorded.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// MirrorToFile opens path for append and begins writing every subsequent
// Emit as a JSONL line, the same persistence shape as the teacher's
// tasklog.Registry.Open. Events recorded before MirrorToFile is called are
// not backfilled.
func (l *Log) MirrorToFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.file = f
	l.mu.Unlock()
	return nil
}

// Close flushes and closes the mirrored file, if any.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// CountByKind is a small test helper counting events of a given kind.
func CountByKind(events []Event, kind Kind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// TaskIDStr and ComponentIDStr adapt opaque identifiers to the string form
// Event stores them in, keeping ids.TaskId/ids.ComponentId themselves free
// of any audit-package dependency.
func TaskIDStr(id ids.TaskId) string           { return id.String() }
func ComponentIDStr(id ids.ComponentId) string { return id.String() }
