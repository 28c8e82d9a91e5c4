// Package scheduler implements the deterministic cooperative scheduler of
// spec.md §4.1: a strict FIFO round-robin run queue, quantum-bounded
// preemption, tick-driven wake-up of blocked tasks, and budget-exhaustion
// cancellation — all producing a byte-identical, totally ordered audit
// trail for any given sequence of inputs and tick advances (§4.2, §8).
//
// The scheduler itself never fails: every failure is task-level and is
// recorded as an audit event rather than returned as an error from this
// package (spec.md §4.1, "Failure semantics").
package scheduler

import (
	"sort"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/ids"
)

// State is a Task's lifecycle state (spec.md §3).
type State int

const (
	StateRunnable State = iota
	StateBlocked
	StateExited
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunnable:
		return "runnable"
	case StateBlocked:
		return "blocked"
	case StateExited:
		return "exited"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ExitReason labels why a task left the scheduler.
type ExitReason string

const (
	ExitNormal             ExitReason = "normal"
	ExitCancelledExternal  ExitReason = "cancelled"
	ExitResourceExhaustion ExitReason = "resource_exhaustion"
)

// Task is the scheduler's view of one runnable entity. Invariants (spec.md
// §3): exactly one state at a time; a Blocked task's WakeTick was strictly
// greater than the tick at which it blocked; Exited/Cancelled are terminal;
// a task present in the run queue is always Runnable.
type Task struct {
	ID              ids.TaskId
	ExecutionID     ids.ExecutionId
	State           State
	WakeTick        uint64
	QuantumConsumed uint64
}

// Scheduler owns run-queue membership and blocked-task bookkeeping for a
// single deterministic run. All mutation happens through its exported
// methods; there is no other path to change a Task's State.
type Scheduler struct {
	quantumTicks uint64
	currentTick  uint64

	tasks    map[ids.TaskId]*Task
	runQueue []ids.TaskId // FIFO: index 0 is the head
	blocked  map[ids.TaskId]uint64

	audit audit.Sink
}

// New creates a Scheduler with the given quantum (spec.md default: 10
// ticks) and audit sink. A nil sink discards events, useful in unit tests
// that only assert on return values.
func New(quantumTicks uint64, sink audit.Sink) *Scheduler {
	if sink == nil {
		sink = discardSink{}
	}
	if quantumTicks == 0 {
		quantumTicks = 10
	}
	return &Scheduler{
		quantumTicks: quantumTicks,
		tasks:        make(map[ids.TaskId]*Task),
		blocked:      make(map[ids.TaskId]uint64),
		audit:        sink,
	}
}

type discardSink struct{}

func (discardSink) Emit(audit.Event) {}

// CurrentTick returns the scheduler's current simulated time.
func (s *Scheduler) CurrentTick() uint64 { return s.currentTick }

// Register creates bookkeeping for a new task in Runnable state and enqueues
// it. Kernel primitives call this once per spawn; the scheduler does not
// allocate identities or budgets itself.
func (s *Scheduler) Register(taskID ids.TaskId, execID ids.ExecutionId) {
	t := &Task{ID: taskID, ExecutionID: execID, State: StateRunnable}
	s.tasks[taskID] = t
	s.enqueue(taskID)
}

// Enqueue appends taskID to the tail of the runnable FIFO. The task must
// exist and be Runnable; enqueuing an already-queued task is a no-op
// (idempotent, per spec.md §4.1).
func (s *Scheduler) Enqueue(taskID ids.TaskId) {
	t, ok := s.tasks[taskID]
	if !ok || t.State != StateRunnable {
		return
	}
	s.enqueue(taskID)
}

func (s *Scheduler) enqueue(taskID ids.TaskId) {
	for _, id := range s.runQueue {
		if id == taskID {
			return // idempotent
		}
	}
	s.runQueue = append(s.runQueue, taskID)
	s.audit.Emit(audit.Event{Kind: audit.KindTaskEnqueued, TaskID: audit.TaskIDStr(taskID), Tick: s.currentTick})
}

// DequeueNext pops the head of the run queue, emitting TaskSelected. Returns
// false if the queue is empty.
func (s *Scheduler) DequeueNext() (ids.TaskId, bool) {
	if len(s.runQueue) == 0 {
		return ids.TaskId{}, false
	}
	id := s.runQueue[0]
	s.runQueue = s.runQueue[1:]
	s.audit.Emit(audit.Event{Kind: audit.KindTaskSelected, TaskID: audit.TaskIDStr(id), Tick: s.currentTick})
	return id, true
}

// ShouldPreempt reports whether taskID has consumed its full quantum and is
// a candidate for preemption.
func (s *Scheduler) ShouldPreempt(taskID ids.TaskId) bool {
	t, ok := s.tasks[taskID]
	if !ok {
		return false
	}
	return t.QuantumConsumed >= s.quantumTicks
}

// ConsumeQuantum records that taskID ran for delta ticks of its quantum.
// Called by the embedder as it runs a dequeued task.
func (s *Scheduler) ConsumeQuantum(taskID ids.TaskId, delta uint64) {
	if t, ok := s.tasks[taskID]; ok {
		t.QuantumConsumed += delta
	}
}

// PreemptCurrent moves taskID to the tail of the run queue, resets its
// quantum counter, and emits TaskPreempted{reason: QuantumExpired}.
func (s *Scheduler) PreemptCurrent(taskID ids.TaskId) {
	t, ok := s.tasks[taskID]
	if !ok || t.State != StateRunnable {
		return
	}
	t.QuantumConsumed = 0
	s.runQueue = append(s.runQueue, taskID)
	s.audit.Emit(audit.Event{Kind: audit.KindTaskPreempted, TaskID: audit.TaskIDStr(taskID), Tick: s.currentTick, Reason: "QuantumExpired"})
}

// BlockTask removes taskID from the run queue and transitions it to
// Blocked{wakeTick}. Precondition (caller-enforced): wakeTick > current
// tick at the moment of blocking.
func (s *Scheduler) BlockTask(taskID ids.TaskId, wakeTick uint64) {
	t, ok := s.tasks[taskID]
	if !ok {
		return
	}
	t.State = StateBlocked
	t.WakeTick = wakeTick
	s.blocked[taskID] = wakeTick
	s.removeFromQueue(taskID)
	s.audit.Emit(audit.Event{Kind: audit.KindTaskBlocked, TaskID: audit.TaskIDStr(taskID), Tick: s.currentTick})
}

// UnblockTask transitions a Blocked task back to Runnable and enqueues it.
// Precondition: taskID is currently Blocked.
func (s *Scheduler) UnblockTask(taskID ids.TaskId) {
	t, ok := s.tasks[taskID]
	if !ok || t.State != StateBlocked {
		return
	}
	t.State = StateRunnable
	delete(s.blocked, taskID)
	s.enqueue(taskID)
	s.audit.Emit(audit.Event{Kind: audit.KindTaskUnblocked, TaskID: audit.TaskIDStr(taskID), Tick: s.currentTick})
}

// OnTickAdvanced advances the internal tick counter by delta and promotes
// every blocked task whose wake tick has been reached back to Runnable, in
// deterministic order: ascending wake tick, ties broken by ascending TaskId
// (spec.md §4.1 "Wake ordering").
func (s *Scheduler) OnTickAdvanced(delta uint64) {
	s.currentTick += delta
	s.wakeReady()
}

func (s *Scheduler) wakeReady() {
	type ready struct {
		id   ids.TaskId
		wake uint64
	}
	var readyList []ready
	for id, wake := range s.blocked {
		if wake <= s.currentTick {
			readyList = append(readyList, ready{id, wake})
		}
	}
	sort.Slice(readyList, func(i, j int) bool {
		if readyList[i].wake != readyList[j].wake {
			return readyList[i].wake < readyList[j].wake
		}
		return readyList[i].id.Less(readyList[j].id)
	})
	for _, r := range readyList {
		s.UnblockTask(r.id)
	}
}

// ExitTask transitions taskID to a terminal state (Exited or Cancelled
// depending on reason), removing it from all scheduler structures, and
// emits TaskExited{reason}.
func (s *Scheduler) ExitTask(taskID ids.TaskId, reason ExitReason) {
	t, ok := s.tasks[taskID]
	if !ok {
		return
	}
	if reason == ExitCancelledExternal || reason == ExitResourceExhaustion {
		t.State = StateCancelled
	} else {
		t.State = StateExited
	}
	s.removeFromQueue(taskID)
	delete(s.blocked, taskID)
	s.audit.Emit(audit.Event{Kind: audit.KindTaskExited, TaskID: audit.TaskIDStr(taskID), Tick: s.currentTick, Reason: string(reason)})
	delete(s.tasks, taskID)
}

// CancelTask is ExitTask under the name the kernel's cancellation cascades
// use; reason is passed through unchanged (budget-exhaustion cascades pass
// ExitResourceExhaustion, spec.md §4.1 "Budget integration").
func (s *Scheduler) CancelTask(taskID ids.TaskId, reason ExitReason) {
	s.ExitTask(taskID, reason)
}

func (s *Scheduler) removeFromQueue(taskID ids.TaskId) {
	for i, id := range s.runQueue {
		if id == taskID {
			s.runQueue = append(s.runQueue[:i], s.runQueue[i+1:]...)
			return
		}
	}
}

// Lookup returns a copy of the task's current bookkeeping, for tests and
// introspection. ok is false if taskID is unknown (already terminal).
func (s *Scheduler) Lookup(taskID ids.TaskId) (Task, bool) {
	t, ok := s.tasks[taskID]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// RunQueueLen reports how many tasks are currently runnable and queued.
func (s *Scheduler) RunQueueLen() int { return len(s.runQueue) }
