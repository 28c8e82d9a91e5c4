// Package inputfocus implements the input subscription service and LIFO
// focus manager of spec.md §4.4: at most one live subscription per task,
// a focus stack routing key events to exactly one subscriber, and
// self-healing removal when a component terminates.
package inputfocus

import (
	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/capability"
	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/policy"
)

// KeyEvent is the typed input envelope routed to a focused subscription
// (spec.md §6: "kind: Pressed | Released | Repeat, key_code, modifiers, text?").
type KeyEvent struct {
	Kind      KeyEventKind
	KeyCode   string
	Ctrl      bool
	Alt       bool
	Shift     bool
	Meta      bool
	Text      string
}

// KeyEventKind enumerates the three key transition kinds.
type KeyEventKind int

const (
	KeyPressed KeyEventKind = iota
	KeyReleased
	KeyRepeat
)

// Subscription is the capability-scoped marker type for an input
// subscription; it carries no exported state of its own.
type Subscription struct {
	task ids.TaskId
}

// SubscriptionCap is the public capability type a component holds to
// receive routed input.
type SubscriptionCap = capability.Cap[Subscription]

type subState struct {
	task      ids.TaskId
	active    bool
	channel   ids.ChannelId // destination channel for deliver()
	focusable bool
}

// Service is the holder-of-truth for input subscriptions and the focus
// stack. One Service instance backs a workspace run.
type Service struct {
	caps    *capability.Registry[Subscription]
	subs    map[ids.CapId]*subState
	capByID map[ids.CapId]SubscriptionCap

	byTask map[ids.TaskId]ids.CapId // at most one live subscription per task

	stack []ids.CapId // LIFO; index len-1 is top

	k      *kernel.Kernel
	pol    policy.Engine
	audit  audit.Sink
	tickFn func() uint64
}

// New creates an input service bound to k for budget-charged delivery and
// eng for request_focus policy checks.
func New(k *kernel.Kernel, eng policy.Engine, sink audit.Sink, tickFn func() uint64) *Service {
	if eng == nil {
		eng = policy.AllowAll
	}
	if sink == nil {
		sink = noopSink{}
	}
	if tickFn == nil {
		tickFn = func() uint64 { return 0 }
	}
	return &Service{
		caps:    capability.NewRegistry[Subscription](),
		subs:    make(map[ids.CapId]*subState),
		capByID: make(map[ids.CapId]SubscriptionCap),
		byTask:  make(map[ids.TaskId]ids.CapId),
		k:       k,
		pol:     eng,
		audit:   sink,
		tickFn:  tickFn,
	}
}

type noopSink struct{}

func (noopSink) Emit(audit.Event) {}

// SubscribeKeyboard mints a subscription for task, delivering to channel.
// At most one live subscription exists per task (spec.md §4.4); calling
// this again for a task that already holds one revokes the stale one first.
func (s *Service) SubscribeKeyboard(task ids.TaskId, channel ids.ChannelId, focusable bool) SubscriptionCap {
	if old, ok := s.byTask[task]; ok {
		s.revokeByCapID(old)
	}
	c := s.caps.Issue(capability.KindInputSubscription, Subscription{task: task})
	s.subs[c.ID()] = &subState{task: task, active: true, channel: channel, focusable: focusable}
	s.capByID[c.ID()] = c
	s.byTask[task] = c.ID()
	return c
}

// Revoke marks cap inactive. It does not remove it from the focus stack by
// itself — RemoveSubscription does that — matching the distinct contracts
// spec.md §4.4 gives the two operations.
func (s *Service) Revoke(cap SubscriptionCap) {
	s.revokeByCapID(cap.ID())
}

func (s *Service) revokeByCapID(capID ids.CapId) {
	if st, ok := s.subs[capID]; ok {
		st.active = false
		delete(s.byTask, st.task)
	}
}

// Deliver charges one message against the subscription owner's kernel
// budget and returns true iff the subscription is active and the charge
// succeeded (spec.md §4.4: "returns true iff the subscription is active
// and the delivery charged one message against the bridge's budget").
func (s *Service) Deliver(execID ids.ExecutionId, cap SubscriptionCap, event KeyEvent) bool {
	_, ok := s.caps.Validate(cap)
	if !ok {
		return false
	}
	st := s.subs[cap.ID()]
	if st == nil || !st.active {
		return false
	}
	if s.k != nil {
		if err := s.k.TryConsume(execID, kernel.BudgetKindMessages, 1); err != nil {
			return false
		}
	}
	s.audit.Emit(audit.Event{Kind: audit.KindInputDelivered, Tick: s.tickFn()})
	return true
}

// RequestFocus pushes cap to the top of the focus stack, consulting policy
// first. Fails if cap does not correspond to an active, focusable
// subscription, or if policy denies (spec.md §4.4).
func (s *Service) RequestFocus(requesterDomain, targetDomain string, cap SubscriptionCap) error {
	_, ok := s.caps.Validate(cap)
	if !ok {
		return errs.ErrInsufficientAuthority
	}
	st := s.subs[cap.ID()]
	if st == nil || !st.active || !st.focusable {
		return errs.ErrInsufficientAuthority
	}
	decision := s.pol.Decide(policy.Context{Event: policy.EventFocus, RequesterDomain: requesterDomain, TargetDomain: targetDomain})
	if !decision.Allowed {
		return &policyDeniedError{reason: decision.Reason}
	}
	// Remove any existing occurrence first — a subscription appears at
	// most once on the stack (spec.md §4.4 invariant).
	s.removeFromStack(cap.ID())
	s.stack = append(s.stack, cap.ID())
	s.audit.Emit(audit.Event{Kind: audit.KindFocusGranted, Tick: s.tickFn()})
	return nil
}

type policyDeniedError struct{ reason string }

func (e *policyDeniedError) Error() string { return "policy denied: " + e.reason }
func (e *policyDeniedError) Unwrap() error { return errs.ErrPolicyDenied }

// ReleaseFocus pops the top of the stack. A no-op on an empty stack
// (spec.md §8: "Focus release on an empty stack is a no-op, not an error").
func (s *Service) ReleaseFocus() {
	if len(s.stack) == 0 {
		return
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.audit.Emit(audit.Event{Kind: audit.KindFocusReleased, Tick: s.tickFn()})
}

// Route returns the capability currently on top of the focus stack, or
// ok=false if nothing is focused.
func (s *Service) Route() (SubscriptionCap, bool) {
	if len(s.stack) == 0 {
		return SubscriptionCap{}, false
	}
	top := s.stack[len(s.stack)-1]
	c, ok := s.capByID[top]
	return c, ok
}

// RemoveSubscription removes every occurrence of cap from the focus stack
// (idempotent; at most one occurrence can ever exist per spec.md §4.4's
// invariant, but the operation is defined as removing "all occurrences").
func (s *Service) RemoveSubscription(cap SubscriptionCap) {
	s.removeFromStack(cap.ID())
	s.revokeByCapID(cap.ID())
}

func (s *Service) removeFromStack(capID ids.CapId) {
	out := s.stack[:0]
	for _, id := range s.stack {
		if id != capID {
			out = append(out, id)
		}
	}
	s.stack = out
}

// StackDepth reports how many subscriptions are currently on the focus
// stack, for tests and introspection.
func (s *Service) StackDepth() int { return len(s.stack) }
