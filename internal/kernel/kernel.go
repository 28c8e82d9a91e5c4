// Package kernel implements the kernel primitives of spec.md §4.2: task
// spawn/terminate, channel create/send/receive, capability allocation,
// resource-budget accounting, and the service name registry. It sits
// directly on top of package scheduler (spec.md §2's layering: "Kernel
// primitives ... 20%" built above "Scheduler ... 15%").
package kernel

import (
	"context"
	"errors"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/capability"
	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/policy"
	"github.com/capsule-systems/capsule/internal/scheduler"
)

// SpawnDescriptor describes a requested task/identity pair.
type SpawnDescriptor struct {
	Kind   ExecKind
	Domain TrustDomain
	Parent *ids.ExecutionId
	Budget Budget
}

// Kernel owns identities, budgets, channels, and the service registry for
// one workspace run. It is the holder-of-truth for every capability it
// issues (spec.md §9: "a component has a handle; the holder validates on
// each use").
type Kernel struct {
	sched    *scheduler.Scheduler
	policy   policy.Engine
	audit    audit.Sink
	services *serviceRegistry

	identities map[ids.ExecutionId]*Identity
	budgets    map[ids.ExecutionId]*Budget
	execOfTask map[ids.TaskId]ids.ExecutionId

	channels     map[ids.ChannelId]*channelState
	endpointCaps *capability.Registry[Endpoint]

	currentTick uint64
}

// New creates a Kernel wired to sched for task lifecycle, eng for spawn and
// delegation decisions, and sink for the shared audit trail.
func New(sched *scheduler.Scheduler, eng policy.Engine, sink audit.Sink) *Kernel {
	if eng == nil {
		eng = policy.AllowAll
	}
	if sink == nil {
		sink = noopSink{}
	}
	return &Kernel{
		sched:        sched,
		policy:       eng,
		audit:        sink,
		services:     newServiceRegistry(),
		identities:   make(map[ids.ExecutionId]*Identity),
		budgets:      make(map[ids.ExecutionId]*Budget),
		execOfTask:   make(map[ids.TaskId]ids.ExecutionId),
		channels:     make(map[ids.ChannelId]*channelState),
		endpointCaps: capability.NewRegistry[Endpoint](),
	}
}

type noopSink struct{}

func (noopSink) Emit(audit.Event) {}

// Spawn allocates an identity and budget, consults policy, and enqueues a
// new task in the scheduler (spec.md §4.2). requesterDomain is the trust
// domain of the caller requesting the spawn, used for the EventSpawn policy
// check.
func (k *Kernel) Spawn(requesterDomain TrustDomain, desc SpawnDescriptor) (ids.TaskId, ids.ExecutionId, error) {
	decision := k.policy.Decide(policy.Context{
		Event:           policy.EventSpawn,
		RequesterDomain: requesterDomain.String(),
		TargetDomain:    desc.Domain.String(),
	})
	k.audit.Emit(audit.Event{Kind: audit.KindPolicyDecision, Tick: k.currentTick, Reason: decision.Reason,
		Detail: boolDetail(decision.Allowed, "spawn")})
	if !decision.Allowed {
		return ids.TaskId{}, ids.ExecutionId{}, &errs.PolicyError{Reason: decision.Reason}
	}

	execID := ids.NewExecutionId()
	identity := &Identity{ID: execID, Kind: desc.Kind, Domain: desc.Domain, Parent: desc.Parent, CreatedTick: k.currentTick}
	budget := desc.Budget
	k.identities[execID] = identity
	k.budgets[execID] = &budget

	taskID := ids.NewTaskId()
	k.execOfTask[taskID] = execID

	if budget.CPUTicks == 0 {
		// spec.md §8: "A component whose budget is zero at launch is never
		// scheduled and terminates as Cancelled on first attempted run."
		k.audit.Emit(audit.Event{Kind: audit.KindBudgetConsumed, Tick: k.currentTick,
			TaskID: audit.TaskIDStr(taskID), Reason: string(BudgetKindCPUTicks)})
		k.sched.Register(taskID, execID)
		k.sched.CancelTask(taskID, scheduler.ExitResourceExhaustion)
		return taskID, execID, nil
	}

	k.sched.Register(taskID, execID)
	return taskID, execID, nil
}

func boolDetail(ok bool, op string) string {
	if ok {
		return op + ":allow"
	}
	return op + ":deny"
}

// Identity returns the identity metadata for execID.
func (k *Kernel) Identity(execID ids.ExecutionId) (Identity, bool) {
	id, ok := k.identities[execID]
	if !ok {
		return Identity{}, false
	}
	return *id, true
}

// TryConsume attempts to decrement amount from execID's budget pool named
// by kind. On failure it cancels every task owned by execID with reason
// ResourceExhaustion and returns errs.ErrResourceBudgetExhausted — the
// cascade spec.md §4.2 requires ("on failure, cancels the execution").
func (k *Kernel) TryConsume(execID ids.ExecutionId, kind BudgetKind, amount uint64) error {
	b, ok := k.budgets[execID]
	if !ok {
		return errors.New("kernel: unknown execution")
	}
	if !b.tryConsume(kind, amount) {
		k.audit.Emit(audit.Event{Kind: audit.KindBudgetConsumed, Tick: k.currentTick, Reason: string(kind), Detail: "exhausted"})
		k.cancelExecution(execID, scheduler.ExitResourceExhaustion)
		return &errs.BudgetError{Kind: string(kind)}
	}
	k.audit.Emit(audit.Event{Kind: audit.KindBudgetConsumed, Tick: k.currentTick, Reason: string(kind), Detail: "ok"})
	return nil
}

// cancelExecution cancels every task currently attributed to execID.
func (k *Kernel) cancelExecution(execID ids.ExecutionId, reason scheduler.ExitReason) {
	for taskID, owner := range k.execOfTask {
		if owner == execID {
			k.sched.CancelTask(taskID, reason)
		}
	}
}

// Terminate cancels execID's tasks, unconditionally (used by the workspace
// on component terminate/cancel, independent of budget exhaustion).
func (k *Kernel) Terminate(execID ids.ExecutionId, reason scheduler.ExitReason) {
	k.cancelExecution(execID, reason)
	delete(k.identities, execID)
	delete(k.budgets, execID)
}

// OnTickAdvanced forwards a tick advance to the underlying scheduler and
// keeps the kernel's own tick mirror in sync for audit timestamps.
func (k *Kernel) OnTickAdvanced(delta uint64) {
	k.currentTick += delta
	k.sched.OnTickAdvanced(delta)
}

// CreateChannel allocates an ordered channel and returns capabilities for
// both endpoints (spec.md §4.2: "create_channel() -> (ChannelCap,
// ChannelCap)"). Its queues have no capacity limit: Send never fails
// because the other side has not drained them.
func (k *Kernel) CreateChannel() (capability.Cap[Endpoint], capability.Cap[Endpoint]) {
	chID := ids.NewChannelId()
	k.channels[chID] = &channelState{id: chID}
	capA := k.endpointCaps.Issue(capability.KindChannelEndpoint, Endpoint{channelID: chID, side: sideA})
	capB := k.endpointCaps.Issue(capability.KindChannelEndpoint, Endpoint{channelID: chID, side: sideB})
	return capA, capB
}

// Send validates endpoint, charges one message from senderExec's budget,
// and appends env to the channel queue the other side will Receive from.
func (k *Kernel) Send(ctx context.Context, senderExec ids.ExecutionId, endpoint capability.Cap[Endpoint], env Envelope) error {
	_ = ctx
	ep, ok := k.endpointCaps.Validate(endpoint)
	if !ok {
		return errs.ErrInsufficientAuthority
	}
	ch, ok := k.channels[ep.channelID]
	if !ok || ch.closed {
		return errs.ErrChannelClosed
	}
	if err := k.TryConsume(senderExec, BudgetKindMessages, 1); err != nil {
		return err
	}
	if ep.side == sideA {
		ch.toB = append(ch.toB, env)
	} else {
		ch.toA = append(ch.toA, env)
	}
	k.audit.Emit(audit.Event{Kind: audit.KindMessageSent, Tick: k.currentTick, ServiceID: env.Destination.String(), Detail: env.Action})
	return nil
}

// Receive non-blockingly pops the next message destined for endpoint's
// side, or returns ok=false if none is queued.
func (k *Kernel) Receive(endpoint capability.Cap[Endpoint]) (Envelope, bool, error) {
	ep, ok := k.endpointCaps.Validate(endpoint)
	if !ok {
		return Envelope{}, false, errs.ErrInsufficientAuthority
	}
	ch, ok := k.channels[ep.channelID]
	if !ok {
		return Envelope{}, false, errs.ErrChannelClosed
	}
	var queue *[]Envelope
	if ep.side == sideA {
		queue = &ch.toA
	} else {
		queue = &ch.toB
	}
	if len(*queue) == 0 {
		return Envelope{}, false, nil
	}
	env := (*queue)[0]
	*queue = (*queue)[1:]
	k.audit.Emit(audit.Event{Kind: audit.KindMessageDelivered, Tick: k.currentTick, ServiceID: env.Destination.String(), Detail: env.Action})
	return env, true, nil
}

// CloseChannel marks a channel closed; subsequent Send calls on either
// endpoint fail with errs.ErrChannelClosed.
func (k *Kernel) CloseChannel(endpoint capability.Cap[Endpoint]) {
	ep, ok := k.endpointCaps.Validate(endpoint)
	if !ok {
		return
	}
	if ch, ok := k.channels[ep.channelID]; ok {
		ch.closed = true
	}
}

// RegisterService registers a service under name with the given descriptor.
func (k *Kernel) RegisterService(name string, desc ServiceDescriptor) {
	k.services.register(name, desc)
}

// LookupService resolves name and checks it against want's version
// compatibility, returning errs.ErrVersionMismatch when incompatible.
func (k *Kernel) LookupService(name string, want SchemaVersion) (ids.ServiceId, error) {
	desc, ok := k.services.lookup(name)
	if !ok {
		return ids.ServiceId{}, errors.New("kernel: service not found: " + name)
	}
	if !want.Compatible(desc.Version) {
		return ids.ServiceId{}, errs.ErrVersionMismatch
	}
	return desc.ID, nil
}
