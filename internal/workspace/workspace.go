// Package workspace implements the orchestrator of spec.md §4.5: the
// component registry, launch preflight validation, focus orchestration,
// the closed command surface, save/restore, and settings persistence. It
// is the largest single module (spec.md §2: "30% of core budget") and sits
// directly above kernel, viewhost, and inputfocus.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/component"
	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/klog"
	"github.com/capsule-systems/capsule/internal/policy"
	"github.com/capsule-systems/capsule/internal/scheduler"
	"github.com/capsule-systems/capsule/internal/settings"
	"github.com/capsule-systems/capsule/internal/storage"
	"github.com/capsule-systems/capsule/internal/viewhost"
)

var log = klog.Component("workspace")

// LaunchConfig describes a requested component launch (spec.md §4.5
// "launch(config)").
type LaunchConfig struct {
	Type            component.Type
	Name            string
	Domain          kernel.TrustDomain
	Budget          kernel.Budget
	Metadata        map[string]string
	StorageAttached bool     // true if a storage capability + directory-view context is bound
	DocumentPath    *string  // Editor: storage object path, if any
	RootDirectory   *string  // FilePicker: directory view to list
	PipelineSteps   []string // PipelineRunner
	CustomTag       string   // Custom
}

// focusableTypes reports whether a component Type ever participates in the
// focus stack. PipelineRunner and Custom bodies run unattended.
func focusableTypes(t component.Type) bool {
	switch t {
	case component.TypeEditor, component.TypeCli, component.TypeFilePicker:
		return true
	default:
		return false
	}
}

// RenderSnapshot is the pull-model read the runtime's render step consumes
// (spec.md §4.5 "render_snapshot()").
type RenderSnapshot struct {
	FocusedID        *ids.ComponentId
	MainFrame        *viewhost.Frame
	StatusFrame      *viewhost.Frame
	ComponentCounts  map[component.Type]int
}

// Snapshot is the full restorable workspace state (spec.md §4.5
// "save_session() -> Snapshot"). FocusedIndex indexes into Components
// (ordered ascending by ComponentId, per spec.md §3's "deterministic
// serialization"); -1 means no focus. Restored components get fresh
// ComponentIds, so focus is carried by position, not identity.
type Snapshot struct {
	Components   []component.Snapshot
	FocusedIndex int
}

// dirLister is the opportunistic extra a storage.Collaborator may satisfy
// to back a FilePicker's listing (storage.Collaborator itself only
// guarantees resolve/link, per spec.md §6). internal/storage/journal.Store
// implements it; a collaborator that doesn't yields an empty listing
// rather than failing launch.
type dirLister interface {
	ListDir(dirView string) ([]string, error)
}

// Workspace is the orchestrator. One instance owns one kernel, view host,
// and input service for the lifetime of a capsule run.
type Workspace struct {
	k       *kernel.Kernel
	views   *viewhost.Host
	input   *inputfocus.Service
	pol     policy.Engine
	audit   audit.Sink
	store   storage.Collaborator
	tickFn  func() uint64

	components map[ids.ComponentId]*component.Component
	compBySub  map[ids.CapId]ids.ComponentId
	focused    *ids.ComponentId
}

// New creates a Workspace wired to k/views/input for kernel, view, and
// focus primitives, eng for launch/focus policy, sink for the shared
// audit trail, and store (optionally nil) for settings/save persistence.
func New(k *kernel.Kernel, views *viewhost.Host, input *inputfocus.Service, eng policy.Engine, sink audit.Sink, store storage.Collaborator, tickFn func() uint64) *Workspace {
	if eng == nil {
		eng = policy.AllowAll
	}
	if sink == nil {
		sink = noopSink{}
	}
	if tickFn == nil {
		tickFn = func() uint64 { return 0 }
	}
	return &Workspace{
		k:          k,
		views:      views,
		input:      input,
		pol:        eng,
		audit:      sink,
		store:      store,
		tickFn:     tickFn,
		components: make(map[ids.ComponentId]*component.Component),
		compBySub:  make(map[ids.CapId]ids.ComponentId),
	}
}

type noopSink struct{}

func (noopSink) Emit(audit.Event) {}

// Launch validates, authorizes, and creates a new component instance
// (spec.md §4.5 "launch(config)"). On any preflight or policy failure it
// creates zero components: no partial registry entries, no orphan views
// (spec.md §8 "Boundary behaviors").
func (w *Workspace) Launch(cfg LaunchConfig) (ids.ComponentId, error) {
	if err := preflight(cfg); err != nil {
		return ids.ComponentId{}, err
	}

	decision := w.pol.Decide(policy.Context{
		Event:           policy.EventLaunch,
		RequesterDomain: kernel.DomainSystem.String(),
		TargetDomain:    cfg.Domain.String(),
		ComponentType:   cfg.Type.String(),
	})
	if !decision.Allowed {
		return ids.ComponentId{}, &errs.PolicyError{Reason: decision.Reason}
	}

	taskID, execID, err := w.k.Spawn(kernel.DomainSystem, kernel.SpawnDescriptor{
		Kind: kernel.KindTask, Domain: cfg.Domain, Budget: cfg.Budget,
	})
	if err != nil {
		return ids.ComponentId{}, err
	}

	compID := ids.NewComponentId()
	focusable := focusableTypes(cfg.Type)

	var subCap *inputfocus.SubscriptionCap
	if focusable {
		// SubscribeKeyboard's channel parameter addresses a kernel channel
		// endpoint for a message-routed delivery path; this workspace
		// dispatches input directly to Body.DeliverInput instead (see
		// RouteInput), so no channel is allocated here.
		sc := w.input.SubscribeKeyboard(taskID, ids.ChannelId{}, true)
		subCap = &sc
		w.compBySub[sc.ID()] = compID
	}

	mainCap := w.views.AllocateView(execID, viewhost.KindMain)
	statusCap := w.views.AllocateView(execID, viewhost.KindStatus)
	mainViewID, _ := w.views.ViewIDOf(mainCap)
	statusViewID, _ := w.views.ViewIDOf(statusCap)

	body := w.buildBody(cfg, mainCap, statusCap)

	comp := &component.Component{
		ID: compID, Type: cfg.Type, ExecutionID: execID, Domain: cfg.Domain,
		State: component.StateRunning, Focusable: focusable, Name: cfg.Name,
		Metadata: cfg.Metadata, Subscription: subCap, MainView: &mainCap,
		StatusView: &statusCap, MainViewID: mainViewID, StatusViewID: statusViewID,
		Body: body,
	}
	w.components[compID] = comp

	w.audit.Emit(audit.Event{Kind: audit.KindComponentLaunched, Tick: w.tickFn(),
		ComponentID: audit.ComponentIDStr(compID), Detail: cfg.Type.String()})

	if cfg.Budget.CPUTicks == 0 {
		// spec.md §8: "A component whose budget is zero at launch is never
		// scheduled and terminates as Cancelled on first attempted run." The
		// kernel already cancelled the underlying task at Spawn time; the
		// component mirrors that outcome immediately rather than waiting
		// for a Tick that will never find it runnable.
		_ = w.Terminate(compID, string(scheduler.ExitResourceExhaustion))
	}
	return compID, nil
}

func preflight(cfg LaunchConfig) error {
	switch cfg.Type {
	case component.TypeFilePicker:
		if !cfg.StorageAttached {
			return &errs.LaunchContextError{ComponentType: "FilePicker", Reason: "storage"}
		}
		if cfg.RootDirectory == nil {
			return &errs.LaunchContextError{ComponentType: "FilePicker", Reason: "root_directory"}
		}
	case component.TypeEditor:
		if cfg.DocumentPath != nil && !cfg.StorageAttached {
			return &errs.LaunchContextError{ComponentType: "Editor", Reason: "storage"}
		}
	}
	return nil
}

func (w *Workspace) buildBody(cfg LaunchConfig, mainCap, statusCap viewhost.ViewHandleCap) component.Body {
	switch cfg.Type {
	case component.TypeEditor:
		var saveFn component.SaveFunc
		if cfg.DocumentPath != nil && w.store != nil {
			path := *cfg.DocumentPath
			saveFn = func(lines []string) error {
				ctx := context.Background()
				txn, err := w.store.OpenTransaction(ctx)
				if err != nil {
					return fmt.Errorf("workspace: save: %w", err)
				}
				data := []byte(strings.Join(lines, "\n"))
				if err := w.store.WriteObject(ctx, txn, path, data); err != nil {
					_ = w.store.Rollback(ctx, txn)
					return fmt.Errorf("workspace: save: %w", err)
				}
				return w.store.Commit(ctx, txn)
			}
		}
		return component.NewEditor(w.views, mainCap, statusCap, saveFn)
	case component.TypeCli:
		return component.NewCli(w.views, mainCap, statusCap)
	case component.TypeFilePicker:
		root := ""
		if cfg.RootDirectory != nil {
			root = *cfg.RootDirectory
		}
		list := func() ([]string, error) {
			if lister, ok := w.store.(dirLister); ok {
				return lister.ListDir(root)
			}
			return nil, nil
		}
		return component.NewFilePicker(w.views, mainCap, statusCap, list)
	case component.TypePipelineRunner:
		return component.NewPipelineRunner(w.views, mainCap, statusCap, cfg.PipelineSteps)
	default:
		return component.NewCustom(w.views, statusCap, cfg.CustomTag)
	}
}

// Terminate cancels id's identity (cascading to the scheduler and
// releasing capability holdings), revokes its subscription, destroys its
// views, and emits ComponentTerminated (spec.md §4.5 "terminate(id, reason)").
func (w *Workspace) Terminate(id ids.ComponentId, reason string) error {
	comp, ok := w.components[id]
	if !ok {
		return fmt.Errorf("workspace: unknown component %s", id)
	}
	w.k.Terminate(comp.ExecutionID, scheduler.ExitCancelledExternal)
	if comp.Subscription != nil {
		w.input.RemoveSubscription(*comp.Subscription)
		delete(w.compBySub, comp.Subscription.ID())
	}
	w.views.DestroyView(comp.MainViewID)
	w.views.DestroyView(comp.StatusViewID)
	comp.State = component.StateCancelled
	comp.ExitReason = reason
	comp.Body.OnTerminate()
	if w.focused != nil && *w.focused == id {
		w.focused = nil
	}
	w.audit.Emit(audit.Event{Kind: audit.KindComponentTerminated, Tick: w.tickFn(),
		ComponentID: audit.ComponentIDStr(id), Reason: reason})
	return nil
}

// Focus requests focus for id, consulting policy for cross-domain
// delegation (spec.md §4.5 "focus(id)").
func (w *Workspace) Focus(id ids.ComponentId) error {
	comp, ok := w.components[id]
	if !ok {
		return fmt.Errorf("workspace: unknown component %s", id)
	}
	if !comp.Focusable || comp.Subscription == nil {
		return errs.ErrInsufficientAuthority
	}
	if err := w.input.RequestFocus(kernel.DomainSystem.String(), comp.Domain.String(), *comp.Subscription); err != nil {
		return err
	}
	w.focused = &id
	return nil
}

// orderedFocusable returns every live, focusable component id in ascending
// ComponentId order (spec.md §4.5 "advance the focus stack ... in
// ascending ComponentId order").
func (w *Workspace) orderedFocusable() []ids.ComponentId {
	var out []ids.ComponentId
	for id, c := range w.components {
		if c.Focusable && c.State == component.StateRunning {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// FocusNext advances the focus stack to the next focusable component in
// ascending ComponentId order, wrapping from the end to the start.
func (w *Workspace) FocusNext() error { return w.focusRelative(1) }

// FocusPrev advances the focus stack to the previous focusable component.
func (w *Workspace) FocusPrev() error { return w.focusRelative(-1) }

func (w *Workspace) focusRelative(delta int) error {
	order := w.orderedFocusable()
	if len(order) == 0 {
		return nil
	}
	idx := 0
	if w.focused != nil {
		for i, id := range order {
			if id == *w.focused {
				idx = i
				break
			}
		}
	}
	idx = (idx + delta + len(order)) % len(order)
	return w.Focus(order[idx])
}

// RouteInput delivers event to the currently focused component, if any
// live subscription occupies the top of the focus stack (spec.md §4.5
// "route_input(event)"). If no focus, the event is dropped and logged.
func (w *Workspace) RouteInput(event inputfocus.KeyEvent) {
	cap, ok := w.input.Route()
	if !ok {
		w.audit.Emit(audit.Event{Kind: audit.KindInputDropped, Tick: w.tickFn()})
		return
	}
	compID, ok := w.compBySub[cap.ID()]
	if !ok {
		w.audit.Emit(audit.Event{Kind: audit.KindInputDropped, Tick: w.tickFn()})
		return
	}
	comp, ok := w.components[compID]
	if !ok {
		return
	}
	if !w.input.Deliver(comp.ExecutionID, cap, event) {
		w.audit.Emit(audit.Event{Kind: audit.KindInputDropped, Tick: w.tickFn()})
		return
	}
	if err := comp.Body.DeliverInput(event); err != nil {
		log.Warn().Err(err).Str("component", compID.String()).Msg("component input handler failed")
	}
}

// Tick advances the kernel's scheduler and calls every live component's
// idempotent OnTick (spec.md §4.5 "tick()").
func (w *Workspace) Tick(delta uint64) {
	w.k.OnTickAdvanced(delta)
	for _, comp := range w.components {
		if comp.State != component.StateRunning {
			continue
		}
		if err := comp.Body.OnTick(); err != nil {
			log.Warn().Err(err).Str("component", comp.ID.String()).Msg("component tick failed")
		}
	}
}

// RenderSnapshot pulls the latest main/status frames for the focused
// component (spec.md §4.5 "render_snapshot()").
func (w *Workspace) RenderSnapshot() RenderSnapshot {
	counts := make(map[component.Type]int)
	for _, c := range w.components {
		if c.State == component.StateRunning {
			counts[c.Type]++
		}
	}
	snap := RenderSnapshot{ComponentCounts: counts}
	if w.focused == nil {
		return snap
	}
	comp, ok := w.components[*w.focused]
	if !ok {
		return snap
	}
	id := *w.focused
	snap.FocusedID = &id
	if f, ok := w.views.LatestFrame(comp.MainViewID); ok {
		snap.MainFrame = &f
	}
	if f, ok := w.views.LatestFrame(comp.StatusViewID); ok {
		snap.StatusFrame = &f
	}
	return snap
}

// Component returns the bookkeeping record for id, for callers (e.g. the
// status command) that need to inspect a component's type, state, or name.
func (w *Workspace) Component(id ids.ComponentId) (*component.Component, bool) {
	c, ok := w.components[id]
	return c, ok
}

// SaveSettings serializes m and writes it through the bound storage
// collaborator (spec.md §4.5 "Settings persistence").
func (w *Workspace) SaveSettings(m settings.Map) error {
	err := settings.Save(context.Background(), w.store, m)
	if err == nil {
		w.audit.Emit(audit.Event{Kind: audit.KindSettingsSaved, Tick: w.tickFn()})
	}
	return err
}

// LoadSettings reads the settings map through the bound storage
// collaborator, discarding any malformed entries rather than failing.
func (w *Workspace) LoadSettings() (settings.Map, error) {
	m, err := settings.Load(context.Background(), w.store)
	if err == nil {
		w.audit.Emit(audit.Event{Kind: audit.KindSettingsLoaded, Tick: w.tickFn()})
	}
	return m, err
}

// SaveSession serializes every component in ascending ComponentId order
// (spec.md §4.5 "save_session() -> Snapshot").
func (w *Workspace) SaveSession() Snapshot {
	var order []ids.ComponentId
	for id := range w.components {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })

	snap := Snapshot{FocusedIndex: -1}
	for i, id := range order {
		comp := w.components[id]
		cs := component.Snapshot{
			ID: comp.ID, Type: comp.Type, Name: comp.Name, Metadata: comp.Metadata,
			State: comp.State, ExitReason: comp.ExitReason,
		}
		if f, ok := w.views.LatestFrame(comp.MainViewID); ok {
			cs.LastMainFrame = &f
		}
		if f, ok := w.views.LatestFrame(comp.StatusViewID); ok {
			cs.LastStatusFrame = &f
		}
		snap.Components = append(snap.Components, cs)
		if w.focused != nil && *w.focused == id {
			snap.FocusedIndex = i
		}
	}
	w.audit.Emit(audit.Event{Kind: audit.KindSessionSaved, Tick: w.tickFn()})
	return snap
}

// restoredBody is the inert Body used for rehydrated components: it
// carries forward the captured frames as-is but does not reconstruct
// live interactive state (spec.md §4.5 only requires "latest frames" to
// survive a restore, not full undo-equivalent buffer fidelity).
type restoredBody struct{}

func (restoredBody) DeliverInput(inputfocus.KeyEvent) error { return nil }
func (restoredBody) OnTick() error                          { return nil }
func (restoredBody) RequestFocusOnOpen() bool                { return false }
func (restoredBody) OnSave() error                           { return component.ErrNotSupported }
func (restoredBody) OnTerminate()                            {}

// RestoreSession tears down any currently live components and rehydrates
// snap's components with fresh identities, preserving names, metadata,
// state, and latest frames (spec.md §4.5 "restore_session(Snapshot)").
func (w *Workspace) RestoreSession(snap Snapshot) error {
	for id := range w.components {
		_ = w.Terminate(id, "session_restore")
	}
	w.components = make(map[ids.ComponentId]*component.Component)
	w.compBySub = make(map[ids.CapId]ids.ComponentId)
	w.focused = nil

	newIDs := make([]ids.ComponentId, len(snap.Components))
	for i, cs := range snap.Components {
		taskID, execID, err := w.k.Spawn(kernel.DomainSystem, kernel.SpawnDescriptor{
			Kind: kernel.KindTask, Domain: kernel.DomainUser, Budget: kernel.Unlimited(),
		})
		if err != nil {
			return fmt.Errorf("workspace: restore: %w", err)
		}
		focusable := focusableTypes(cs.Type)
		compID := ids.NewComponentId()

		var subCap *inputfocus.SubscriptionCap
		if focusable {
			sc := w.input.SubscribeKeyboard(taskID, ids.ChannelId{}, true)
			subCap = &sc
			w.compBySub[sc.ID()] = compID
		}

		mainCap := w.views.AllocateView(execID, viewhost.KindMain)
		statusCap := w.views.AllocateView(execID, viewhost.KindStatus)
		mainViewID, _ := w.views.ViewIDOf(mainCap)
		statusViewID, _ := w.views.ViewIDOf(statusCap)
		if cs.LastMainFrame != nil {
			_ = w.views.Publish(mainCap, 1, cs.LastMainFrame.Content, cs.LastMainFrame.Cursor)
		}
		if cs.LastStatusFrame != nil {
			_ = w.views.Publish(statusCap, 1, cs.LastStatusFrame.Content, cs.LastStatusFrame.Cursor)
		}

		comp := &component.Component{
			ID: compID, Type: cs.Type, ExecutionID: execID, Domain: kernel.DomainUser,
			State: cs.State, ExitReason: cs.ExitReason, Focusable: focusable, Name: cs.Name,
			Metadata: cs.Metadata, Subscription: subCap, MainView: &mainCap, StatusView: &statusCap,
			MainViewID: mainViewID, StatusViewID: statusViewID, Body: restoredBody{},
		}
		w.components[compID] = comp
		newIDs[i] = compID
	}

	if snap.FocusedIndex >= 0 && snap.FocusedIndex < len(newIDs) {
		if err := w.Focus(newIDs[snap.FocusedIndex]); err != nil {
			return err
		}
	}
	w.audit.Emit(audit.Event{Kind: audit.KindSessionRestored, Tick: w.tickFn()})
	return nil
}
