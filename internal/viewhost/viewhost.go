// Package viewhost implements per-component typed view frame publication
// (spec.md §4.3): monotonic revisions per ViewId, capability-scoped
// allocation, and a pull-model snapshot read for the renderer.
package viewhost

import (
	"sync"
	"time"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/capability"
	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
)

// Kind distinguishes the four content shapes a view frame may carry
// (spec.md §3 "View frame").
type Kind int

const (
	KindMain Kind = iota
	KindStatus
	KindBreadcrumb
	KindPanel
)

// Cursor is the optional cursor position carried by a frame.
type Cursor struct {
	Line int
	Col  int
}

// Frame is the revisioned content published to one ViewId (spec.md §3).
// Content is intentionally untyped (any) because the four kinds below carry
// shapes as different as "lines of text" and "labeled key/value pairs";
// callers type-assert based on the Handle's Kind.
type Frame struct {
	ViewID    ids.ViewId
	Revision  uint64
	Timestamp time.Time
	Content   any
	Cursor    *Cursor
}

// Handle is the capability-scoped marker type for Cap[Handle]; it carries
// no exported state — holders call Publish/Destroy through the Host that
// issued it.
type Handle struct {
	viewID ids.ViewId
	kind   Kind
	owner  ids.ExecutionId
}

// ViewHandleCap is the public capability type components hold.
type ViewHandleCap = capability.Cap[Handle]

type viewState struct {
	owner    ids.ExecutionId
	kind     Kind
	revision uint64
	frame    Frame
	live     bool
}

// Host is the holder-of-truth for every view frame in a workspace run. One
// Host instance backs the whole runtime; components only ever see the
// capability it issues them (spec.md §9 "arena + index").
type Host struct {
	mu     sync.Mutex
	caps   *capability.Registry[Handle]
	views  map[ids.ViewId]*viewState
	audit  audit.Sink
	tickFn func() uint64
}

// New creates an empty view host. sink receives ViewPublished/ViewStale
// audit events; tickFn, if non-nil, supplies the current tick for those
// events (the host has no clock of its own).
func New(sink audit.Sink, tickFn func() uint64) *Host {
	if sink == nil {
		sink = noopSink{}
	}
	if tickFn == nil {
		tickFn = func() uint64 { return 0 }
	}
	return &Host{
		caps:   capability.NewRegistry[Handle](),
		views:  make(map[ids.ViewId]*viewState),
		audit:  sink,
		tickFn: tickFn,
	}
}

type noopSink struct{}

func (noopSink) Emit(audit.Event) {}

// AllocateView mints a fresh ViewId and handle capability for owner, of the
// given kind (spec.md §4.3: "allocate_view(owner, kind) → ViewHandleCap").
func (h *Host) AllocateView(owner ids.ExecutionId, kind Kind) ViewHandleCap {
	h.mu.Lock()
	defer h.mu.Unlock()
	viewID := ids.NewViewId()
	h.views[viewID] = &viewState{owner: owner, kind: kind, live: true}
	return h.caps.Issue(capability.KindViewHandle, Handle{viewID: viewID, kind: kind, owner: owner})
}

// Publish installs content (and optional cursor) as the next frame for
// handle's ViewId. revision must strictly exceed the ViewId's previous
// revision, or Publish returns errs.ErrStaleRevision and discards the
// frame (spec.md §4.3, §7 "Publisher error; frame discarded").
func (h *Host) Publish(handle ViewHandleCap, revision uint64, content any, cursor *Cursor) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	hv, ok := h.caps.Validate(handle)
	if !ok {
		return errs.ErrInsufficientAuthority
	}
	vs, ok := h.views[hv.viewID]
	if !ok || !vs.live {
		return errs.ErrInsufficientAuthority
	}
	if revision <= vs.revision {
		h.audit.Emit(audit.Event{Kind: audit.KindViewStale, Tick: h.tickFn(), ViewID: hv.viewID.String()})
		return errs.ErrStaleRevision
	}
	vs.revision = revision
	vs.frame = Frame{ViewID: hv.viewID, Revision: revision, Timestamp: time.Now(), Content: content, Cursor: cursor}
	h.audit.Emit(audit.Event{Kind: audit.KindViewPublished, Tick: h.tickFn(), ViewID: hv.viewID.String()})
	return nil
}

// LatestFrame returns a snapshot copy of the most recent frame published to
// viewID, or ok=false if the view was never published to or has since been
// destroyed. The renderer is the only pull-side reader (spec.md §4.3: "the
// renderer pulls; no push model").
func (h *Host) LatestFrame(viewID ids.ViewId) (Frame, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	vs, ok := h.views[viewID]
	if !ok || !vs.live || vs.revision == 0 {
		return Frame{}, false
	}
	return vs.frame, true
}

// DestroyView invalidates viewID's handle: subsequent Publish calls fail.
// Called by the workspace on component termination (spec.md §4.3).
func (h *Host) DestroyView(viewID ids.ViewId) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if vs, ok := h.views[viewID]; ok {
		vs.live = false
	}
	delete(h.views, viewID)
}

// ViewIDOf returns the ViewId a still-valid handle refers to, for callers
// that need to key LatestFrame/DestroyView off a capability they hold.
func (h *Host) ViewIDOf(handle ViewHandleCap) (ids.ViewId, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hv, ok := h.caps.Validate(handle)
	if !ok {
		return ids.ViewId{}, false
	}
	return hv.viewID, true
}
