// Package capability implements the sole authority primitive in capsule:
// a phantom-typed, unforgeable handle that proves the right to call one
// specific issuing service. There are no names or paths that independently
// authorize access (spec.md §3, §9 "No ambient authority") — holding a
// well-typed Cap[K] is necessary and sufficient.
package capability

import "github.com/capsule-systems/capsule/internal/ids"

// Kind distinguishes the authority a capability grants. A Cap[K] can only be
// redeemed by the service that issued it for that Kind; a service that
// receives a CapId it never issued, or issued under a different Kind, must
// reject it (spec.md: "Not forgeable across service boundaries").
type Kind int

const (
	KindInputSubscription Kind = iota
	KindViewHandle
	KindDirectoryView
	KindStorageHandle
	KindChannelEndpoint
)

func (k Kind) String() string {
	switch k {
	case KindInputSubscription:
		return "input-subscription"
	case KindViewHandle:
		return "view-handle"
	case KindDirectoryView:
		return "directory-view"
	case KindStorageHandle:
		return "storage-handle"
	case KindChannelEndpoint:
		return "channel-endpoint"
	default:
		return "unknown"
	}
}

// Cap is a copyable, phantom-typed capability. T is a marker type (never
// instantiated) that gives distinct Go types to capabilities of different
// kinds, so e.g. a ViewHandle can never be passed where a StorageHandle is
// expected, even though both wrap the same underlying shape.
type Cap[T any] struct {
	id   ids.CapId
	kind Kind
}

// New mints a fresh capability of the given kind. Only an issuing service
// should call New; holders receive capabilities by value from service
// methods, never by constructing them directly.
func New[T any](kind Kind) Cap[T] {
	return Cap[T]{id: ids.NewCapId(), kind: kind}
}

// ID returns the capability's underlying identity, used by the issuing
// service as a map key for validation. Holders treat it as opaque.
func (c Cap[T]) ID() ids.CapId { return c.id }

// Kind returns the kind of authority this capability carries.
func (c Cap[T]) Kind() Kind { return c.kind }

// Valid reports whether c was ever minted (distinguishes a real capability
// from a zero-valued Cap[T] left by a failed allocation).
func (c Cap[T]) Valid() bool { return !c.id.IsZero() }

// Registry is a generic arena + index pattern (spec.md §9: "This replaces
// any pointer-cyclic ownership with an arena + index pattern") used by
// issuing services to track which capabilities they minted and whether each
// is still live. It is not itself authority-bearing; it is how a service
// implements the validate-on-use contract capabilities promise.
type Registry[T any] struct {
	live map[ids.CapId]T
}

// NewRegistry creates an empty capability registry for one issuing service.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{live: make(map[ids.CapId]T)}
}

// Issue mints cap, recording value as its associated state, and returns it.
func (r *Registry[T]) Issue(kind Kind, value T) Cap[T] {
	c := New[T](kind)
	r.live[c.id] = value
	return c
}

// Validate looks up the state associated with cap. ok is false if cap was
// never issued by this registry or has since been revoked — the typed
// error callers surface in that case is errs.ErrInsufficientAuthority.
func (r *Registry[T]) Validate(c Cap[T]) (value T, ok bool) {
	v, ok := r.live[c.id]
	return v, ok
}

// Revoke invalidates cap. Subsequent Validate calls for it report !ok.
// Idempotent: revoking an already-revoked or unknown capability is a no-op.
func (r *Registry[T]) Revoke(c Cap[T]) {
	delete(r.live, c.id)
}

// Replace updates the state associated with a still-live capability. Used
// e.g. by the view-host to bump a handle's latest-published-revision
// bookkeeping without minting a new capability.
func (r *Registry[T]) Replace(c Cap[T], value T) {
	if _, ok := r.live[c.id]; ok {
		r.live[c.id] = value
	}
}

// Len reports how many capabilities are currently live in the registry.
func (r *Registry[T]) Len() int { return len(r.live) }
