// Package policy implements the pure decision function consulted on spawn,
// cross-domain capability delegation, and component launch (spec.md §4.2:
// "Pure function (event, context) -> Allow | Deny{reason}. ... No ambient
// policy: the engine is injected.").
package policy

// EventKind names the kind of decision being requested.
type EventKind string

const (
	EventSpawn     EventKind = "spawn"
	EventDelegate  EventKind = "delegate"
	EventLaunch    EventKind = "launch"
	EventFocus     EventKind = "focus"
)

// Context carries whatever detail a policy needs to decide. Fields are
// optional depending on EventKind; a policy that does not care about a
// field simply ignores it.
type Context struct {
	Event            EventKind
	RequesterDomain  string
	TargetDomain     string
	ComponentType    string
}

// Decision is the engine's verdict.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow and Deny are convenience constructors used by Engine implementations.
func Allow() Decision            { return Decision{Allowed: true} }
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Engine is the injected decision function. capsule ships AllowAll (for
// tests and permissive local use) and TrustOrdered (enforcing spec.md §3's
// trust-domain ordering on spawn/delegate).
type Engine interface {
	Decide(ctx Context) Decision
}

// EngineFunc adapts a plain function to the Engine interface.
type EngineFunc func(ctx Context) Decision

func (f EngineFunc) Decide(ctx Context) Decision { return f(ctx) }

// AllowAll permits every request. Used by tests and wired by cmd/capsule
// for every boot profile.
var AllowAll Engine = EngineFunc(func(Context) Decision { return Allow() })
