package kernel

import "github.com/capsule-systems/capsule/internal/ids"

// ExecKind labels the kind of entity an Identity describes (spec.md §3).
type ExecKind int

const (
	KindSystem ExecKind = iota
	KindService
	KindTask
	KindUser
	KindSandbox
)

func (k ExecKind) String() string {
	switch k {
	case KindSystem:
		return "System"
	case KindService:
		return "Service"
	case KindTask:
		return "Task"
	case KindUser:
		return "User"
	case KindSandbox:
		return "Sandbox"
	default:
		return "Unknown"
	}
}

// TrustDomain is the coarse ordering used by policy to bound delegation and
// spawn rights (spec.md §3: "TrustDomain strictly orders spawn rights").
// Lower rank is more trusted: Core < System < Service < User < Sandbox.
type TrustDomain int

const (
	DomainCore TrustDomain = iota
	DomainSystem
	DomainService
	DomainUser
	DomainSandbox
)

func (d TrustDomain) String() string {
	switch d {
	case DomainCore:
		return "Core"
	case DomainSystem:
		return "System"
	case DomainService:
		return "Service"
	case DomainUser:
		return "User"
	case DomainSandbox:
		return "Sandbox"
	default:
		return "Unknown"
	}
}

// CanSpawn reports whether a holder in domain d is trusted enough to spawn
// an entity in domain target. A domain can spawn into itself or anything
// strictly less trusted; "Sandbox cannot spawn System" falls directly out
// of the integer ordering below.
func (d TrustDomain) CanSpawn(target TrustDomain) bool {
	return d <= target
}

// Identity is the metadata tuple attached to every runnable entity
// (spec.md §3: "Every runnable entity carries ..."). Identities form a
// forest rooted in System.
type Identity struct {
	ID          ids.ExecutionId
	Kind        ExecKind
	Domain      TrustDomain
	Parent      *ids.ExecutionId
	CreatedTick uint64
}
