package policy

// domainRank mirrors kernel.TrustDomain's ordering by name, kept here as
// plain data so policy never needs to import kernel (policy is the
// dependency kernel and workspace both inject, not the other way around).
var domainRank = map[string]int{
	"Core":    0,
	"System":  1,
	"Service": 2,
	"User":    3,
	"Sandbox": 4,
}

// TrustOrdered is the trust-domain-ordered policy: it permits spawn and
// delegation only when the requester's trust domain is at least as
// privileged as the target domain (spec.md §3: "TrustDomain strictly
// orders spawn rights; Sandbox cannot spawn System"). Launch and focus
// events are allowed unconditionally — those are gated by the workspace's
// own launch-preflight and focusability checks, not by trust domain.
var TrustOrdered Engine = EngineFunc(func(ctx Context) Decision {
	switch ctx.Event {
	case EventSpawn, EventDelegate:
		req, reqOK := domainRank[ctx.RequesterDomain]
		tgt, tgtOK := domainRank[ctx.TargetDomain]
		if !reqOK || !tgtOK {
			return Deny("unknown trust domain")
		}
		if req > tgt {
			return Deny(ctx.RequesterDomain + " cannot " + string(ctx.Event) + " into " + ctx.TargetDomain)
		}
		return Allow()
	default:
		return Allow()
	}
})
