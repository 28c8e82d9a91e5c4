package kernel

import (
	"github.com/capsule-systems/capsule/internal/ids"
)

// SchemaVersion is a (major, minor) pair used by version_policy matching at
// service lookup and message delivery (spec.md §4.2, §6).
type SchemaVersion struct {
	Major int
	Minor int
}

// Compatible reports whether a message built against want can be accepted
// by a consumer declaring have: majors must match exactly, and the
// consumer's minor must be at least the message's minor (additive,
// backward-compatible minor revisions).
func (want SchemaVersion) Compatible(have SchemaVersion) bool {
	return want.Major == have.Major && have.Minor >= want.Minor
}

// Envelope is the typed message wrapper carried on every channel
// (spec.md §3 "Channel").
type Envelope struct {
	MessageID     ids.ChannelId // reuses the ChannelId arena for message identity
	Destination   ids.ServiceId
	Action        string
	Schema        SchemaVersion
	Payload       any
	CorrelationID *string
}

// endpointSide distinguishes the two ends of a channel so Send on one side
// enqueues into the queue the other side's Receive drains.
type endpointSide int

const (
	sideA endpointSide = iota
	sideB
)

// channelState is the kernel-private state backing a pair of
// ChannelEndpoint capabilities.
type channelState struct {
	id     ids.ChannelId
	toA    []Envelope // messages sent by B, delivered to A
	toB    []Envelope // messages sent by A, delivered to B
	closed bool
}

// Endpoint is the capability-scoped handle a holder uses to Send/Receive.
// It carries no queue state itself — only enough to identify its channel
// and side to the Kernel, which is the holder-of-truth (spec.md §9:
// "arena as the service registry, capability as the index").
type Endpoint struct {
	channelID ids.ChannelId
	side      endpointSide
}
