// Package ids defines the opaque 128-bit identifiers used throughout capsule.
//
// Every identifier wraps a uuid.UUID but is its own distinct Go type, so the
// compiler rejects accidentally passing a ComponentId where a ViewId is
// expected. Construction is kernel-private: every New* function lives in
// this package and callers only ever copy values they were handed.
package ids

import "github.com/google/uuid"

// TaskId identifies one scheduler task.
type TaskId struct{ v uuid.UUID }

// ChannelId identifies one kernel channel.
type ChannelId struct{ v uuid.UUID }

// ServiceId identifies a registered service.
type ServiceId struct{ v uuid.UUID }

// ComponentId identifies a workspace component.
type ComponentId struct{ v uuid.UUID }

// ExecutionId identifies an identity in the execution forest.
type ExecutionId struct{ v uuid.UUID }

// ViewId identifies a published view frame's revision stream.
type ViewId struct{ v uuid.UUID }

// ObjectId identifies a storage-collaborator object.
type ObjectId struct{ v uuid.UUID }

// VersionId identifies one committed version of an object.
type VersionId struct{ v uuid.UUID }

// TransactionId identifies a storage transaction.
type TransactionId struct{ v uuid.UUID }

// CapId is the raw 64-bit-equivalent identity behind a capability. Kept as a
// full UUID for the same unforgeability guarantee as the other identifiers;
// the "64-bit" language in spec.md describes the wire-compactness of an
// implementation choice, not a requirement CAPSULE must match bit-for-bit.
type CapId struct{ v uuid.UUID }

// NewTaskId mints a fresh, unforgeable TaskId.
func NewTaskId() TaskId { return TaskId{uuid.New()} }

// NewChannelId mints a fresh ChannelId.
func NewChannelId() ChannelId { return ChannelId{uuid.New()} }

// NewServiceId mints a fresh ServiceId.
func NewServiceId() ServiceId { return ServiceId{uuid.New()} }

// NewComponentId mints a fresh ComponentId.
func NewComponentId() ComponentId { return ComponentId{uuid.New()} }

// NewExecutionId mints a fresh ExecutionId.
func NewExecutionId() ExecutionId { return ExecutionId{uuid.New()} }

// NewViewId mints a fresh ViewId.
func NewViewId() ViewId { return ViewId{uuid.New()} }

// NewObjectId mints a fresh ObjectId.
func NewObjectId() ObjectId { return ObjectId{uuid.New()} }

// NewVersionId mints a fresh VersionId.
func NewVersionId() VersionId { return VersionId{uuid.New()} }

// NewTransactionId mints a fresh TransactionId.
func NewTransactionId() TransactionId { return TransactionId{uuid.New()} }

// NewCapId mints a fresh CapId.
func NewCapId() CapId { return CapId{uuid.New()} }

func (id TaskId) String() string        { return id.v.String() }
func (id ChannelId) String() string     { return id.v.String() }
func (id ServiceId) String() string     { return id.v.String() }
func (id ComponentId) String() string   { return id.v.String() }
func (id ExecutionId) String() string   { return id.v.String() }
func (id ViewId) String() string        { return id.v.String() }
func (id ObjectId) String() string      { return id.v.String() }
func (id VersionId) String() string     { return id.v.String() }
func (id TransactionId) String() string { return id.v.String() }
func (id CapId) String() string         { return id.v.String() }

// IsZero reports whether id is the zero value (never issued by New*).
func (id TaskId) IsZero() bool        { return id.v == uuid.Nil }
func (id ChannelId) IsZero() bool     { return id.v == uuid.Nil }
func (id ServiceId) IsZero() bool     { return id.v == uuid.Nil }
func (id ComponentId) IsZero() bool   { return id.v == uuid.Nil }
func (id ExecutionId) IsZero() bool   { return id.v == uuid.Nil }
func (id ViewId) IsZero() bool        { return id.v == uuid.Nil }
func (id ObjectId) IsZero() bool      { return id.v == uuid.Nil }
func (id VersionId) IsZero() bool     { return id.v == uuid.Nil }
func (id TransactionId) IsZero() bool { return id.v == uuid.Nil }
func (id CapId) IsZero() bool         { return id.v == uuid.Nil }

// Less gives TaskId a deterministic total order, used to break wake-tick ties
// (spec.md §4.1: "Two tasks with equal wake ticks wake in ascending TaskId").
func (id TaskId) Less(other TaskId) bool { return id.v.String() < other.v.String() }

// Less gives ComponentId a deterministic total order, used by the workspace
// to advance focus "in ascending ComponentId order" (spec.md §4.5) and by
// snapshotting to serialize components in a stable order (spec.md §3).
func (id ComponentId) Less(other ComponentId) bool { return id.v.String() < other.v.String() }

// ParseComponentId parses the string form of a ComponentId, as accepted
// from the workspace command surface's "<component-id>" arguments
// (spec.md §6).
func ParseComponentId(s string) (ComponentId, error) {
	v, err := uuid.Parse(s)
	if err != nil {
		return ComponentId{}, err
	}
	return ComponentId{v}, nil
}
