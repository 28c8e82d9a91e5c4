// Package storage defines the capability-scoped storage collaborator
// interface of spec.md §6: a journaled, versioned object store external
// to the workspace, reached only through DirectoryView/StorageHandle
// capabilities — never an ambient filesystem root (spec.md §9 "No ambient
// authority").
package storage

import "context"

// OpKind is one of the three budget-charged storage operation classes
// (spec.md §6: "Every operation is budget-charged as one of {Read, Write,
// Commit} storage ops").
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpCommit
)

// Object is one read result: the object's current bytes plus the version
// they belong to.
type Object struct {
	Bytes   []byte
	Version string
}

// Collaborator is the storage-engine contract the workspace talks to. Both
// internal/storage.Client (an HTTP-backed production transport) and
// internal/storage/journal.Store (a local, LevelDB-backed implementation
// used for tests and standalone runs) satisfy it.
type Collaborator interface {
	// OpenTransaction begins a new transaction and returns its TransactionId.
	OpenTransaction(ctx context.Context) (string, error)
	// ReadObject reads objectID's bytes within txn. A transaction sees its
	// own uncommitted writes and the latest committed version otherwise
	// (spec.md §6 "Read isolation").
	ReadObject(ctx context.Context, txn, objectID string) (Object, error)
	// WriteObject stages bytes for objectID within txn, creating a new
	// VersionId on commit.
	WriteObject(ctx context.Context, txn, objectID string, data []byte) error
	// Commit durably applies every write staged in txn.
	Commit(ctx context.Context, txn string) error
	// Rollback discards every write staged in txn.
	Rollback(ctx context.Context, txn string) error
	// ResolvePath resolves name within the directory view dirView to an
	// ObjectId, or ok=false if no such entry exists.
	ResolvePath(ctx context.Context, dirView, name string) (objectID string, ok bool, err error)
	// Link records name → objectID within dirView.
	Link(ctx context.Context, dirView, name, objectID string) error
}
