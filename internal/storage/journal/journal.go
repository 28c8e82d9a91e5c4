// Package journal implements a local, LevelDB-backed storage.Collaborator
// (spec.md §6), grounded on the teacher's internal/roles/memory.Store: the
// same "|"-separated key-prefix scheme and leveldb.Batch commit pattern,
// retargeted from Megram records to versioned transactional objects. It is
// the collaborator cmd/capsule binds by default when no remote storage
// endpoint is configured (internal/config), and the one the settings,
// workspace, and runtime test suites open directly.
package journal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/capsule-systems/capsule/internal/storage"
)

// LevelDB key prefix scheme, mirroring the teacher's memory.Store layout:
//
//	o|<object-id>|<version-id>   -> object bytes (one entry per committed version)
//	h|<object-id>                -> latest committed version-id (HEAD pointer)
//	d|<dir-view>|<name>          -> object-id (directory link index)
const (
	prefixObject = "o|"
	prefixHead   = "h|"
	prefixLink   = "d|"
)

type pendingWrite struct {
	objectID string
	data     []byte
}

// Store is the LevelDB-backed Collaborator. One Store instance owns one
// on-disk database; transactions are tracked in memory and only touch the
// database on Commit.
type Store struct {
	mu  sync.Mutex
	db  *leveldb.DB
	txs map[string][]pendingWrite
}

// Open opens (or creates) a LevelDB database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("journal: open leveldb at %s: %w", dbPath, err)
	}
	return &Store{db: db, txs: make(map[string][]pendingWrite)}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.Collaborator = (*Store)(nil)

// OpenTransaction begins a new in-memory write buffer.
func (s *Store) OpenTransaction(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn := uuid.New().String()
	s.txs[txn] = nil
	return txn, nil
}

// ReadObject returns txn's own uncommitted write for objectID if one is
// staged, otherwise the latest committed version (spec.md §6 "Read
// isolation: a transaction sees its own uncommitted writes and the latest
// committed versions otherwise").
func (s *Store) ReadObject(_ context.Context, txn, objectID string) (storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if writes, ok := s.txs[txn]; ok {
		for i := len(writes) - 1; i >= 0; i-- {
			if writes[i].objectID == objectID {
				return storage.Object{Bytes: writes[i].data, Version: "uncommitted"}, nil
			}
		}
	}
	headKey := []byte(prefixHead + objectID)
	version, err := s.db.Get(headKey, nil)
	if err != nil {
		return storage.Object{}, fmt.Errorf("journal: no committed version for %s: %w", objectID, err)
	}
	data, err := s.db.Get([]byte(prefixObject+objectID+"|"+string(version)), nil)
	if err != nil {
		return storage.Object{}, fmt.Errorf("journal: read object %s: %w", objectID, err)
	}
	return storage.Object{Bytes: data, Version: string(version)}, nil
}

// WriteObject stages data for objectID within txn; nothing is written to
// the database until Commit.
func (s *Store) WriteObject(_ context.Context, txn, objectID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txs[txn]; !ok {
		return fmt.Errorf("journal: unknown transaction %s", txn)
	}
	cp := append([]byte(nil), data...)
	s.txs[txn] = append(s.txs[txn], pendingWrite{objectID: objectID, data: cp})
	return nil
}

// Commit applies every staged write in txn as a single LevelDB batch, each
// write minting a fresh VersionId and updating the object's HEAD pointer.
func (s *Store) Commit(_ context.Context, txn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	writes, ok := s.txs[txn]
	if !ok {
		return fmt.Errorf("journal: unknown transaction %s", txn)
	}
	batch := new(leveldb.Batch)
	for _, w := range writes {
		version := uuid.New().String()
		batch.Put([]byte(prefixObject+w.objectID+"|"+version), w.data)
		batch.Put([]byte(prefixHead+w.objectID), []byte(version))
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("journal: commit %s: %w", txn, err)
	}
	delete(s.txs, txn)
	return nil
}

// Rollback discards every staged write in txn without touching the
// database.
func (s *Store) Rollback(_ context.Context, txn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.txs, txn)
	return nil
}

// ResolvePath looks up name within dirView's link index.
func (s *Store) ResolvePath(_ context.Context, dirView, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.db.Get([]byte(linkKey(dirView, name)), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("journal: resolve %s/%s: %w", dirView, name, err)
	}
	return string(data), true, nil
}

// Link records name -> objectID within dirView, committed immediately
// (directory links are not part of the read/write/commit transaction model
// in this implementation; spec.md only requires that resolve_path observe
// a prior link).
func (s *Store) Link(_ context.Context, dirView, name, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put([]byte(linkKey(dirView, name)), []byte(objectID), nil); err != nil {
		return fmt.Errorf("journal: link %s/%s: %w", dirView, name, err)
	}
	return nil
}

func linkKey(dirView, name string) string {
	return prefixLink + dirView + "|" + name
}

// ListDir returns every name linked under dirView, used by FilePicker
// component bodies to populate their entry list.
func (s *Store) ListDir(dirView string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := prefixLink + dirView + "|"
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()
	var names []string
	for iter.Next() {
		names = append(names, string(iter.Key()[len(prefix):]))
	}
	return names, iter.Error()
}
