// Package settings implements the keyed typed settings map of spec.md §6
// ("Settings persistence layout"): values are one of
// {bool, int, float, string, string_list}, persisted transactionally at a
// canonical object path through a storage.Collaborator.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/klog"
	"github.com/capsule-systems/capsule/internal/storage"
)

// canonicalObjectID is the fixed object the settings map is stored under;
// there is exactly one settings document per workspace.
const canonicalObjectID = "workspace-settings"

// Kind identifies which of the five value shapes a Value holds.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindStringList
)

// Value is one typed settings entry. Exactly one field is meaningful,
// selected by Kind.
type Value struct {
	Kind       Kind
	Bool       bool
	Int        int64
	Float      float64
	String     string
	StringList []string
}

// Map is the override map: setting name -> typed value.
type Map map[string]Value

// wireEntry is the on-disk shape of one Value, used only for JSON
// marshaling so malformed entries can be skipped individually rather than
// failing the whole document (spec.md §4.5 "corruption-safe import").
type wireEntry struct {
	Kind       string   `json:"kind"`
	Bool       bool     `json:"bool,omitempty"`
	Int        int64    `json:"int,omitempty"`
	Float      float64  `json:"float,omitempty"`
	String     string   `json:"string,omitempty"`
	StringList []string `json:"string_list,omitempty"`
}

var kindNames = map[Kind]string{
	KindBool:       "bool",
	KindInt:        "int",
	KindFloat:      "float",
	KindString:     "string",
	KindStringList: "string_list",
}

var nameKinds = map[string]Kind{
	"bool":        KindBool,
	"int":         KindInt,
	"float":       KindFloat,
	"string":      KindString,
	"string_list": KindStringList,
}

func toWire(v Value) wireEntry {
	w := wireEntry{Kind: kindNames[v.Kind]}
	switch v.Kind {
	case KindBool:
		w.Bool = v.Bool
	case KindInt:
		w.Int = v.Int
	case KindFloat:
		w.Float = v.Float
	case KindString:
		w.String = v.String
	case KindStringList:
		w.StringList = v.StringList
	}
	return w
}

// fromWire converts w into a Value, reporting ok=false for an entry this
// version of the format doesn't recognize (an unknown Kind string).
func fromWire(w wireEntry) (Value, bool) {
	kind, ok := nameKinds[w.Kind]
	if !ok {
		return Value{}, false
	}
	v := Value{Kind: kind}
	switch kind {
	case KindBool:
		v.Bool = w.Bool
	case KindInt:
		v.Int = w.Int
	case KindFloat:
		v.Float = w.Float
	case KindString:
		v.String = w.String
	case KindStringList:
		v.StringList = w.StringList
	}
	return v, true
}

var log = klog.Component("settings")

// Save serializes m and transactionally writes it to the canonical object
// path via collab. Reports ErrStorageUnavailable if collab is nil (no
// storage context attached to the workspace).
func Save(ctx context.Context, collab storage.Collaborator, m Map) error {
	if collab == nil {
		return fmt.Errorf("settings: save: %w", errs.ErrStorageUnavailable)
	}
	wire := make(map[string]wireEntry, len(m))
	for k, v := range m {
		wire[k] = toWire(v)
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	txn, err := collab.OpenTransaction(ctx)
	if err != nil {
		return fmt.Errorf("settings: open transaction: %w", err)
	}
	if err := collab.WriteObject(ctx, txn, canonicalObjectID, data); err != nil {
		_ = collab.Rollback(ctx, txn)
		return fmt.Errorf("settings: write: %w", err)
	}
	if err := collab.Commit(ctx, txn); err != nil {
		return fmt.Errorf("settings: commit: %w", err)
	}
	return nil
}

// Load reads the canonical settings object transactionally via collab and
// decodes it entry-by-entry, silently discarding any entry whose shape it
// doesn't recognize rather than failing the whole load (spec.md §4.5). A
// missing object or malformed top-level JSON both yield an empty Map, not
// an error: settings are always allowed to start from defaults.
func Load(ctx context.Context, collab storage.Collaborator) (Map, error) {
	if collab == nil {
		return nil, fmt.Errorf("settings: load: %w", errs.ErrStorageUnavailable)
	}
	txn, err := collab.OpenTransaction(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings: open transaction: %w", err)
	}
	obj, err := collab.ReadObject(ctx, txn, canonicalObjectID)
	if err != nil {
		_ = collab.Rollback(ctx, txn)
		return Map{}, nil
	}
	_ = collab.Rollback(ctx, txn)

	var wire map[string]wireEntry
	if err := json.Unmarshal(obj.Bytes, &wire); err != nil {
		log.Warn().Err(err).Msg("settings document corrupt, discarding")
		return Map{}, nil
	}
	m := make(Map, len(wire))
	for key, w := range wire {
		v, ok := fromWire(w)
		if !ok {
			log.Warn().Str("key", key).Str("kind", w.Kind).Msg("settings entry unrecognized, discarding")
			continue
		}
		m[key] = v
	}
	return m, nil
}
