package settings

import (
	"context"
	"testing"

	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/storage/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollab(t *testing.T) *journal.Store {
	t.Helper()
	s, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	collab := newCollab(t)
	ctx := context.Background()

	m := Map{
		"wrap_lines":   Value{Kind: KindBool, Bool: true},
		"tab_width":    Value{Kind: KindInt, Int: 4},
		"zoom":         Value{Kind: KindFloat, Float: 1.5},
		"theme":        Value{Kind: KindString, String: "solarized"},
		"recent_files": Value{Kind: KindStringList, StringList: []string{"a.txt", "b.txt"}},
	}

	require.NoError(t, Save(ctx, collab, m))
	got, err := Load(ctx, collab)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestLoad_NoPriorSaveYieldsEmptyMap(t *testing.T) {
	collab := newCollab(t)
	got, err := Load(context.Background(), collab)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_CorruptedBytesYieldsEmptyMapNotError(t *testing.T) {
	collab := newCollab(t)
	ctx := context.Background()

	txn, err := collab.OpenTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, collab.WriteObject(ctx, txn, canonicalObjectID, []byte("not json at all {{{")))
	require.NoError(t, collab.Commit(ctx, txn))

	got, err := Load(ctx, collab)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_DiscardsUnrecognizedEntriesKeepsRest(t *testing.T) {
	collab := newCollab(t)
	ctx := context.Background()

	raw := []byte(`{"good":{"kind":"bool","bool":true},"bad":{"kind":"unknown_kind"}}`)
	txn, err := collab.OpenTransaction(ctx)
	require.NoError(t, err)
	require.NoError(t, collab.WriteObject(ctx, txn, canonicalObjectID, raw))
	require.NoError(t, collab.Commit(ctx, txn))

	got, err := Load(ctx, collab)
	require.NoError(t, err)
	assert.Equal(t, Map{"good": Value{Kind: KindBool, Bool: true}}, got)
}

func TestSave_NilCollaboratorReportsStorageUnavailable(t *testing.T) {
	err := Save(context.Background(), nil, Map{})
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
}

func TestLoad_NilCollaboratorReportsStorageUnavailable(t *testing.T) {
	_, err := Load(context.Background(), nil)
	assert.ErrorIs(t, err, errs.ErrStorageUnavailable)
}
