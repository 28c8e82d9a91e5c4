package workspace

import (
	"testing"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/component"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCommand_OpenListFocusClose(t *testing.T) {
	w, log := newWorkspace(t)

	out, err := w.ExecuteCommand("open cli")
	require.NoError(t, err)
	assert.Contains(t, out, "opened cli")

	out, err = w.ExecuteCommand("list")
	require.NoError(t, err)
	assert.Contains(t, out, "Cli")

	id, err := w.Launch(LaunchConfig{Type: component.TypeCli, Domain: kernel.DomainUser, Budget: kernel.Unlimited()})
	require.NoError(t, err)

	out, err = w.ExecuteCommand("focus " + id.String())
	require.NoError(t, err)
	assert.Contains(t, out, id.String())

	out, err = w.ExecuteCommand("status " + id.String())
	require.NoError(t, err)
	assert.Contains(t, out, "state=Running")

	out, err = w.ExecuteCommand("close " + id.String())
	require.NoError(t, err)
	assert.Contains(t, out, "closed")

	comp, ok := w.Component(id)
	require.True(t, ok)
	assert.Equal(t, component.StateCancelled, comp.State)

	assert.Greater(t, audit.CountByKind(log.Events(), audit.KindCommandExecuted), 0)
}

func TestExecuteCommand_UnknownVerbFails(t *testing.T) {
	w, _ := newWorkspace(t)
	_, err := w.ExecuteCommand("frobnicate")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecuteCommand_SaveRequiresFocusedEditor(t *testing.T) {
	w, _ := newWorkspace(t)
	id, err := w.Launch(LaunchConfig{Type: component.TypeCli, Domain: kernel.DomainUser, Budget: kernel.Unlimited()})
	require.NoError(t, err)
	require.NoError(t, w.Focus(id))

	_, err = w.ExecuteCommand("save")
	assert.ErrorIs(t, err, component.ErrNotSupported)
}

func TestExecuteCommand_SaveOnFocusedEditorSucceeds(t *testing.T) {
	w, _ := newWorkspace(t)
	doc := "a.txt"
	id, err := w.Launch(LaunchConfig{
		Type: component.TypeEditor, Name: "a.txt", Domain: kernel.DomainUser,
		Budget: kernel.Unlimited(), StorageAttached: true, DocumentPath: &doc,
	})
	require.NoError(t, err)
	require.NoError(t, w.Focus(id))

	out, err := w.ExecuteCommand("save")
	require.NoError(t, err)
	assert.Contains(t, out, "saved")
}

func TestExecuteCommand_Palette_AppendsPreviewEntries(t *testing.T) {
	w, _ := newWorkspace(t)
	out, err := w.ExecuteCommand("cmd")
	require.NoError(t, err)
	assert.Contains(t, out, "open")
	assert.LessOrEqual(t, len(out), 4096)
}

func TestExecuteCommand_OpenFilePickerWithoutRootFails(t *testing.T) {
	w, _ := newWorkspace(t)
	// newWorkspace attaches a real journal store, so force the missing-root
	// failure path instead (storage is attached but no directory was given).
	_, err := w.ExecuteCommand("open file-picker")
	assert.Error(t, err)
}
