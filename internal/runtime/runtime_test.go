package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/component"
	"github.com/capsule-systems/capsule/internal/config"
	"github.com/capsule-systems/capsule/internal/inputfocus"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/platform/hosted"
	"github.com/capsule-systems/capsule/internal/policy"
	"github.com/capsule-systems/capsule/internal/scheduler"
	"github.com/capsule-systems/capsule/internal/storage/journal"
	"github.com/capsule-systems/capsule/internal/viewhost"
	"github.com/capsule-systems/capsule/internal/workspace"
)

func newTestRuntime(t *testing.T) (*Runtime, *hosted.Input, *hosted.Display, *audit.Log) {
	t.Helper()
	log := audit.NewLog()
	sched := scheduler.New(10, log)
	k := kernel.New(sched, policy.AllowAll, log)
	views := viewhost.New(log, nil)
	input := inputfocus.New(k, policy.AllowAll, log, nil)
	store, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ws := workspace.New(k, views, input, policy.AllowAll, log, store, nil)
	hin := hosted.NewInput()
	hdisp := hosted.NewDisplay()
	htick := hosted.NewTick()
	return New(ws, hdisp, hin, htick), hin, hdisp, log
}

func TestStep_RendersTypedTextAfterInput(t *testing.T) {
	rt, hin, hdisp, _ := newTestRuntime(t)
	doc := "note.txt"
	id, err := rt.Workspace().Launch(workspace.LaunchConfig{
		Type: component.TypeEditor, Name: "note.txt", Domain: kernel.DomainUser,
		Budget: kernel.Unlimited(), StorageAttached: true, DocumentPath: &doc,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Workspace().Focus(id))

	hin.Push(inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, Text: "h"})
	hin.Push(inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, Text: "i"})

	require.NoError(t, rt.Step(1))

	line, ok := hdisp.Line(0)
	require.True(t, ok)
	assert.Equal(t, "hi", line)
	assert.Equal(t, 1, hdisp.PresentCount)
}

func TestStep_RerenderIsNoopWhenFrameUnchanged(t *testing.T) {
	rt, hin, hdisp, _ := newTestRuntime(t)
	doc := "note.txt"
	id, err := rt.Workspace().Launch(workspace.LaunchConfig{
		Type: component.TypeEditor, Name: "note.txt", Domain: kernel.DomainUser,
		Budget: kernel.Unlimited(), StorageAttached: true, DocumentPath: &doc,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Workspace().Focus(id))

	hin.Push(inputfocus.KeyEvent{Kind: inputfocus.KeyPressed, Text: "x"})
	require.NoError(t, rt.Step(1))
	writesAfterFirst := len(hdisp.WriteLog)
	require.NoError(t, rt.Step(1))

	assert.Equal(t, writesAfterFirst, len(hdisp.WriteLog), "an unchanged frame redraws no main lines")
	assert.Equal(t, 2, hdisp.PresentCount)
}

func TestApplyBootProfile_Editor(t *testing.T) {
	rt, _, _, _ := newTestRuntime(t)
	cfg := config.Config{BootProfile: config.ProfileEditor}
	require.NoError(t, ApplyBootProfile(rt.Workspace(), cfg))

	snap := rt.Workspace().RenderSnapshot()
	require.NotNil(t, snap.FocusedID)
	assert.Equal(t, 1, snap.ComponentCounts[component.TypeEditor])
}

func TestApplyBootProfile_Kiosk(t *testing.T) {
	rt, _, _, _ := newTestRuntime(t)
	cfg := config.Config{BootProfile: config.ProfileKiosk, KioskTag: "dash"}
	require.NoError(t, ApplyBootProfile(rt.Workspace(), cfg))

	snap := rt.Workspace().RenderSnapshot()
	assert.Nil(t, snap.FocusedID)
	assert.Equal(t, 1, snap.ComponentCounts[component.TypeCustom])
}

func TestApplyBootProfile_WorkspaceLaunchesNothing(t *testing.T) {
	rt, _, _, _ := newTestRuntime(t)
	cfg := config.Config{BootProfile: config.ProfileWorkspace}
	require.NoError(t, ApplyBootProfile(rt.Workspace(), cfg))

	snap := rt.Workspace().RenderSnapshot()
	assert.Equal(t, 0, len(snap.ComponentCounts))
}
