package inputfocus

import (
	"errors"
	"testing"

	"github.com/capsule-systems/capsule/internal/audit"
	"github.com/capsule-systems/capsule/internal/errs"
	"github.com/capsule-systems/capsule/internal/ids"
	"github.com/capsule-systems/capsule/internal/kernel"
	"github.com/capsule-systems/capsule/internal/policy"
	"github.com/capsule-systems/capsule/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *kernel.Kernel, ids.ExecutionId) {
	k := kernel.New(scheduler.New(10, nil), policy.AllowAll, audit.NewLog())
	_, execID, _ := k.Spawn(kernel.DomainSystem, kernel.SpawnDescriptor{Kind: kernel.KindTask, Domain: kernel.DomainUser, Budget: kernel.Unlimited()})
	return New(k, policy.AllowAll, nil, nil), k, execID
}

func TestSubscribeAndDeliver(t *testing.T) {
	s, _, execID := newService()
	task := ids.NewTaskId()
	cap := s.SubscribeKeyboard(task, ids.NewChannelId(), true)

	ok := s.Deliver(execID, cap, KeyEvent{Kind: KeyPressed, KeyCode: "H"})
	assert.True(t, ok)
}

func TestSubscribeKeyboard_SecondCallRevokesFirst(t *testing.T) {
	s, _, execID := newService()
	task := ids.NewTaskId()
	first := s.SubscribeKeyboard(task, ids.NewChannelId(), true)
	second := s.SubscribeKeyboard(task, ids.NewChannelId(), true)

	assert.False(t, s.Deliver(execID, first, KeyEvent{}), "stale subscription for the same task is revoked")
	assert.True(t, s.Deliver(execID, second, KeyEvent{}))
}

func TestRequestFocus_PushesAndRoutes(t *testing.T) {
	s, _, _ := newService()
	task := ids.NewTaskId()
	cap := s.SubscribeKeyboard(task, ids.NewChannelId(), true)

	require.NoError(t, s.RequestFocus("User", "User", cap))
	top, ok := s.Route()
	require.True(t, ok)
	assert.Equal(t, cap.ID(), top.ID())
}

func TestRequestFocus_RejectsNonFocusable(t *testing.T) {
	s, _, _ := newService()
	task := ids.NewTaskId()
	cap := s.SubscribeKeyboard(task, ids.NewChannelId(), false)

	err := s.RequestFocus("User", "User", cap)
	assert.ErrorIs(t, err, errs.ErrInsufficientAuthority)
}

func TestRequestFocus_DeniedByPolicy(t *testing.T) {
	k := kernel.New(scheduler.New(10, nil), policy.AllowAll, audit.NewLog())
	deny := policy.EngineFunc(func(policy.Context) policy.Decision { return policy.Deny("cross-domain") })
	s := New(k, deny, nil, nil)
	cap := s.SubscribeKeyboard(ids.NewTaskId(), ids.NewChannelId(), true)

	err := s.RequestFocus("Sandbox", "System", cap)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrPolicyDenied))
}

func TestFocusTransfer_PushThenPush_OnlyOneOnTop(t *testing.T) {
	s, _, _ := newService()
	capA := s.SubscribeKeyboard(ids.NewTaskId(), ids.NewChannelId(), true)
	capB := s.SubscribeKeyboard(ids.NewTaskId(), ids.NewChannelId(), true)

	require.NoError(t, s.RequestFocus("User", "User", capA))
	require.NoError(t, s.RequestFocus("User", "User", capB))

	top, _ := s.Route()
	assert.Equal(t, capB.ID(), top.ID())
	assert.Equal(t, 2, s.StackDepth())
}

func TestReleaseFocus_EmptyStackIsNoOp(t *testing.T) {
	s, _, _ := newService()
	s.ReleaseFocus()
	_, ok := s.Route()
	assert.False(t, ok)
}

func TestRemoveSubscription_IdempotentAndSelfHealing(t *testing.T) {
	s, _, _ := newService()
	cap := s.SubscribeKeyboard(ids.NewTaskId(), ids.NewChannelId(), true)
	require.NoError(t, s.RequestFocus("User", "User", cap))

	s.RemoveSubscription(cap)
	s.RemoveSubscription(cap) // idempotent

	_, ok := s.Route()
	assert.False(t, ok, "focus stack self-heals when the top subscription is removed")
}

func TestDeliver_InactiveSubscriptionReturnsFalse(t *testing.T) {
	s, _, execID := newService()
	cap := s.SubscribeKeyboard(ids.NewTaskId(), ids.NewChannelId(), true)
	s.Revoke(cap)
	assert.False(t, s.Deliver(execID, cap, KeyEvent{}))
}
