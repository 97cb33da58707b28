package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePendingApproval, false},
		{StateApproved, true},
		{StateRejected, true},
		{StateCompleted, true},
		{StateCancelled, true},
		{State("OPEN"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.state.IsTerminal())
		})
	}
}

func TestState_IsValid(t *testing.T) {
	assert.True(t, StatePendingApproval.IsValid())
	assert.True(t, StateCancelled.IsValid())
	assert.False(t, State("").IsValid())
	assert.False(t, State("pending_approval").IsValid())
}

func TestTrigger(t *testing.T) {
	assert.Equal(t, "RESOLVE_AND_DIRECT", TriggerResolveAndDirect.String())
	assert.True(t, TriggerComment.IsValid())
	assert.False(t, Trigger("CANCEL").IsValid())

	assert.True(t, TriggerReply.IsDirectiveTrigger())
	assert.True(t, TriggerViewDirective.IsDirectiveTrigger())
	assert.False(t, TriggerApprove.IsDirectiveTrigger())
}

func TestBuilder_PanicsOnBadConfiguration(t *testing.T) {
	t.Run("invalid source", func(t *testing.T) {
		assert.Panics(t, func() { NewBuilder().Configure(State("NOPE")) })
	})

	t.Run("invalid target", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().Configure(StatePendingApproval).Permit(TriggerApprove, State("NOPE"))
		})
	})

	t.Run("transition out of a terminal state", func(t *testing.T) {
		assert.Panics(t, func() {
			NewBuilder().Configure(StateCompleted).Permit(TriggerApprove, StatePendingApproval)
		})
	})

	t.Run("invalid initial state", func(t *testing.T) {
		assert.Panics(t, func() { NewBuilder().Build(State("")) })
	})
}

func TestStateMachine_Fire(t *testing.T) {
	ctx := context.Background()

	builder := NewBuilder()
	builder.Configure(StatePendingApproval).
		Permit(TriggerReject, StateRejected).
		PermitIf(TriggerApprove, StateApproved, func(context.Context) bool { return false }).
		PermitIf(TriggerApprove, StatePendingApproval, func(context.Context) bool { return true })

	t.Run("unguarded transition", func(t *testing.T) {
		m := builder.Build(StatePendingApproval)
		require.NoError(t, m.Fire(ctx, TriggerReject))
		assert.Equal(t, StateRejected, m.State())
	})

	t.Run("first passing guard wins", func(t *testing.T) {
		m := builder.Build(StatePendingApproval)
		require.NoError(t, m.Fire(ctx, TriggerApprove))
		assert.Equal(t, StatePendingApproval, m.State())
	})

	t.Run("unconfigured trigger", func(t *testing.T) {
		m := builder.Build(StatePendingApproval)
		err := m.Fire(ctx, TriggerReply)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
		assert.Equal(t, StatePendingApproval, m.State())
	})

	t.Run("terminal state has no transitions", func(t *testing.T) {
		m := builder.Build(StateRejected)
		assert.ErrorIs(t, m.Fire(ctx, TriggerReject), ErrInvalidTransition)
		assert.Empty(t, m.PermittedTriggers())
	})

	t.Run("all guards fail", func(t *testing.T) {
		b := NewBuilder()
		b.Configure(StatePendingApproval).
			PermitIf(TriggerReply, StateCompleted, func(context.Context) bool { return false })
		m := b.Build(StatePendingApproval)

		assert.True(t, m.CanFire(TriggerReply), "CanFire ignores guards")
		assert.ErrorIs(t, m.Fire(ctx, TriggerReply), ErrGuardFailed)
	})
}

func TestStateMachine_PermittedTriggersSorted(t *testing.T) {
	b := NewBuilder()
	b.Configure(StatePendingApproval).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerComment, StatePendingApproval)

	m := b.Build(StatePendingApproval)
	assert.Equal(t, []Trigger{TriggerApprove, TriggerComment, TriggerReject}, m.PermittedTriggers())
	assert.False(t, m.CanFire(TriggerReply))
}

func TestBuilder_BuildIsolatesMachines(t *testing.T) {
	b := NewBuilder()
	b.Configure(StatePendingApproval).Permit(TriggerReject, StateRejected)
	m := b.Build(StatePendingApproval)

	b.Configure(StatePendingApproval).Permit(TriggerApprove, StateApproved)

	assert.False(t, m.CanFire(TriggerApprove))
	assert.True(t, b.Build(StatePendingApproval).CanFire(TriggerApprove))
}

func TestErrors_Wrapping(t *testing.T) {
	assert.ErrorIs(t, ErrTerminal, ErrUnauthorized)
	assert.ErrorIs(t, ErrExpired, ErrUnauthorized)
	assert.NotErrorIs(t, ErrTerminal, ErrExpired)
}
