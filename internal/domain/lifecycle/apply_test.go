package lifecycle

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func TestApply_LeaveApprovedThenRejected(t *testing.T) {
	req := newLeaveRequest(t)
	require.Equal(t, []workflow.Role{
		workflow.RoleOpsSupervisor, workflow.RoleMovementManager, workflow.RoleHR, workflow.RoleGeneralManager,
	}, req.Workflow)

	out := apply(t, req, workflow.TriggerApprove, role(workflow.RoleOpsSupervisor), Payload{}, t0.Add(time.Hour))
	approved := out.Updated
	assert.Equal(t, 1, approved.CurrentStageIndex)
	assert.Equal(t, workflow.StatePendingApproval, approved.Status)
	require.Len(t, approved.History, 2)
	assert.Equal(t, entity.ActionApproved, approved.History[1].Action)
	assert.Nil(t, out.FollowUp)

	assert.Equal(t, 0, req.CurrentStageIndex, "input must not be modified")
	assert.Len(t, req.History, 1)

	out = apply(t, approved, workflow.TriggerReject, role(workflow.RoleMovementManager), Payload{Comment: "insufficient notice"}, t0.Add(2*time.Hour))
	rejected := out.Updated
	assert.Equal(t, workflow.StateRejected, rejected.Status)
	assert.Equal(t, 1, rejected.CurrentStageIndex)
	require.Len(t, rejected.History, 3)
	assert.Equal(t, "insufficient notice", rejected.History[2].Comment)
	assert.Equal(t, t0.Add(2*time.Hour), rejected.LastActionAt)
}

func TestApply_ResolveAndDirect(t *testing.T) {
	req := newInternalRequest(t, workflow.RoleMovementManager, workflow.RoleGeneralManager)
	now := t0.Add(3 * time.Hour)

	out, err := Apply(context.Background(), req, Input{
		Trigger:   workflow.TriggerResolveAndDirect,
		Actor:     role(workflow.RoleGeneralManager),
		ActorName: "Khalid",
		Payload:   Payload{Comment: "reassign for review", TargetRole: workflow.RoleHR},
		Now:       now,
	})
	require.NoError(t, err)

	assert.Equal(t, workflow.StateCompleted, out.Updated.Status)
	last := out.Updated.History[len(out.Updated.History)-1]
	assert.Equal(t, entity.ActionResolvedAndDirected, last.Action)
	require.NotNil(t, last.DirectedTo)
	assert.Equal(t, workflow.RoleHR, *last.DirectedTo)

	follow := out.FollowUp
	require.NotNil(t, follow)
	assert.Equal(t, workflow.TypeInternal, follow.Type)
	assert.Equal(t, []workflow.Role{workflow.RoleHR}, follow.Workflow)
	assert.Equal(t, workflow.StatePendingApproval, follow.Status)
	assert.Equal(t, workflow.RoleGeneralManager, follow.FromRole)
	assert.Equal(t, "Directed from D01", follow.Title)
	assert.Equal(t, "Directive: reassign for review\n\nOriginal request D01: Q3 numbers attached", follow.Description)
	assert.Equal(t, "budget.xlsx", follow.Attachment)
	require.Len(t, follow.History, 1)
	assert.Equal(t, entity.ActionCreated, follow.History[0].Action)
	assert.Equal(t, "Khalid", follow.History[0].ActorName)
	assert.Zero(t, follow.ID)
	assert.Empty(t, follow.RequestNumber)
	assert.Equal(t, now, follow.CreatedAt)
}

func TestApply_DirectiveReply(t *testing.T) {
	req := newDirective(t, 42)
	out := apply(t, req, workflow.TriggerReply, entity.DelegateActor(42), Payload{Comment: "done"}, t0.Add(2*time.Hour))

	assert.Equal(t, workflow.StateCompleted, out.Updated.Status)
	require.NotNil(t, out.Updated.DirectiveResponse)
	assert.Equal(t, entity.DirectiveResponse{Comment: "done"}, *out.Updated.DirectiveResponse)
	assert.Equal(t, entity.ActionDirectiveReplied, out.Updated.History[len(out.Updated.History)-1].Action)
}

func TestApply_FinalStageApproval(t *testing.T) {
	req := newInternalRequest(t, workflow.RoleHR, workflow.RoleFinance)
	out := apply(t, req, workflow.TriggerApprove, role(workflow.RoleFinance), Payload{}, t0)

	assert.Equal(t, workflow.StateApproved, out.Updated.Status)
	assert.Equal(t, len(req.Workflow), out.Updated.CurrentStageIndex)
	_, holds := out.Updated.CurrentHolder()
	assert.False(t, holds)
}

func TestApply_CommentAndView(t *testing.T) {
	req := newLeaveRequest(t)
	out := apply(t, req, workflow.TriggerComment, role(workflow.RoleOpsSupervisor), Payload{Comment: "checking roster"}, t0)
	assert.Equal(t, workflow.StatePendingApproval, out.Updated.Status)
	assert.Equal(t, 0, out.Updated.CurrentStageIndex)
	assert.Equal(t, entity.ActionCommented, out.Updated.History[1].Action)

	directive := newDirective(t, 5)
	viewed := apply(t, directive, workflow.TriggerViewDirective, entity.DelegateActor(5), Payload{}, t0).Updated
	assert.Equal(t, workflow.StatePendingApproval, viewed.Status)
	assert.True(t, viewed.HasAction(entity.ActionDirectiveViewed))

	_, err := Apply(context.Background(), viewed, Input{Trigger: workflow.TriggerViewDirective, Actor: entity.DelegateActor(5), Now: t0})
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	replied := apply(t, viewed, workflow.TriggerReply, entity.DelegateActor(5), Payload{Comment: "ok"}, t0)
	assert.Equal(t, workflow.StateCompleted, replied.Updated.Status)
}

func TestApply_Rejections(t *testing.T) {
	leave := newLeaveRequest(t)
	internal := newInternalRequest(t, workflow.RoleHR, workflow.RoleGeneralManager)
	directive := newDirective(t, 42)
	closed := apply(t, internal, workflow.TriggerResolveAndClose, role(workflow.RoleGeneralManager), Payload{}, t0).Updated
	corrupt := leave.Clone()
	corrupt.Status = "OPEN"

	tests := []struct {
		name    string
		req     *entity.Request
		input   Input
		wantErr error
	}{
		{"nil request", nil, Input{Trigger: workflow.TriggerApprove, Actor: role(workflow.RoleHR)}, workflow.ErrNotFound},
		{"unknown trigger", leave, Input{Trigger: "CANCEL", Actor: role(workflow.RoleOpsSupervisor)}, workflow.ErrValidation},
		{"malformed actor", leave, Input{Trigger: workflow.TriggerApprove, Actor: entity.Actor{Kind: "Robot"}}, workflow.ErrValidation},
		{"unknown status", corrupt, Input{Trigger: workflow.TriggerApprove, Actor: role(workflow.RoleOpsSupervisor)}, workflow.ErrInvalidState},
		{"closed request", closed, Input{Trigger: workflow.TriggerComment, Actor: role(workflow.RoleGeneralManager), Payload: Payload{Comment: "x"}}, workflow.ErrTerminal},
		{"not the holder", leave, Input{Trigger: workflow.TriggerApprove, Actor: role(workflow.RoleHR)}, workflow.ErrUnauthorized},
		{"delegate on staged request", leave, Input{Trigger: workflow.TriggerApprove, Actor: entity.DelegateActor(7)}, workflow.ErrUnauthorized},
		{"system actor", leave, Input{Trigger: workflow.TriggerApprove, Actor: entity.SystemActor()}, workflow.ErrUnauthorized},
		{"reject without comment", leave, Input{Trigger: workflow.TriggerReject, Actor: role(workflow.RoleOpsSupervisor), Payload: Payload{Comment: "   "}}, workflow.ErrValidation},
		{"blank comment", leave, Input{Trigger: workflow.TriggerComment, Actor: role(workflow.RoleOpsSupervisor)}, workflow.ErrValidation},
		{"direct by non-GM", leave, Input{Trigger: workflow.TriggerResolveAndDirect, Actor: role(workflow.RoleOpsSupervisor), Payload: Payload{Comment: "x", TargetRole: workflow.RoleHR}}, workflow.ErrUnauthorized},
		{"direct without target", internal, Input{Trigger: workflow.TriggerResolveAndDirect, Actor: role(workflow.RoleGeneralManager), Payload: Payload{Comment: "x"}}, workflow.ErrValidation},
		{"direct to unknown role", internal, Input{Trigger: workflow.TriggerResolveAndDirect, Actor: role(workflow.RoleGeneralManager), Payload: Payload{Comment: "x", TargetRole: "Janitor"}}, workflow.ErrValidation},
		{"direct without comment", internal, Input{Trigger: workflow.TriggerResolveAndDirect, Actor: role(workflow.RoleGeneralManager), Payload: Payload{TargetRole: workflow.RoleHR}}, workflow.ErrValidation},
		{"reply on staged request", leave, Input{Trigger: workflow.TriggerReply, Actor: role(workflow.RoleOpsSupervisor), Payload: Payload{Comment: "x"}}, workflow.ErrInvalidTransition},
		{"approve a directive", directive, Input{Trigger: workflow.TriggerApprove, Actor: role(workflow.RoleOpsSupervisor)}, workflow.ErrInvalidTransition},
		{"reply by another delegate", directive, Input{Trigger: workflow.TriggerReply, Actor: entity.DelegateActor(43), Payload: Payload{Comment: "x"}}, workflow.ErrUnauthorized},
		{"reply by issuer", directive, Input{Trigger: workflow.TriggerReply, Actor: role(workflow.RoleOpsSupervisor), Payload: Payload{Comment: "x"}}, workflow.ErrUnauthorized},
		{"reply without comment", directive, Input{Trigger: workflow.TriggerReply, Actor: entity.DelegateActor(42)}, workflow.ErrValidation},
		{"reply after expiry", directive, Input{Trigger: workflow.TriggerReply, Actor: entity.DelegateActor(42), Payload: Payload{Comment: "x"}, Now: t0.Add(73 * time.Hour)}, workflow.ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before *entity.Request
			if tt.req != nil {
				before = tt.req.Clone()
			}
			if tt.input.Now.IsZero() {
				tt.input.Now = t0.Add(time.Hour)
			}

			out, err := Apply(context.Background(), tt.req, tt.input)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.req != nil {
				assert.Equal(t, before, tt.req, "request must be unchanged")
			}
		})
	}
}

func TestApply_ViewAfterExpiryIsAllowed(t *testing.T) {
	directive := newDirective(t, 42)
	out := apply(t, directive, workflow.TriggerViewDirective, entity.DelegateActor(42), Payload{}, t0.Add(100*time.Hour))
	assert.Equal(t, workflow.StatePendingApproval, out.Updated.Status)
}

// TestApply_Invariants drives random action sequences and checks the ledger
// and index invariants after every step.
func TestApply_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	triggers := []workflow.Trigger{
		workflow.TriggerApprove, workflow.TriggerApprove, workflow.TriggerApprove,
		workflow.TriggerReject, workflow.TriggerResolveAndClose, workflow.TriggerResolveAndDirect,
		workflow.TriggerComment, workflow.TriggerReply, workflow.TriggerViewDirective,
	}
	topics := []workflow.Topic{
		workflow.TopicLeave, workflow.TopicFinancial, workflow.TopicClearance,
		workflow.TopicConfidentialComplaint, workflow.TopicContactSupervisor, workflow.TopicOther,
	}

	for run := 0; run < 200; run++ {
		req, err := NewRequest(NewRequestInput{
			Type:           workflow.TypeEmployee,
			Topic:          topics[rng.Intn(len(topics))],
			FromDelegateID: int64p(9),
		}, t0)
		require.NoError(t, err)

		now := t0
		for step := 0; step < 12; step++ {
			now = now.Add(time.Minute)
			actor := role(workflow.Roles[rng.Intn(len(workflow.Roles))])
			if holder, ok := req.CurrentHolder(); ok && rng.Intn(3) > 0 {
				actor = role(holder)
			}

			trigger := triggers[rng.Intn(len(triggers))]
			before := req.Clone()
			out, err := Apply(context.Background(), req, Input{
				Trigger: trigger,
				Actor:   actor,
				Payload: Payload{Comment: "note", TargetRole: workflow.RoleLegal},
				Now:     now,
			})

			if err != nil {
				require.Equal(t, before, req)
				if before.Status.IsTerminal() {
					require.ErrorIs(t, err, workflow.ErrTerminal)
				}
				continue
			}

			require.False(t, before.Status.IsTerminal(), "terminal requests accept nothing")
			next := out.Updated
			require.Len(t, next.History, len(before.History)+1)
			require.GreaterOrEqual(t, next.CurrentStageIndex, 0)
			require.LessOrEqual(t, next.CurrentStageIndex, len(next.Workflow))
			if next.CurrentStageIndex == len(next.Workflow) {
				require.Equal(t, workflow.StateApproved, next.Status)
			}
			if out.FollowUp != nil {
				require.Len(t, out.FollowUp.History, 1)
			}
			req = next
		}
	}
}
