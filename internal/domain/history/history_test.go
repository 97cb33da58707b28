package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func staged(status workflow.State, events ...entity.HistoryEvent) *entity.Request {
	return &entity.Request{
		Type:     workflow.TypeEmployee,
		Workflow: []workflow.Role{workflow.RoleOpsSupervisor, workflow.RoleMovementManager, workflow.RoleHR},
		Status:   status,
		History:  events,
	}
}

func ev(actor entity.Actor, action entity.HistoryAction) entity.HistoryEvent {
	return entity.HistoryEvent{Actor: actor, Action: action, Timestamp: t0}
}

func TestClosing(t *testing.T) {
	ops := entity.RoleActor(workflow.RoleOpsSupervisor)
	mm := entity.RoleActor(workflow.RoleMovementManager)
	gm := entity.RoleActor(workflow.RoleGeneralManager)

	tests := []struct {
		name      string
		req       *entity.Request
		wantStage int
		wantFound bool
	}{
		{"no closing events", staged(workflow.StateCancelled, ev(entity.DelegateActor(1), entity.ActionCreated)), -1, false},
		{"latest approval", staged(workflow.StateApproved, ev(ops, entity.ActionApproved), ev(mm, entity.ActionApproved)), 1, true},
		{"comments are skipped", staged(workflow.StateRejected, ev(ops, entity.ActionRejected), ev(ops, entity.ActionCommented)), 0, true},
		{"actor outside workflow", staged(workflow.StateCompleted, ev(gm, entity.ActionResolvedAndClosed)), -1, false},
		{"delegates never close", staged(workflow.StateCompleted, ev(entity.DelegateActor(1), entity.ActionResolvedAndClosed)), -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stage, found := Closing(tt.req)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantStage, stage)
		})
	}
}

func TestClosing_Directive(t *testing.T) {
	req := &entity.Request{
		Type:     workflow.TypeDirectDirective,
		Workflow: []workflow.Role{},
		History: []entity.HistoryEvent{
			ev(entity.RoleActor(workflow.RoleHR), entity.ActionCreated),
			ev(entity.DelegateActor(4), entity.ActionDirectiveViewed),
		},
	}
	_, _, found := Closing(req)
	assert.False(t, found)

	reply := ev(entity.DelegateActor(4), entity.ActionDirectiveReplied)
	reply.Comment = "done"
	req.History = append(req.History, reply)

	evt, stage, found := Closing(req)
	assert.True(t, found)
	assert.Equal(t, -1, stage)
	assert.Equal(t, "done", evt.Comment)
}

func TestRenderer_Describe(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	hr := workflow.RoleHR
	directed := entity.HistoryEvent{
		Actor:      entity.RoleActor(workflow.RoleGeneralManager),
		ActorName:  "Khalid",
		Action:     entity.ActionResolvedAndDirected,
		DirectedTo: &hr,
	}

	tests := []struct {
		name string
		evt  entity.HistoryEvent
		lang string
		want string
	}{
		{"named actor", entity.HistoryEvent{Actor: entity.RoleActor(workflow.RoleHR), ActorName: "Huda", Action: entity.ActionApproved}, "en", "Huda approved"},
		{"role fallback", entity.HistoryEvent{Actor: entity.RoleActor(workflow.RoleOpsSupervisor), Action: entity.ActionRejected}, "en", "Operations Supervisor rejected the request"},
		{"delegate fallback", entity.HistoryEvent{Actor: entity.DelegateActor(3), Action: entity.ActionDirectiveReplied}, "en", "Delegate replied to the directive"},
		{"system fallback", entity.HistoryEvent{Actor: entity.SystemActor(), Action: entity.ActionCancelled}, "en", "System cancelled the request"},
		{"directed", directed, "en", "Khalid resolved the request and directed it to Human Resources"},
		{"arabic", directed, "ar", "Khalid عالج الطلب ووجّهه إلى الموارد البشرية"},
		{"arabic region", entity.HistoryEvent{Actor: entity.DelegateActor(3), Action: entity.ActionDirectiveViewed}, "ar-SA", "المندوب اطّلع على التوجيه"},
		{"unknown language falls back to english", entity.HistoryEvent{Actor: entity.RoleActor(workflow.RoleLegal), Action: entity.ActionCommented}, "fr", "Legal added a comment"},
		{"empty language", entity.HistoryEvent{Actor: entity.RoleActor(workflow.RoleFinance), Action: entity.ActionResolvedAndClosed}, "", "Finance resolved and closed the request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Describe(tt.evt, tt.lang))
		})
	}
}

func TestRenderer_Render(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	req := staged(workflow.StateRejected,
		entity.HistoryEvent{Actor: entity.DelegateActor(1), ActorName: "Ahmed", Action: entity.ActionCreated, Timestamp: t0},
		entity.HistoryEvent{Actor: entity.RoleActor(workflow.RoleOpsSupervisor), Action: entity.ActionRejected, Comment: "no cover", Timestamp: t0.Add(time.Hour)},
	)

	lines := r.Render(req, "en")
	require.Len(t, lines, 2)
	assert.Equal(t, Line{
		Action:    entity.ActionCreated,
		Actor:     "Ahmed",
		Text:      "Ahmed created the request",
		Timestamp: t0,
	}, lines[0])
	assert.Equal(t, "Operations Supervisor", lines[1].Actor)
	assert.Equal(t, "no cover", lines[1].Comment)

	assert.Equal(t, "مشرف العمليات", r.RoleName(workflow.RoleOpsSupervisor, "ar"))
	assert.Empty(t, r.Render(&entity.Request{}, "en"))
}

func TestRenderer_EveryActionHasTemplates(t *testing.T) {
	actions := []entity.HistoryAction{
		entity.ActionCreated, entity.ActionApproved, entity.ActionRejected, entity.ActionCommented,
		entity.ActionResolvedAndClosed, entity.ActionCancelled, entity.ActionResolvedAndDirected,
		entity.ActionDirectiveViewed, entity.ActionDirectiveReplied,
	}
	for lang, msgs := range templates {
		for _, action := range actions {
			assert.Contains(t, msgs, "action."+string(action), "%s missing %s", lang, action)
		}
		for _, role := range workflow.Roles {
			assert.Contains(t, msgs, "role."+string(role), "%s missing %s", lang, role)
		}
	}
}
