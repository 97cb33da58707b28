package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func TestIsExpired(t *testing.T) {
	directive := newDirective(t, 42)
	leave := newLeaveRequest(t)

	assert.False(t, IsExpired(directive, t0.Add(71*time.Hour)))
	assert.False(t, IsExpired(directive, t0.Add(72*time.Hour)))
	assert.True(t, IsExpired(directive, t0.Add(72*time.Hour+time.Second)))
	assert.True(t, IsExpired(directive, t0.Add(73*time.Hour)))
	assert.False(t, IsExpired(leave, t0.Add(1000*time.Hour)), "only directives expire")

	replied := apply(t, directive, workflow.TriggerReply, entity.DelegateActor(42), Payload{Comment: "ok"}, t0).Updated
	assert.False(t, IsExpired(replied, t0.Add(100*time.Hour)), "answered directives never expire")

	at, ok := ExpiresAt(directive)
	assert.True(t, ok)
	assert.Equal(t, t0.Add(72*time.Hour), at)
	_, ok = ExpiresAt(leave)
	assert.False(t, ok)
}

func TestIsActionable(t *testing.T) {
	leave := newLeaveRequest(t)
	directive := newDirective(t, 42)
	rejected := apply(t, leave, workflow.TriggerReject, role(workflow.RoleOpsSupervisor), Payload{Comment: "no"}, t0).Updated

	tests := []struct {
		name  string
		req   *entity.Request
		actor entity.Actor
		at    time.Time
		want  bool
	}{
		{"current holder", leave, role(workflow.RoleOpsSupervisor), t0, true},
		{"later stage", leave, role(workflow.RoleHR), t0, false},
		{"originating delegate", leave, entity.DelegateActor(7), t0, false},
		{"closed", rejected, role(workflow.RoleOpsSupervisor), t0, false},
		{"target delegate", directive, entity.DelegateActor(42), t0.Add(time.Hour), true},
		{"other delegate", directive, entity.DelegateActor(41), t0.Add(time.Hour), false},
		{"issuer", directive, role(workflow.RoleOpsSupervisor), t0, false},
		{"expired", directive, entity.DelegateActor(42), t0.Add(73 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsActionable(tt.req, tt.actor, tt.at))
		})
	}
}

func TestAvailableTriggers(t *testing.T) {
	internal := newInternalRequest(t, workflow.RoleHR, workflow.RoleGeneralManager)
	assert.ElementsMatch(t, []workflow.Trigger{
		workflow.TriggerApprove, workflow.TriggerReject, workflow.TriggerResolveAndClose,
		workflow.TriggerComment, workflow.TriggerResolveAndDirect,
	}, AvailableTriggers(internal, role(workflow.RoleGeneralManager), t0))

	leave := newLeaveRequest(t)
	assert.NotContains(t, AvailableTriggers(leave, role(workflow.RoleOpsSupervisor), t0), workflow.TriggerResolveAndDirect)
	assert.Empty(t, AvailableTriggers(leave, role(workflow.RoleHR), t0))

	directive := newDirective(t, 42)
	assert.ElementsMatch(t, []workflow.Trigger{workflow.TriggerReply, workflow.TriggerViewDirective},
		AvailableTriggers(directive, entity.DelegateActor(42), t0))

	viewed := apply(t, directive, workflow.TriggerViewDirective, entity.DelegateActor(42), Payload{}, t0).Updated
	assert.Equal(t, []workflow.Trigger{workflow.TriggerReply}, AvailableTriggers(viewed, entity.DelegateActor(42), t0))
}
