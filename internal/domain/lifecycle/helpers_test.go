package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func int64p(v int64) *int64 { return &v }

func role(r workflow.Role) entity.Actor { return entity.RoleActor(r) }

func newLeaveRequest(t *testing.T) *entity.Request {
	t.Helper()
	req, err := NewRequest(NewRequestInput{
		Type:           workflow.TypeEmployee,
		Topic:          workflow.TopicLeave,
		FromDelegateID: int64p(7),
	}, t0)
	require.NoError(t, err)
	req.ID, req.RequestNumber = 1, "M01"
	return req
}

func newInternalRequest(t *testing.T, from, target workflow.Role) *entity.Request {
	t.Helper()
	req, err := NewRequest(NewRequestInput{
		Type:        workflow.TypeInternal,
		Title:       "Fleet budget",
		Description: "Q3 numbers attached",
		FromRole:    from,
		TargetRole:  target,
		Attachment:  "budget.xlsx",
	}, t0)
	require.NoError(t, err)
	req.ID, req.RequestNumber = 2, "D01"
	return req
}

func newDirective(t *testing.T, delegateID int64) *entity.Request {
	t.Helper()
	req, err := NewRequest(NewRequestInput{
		Type:         workflow.TypeDirectDirective,
		Description:  "Move to hub B",
		FromRole:     workflow.RoleOpsSupervisor,
		ToDelegateID: int64p(delegateID),
	}, t0)
	require.NoError(t, err)
	req.ID, req.RequestNumber = 3, "T01"
	return req
}

func apply(t *testing.T, req *entity.Request, trigger workflow.Trigger, actor entity.Actor, payload Payload, at time.Time) *Outcome {
	t.Helper()
	out, err := Apply(context.Background(), req, Input{Trigger: trigger, Actor: actor, Payload: payload, Now: at})
	require.NoError(t, err)
	return out
}
