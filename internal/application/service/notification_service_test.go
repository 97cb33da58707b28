package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/event"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func newNotificationFixture(t *testing.T) (*fixture, *mockNotifier, dispatcher.Dispatcher) {
	t.Helper()

	renderer, err := history.NewRenderer()
	require.NoError(t, err)

	d := dispatcher.NewDispatcher()
	f := newFixture(t, WithDispatcher(d))
	notifier := &mockNotifier{}
	NewNotificationService(f.repo, f.directory, notifier, renderer, "en", &mockLogger{}).Register(d)
	return f, notifier, d
}

func TestNotificationService_StageReached(t *testing.T) {
	ctx := context.Background()
	f, notifier, d := newNotificationFixture(t)

	req, err := f.svc.CreateEmployee(ctx, CreateEmployeeInput{DelegateID: 10, Topic: workflow.TopicConfidentialComplaint, Title: "Harassment"})
	require.NoError(t, err)
	f.act(t, req.ID, workflow.TriggerApprove, entity.RoleActor(workflow.RoleMovementManager), lifecycle.Payload{})
	require.NoError(t, d.Close())

	require.Len(t, notifier.sent, 2)
	recipients := []string{notifier.sent[0].recipient.LarkOpenID, notifier.sent[1].recipient.LarkOpenID}
	assert.ElementsMatch(t, []string{"ou_mm", "ou_gm"}, recipients)
	for _, msg := range notifier.sent {
		assert.Contains(t, msg.text, "M01")
	}
}

func TestNotificationService_SkipsStaffWithoutLark(t *testing.T) {
	ctx := context.Background()
	f, notifier, d := newNotificationFixture(t)

	_, err := f.svc.CreateInternal(ctx, CreateInternalInput{FromRole: workflow.RoleHR, TargetRole: workflow.RoleLegal, Title: "NDA"})
	require.NoError(t, err)
	require.NoError(t, d.Close())

	assert.Empty(t, notifier.sent)
}

func TestNotificationService_DirectiveReplied(t *testing.T) {
	ctx := context.Background()
	f, notifier, d := newNotificationFixture(t)

	directive, err := f.svc.CreateDirective(ctx, CreateDirectiveInput{FromRole: workflow.RoleOpsSupervisor, DelegateID: 10, Text: "Call the office"})
	require.NoError(t, err)
	f.act(t, directive.ID, workflow.TriggerReply, entity.DelegateActor(10), lifecycle.Payload{Comment: "Called"})
	require.NoError(t, d.Close())

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ou_ops", notifier.sent[0].recipient.LarkOpenID)
	assert.Contains(t, notifier.sent[0].text, "Called")
}

func TestNotificationService_ReportsFailures(t *testing.T) {
	renderer, err := history.NewRenderer()
	require.NoError(t, err)

	f := newFixture(t)
	notifier := &mockNotifier{err: errors.New("lark 99991663")}
	svc := NewNotificationService(f.repo, f.directory, notifier, renderer, "en", &mockLogger{})

	req, err := f.svc.CreateInternal(context.Background(), CreateInternalInput{FromRole: workflow.RoleHR, TargetRole: workflow.RoleFinance, Title: "Budget"})
	require.NoError(t, err)

	err = svc.HandleStageReached(context.Background(), createdEvent(req, ""))
	assert.ErrorContains(t, err, "Fatima")

	err = svc.HandleStageReached(context.Background(), event.NewEvent(event.TypeRequestCreated, 404, "D404", nil))
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	closed := event.NewEvent(event.TypeRequestAdvanced, req.ID, req.RequestNumber, nil)
	assert.NoError(t, svc.HandleStageReached(context.Background(), closed), "events without a holder are ignored")
}

func TestNotificationService_DirectiveExpired(t *testing.T) {
	ctx := context.Background()
	renderer, err := history.NewRenderer()
	require.NoError(t, err)

	f := newFixture(t)
	notifier := &mockNotifier{}
	svc := NewNotificationService(f.repo, f.directory, notifier, renderer, "en", &mockLogger{})

	directive, err := f.svc.CreateDirective(ctx, CreateDirectiveInput{FromRole: workflow.RoleMovementManager, DelegateID: 10, Title: "Uniform", Text: "Collect your uniform"})
	require.NoError(t, err)

	expired := event.NewEvent(event.TypeDirectiveExpired, directive.ID, directive.RequestNumber, nil)
	require.NoError(t, svc.HandleDirectiveExpired(ctx, expired))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "ou_mm", notifier.sent[0].recipient.LarkOpenID)
	assert.Contains(t, notifier.sent[0].text, "T01")

	f.act(t, directive.ID, workflow.TriggerReply, entity.DelegateActor(10), lifecycle.Payload{Comment: "Collected"})
	require.NoError(t, svc.HandleDirectiveExpired(ctx, expired))
	assert.Len(t, notifier.sent, 1, "answered directives are not reported")
}
