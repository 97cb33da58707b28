package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func TestDraftService_Draft(t *testing.T) {
	f := newFixture(t)

	var got port.DraftInput
	drafter := &mockDrafter{draftFunc: func(ctx context.Context, in port.DraftInput) (string, error) {
		got = in
		return "Please report to hub B at 9am.", nil
	}}
	svc := NewDraftService(drafter, f.directory, &mockLogger{})

	text, err := svc.Draft(context.Background(), DraftRequest{
		FromRole:   workflow.RoleOpsSupervisor,
		DelegateID: 10,
		Subject:    " hub change ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Please report to hub B at 9am.", text)
	assert.Equal(t, "Ahmed", got.DelegateName)
	assert.Equal(t, "hub change", got.Subject)
	assert.Equal(t, "en", got.Language)
}

func TestDraftService_Errors(t *testing.T) {
	f := newFixture(t)
	ok := &mockDrafter{draftFunc: func(ctx context.Context, in port.DraftInput) (string, error) { return "x", nil }}
	failing := &mockDrafter{draftFunc: func(ctx context.Context, in port.DraftInput) (string, error) {
		return "", errors.New("rate limited")
	}}

	tests := []struct {
		name    string
		drafter port.DirectiveDrafter
		input   DraftRequest
		wantErr error
	}{
		{"disabled", nil, DraftRequest{FromRole: workflow.RoleHR, DelegateID: 10, Subject: "x"}, ErrDraftingDisabled},
		{"bad role", ok, DraftRequest{FromRole: "Boss", DelegateID: 10, Subject: "x"}, workflow.ErrValidation},
		{"no subject", ok, DraftRequest{FromRole: workflow.RoleHR, DelegateID: 10}, workflow.ErrValidation},
		{"unknown delegate", ok, DraftRequest{FromRole: workflow.RoleHR, DelegateID: 77, Subject: "x"}, workflow.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDraftService(tt.drafter, NewDirectory(f.staff, f.delegates, 4, time.Minute), &mockLogger{})
			_, err := svc.Draft(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("drafter failure", func(t *testing.T) {
		svc := NewDraftService(failing, f.directory, &mockLogger{})
		_, err := svc.Draft(context.Background(), DraftRequest{FromRole: workflow.RoleHR, DelegateID: 10, Subject: "x"})
		assert.ErrorContains(t, err, "rate limited")
	})
}
