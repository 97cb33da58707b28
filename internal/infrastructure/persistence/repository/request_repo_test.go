package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/sqlite"
)

func TestRequestRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	req := newEmployeeRequest(t, "M01", 1, t0)
	require.NoError(t, repo.Create(ctx, req))
	require.NotZero(t, req.ID)

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, req, loaded)

	byNumber, err := repo.GetByNumber(ctx, "M01")
	require.NoError(t, err)
	assert.Equal(t, req.ID, byNumber.ID)
}

func TestRequestRepository_UpdateAppendsHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	req := newEmployeeRequest(t, "M01", 1, t0)
	require.NoError(t, repo.Create(ctx, req))

	out, err := lifecycle.Apply(ctx, req, lifecycle.Input{
		Trigger:   workflow.TriggerApprove,
		Actor:     entity.RoleActor(workflow.RoleOpsSupervisor),
		ActorName: "Omar",
		Payload:   lifecycle.Payload{Comment: "ok"},
		Now:       t0.Add(time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, out.Updated))

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Updated, loaded)
	require.Len(t, loaded.History, 2)
	assert.Equal(t, entity.ActionApproved, loaded.History[1].Action)
	assert.Equal(t, "ok", loaded.History[1].Comment)

	holder, ok := loaded.CurrentHolder()
	require.True(t, ok)
	assert.Equal(t, workflow.RoleMovementManager, holder)
}

func TestRequestRepository_DirectiveReplyRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	req := newDirectiveRequest(t, "T01", 2, t0)
	require.NoError(t, repo.Create(ctx, req))

	out, err := lifecycle.Apply(ctx, req, lifecycle.Input{
		Trigger:   workflow.TriggerReply,
		Actor:     entity.DelegateActor(2),
		ActorName: "Bilal",
		Payload:   lifecycle.Payload{Comment: "on my way", ImageURL: "https://img.example/1.jpg"},
		Now:       t0.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, out.Updated))

	loaded, err := repo.GetByNumber(ctx, "T01")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCompleted, loaded.Status)
	require.NotNil(t, loaded.DirectiveResponse)
	assert.Equal(t, "on my way", loaded.DirectiveResponse.Comment)
	assert.Equal(t, "https://img.example/1.jpg", loaded.DirectiveResponse.ImageURL)
	assert.Equal(t, int64(2), loaded.History[1].Actor.DelegateID)
}

func TestRequestRepository_DirectedToRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	req := newEmployeeRequest(t, "M01", 1, t0)
	req.Workflow = []workflow.Role{workflow.RoleGeneralManager}
	require.NoError(t, repo.Create(ctx, req))

	out, err := lifecycle.Apply(ctx, req, lifecycle.Input{
		Trigger: workflow.TriggerResolveAndDirect,
		Actor:   entity.RoleActor(workflow.RoleGeneralManager),
		Payload: lifecycle.Payload{Comment: "finance to handle", TargetRole: workflow.RoleFinance},
		Now:     t0.Add(time.Minute),
	})
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, out.Updated))

	loaded, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.History[1].DirectedTo)
	assert.Equal(t, workflow.RoleFinance, *loaded.History[1].DirectedTo)
}

func TestRequestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	_, err := repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	_, err = repo.GetByNumber(ctx, "M99")
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	missing := newEmployeeRequest(t, "M05", 1, t0)
	missing.ID = 42
	assert.ErrorIs(t, repo.Update(ctx, missing), workflow.ErrNotFound)
}

func TestRequestRepository_RejectsShrunkenHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	req := newEmployeeRequest(t, "M01", 1, t0)
	require.NoError(t, repo.Create(ctx, req))

	req.History = nil
	err := repo.Update(ctx, req)
	assert.ErrorIs(t, err, workflow.ErrPersistence)
}

func TestRequestRepository_HistoryRowsAreImmutable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())

	req := newEmployeeRequest(t, "M01", 1, t0)
	require.NoError(t, repo.Create(ctx, req))

	_, err := db.ExecContext(ctx, `UPDATE request_history SET comment = 'edited' WHERE request_id = ?`, req.ID)
	assert.Error(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM request_history WHERE request_id = ?`, req.ID)
	assert.Error(t, err)
}

func TestRequestRepository_DuplicateNumber(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	require.NoError(t, repo.Create(ctx, newEmployeeRequest(t, "M01", 1, t0)))
	err := repo.Create(ctx, newEmployeeRequest(t, "M01", 2, t0))
	assert.ErrorIs(t, err, workflow.ErrPersistence)
}

func TestRequestRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	leave := newEmployeeRequest(t, "M01", 1, t0)
	directiveOld := newDirectiveRequest(t, "T01", 1, t0.Add(time.Hour))
	directiveNew := newDirectiveRequest(t, "T02", 2, t0.Add(2*time.Hour))
	for _, req := range []*entity.Request{leave, directiveOld, directiveNew} {
		require.NoError(t, repo.Create(ctx, req))
	}

	numbers := func(reqs []*entity.Request) []string {
		out := make([]string, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, r.RequestNumber)
		}
		return out
	}

	tests := []struct {
		name   string
		filter port.RequestFilter
		want   []string
	}{
		{"all newest first", port.RequestFilter{}, []string{"T02", "T01", "M01"}},
		{"by type", port.RequestFilter{Type: workflow.TypeDirectDirective}, []string{"T02", "T01"}},
		{"by holder", port.RequestFilter{Holder: workflow.RoleOpsSupervisor}, []string{"M01"}},
		{"by delegate", port.RequestFilter{ToDelegateID: int64p(2)}, []string{"T02"}},
		{"created before", port.RequestFilter{CreatedBefore: t0.Add(90 * time.Minute)}, []string{"T01", "M01"}},
		{"status", port.RequestFilter{Status: workflow.StateApproved}, []string{}},
		{"paged", port.RequestFilter{Limit: 1, Offset: 1}, []string{"T01"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, numbers(got))
		})
	}

	all, err := repo.List(ctx, port.RequestFilter{})
	require.NoError(t, err)
	for _, req := range all {
		assert.Len(t, req.History, 1, req.RequestNumber)
	}
}

func TestRequestRepository_NumbersByPrefix(t *testing.T) {
	ctx := context.Background()
	repo := NewRequestRepository(openTestDB(t), zap.NewNop())

	require.NoError(t, repo.Create(ctx, newEmployeeRequest(t, "M01", 1, t0)))
	require.NoError(t, repo.Create(ctx, newEmployeeRequest(t, "M07", 1, t0)))
	require.NoError(t, repo.Create(ctx, newDirectiveRequest(t, "T01", 1, t0)))

	got, err := repo.NumbersByPrefix(ctx, workflow.TypeEmployee.NumberPrefix())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"M01", "M07"}, got)

	next, err := lifecycle.NextRequestNumber(workflow.TypeEmployee, got)
	require.NoError(t, err)
	assert.Equal(t, "M08", next)
}

func TestRequestRepository_TransactionRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	txm := sqlite.NewDB(db, zap.NewNop())

	boom := errors.New("boom")
	err := txm.WithTransaction(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, newEmployeeRequest(t, "M01", 1, t0)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByNumber(ctx, "M01")
	assert.ErrorIs(t, err, workflow.ErrNotFound)

	err = txm.WithTransaction(ctx, func(ctx context.Context) error {
		return txm.WithTransaction(ctx, func(ctx context.Context) error {
			return repo.Create(ctx, newEmployeeRequest(t, "M02", 1, t0))
		})
	})
	require.NoError(t, err)

	_, err = repo.GetByNumber(ctx, "M02")
	assert.NoError(t, err)
}
