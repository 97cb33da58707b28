package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/pkg/database"
)

var t0 = time.Date(2024, 6, 2, 7, 30, 0, 0, time.UTC)

func int64p(v int64) *int64 { return &v }

// openTestDB returns a migrated database in a temp dir with delegates 1 and 2
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := database.New(ctx, database.Config{Path: filepath.Join(t.TempDir(), "desk.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	applied, err := database.NewMigrator(db, logger).Run(ctx, database.SQLiteMigrations())
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	delegates := NewDelegateRepository(db.DB, logger)
	require.NoError(t, delegates.Upsert(ctx, &entity.Delegate{Name: "Ahmed", Kind: entity.DelegateKindKafala, Active: true}))
	require.NoError(t, delegates.Upsert(ctx, &entity.Delegate{Name: "Bilal", Kind: entity.DelegateKindAjir, Active: true}))

	return db.DB
}

func newEmployeeRequest(t *testing.T, number string, delegateID int64, at time.Time) *entity.Request {
	t.Helper()
	req, err := lifecycle.NewRequest(lifecycle.NewRequestInput{
		Type:           workflow.TypeEmployee,
		Topic:          workflow.TopicLeave,
		Description:    "family visit",
		FromDelegateID: int64p(delegateID),
		ActorName:      "Ahmed",
	}, at)
	require.NoError(t, err)
	req.RequestNumber = number
	return req
}

func newDirectiveRequest(t *testing.T, number string, delegateID int64, at time.Time) *entity.Request {
	t.Helper()
	req, err := lifecycle.NewRequest(lifecycle.NewRequestInput{
		Type:         workflow.TypeDirectDirective,
		Description:  "Report to hub B",
		FromRole:     workflow.RoleMovementManager,
		ToDelegateID: int64p(delegateID),
		ActorName:    "Sara",
	}, at)
	require.NoError(t, err)
	req.RequestNumber = number
	return req
}
