package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// StaffRepository implements port.StaffRepository on PostgreSQL
type StaffRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(pool *pgxpool.Pool, logger *zap.Logger) *StaffRepository {
	return &StaffRepository{pool: pool, logger: logger}
}

func scanStaff(row pgx.CollectableRow) (*entity.Staff, error) {
	var (
		s    entity.Staff
		role string
	)
	if err := row.Scan(&s.ID, &s.Name, &role, &s.LarkOpenID); err != nil {
		return nil, err
	}
	s.Role = workflow.Role(role)
	return &s, nil
}

// List returns all staff ordered by role then name
func (r *StaffRepository) List(ctx context.Context) ([]*entity.Staff, error) {
	return r.query(ctx, `SELECT id, name, role, lark_open_id FROM staff ORDER BY role, name, id`)
}

// GetByRole returns the staff holding role, ordered by id
func (r *StaffRepository) GetByRole(ctx context.Context, role workflow.Role) ([]*entity.Staff, error) {
	return r.query(ctx, `SELECT id, name, role, lark_open_id FROM staff WHERE role = $1 ORDER BY id`, string(role))
}

// GetByID returns one staff member
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*entity.Staff, error) {
	result, err := executor(ctx, r.pool).Query(ctx, `SELECT id, name, role, lark_open_id FROM staff WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w: %w", workflow.ErrPersistence, err)
	}
	staff, err := pgx.CollectExactlyOneRow(result, scanStaff)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w: %w", workflow.ErrPersistence, err)
	}
	return staff, nil
}

// Upsert inserts the staff member, or updates it when ID is set and exists
func (r *StaffRepository) Upsert(ctx context.Context, staff *entity.Staff) error {
	if strings.TrimSpace(staff.Name) == "" {
		return fmt.Errorf("%w: staff name is required", workflow.ErrValidation)
	}
	if !staff.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, staff.Role)
	}

	db := executor(ctx, r.pool)
	var err error
	if staff.ID == 0 {
		err = db.QueryRow(ctx,
			`INSERT INTO staff (name, role, lark_open_id) VALUES ($1, $2, $3) RETURNING id`,
			staff.Name, string(staff.Role), staff.LarkOpenID).Scan(&staff.ID)
	} else {
		_, err = db.Exec(ctx, `
			INSERT INTO staff (id, name, role, lark_open_id) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				role = EXCLUDED.role,
				lark_open_id = EXCLUDED.lark_open_id,
				updated_at = now()
		`, staff.ID, staff.Name, string(staff.Role), staff.LarkOpenID)
	}
	if err != nil {
		r.logger.Error("Failed to upsert staff", zap.String("name", staff.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert staff: %w: %w", workflow.ErrPersistence, err)
	}
	return nil
}

func (r *StaffRepository) query(ctx context.Context, query string, args ...any) ([]*entity.Staff, error) {
	result, err := executor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w: %w", workflow.ErrPersistence, err)
	}
	staff, err := pgx.CollectRows(result, scanStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff: %w: %w", workflow.ErrPersistence, err)
	}
	return staff, nil
}

// DelegateRepository implements port.DelegateRepository on PostgreSQL
type DelegateRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDelegateRepository creates a new delegate repository
func NewDelegateRepository(pool *pgxpool.Pool, logger *zap.Logger) *DelegateRepository {
	return &DelegateRepository{pool: pool, logger: logger}
}

func scanDelegate(row pgx.CollectableRow) (*entity.Delegate, error) {
	var (
		d    entity.Delegate
		kind string
	)
	if err := row.Scan(&d.ID, &d.Name, &kind, &d.Active); err != nil {
		return nil, err
	}
	d.Kind = entity.DelegateKind(kind)
	return &d, nil
}

// GetByID returns one delegate
func (r *DelegateRepository) GetByID(ctx context.Context, id int64) (*entity.Delegate, error) {
	result, err := executor(ctx, r.pool).Query(ctx, `SELECT id, name, kind, active FROM delegates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get delegate: %w: %w", workflow.ErrPersistence, err)
	}
	delegate, err := pgx.CollectExactlyOneRow(result, scanDelegate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("delegate %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delegate: %w: %w", workflow.ErrPersistence, err)
	}
	return delegate, nil
}

// List returns all delegates ordered by id
func (r *DelegateRepository) List(ctx context.Context) ([]*entity.Delegate, error) {
	result, err := executor(ctx, r.pool).Query(ctx, `SELECT id, name, kind, active FROM delegates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegates: %w: %w", workflow.ErrPersistence, err)
	}
	delegates, err := pgx.CollectRows(result, scanDelegate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan delegates: %w: %w", workflow.ErrPersistence, err)
	}
	return delegates, nil
}

// Upsert inserts the delegate, or updates it when ID is set and exists
func (r *DelegateRepository) Upsert(ctx context.Context, delegate *entity.Delegate) error {
	if strings.TrimSpace(delegate.Name) == "" {
		return fmt.Errorf("%w: delegate name is required", workflow.ErrValidation)
	}
	if delegate.Kind != entity.DelegateKindKafala && delegate.Kind != entity.DelegateKindAjir {
		return fmt.Errorf("%w: unknown delegate kind %q", workflow.ErrValidation, delegate.Kind)
	}

	db := executor(ctx, r.pool)
	var err error
	if delegate.ID == 0 {
		err = db.QueryRow(ctx,
			`INSERT INTO delegates (name, kind, active) VALUES ($1, $2, $3) RETURNING id`,
			delegate.Name, string(delegate.Kind), delegate.Active).Scan(&delegate.ID)
	} else {
		_, err = db.Exec(ctx, `
			INSERT INTO delegates (id, name, kind, active) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				kind = EXCLUDED.kind,
				active = EXCLUDED.active,
				updated_at = now()
		`, delegate.ID, delegate.Name, string(delegate.Kind), delegate.Active)
	}
	if err != nil {
		r.logger.Error("Failed to upsert delegate", zap.String("name", delegate.Name), zap.Error(err))
		return fmt.Errorf("failed to upsert delegate: %w: %w", workflow.ErrPersistence, err)
	}
	return nil
}

var (
	_ port.StaffRepository    = (*StaffRepository)(nil)
	_ port.DelegateRepository = (*DelegateRepository)(nil)
)
