package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// StaffRepository implements port.StaffRepository on SQLite
type StaffRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db *sql.DB, logger *zap.Logger) *StaffRepository {
	return &StaffRepository{db: db, logger: logger}
}

const staffColumns = `id, name, role, lark_open_id`

// List returns all staff ordered by role then name
func (r *StaffRepository) List(ctx context.Context) ([]*entity.Staff, error) {
	return r.query(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY role, name, id`)
}

// GetByRole returns the staff holding role, ordered by id
func (r *StaffRepository) GetByRole(ctx context.Context, role workflow.Role) ([]*entity.Staff, error) {
	return r.query(ctx, `SELECT `+staffColumns+` FROM staff WHERE role = ? ORDER BY id`, string(role))
}

// GetByID returns one staff member
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*entity.Staff, error) {
	var (
		s    entity.Staff
		role string
	)
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT `+staffColumns+` FROM staff WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &role, &s.LarkOpenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("staff %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w: %w", workflow.ErrPersistence, err)
	}
	s.Role = workflow.Role(role)
	return &s, nil
}

// Upsert inserts the staff member, or updates it when ID is set and exists
func (r *StaffRepository) Upsert(ctx context.Context, staff *entity.Staff) error {
	if err := validateStaff(staff); err != nil {
		return err
	}

	if staff.ID == 0 {
		result, err := r.getExecutor(ctx).ExecContext(ctx,
			`INSERT INTO staff (name, role, lark_open_id) VALUES (?, ?, ?)`,
			staff.Name, string(staff.Role), staff.LarkOpenID)
		if err != nil {
			r.logger.Error("Failed to create staff", zap.String("name", staff.Name), zap.Error(err))
			return fmt.Errorf("failed to create staff: %w: %w", workflow.ErrPersistence, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w: %w", workflow.ErrPersistence, err)
		}
		staff.ID = id
		return nil
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO staff (id, name, role, lark_open_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			lark_open_id = excluded.lark_open_id,
			updated_at = CURRENT_TIMESTAMP
	`, staff.ID, staff.Name, string(staff.Role), staff.LarkOpenID)
	if err != nil {
		r.logger.Error("Failed to upsert staff", zap.Int64("id", staff.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert staff: %w: %w", workflow.ErrPersistence, err)
	}
	return nil
}

func (r *StaffRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.Staff, error) {
	result, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query staff", zap.Error(err))
		return nil, fmt.Errorf("failed to query staff: %w: %w", workflow.ErrPersistence, err)
	}
	defer result.Close()

	var staff []*entity.Staff
	for result.Next() {
		var (
			s    entity.Staff
			role string
		)
		if err := result.Scan(&s.ID, &s.Name, &role, &s.LarkOpenID); err != nil {
			return nil, fmt.Errorf("failed to scan staff: %w: %w", workflow.ErrPersistence, err)
		}
		s.Role = workflow.Role(role)
		staff = append(staff, &s)
	}
	return staff, result.Err()
}

func (r *StaffRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// DelegateRepository implements port.DelegateRepository on SQLite
type DelegateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDelegateRepository creates a new delegate repository
func NewDelegateRepository(db *sql.DB, logger *zap.Logger) *DelegateRepository {
	return &DelegateRepository{db: db, logger: logger}
}

// GetByID returns one delegate
func (r *DelegateRepository) GetByID(ctx context.Context, id int64) (*entity.Delegate, error) {
	var (
		d    entity.Delegate
		kind string
	)
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT id, name, kind, active FROM delegates WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &kind, &d.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delegate %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delegate: %w: %w", workflow.ErrPersistence, err)
	}
	d.Kind = entity.DelegateKind(kind)
	return &d, nil
}

// List returns all delegates ordered by id
func (r *DelegateRepository) List(ctx context.Context) ([]*entity.Delegate, error) {
	result, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT id, name, kind, active FROM delegates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list delegates: %w: %w", workflow.ErrPersistence, err)
	}
	defer result.Close()

	var delegates []*entity.Delegate
	for result.Next() {
		var (
			d    entity.Delegate
			kind string
		)
		if err := result.Scan(&d.ID, &d.Name, &kind, &d.Active); err != nil {
			return nil, fmt.Errorf("failed to scan delegate: %w: %w", workflow.ErrPersistence, err)
		}
		d.Kind = entity.DelegateKind(kind)
		delegates = append(delegates, &d)
	}
	return delegates, result.Err()
}

// Upsert inserts the delegate, or updates it when ID is set and exists
func (r *DelegateRepository) Upsert(ctx context.Context, delegate *entity.Delegate) error {
	if err := validateDelegate(delegate); err != nil {
		return err
	}

	if delegate.ID == 0 {
		result, err := r.getExecutor(ctx).ExecContext(ctx,
			`INSERT INTO delegates (name, kind, active) VALUES (?, ?, ?)`,
			delegate.Name, string(delegate.Kind), delegate.Active)
		if err != nil {
			r.logger.Error("Failed to create delegate", zap.String("name", delegate.Name), zap.Error(err))
			return fmt.Errorf("failed to create delegate: %w: %w", workflow.ErrPersistence, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w: %w", workflow.ErrPersistence, err)
		}
		delegate.ID = id
		return nil
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO delegates (id, name, kind, active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
	`, delegate.ID, delegate.Name, string(delegate.Kind), delegate.Active)
	if err != nil {
		r.logger.Error("Failed to upsert delegate", zap.Int64("id", delegate.ID), zap.Error(err))
		return fmt.Errorf("failed to upsert delegate: %w: %w", workflow.ErrPersistence, err)
	}
	return nil
}

func (r *DelegateRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

func validateStaff(staff *entity.Staff) error {
	if strings.TrimSpace(staff.Name) == "" {
		return fmt.Errorf("%w: staff name is required", workflow.ErrValidation)
	}
	if !staff.Role.IsValid() {
		return fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, staff.Role)
	}
	return nil
}

func validateDelegate(delegate *entity.Delegate) error {
	if strings.TrimSpace(delegate.Name) == "" {
		return fmt.Errorf("%w: delegate name is required", workflow.ErrValidation)
	}
	if delegate.Kind != entity.DelegateKindKafala && delegate.Kind != entity.DelegateKindAjir {
		return fmt.Errorf("%w: unknown delegate kind %q", workflow.ErrValidation, delegate.Kind)
	}
	return nil
}

var (
	_ port.StaffRepository    = (*StaffRepository)(nil)
	_ port.DelegateRepository = (*DelegateRepository)(nil)
)
