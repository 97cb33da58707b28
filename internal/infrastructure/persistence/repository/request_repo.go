package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/rows"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository on SQLite
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the request and its initial history
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	stages, err := rows.EncodeWorkflow(req.Workflow)
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrPersistence, err)
	}
	respComment, respImage := rows.Response(req)

	query := `
		INSERT INTO requests (
			request_number, type, topic, title, description, from_role,
			from_delegate_id, to_delegate_id, workflow, current_stage_index,
			current_holder, status, attachment, response_comment, response_image_url,
			created_at, last_action_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.RequestNumber,
		string(req.Type),
		string(req.Topic),
		req.Title,
		req.Description,
		string(req.FromRole),
		req.FromDelegateID,
		req.ToDelegateID,
		stages,
		req.CurrentStageIndex,
		rows.Holder(req),
		string(req.Status),
		req.Attachment,
		respComment,
		respImage,
		req.CreatedAt.UTC(),
		req.LastActionAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create request",
			zap.String("request_number", req.RequestNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create request: %w: %w", workflow.ErrPersistence, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w: %w", workflow.ErrPersistence, err)
	}

	if err := r.appendHistory(ctx, id, req.History, 0); err != nil {
		return err
	}

	req.ID = id
	return nil
}

// GetByID loads a request with its full history
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := `SELECT ` + rows.RequestColumns + ` FROM requests WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByNumber loads a request by its request number
func (r *RequestRepository) GetByNumber(ctx context.Context, number string) (*entity.Request, error) {
	query := `SELECT ` + rows.RequestColumns + ` FROM requests WHERE request_number = ?`
	return r.getOne(ctx, query, number)
}

func (r *RequestRepository) getOne(ctx context.Context, query string, key interface{}) (*entity.Request, error) {
	req, err := rows.ScanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %v: %w", key, workflow.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.Any("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w: %w", workflow.ErrPersistence, err)
	}

	if req.History, err = r.loadHistory(ctx, req.ID); err != nil {
		return nil, err
	}
	return req, nil
}

// List returns requests matching the filter, newest first
func (r *RequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	where, args := rows.Filter(filter, func(int) string { return "?" })
	query := `SELECT ` + rows.RequestColumns + ` FROM requests` + where

	result, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w: %w", workflow.ErrPersistence, err)
	}

	var requests []*entity.Request
	for result.Next() {
		req, err := rows.ScanRequest(result)
		if err != nil {
			result.Close()
			return nil, fmt.Errorf("failed to scan request: %w: %w", workflow.ErrPersistence, err)
		}
		requests = append(requests, req)
	}
	err = result.Err()
	result.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w: %w", workflow.ErrPersistence, err)
	}

	// History is loaded after the cursor is closed; a transaction holds one connection
	for _, req := range requests {
		if req.History, err = r.loadHistory(ctx, req.ID); err != nil {
			return nil, err
		}
	}

	return requests, nil
}

// Update stores the mutable fields and appends the history events not yet stored
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	var stored int
	err := r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM request_history WHERE request_id = ?`, req.ID).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to count history: %w: %w", workflow.ErrPersistence, err)
	}
	if err := rows.CheckAppend(req, stored); err != nil {
		return err
	}

	respComment, respImage := rows.Response(req)

	query := `
		UPDATE requests
		SET status = ?, current_stage_index = ?, current_holder = ?,
			response_comment = ?, response_image_url = ?, last_action_at = ?
		WHERE id = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(req.Status),
		req.CurrentStageIndex,
		rows.Holder(req),
		respComment,
		respImage,
		req.LastActionAt.UTC(),
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w: %w", workflow.ErrPersistence, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w: %w", workflow.ErrPersistence, err)
	}
	if affected == 0 {
		return fmt.Errorf("request %d: %w", req.ID, workflow.ErrNotFound)
	}

	return r.appendHistory(ctx, req.ID, req.History[stored:], stored)
}

// NumbersByPrefix returns every request number starting with prefix
func (r *RequestRepository) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	result, err := r.getExecutor(ctx).QueryContext(ctx,
		`SELECT request_number FROM requests WHERE substr(request_number, 1, ?) = ?`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list request numbers: %w: %w", workflow.ErrPersistence, err)
	}
	defer result.Close()

	var numbers []string
	for result.Next() {
		var number string
		if err := result.Scan(&number); err != nil {
			return nil, fmt.Errorf("failed to scan request number: %w: %w", workflow.ErrPersistence, err)
		}
		numbers = append(numbers, number)
	}
	return numbers, result.Err()
}

func (r *RequestRepository) appendHistory(ctx context.Context, requestID int64, events []entity.HistoryEvent, firstSeq int) error {
	query := `
		INSERT INTO request_history (
			request_id, seq, actor_kind, actor_role, actor_delegate_id, actor_name,
			action, comment, directed_to, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, evt := range events {
		if _, err := r.getExecutor(ctx).ExecContext(ctx, query, rows.HistoryArgs(requestID, firstSeq+i, evt)...); err != nil {
			r.logger.Error("Failed to append history",
				zap.Int64("request_id", requestID),
				zap.String("action", string(evt.Action)),
				zap.Error(err))
			return fmt.Errorf("failed to append history: %w: %w", workflow.ErrPersistence, err)
		}
	}
	return nil
}

func (r *RequestRepository) loadHistory(ctx context.Context, requestID int64) ([]entity.HistoryEvent, error) {
	query := `SELECT ` + rows.HistoryColumns + ` FROM request_history WHERE request_id = ? ORDER BY seq ASC`

	result, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w: %w", workflow.ErrPersistence, err)
	}
	defer result.Close()

	history := []entity.HistoryEvent{}
	for result.Next() {
		_, evt, err := rows.ScanHistory(result)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w: %w", workflow.ErrPersistence, err)
		}
		history = append(history, evt)
	}
	return history, result.Err()
}

func (r *RequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

var _ port.RequestRepository = (*RequestRepository)(nil)
