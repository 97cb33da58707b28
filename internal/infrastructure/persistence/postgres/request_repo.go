package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/internal/infrastructure/persistence/rows"
)

// RequestRepository implements port.RequestRepository on PostgreSQL
type RequestRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(pool *pgxpool.Pool, logger *zap.Logger) *RequestRepository {
	return &RequestRepository{pool: pool, logger: logger}
}

// Create inserts the request and its initial history
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	stages, err := rows.EncodeWorkflow(req.Workflow)
	if err != nil {
		return fmt.Errorf("%w: %w", workflow.ErrPersistence, err)
	}
	respComment, respImage := rows.Response(req)

	var id int64
	err = executor(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO requests (
			request_number, type, topic, title, description, from_role,
			from_delegate_id, to_delegate_id, workflow, current_stage_index,
			current_holder, status, attachment, response_comment, response_image_url,
			created_at, last_action_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id
	`,
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
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to create request",
			zap.String("request_number", req.RequestNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create request: %w: %w", workflow.ErrPersistence, err)
	}

	if err := r.appendHistory(ctx, id, req.History, 0); err != nil {
		return err
	}

	req.ID = id
	return nil
}

// GetByID loads a request with its full history
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	return r.getOne(ctx, `SELECT `+rows.RequestColumns+` FROM requests WHERE id = $1`, id)
}

// GetByNumber loads a request by its request number
func (r *RequestRepository) GetByNumber(ctx context.Context, number string) (*entity.Request, error) {
	return r.getOne(ctx, `SELECT `+rows.RequestColumns+` FROM requests WHERE request_number = $1`, number)
}

func (r *RequestRepository) getOne(ctx context.Context, query string, key any) (*entity.Request, error) {
	req, err := rows.ScanRequest(executor(ctx, r.pool).QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
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
	where, args := rows.Filter(filter, placeholder)

	result, err := executor(ctx, r.pool).Query(ctx, `SELECT `+rows.RequestColumns+` FROM requests`+where, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w: %w", workflow.ErrPersistence, err)
	}

	requests, err := pgx.CollectRows(result, func(row pgx.CollectableRow) (*entity.Request, error) {
		return rows.ScanRequest(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan requests: %w: %w", workflow.ErrPersistence, err)
	}

	for _, req := range requests {
		if req.History, err = r.loadHistory(ctx, req.ID); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// Update stores the mutable fields and appends the history events not yet stored
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	db := executor(ctx, r.pool)

	var stored int
	if err := db.QueryRow(ctx,
		`SELECT COUNT(*) FROM request_history WHERE request_id = $1`, req.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to count history: %w: %w", workflow.ErrPersistence, err)
	}
	if err := rows.CheckAppend(req, stored); err != nil {
		return err
	}

	respComment, respImage := rows.Response(req)

	tag, err := db.Exec(ctx, `
		UPDATE requests
		SET status = $1, current_stage_index = $2, current_holder = $3,
			response_comment = $4, response_image_url = $5, last_action_at = $6
		WHERE id = $7
	`,
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
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %d: %w", req.ID, workflow.ErrNotFound)
	}

	return r.appendHistory(ctx, req.ID, req.History[stored:], stored)
}

// NumbersByPrefix returns every request number starting with prefix
func (r *RequestRepository) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	result, err := executor(ctx, r.pool).Query(ctx,
		`SELECT request_number FROM requests WHERE starts_with(request_number, $1)`, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list request numbers: %w: %w", workflow.ErrPersistence, err)
	}

	numbers, err := pgx.CollectRows(result, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan request numbers: %w: %w", workflow.ErrPersistence, err)
	}
	return numbers, nil
}

func (r *RequestRepository) appendHistory(ctx context.Context, requestID int64, events []entity.HistoryEvent, firstSeq int) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, evt := range events {
		batch.Queue(`
			INSERT INTO request_history (
				request_id, seq, actor_kind, actor_role, actor_delegate_id, actor_name,
				action, comment, directed_to, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, rows.HistoryArgs(requestID, firstSeq+i, evt)...)
	}

	if err := executor(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error("Failed to append history", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to append history: %w: %w", workflow.ErrPersistence, err)
	}
	return nil
}

func (r *RequestRepository) loadHistory(ctx context.Context, requestID int64) ([]entity.HistoryEvent, error) {
	result, err := executor(ctx, r.pool).Query(ctx,
		`SELECT `+rows.HistoryColumns+` FROM request_history WHERE request_id = $1 ORDER BY seq ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w: %w", workflow.ErrPersistence, err)
	}

	history, err := pgx.CollectRows(result, func(row pgx.CollectableRow) (entity.HistoryEvent, error) {
		_, evt, err := rows.ScanHistory(row)
		return evt, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan history: %w: %w", workflow.ErrPersistence, err)
	}
	if history == nil {
		history = []entity.HistoryEvent{}
	}
	return history, nil
}

var _ port.RequestRepository = (*RequestRepository)(nil)
