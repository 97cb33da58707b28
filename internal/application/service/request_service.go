package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/event"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateInternalInput is a staff role raising a request to another department
type CreateInternalInput struct {
	FromRole    workflow.Role `json:"from_role"`
	TargetRole  workflow.Role `json:"target_role"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Attachment  string        `json:"attachment"`
}

// CreateEmployeeInput is a delegate raising a request on a topic
type CreateEmployeeInput struct {
	DelegateID  int64          `json:"delegate_id"`
	Topic       workflow.Topic `json:"topic"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Attachment  string         `json:"attachment"`
}

// CreateDirectiveInput is a staff role instructing a delegate
type CreateDirectiveInput struct {
	FromRole   workflow.Role `json:"from_role"`
	DelegateID int64         `json:"delegate_id"`
	Title      string        `json:"title"`
	Text       string        `json:"text"`
	Attachment string        `json:"attachment"`
}

// ActionInput is one action requested by an actor
type ActionInput struct {
	Trigger workflow.Trigger  `json:"action"`
	Actor   entity.Actor      `json:"actor"`
	Payload lifecycle.Payload `json:"payload"`
}

// ActionResult is the committed result of an action
type ActionResult struct {
	Request  *entity.Request `json:"request"`
	FollowUp *entity.Request `json:"follow_up,omitempty"`
}

// RequestService runs the request workflow against the store
type RequestService interface {
	CreateInternal(ctx context.Context, in CreateInternalInput) (*entity.Request, error)
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*entity.Request, error)
	CreateDirective(ctx context.Context, in CreateDirectiveInput) (*entity.Request, error)

	// Act applies an action and persists the result, plus any follow-up, in one transaction
	Act(ctx context.Context, id int64, in ActionInput) (*ActionResult, error)

	// MarkDirectiveViewed records the first view of a directive; later calls are no-ops
	MarkDirectiveViewed(ctx context.Context, id, delegateID int64) (*entity.Request, error)

	Get(ctx context.Context, id int64) (*entity.Request, error)
	GetByNumber(ctx context.Context, number string) (*entity.Request, error)
	List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error)

	// Inbox lists the requests the actor can act on right now
	Inbox(ctx context.Context, actor entity.Actor) ([]*entity.Request, error)

	Progress(ctx context.Context, id int64) (*lifecycle.Progress, error)
	History(ctx context.Context, id int64, lang string) ([]history.Line, error)

	// ExpiredDirectives lists pending directives past their reply window
	ExpiredDirectives(ctx context.Context) ([]*entity.Request, error)
}

type requestServiceImpl struct {
	requestRepo port.RequestRepository
	txManager   port.TransactionManager
	directory   *Directory
	renderer    *history.Renderer
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	now         func() time.Time
}

// Option configures the request service
type Option func(*requestServiceImpl)

// WithClock overrides the service clock
func WithClock(now func() time.Time) Option {
	return func(s *requestServiceImpl) {
		s.now = now
	}
}

// WithDispatcher publishes committed changes as events
func WithDispatcher(d dispatcher.Dispatcher) Option {
	return func(s *requestServiceImpl) {
		s.dispatcher = d
	}
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requestRepo port.RequestRepository,
	txManager port.TransactionManager,
	directory *Directory,
	renderer *history.Renderer,
	logger Logger,
	opts ...Option,
) RequestService {
	s := &requestServiceImpl{
		requestRepo: requestRepo,
		txManager:   txManager,
		directory:   directory,
		renderer:    renderer,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *requestServiceImpl) CreateInternal(ctx context.Context, in CreateInternalInput) (*entity.Request, error) {
	return s.create(ctx, lifecycle.NewRequestInput{
		Type:        workflow.TypeInternal,
		Title:       in.Title,
		Description: in.Description,
		FromRole:    in.FromRole,
		TargetRole:  in.TargetRole,
		Attachment:  in.Attachment,
	})
}

func (s *requestServiceImpl) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*entity.Request, error) {
	if err := s.requireActiveDelegate(ctx, in.DelegateID); err != nil {
		return nil, err
	}

	delegateID := in.DelegateID
	return s.create(ctx, lifecycle.NewRequestInput{
		Type:           workflow.TypeEmployee,
		Topic:          in.Topic,
		Title:          in.Title,
		Description:    in.Description,
		FromDelegateID: &delegateID,
		Attachment:     in.Attachment,
	})
}

func (s *requestServiceImpl) CreateDirective(ctx context.Context, in CreateDirectiveInput) (*entity.Request, error) {
	if err := s.requireActiveDelegate(ctx, in.DelegateID); err != nil {
		return nil, err
	}

	delegateID := in.DelegateID
	return s.create(ctx, lifecycle.NewRequestInput{
		Type:         workflow.TypeDirectDirective,
		Title:        in.Title,
		Description:  in.Text,
		FromRole:     in.FromRole,
		ToDelegateID: &delegateID,
		Attachment:   in.Attachment,
	})
}

func (s *requestServiceImpl) requireActiveDelegate(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: delegate_id is required", workflow.ErrValidation)
	}
	delegate, err := s.directory.Delegate(ctx, id)
	if err != nil {
		return err
	}
	if !delegate.Active {
		return fmt.Errorf("%w: delegate %d is not active", workflow.ErrValidation, id)
	}
	return nil
}

// create validates the request, numbers it and stores it
func (s *requestServiceImpl) create(ctx context.Context, in lifecycle.NewRequestInput) (*entity.Request, error) {
	if in.FromDelegateID != nil {
		in.ActorName = s.directory.ActorName(ctx, entity.DelegateActor(*in.FromDelegateID))
	} else if in.FromRole.IsValid() {
		in.ActorName = s.directory.ActorName(ctx, entity.RoleActor(in.FromRole))
	}

	req, err := lifecycle.NewRequest(in, s.now())
	if err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.insert(txCtx, req)
	})
	if err != nil {
		s.logger.Error("Failed to create request", "error", err, "type", in.Type)
		return nil, err
	}

	requestsCreatedTotal.WithLabelValues(string(req.Type)).Inc()
	s.logger.Info("Request created",
		"id", req.ID,
		"request_number", req.RequestNumber,
		"type", req.Type,
		"workflow", req.Workflow,
	)

	s.publish(ctx, []*event.Event{createdEvent(req, "")})
	return req, nil
}

// insert assigns the next number of the request's prefix and stores it.
// Must run inside a transaction so the number is not handed out twice.
func (s *requestServiceImpl) insert(ctx context.Context, req *entity.Request) error {
	prefix := req.Type.NumberPrefix()
	existing, err := s.requestRepo.NumbersByPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("load %s numbers: %w", prefix, err)
	}

	number, err := lifecycle.NextRequestNumber(req.Type, existing)
	if err != nil {
		return err
	}
	req.RequestNumber = number

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return fmt.Errorf("create request %s: %w", number, err)
	}
	return nil
}

func (s *requestServiceImpl) Act(ctx context.Context, id int64, in ActionInput) (*ActionResult, error) {
	start := time.Now()
	actorName := s.directory.ActorName(ctx, in.Actor)

	var result *ActionResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		outcome, err := lifecycle.Apply(txCtx, req, lifecycle.Input{
			Trigger:   in.Trigger,
			Actor:     in.Actor,
			ActorName: actorName,
			Payload:   in.Payload,
			Now:       s.now(),
		})
		if err != nil {
			return err
		}

		if err := s.requestRepo.Update(txCtx, outcome.Updated); err != nil {
			return fmt.Errorf("update request %s: %w", req.RequestNumber, err)
		}

		if outcome.FollowUp != nil {
			if err := s.insert(txCtx, outcome.FollowUp); err != nil {
				return err
			}
		}

		result = &ActionResult{Request: outcome.Updated, FollowUp: outcome.FollowUp}
		return nil
	})

	action := string(in.Trigger)
	requestActionsTotal.WithLabelValues(action, outcomeLabel(err)).Inc()
	requestActionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Error("Action failed",
			"error", err,
			"id", id,
			"action", in.Trigger,
			"actor", in.Actor.String(),
		)
		return nil, err
	}

	s.logger.Info("Action applied",
		"id", id,
		"request_number", result.Request.RequestNumber,
		"action", in.Trigger,
		"actor", in.Actor.String(),
		"status", result.Request.Status,
	)

	s.publish(ctx, actionEvents(in, result))
	return result, nil
}

func (s *requestServiceImpl) MarkDirectiveViewed(ctx context.Context, id, delegateID int64) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actor := entity.DelegateActor(delegateID)
	if !req.IsDirective() || req.ToDelegateID == nil || !actor.IsDelegate(*req.ToDelegateID) {
		return nil, fmt.Errorf("%w: %s is not the addressee of %s", workflow.ErrUnauthorized, actor, req.RequestNumber)
	}
	if req.HasAction(entity.ActionDirectiveViewed) || req.Status.IsTerminal() {
		return req, nil
	}

	result, err := s.Act(ctx, id, ActionInput{Trigger: workflow.TriggerViewDirective, Actor: actor})
	if errors.Is(err, workflow.ErrInvalidTransition) {
		// viewed by a concurrent call
		return s.requestRepo.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return result.Request, nil
}

func (s *requestServiceImpl) Get(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestServiceImpl) GetByNumber(ctx context.Context, number string) (*entity.Request, error) {
	req, err := s.requestRepo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *requestServiceImpl) List(ctx context.Context, filter port.RequestFilter) ([]*entity.Request, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown request type %q", workflow.ErrValidation, filter.Type)
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", workflow.ErrValidation, filter.Status)
	}
	if filter.Holder != "" && !filter.Holder.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, filter.Holder)
	}

	requests, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list requests", "error", err)
		return nil, err
	}
	return requests, nil
}

func (s *requestServiceImpl) Inbox(ctx context.Context, actor entity.Actor) ([]*entity.Request, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	filter := port.RequestFilter{Status: workflow.StatePendingApproval}
	switch actor.Kind {
	case entity.ActorKindRole:
		filter.Holder = actor.Role
	case entity.ActorKindDelegate:
		delegateID := actor.DelegateID
		filter.Type = workflow.TypeDirectDirective
		filter.ToDelegateID = &delegateID
	default:
		return []*entity.Request{}, nil
	}

	candidates, err := s.requestRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	inbox := make([]*entity.Request, 0, len(candidates))
	for _, req := range candidates {
		if lifecycle.IsActionable(req, actor, now) {
			inbox = append(inbox, req)
		}
	}
	return inbox, nil
}

func (s *requestServiceImpl) Progress(ctx context.Context, id int64) (*lifecycle.Progress, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	progress := lifecycle.RenderProgress(req)
	return &progress, nil
}

func (s *requestServiceImpl) History(ctx context.Context, id int64, lang string) ([]history.Line, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(req, lang), nil
}

func (s *requestServiceImpl) ExpiredDirectives(ctx context.Context) ([]*entity.Request, error) {
	now := s.now()
	candidates, err := s.requestRepo.List(ctx, port.RequestFilter{
		Type:          workflow.TypeDirectDirective,
		Status:        workflow.StatePendingApproval,
		CreatedBefore: now.Add(-lifecycle.DirectiveTTL),
	})
	if err != nil {
		return nil, err
	}

	expired := make([]*entity.Request, 0, len(candidates))
	for _, req := range candidates {
		if lifecycle.IsExpired(req, now) {
			expired = append(expired, req)
		}
	}
	return expired, nil
}

// publish hands committed events to the dispatcher without waiting for handlers
func (s *requestServiceImpl) publish(ctx context.Context, events []*event.Event) {
	if s.dispatcher == nil {
		return
	}
	for _, evt := range events {
		s.dispatcher.DispatchAsync(ctx, evt)
	}
}

var _ RequestService = (*requestServiceImpl)(nil)
