package service

import (
	"context"
	"fmt"

	"github.com/garyjia/delegate-desk/internal/application/dispatcher"
	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/event"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// NotificationService tells staff when a request reaches their stage and
// tells directive issuers when the delegate replied
type NotificationService struct {
	requestRepo port.RequestRepository
	directory   *Directory
	notifier    port.Notifier
	renderer    *history.Renderer
	language    string
	logger      Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	requestRepo port.RequestRepository,
	directory *Directory,
	notifier port.Notifier,
	renderer *history.Renderer,
	language string,
	logger Logger,
) *NotificationService {
	return &NotificationService{
		requestRepo: requestRepo,
		directory:   directory,
		notifier:    notifier,
		renderer:    renderer,
		language:    language,
		logger:      logger,
	}
}

// Register subscribes the service to the events it reacts to
func (s *NotificationService) Register(d dispatcher.Dispatcher) {
	d.Subscribe(event.TypeRequestCreated, "notify-holder", s.HandleStageReached)
	d.Subscribe(event.TypeRequestAdvanced, "notify-holder", s.HandleStageReached)
	d.Subscribe(event.TypeDirectiveReplied, "notify-issuer", s.HandleDirectiveReplied)
	d.Subscribe(event.TypeDirectiveExpired, "notify-issuer", s.HandleDirectiveExpired)
}

// HandleStageReached notifies everyone holding the stage the request reached
func (s *NotificationService) HandleStageReached(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("load request %d: %w", evt.RequestID, err)
	}

	// The stage at publish time; the request may have moved on since
	holder := workflow.Role(evt.GetPayloadString(event.KeyHolder))
	if !holder.IsValid() {
		return nil
	}

	text := fmt.Sprintf("Request %s %q is waiting for %s.", req.RequestNumber, req.Title, s.renderer.RoleName(holder, s.language))
	return s.notifyRole(ctx, holder, req, text)
}

// HandleDirectiveReplied notifies the role that issued the directive
func (s *NotificationService) HandleDirectiveReplied(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("load request %d: %w", evt.RequestID, err)
	}
	if !req.IsDirective() || req.DirectiveResponse == nil {
		return nil
	}

	text := fmt.Sprintf("Directive %s was answered: %s", req.RequestNumber, req.DirectiveResponse.Comment)
	return s.notifyRole(ctx, req.FromRole, req, text)
}

// HandleDirectiveExpired tells the issuer that the reply window closed unanswered
func (s *NotificationService) HandleDirectiveExpired(ctx context.Context, evt *event.Event) error {
	req, err := s.requestRepo.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("load request %d: %w", evt.RequestID, err)
	}
	if !req.IsDirective() || req.Status != workflow.StatePendingApproval {
		return nil
	}

	text := fmt.Sprintf("Directive %s %q expired without a reply.", req.RequestNumber, req.Title)
	return s.notifyRole(ctx, req.FromRole, req, text)
}

func (s *NotificationService) notifyRole(ctx context.Context, role workflow.Role, req *entity.Request, text string) error {
	staff, err := s.directory.Holders(ctx, role)
	if err != nil {
		return err
	}

	var firstErr error
	sent := 0
	for _, member := range staff {
		if member.LarkOpenID == "" {
			continue
		}

		recipient := port.Recipient{Name: member.Name, Role: member.Role, LarkOpenID: member.LarkOpenID}
		if err := s.notifier.Notify(ctx, recipient, text); err != nil {
			notificationsTotal.WithLabelValues("failed").Inc()
			s.logger.Error("Failed to notify staff",
				"error", err,
				"request_number", req.RequestNumber,
				"staff", member.Name,
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("notify %s: %w", member.Name, err)
			}
			continue
		}
		notificationsTotal.WithLabelValues("sent").Inc()
		sent++
	}

	s.logger.Info("Stage notification processed",
		"request_number", req.RequestNumber,
		"role", role,
		"sent", sent,
	)
	return firstErr
}
