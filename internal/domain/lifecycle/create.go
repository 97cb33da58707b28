package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// NewRequestInput describes a request to be created
type NewRequestInput struct {
	Type           workflow.RequestType
	Topic          workflow.Topic
	Title          string
	Description    string
	FromRole       workflow.Role
	FromDelegateID *int64
	ToDelegateID   *int64
	TargetRole     workflow.Role // internal requests only
	Attachment     string
	ActorName      string
}

// NewRequest validates the input, derives the workflow and seeds the ledger
// with a single Created event. ID and RequestNumber are left for the store.
func NewRequest(in NewRequestInput, now time.Time) (*entity.Request, error) {
	if err := validateOrigin(in); err != nil {
		return nil, err
	}

	if in.Topic != "" && !in.Topic.IsValid() {
		return nil, fmt.Errorf("%w: unknown topic %q", workflow.ErrValidation, in.Topic)
	}

	stages, err := workflow.DeriveWorkflow(in.Type, in.Topic, in.TargetRole)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		switch {
		case in.Topic != "":
			title = in.Topic.String()
		case in.Type == workflow.TypeDirectDirective:
			title = "Directive"
		}
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", workflow.ErrValidation)
	}

	req := &entity.Request{
		Type:              in.Type,
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		FromRole:          in.FromRole,
		FromDelegateID:    in.FromDelegateID,
		ToDelegateID:      in.ToDelegateID,
		Workflow:          stages,
		CurrentStageIndex: 0,
		Status:            workflow.StatePendingApproval,
		Attachment:        strings.TrimSpace(in.Attachment),
		CreatedAt:         now,
		LastActionAt:      now,
	}
	if in.Type == workflow.TypeEmployee {
		req.Topic = in.Topic
	}

	req.History = []entity.HistoryEvent{{
		Actor:     req.Origin(),
		ActorName: in.ActorName,
		Action:    entity.ActionCreated,
		Timestamp: now,
	}}

	return req, nil
}

// validateOrigin enforces that exactly one of FromRole and FromDelegateID is set,
// and that the origin fits the request type
func validateOrigin(in NewRequestInput) error {
	hasRole := in.FromRole != ""
	hasDelegate := in.FromDelegateID != nil

	if hasRole == hasDelegate {
		return fmt.Errorf("%w: exactly one of from_role and from_delegate_id must be set", workflow.ErrValidation)
	}
	if hasRole && !in.FromRole.IsValid() {
		return fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, in.FromRole)
	}
	if hasDelegate && *in.FromDelegateID <= 0 {
		return fmt.Errorf("%w: invalid delegate id %d", workflow.ErrValidation, *in.FromDelegateID)
	}

	switch in.Type {
	case workflow.TypeEmployee:
		if !hasDelegate {
			return fmt.Errorf("%w: employee requests are raised by a delegate", workflow.ErrValidation)
		}
	case workflow.TypeInternal:
		if !hasRole {
			return fmt.Errorf("%w: internal requests are raised by a staff role", workflow.ErrValidation)
		}
	case workflow.TypeDirectDirective:
		if !hasRole {
			return fmt.Errorf("%w: directives are issued by a staff role", workflow.ErrValidation)
		}
		if in.ToDelegateID == nil || *in.ToDelegateID <= 0 {
			return fmt.Errorf("%w: directives need a target delegate", workflow.ErrValidation)
		}
		if strings.TrimSpace(in.Description) == "" {
			return fmt.Errorf("%w: directive text is required", workflow.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown request type %q", workflow.ErrValidation, in.Type)
	}

	if in.Type != workflow.TypeDirectDirective && in.ToDelegateID != nil {
		return fmt.Errorf("%w: only directives have a target delegate", workflow.ErrValidation)
	}

	return nil
}
