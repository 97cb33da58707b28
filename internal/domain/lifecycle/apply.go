// Package lifecycle holds the request workflow rules: creating requests,
// applying actions to them, and the read-side views derived from their ledger.
// Everything here is a pure function of its inputs; persistence and clocks
// belong to the caller.
package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Payload carries the action-specific fields of an Input
type Payload struct {
	Comment    string        `json:"comment,omitempty"`
	TargetRole workflow.Role `json:"target_role,omitempty"`
	ImageURL   string        `json:"image_url,omitempty"`
}

// Input describes one action taken on a request
type Input struct {
	Trigger   workflow.Trigger
	Actor     entity.Actor
	ActorName string
	Payload   Payload
	Now       time.Time
}

// Outcome is the result of a successful action.
// FollowUp is only set by ResolveAndDirect and has no ID or number yet.
type Outcome struct {
	Updated  *entity.Request
	FollowUp *entity.Request
}

// Apply validates an action against the request and returns the updated copy.
// The input request is never modified; on error nothing changes.
func Apply(ctx context.Context, req *entity.Request, in Input) (*Outcome, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", workflow.ErrNotFound)
	}
	if !in.Trigger.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", workflow.ErrValidation, in.Trigger)
	}
	if err := in.Actor.Validate(); err != nil {
		return nil, err
	}
	if !req.Status.IsValid() {
		return nil, fmt.Errorf("%w: request %s has status %q", workflow.ErrInvalidState, req.RequestNumber, req.Status)
	}
	if req.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is %s", workflow.ErrTerminal, req.RequestNumber, req.Status)
	}

	if err := authorize(req, in); err != nil {
		return nil, err
	}
	if err := validatePayload(req, in); err != nil {
		return nil, err
	}

	machine := BuildRequestStateMachine(req)
	if err := machine.Fire(ctx, in.Trigger); err != nil {
		return nil, fmt.Errorf("apply %s to %s: %w", in.Trigger, req.RequestNumber, err)
	}

	updated := req.Clone()
	updated.Status = machine.State()
	updated.LastActionAt = in.Now

	evt := entity.HistoryEvent{
		Actor:     in.Actor,
		ActorName: in.ActorName,
		Comment:   strings.TrimSpace(in.Payload.Comment),
		Timestamp: in.Now,
	}

	outcome := &Outcome{Updated: updated}

	switch in.Trigger {
	case workflow.TriggerApprove:
		evt.Action = entity.ActionApproved
		updated.CurrentStageIndex++

	case workflow.TriggerReject:
		// The index stays on the rejecting stage so progress can show where it failed
		evt.Action = entity.ActionRejected

	case workflow.TriggerResolveAndClose:
		evt.Action = entity.ActionResolvedAndClosed

	case workflow.TriggerResolveAndDirect:
		target := in.Payload.TargetRole
		evt.Action = entity.ActionResolvedAndDirected
		evt.DirectedTo = &target
		outcome.FollowUp = directedFollowUp(req, in, target)

	case workflow.TriggerComment:
		evt.Action = entity.ActionCommented

	case workflow.TriggerViewDirective:
		evt.Action = entity.ActionDirectiveViewed

	case workflow.TriggerReply:
		evt.Action = entity.ActionDirectiveReplied
		updated.DirectiveResponse = &entity.DirectiveResponse{
			Comment:  evt.Comment,
			ImageURL: strings.TrimSpace(in.Payload.ImageURL),
		}
	}

	updated.History = append(updated.History, evt)
	return outcome, nil
}

// authorize checks that the actor currently holds the request
func authorize(req *entity.Request, in Input) error {
	if req.IsDirective() {
		if !in.Trigger.IsDirectiveTrigger() {
			return fmt.Errorf("%w: %s is not available on directive %s", workflow.ErrInvalidTransition, in.Trigger, req.RequestNumber)
		}
		if req.ToDelegateID == nil || !in.Actor.IsDelegate(*req.ToDelegateID) {
			return fmt.Errorf("%w: %s is not the addressee of directive %s", workflow.ErrUnauthorized, in.Actor, req.RequestNumber)
		}
		if in.Trigger == workflow.TriggerReply && IsExpired(req, in.Now) {
			return fmt.Errorf("%w: %s", workflow.ErrExpired, req.RequestNumber)
		}
		return nil
	}

	if in.Trigger.IsDirectiveTrigger() {
		return fmt.Errorf("%w: %s is only available on directives", workflow.ErrInvalidTransition, in.Trigger)
	}

	holder, ok := req.CurrentHolder()
	if !ok {
		return fmt.Errorf("%w: %s has no current stage", workflow.ErrInvalidState, req.RequestNumber)
	}
	if !in.Actor.IsRole(holder) {
		return fmt.Errorf("%w: %s is held by %s, not %s", workflow.ErrUnauthorized, req.RequestNumber, holder, in.Actor)
	}
	if in.Trigger == workflow.TriggerResolveAndDirect && !holder.CanDirect() {
		return fmt.Errorf("%w: %s may not direct requests to other departments", workflow.ErrUnauthorized, holder)
	}

	return nil
}

func validatePayload(req *entity.Request, in Input) error {
	comment := strings.TrimSpace(in.Payload.Comment)

	switch in.Trigger {
	case workflow.TriggerReject:
		if comment == "" {
			return fmt.Errorf("%w: a rejection reason is required", workflow.ErrValidation)
		}
	case workflow.TriggerResolveAndDirect:
		if in.Payload.TargetRole == "" {
			return fmt.Errorf("%w: a target department is required", workflow.ErrValidation)
		}
		if !in.Payload.TargetRole.IsValid() {
			return fmt.Errorf("%w: unknown target department %q", workflow.ErrValidation, in.Payload.TargetRole)
		}
		if comment == "" {
			return fmt.Errorf("%w: a directive comment is required", workflow.ErrValidation)
		}
	case workflow.TriggerComment:
		if comment == "" {
			return fmt.Errorf("%w: comment text is required", workflow.ErrValidation)
		}
	case workflow.TriggerReply:
		if comment == "" {
			return fmt.Errorf("%w: a reply comment is required", workflow.ErrValidation)
		}
	case workflow.TriggerViewDirective:
		if req.HasAction(entity.ActionDirectiveViewed) {
			return fmt.Errorf("%w: directive %s was already viewed", workflow.ErrInvalidTransition, req.RequestNumber)
		}
	}

	return nil
}

// directedFollowUp builds the internal request spawned by ResolveAndDirect
func directedFollowUp(req *entity.Request, in Input, target workflow.Role) *entity.Request {
	comment := strings.TrimSpace(in.Payload.Comment)

	description := "Directive: " + comment
	if original := strings.TrimSpace(req.Description); original != "" {
		description += fmt.Sprintf("\n\nOriginal request %s: %s", req.RequestNumber, original)
	}

	return &entity.Request{
		Type:              workflow.TypeInternal,
		Title:             "Directed from " + req.RequestNumber,
		Description:       description,
		FromRole:          in.Actor.Role,
		Workflow:          []workflow.Role{target},
		CurrentStageIndex: 0,
		Status:            workflow.StatePendingApproval,
		Attachment:        req.Attachment,
		History: []entity.HistoryEvent{{
			Actor:     in.Actor,
			ActorName: in.ActorName,
			Action:    entity.ActionCreated,
			Timestamp: in.Now,
		}},
		CreatedAt:    in.Now,
		LastActionAt: in.Now,
	}
}
