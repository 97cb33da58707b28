package service

import (
	"github.com/google/uuid"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/event"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

func createdEvent(req *entity.Request, correlationID string) *event.Event {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	payload := map[string]interface{}{
		event.KeyStatus:      string(req.Status),
		event.KeyRequestType: string(req.Type),
	}
	if holder, ok := req.CurrentHolder(); ok {
		payload[event.KeyHolder] = string(holder)
	}
	if req.ToDelegateID != nil {
		payload[event.KeyDelegateID] = *req.ToDelegateID
	}

	return event.NewEventWithCorrelation(event.TypeRequestCreated, req.ID, req.RequestNumber, payload, correlationID)
}

// actionEvents maps a committed action to the events it raises.
// All events of one action share a correlation ID.
func actionEvents(in ActionInput, result *ActionResult) []*event.Event {
	req := result.Request
	correlationID := uuid.NewString()

	payload := map[string]interface{}{
		event.KeyStatus:  string(req.Status),
		event.KeyActor:   in.Actor.String(),
		event.KeyComment: in.Payload.Comment,
	}
	newEvent := func(t event.Type) *event.Event {
		own := make(map[string]interface{}, len(payload))
		for k, v := range payload {
			own[k] = v
		}
		return event.NewEventWithCorrelation(t, req.ID, req.RequestNumber, own, correlationID)
	}

	switch in.Trigger {
	case workflow.TriggerApprove:
		if holder, ok := req.CurrentHolder(); ok {
			return []*event.Event{newEvent(event.TypeRequestAdvanced).WithPayload(event.KeyHolder, string(holder))}
		}
		return []*event.Event{newEvent(event.TypeRequestClosed)}

	case workflow.TriggerReject, workflow.TriggerResolveAndClose:
		return []*event.Event{newEvent(event.TypeRequestClosed)}

	case workflow.TriggerResolveAndDirect:
		events := []*event.Event{
			newEvent(event.TypeRequestClosed),
			newEvent(event.TypeRequestDirected).
				WithPayload(event.KeyDirectedTo, string(in.Payload.TargetRole)),
		}
		if result.FollowUp != nil {
			events[1] = events[1].WithPayload(event.KeyFollowUpID, result.FollowUp.ID)
			events = append(events, createdEvent(result.FollowUp, correlationID))
		}
		return events

	case workflow.TriggerComment:
		return []*event.Event{newEvent(event.TypeRequestCommented)}

	case workflow.TriggerViewDirective:
		return []*event.Event{newEvent(event.TypeDirectiveViewed)}

	case workflow.TriggerReply:
		return []*event.Event{newEvent(event.TypeDirectiveReplied)}
	}

	return nil
}
