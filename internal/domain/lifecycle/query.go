package lifecycle

import (
	"time"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// DirectiveTTL is how long a delegate has to reply to a directive
const DirectiveTTL = 72 * time.Hour

// IsExpired reports whether a directive is still pending past its reply window.
// Expiry is computed on read and never stored.
func IsExpired(req *entity.Request, now time.Time) bool {
	return req.IsDirective() &&
		req.Status == workflow.StatePendingApproval &&
		now.Sub(req.CreatedAt) > DirectiveTTL
}

// ExpiresAt returns when a directive stops accepting replies
func ExpiresAt(req *entity.Request) (time.Time, bool) {
	if !req.IsDirective() {
		return time.Time{}, false
	}
	return req.CreatedAt.Add(DirectiveTTL), true
}

// IsActionable reports whether the actor may act on the request right now
func IsActionable(req *entity.Request, actor entity.Actor, now time.Time) bool {
	if req.Status.IsTerminal() {
		return false
	}

	if req.IsDirective() {
		return req.ToDelegateID != nil &&
			actor.IsDelegate(*req.ToDelegateID) &&
			!IsExpired(req, now)
	}

	holder, ok := req.CurrentHolder()
	return ok && actor.IsRole(holder)
}

// AvailableTriggers lists the actions the actor may take on the request right now
func AvailableTriggers(req *entity.Request, actor entity.Actor, now time.Time) []workflow.Trigger {
	if !IsActionable(req, actor, now) {
		return []workflow.Trigger{}
	}

	if req.IsDirective() {
		triggers := []workflow.Trigger{workflow.TriggerReply}
		if !req.HasAction(entity.ActionDirectiveViewed) {
			triggers = append(triggers, workflow.TriggerViewDirective)
		}
		return triggers
	}

	triggers := []workflow.Trigger{
		workflow.TriggerApprove,
		workflow.TriggerReject,
		workflow.TriggerResolveAndClose,
		workflow.TriggerComment,
	}
	if actor.Role.CanDirect() {
		triggers = append(triggers, workflow.TriggerResolveAndDirect)
	}
	return triggers
}
