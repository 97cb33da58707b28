// Package history reads a request's append-only ledger: who closed it, and
// how each event reads in the staff's language.
package history

import (
	"github.com/garyjia/delegate-desk/internal/domain/entity"
)

var closingActions = map[entity.HistoryAction]bool{
	entity.ActionApproved:            true,
	entity.ActionRejected:            true,
	entity.ActionResolvedAndClosed:   true,
	entity.ActionResolvedAndDirected: true,
	entity.ActionCancelled:           true,
}

// Closing finds the most recent closing event of a staged request whose actor
// holds a stage of the workflow, and returns it with that stage's index.
// For directives it returns the delegate's reply with stage -1.
func Closing(req *entity.Request) (entity.HistoryEvent, int, bool) {
	if req.IsDirective() {
		for i := len(req.History) - 1; i >= 0; i-- {
			if req.History[i].Action == entity.ActionDirectiveReplied {
				return req.History[i], -1, true
			}
		}
		return entity.HistoryEvent{}, -1, false
	}

	for i := len(req.History) - 1; i >= 0; i-- {
		evt := req.History[i]
		if !closingActions[evt.Action] || evt.Actor.Kind != entity.ActorKindRole {
			continue
		}
		for stage, role := range req.Workflow {
			if role == evt.Actor.Role {
				return evt, stage, true
			}
		}
	}

	return entity.HistoryEvent{}, -1, false
}
