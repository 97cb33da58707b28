package lifecycle

import (
	"context"

	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// BuildRequestStateMachine creates a state machine for one request.
// Guards close over the request, so the machine must not outlive the value it was built from.
func BuildRequestStateMachine(req *entity.Request) workflow.StateMachine {
	builder := workflow.NewBuilder()

	staged := func(context.Context) bool { return !req.IsDirective() }
	directive := func(context.Context) bool { return req.IsDirective() }
	finalStage := func(context.Context) bool {
		return !req.IsDirective() && req.CurrentStageIndex+1 == len(req.Workflow)
	}
	unviewed := func(context.Context) bool {
		return req.IsDirective() && !req.HasAction(entity.ActionDirectiveViewed)
	}

	// PENDING_APPROVAL state transitions
	builder.Configure(workflow.StatePendingApproval).
		PermitIf(workflow.TriggerApprove, workflow.StateApproved, finalStage).
		PermitIf(workflow.TriggerApprove, workflow.StatePendingApproval, staged).
		PermitIf(workflow.TriggerReject, workflow.StateRejected, staged).
		PermitIf(workflow.TriggerResolveAndClose, workflow.StateCompleted, staged).
		PermitIf(workflow.TriggerResolveAndDirect, workflow.StateCompleted, staged).
		PermitIf(workflow.TriggerComment, workflow.StatePendingApproval, staged).
		PermitIf(workflow.TriggerViewDirective, workflow.StatePendingApproval, unviewed).
		PermitIf(workflow.TriggerReply, workflow.StateCompleted, directive)

	// APPROVED, REJECTED, COMPLETED and CANCELLED are terminal states - no outgoing transitions

	return builder.Build(req.Status)
}
