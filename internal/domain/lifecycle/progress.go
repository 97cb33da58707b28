package lifecycle

import (
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/history"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// StageStatus is how one stage of a request's workflow is shown
type StageStatus string

const (
	StagePassed  StageStatus = "passed"
	StageCurrent StageStatus = "current"
	StageFailed  StageStatus = "failed"
	StagePending StageStatus = "pending"
)

// Stage is one role of the workflow with its display status
type Stage struct {
	Role   workflow.Role `json:"role"`
	Status StageStatus   `json:"status"`
}

// Progress is the derived view of how far a request got
type Progress struct {
	Stages         []Stage `json:"stages"`
	ClosingActor   string  `json:"closing_actor,omitempty"`
	ClosingComment string  `json:"closing_comment,omitempty"`
}

// RenderProgress derives the stage view of a request from its status and ledger.
// For closed requests the closing stage comes from the most recent closing
// event; when no event matches a stage it falls back to the last stage.
func RenderProgress(req *entity.Request) Progress {
	progress := Progress{Stages: make([]Stage, len(req.Workflow))}

	if !req.Status.IsTerminal() {
		for i, role := range req.Workflow {
			progress.Stages[i] = Stage{Role: role, Status: stageBefore(i, req.CurrentStageIndex, StageCurrent)}
		}
		return progress
	}

	evt, closing, found := history.Closing(req)
	if found {
		progress.ClosingActor = evt.ActorName
		if progress.ClosingActor == "" {
			progress.ClosingActor = evt.Actor.String()
		}
		progress.ClosingComment = evt.Comment
	}
	if !found || closing < 0 {
		closing = len(req.Workflow) - 1
	}

	atClosing := StagePassed
	switch req.Status {
	case workflow.StateRejected, workflow.StateCancelled:
		atClosing = StageFailed
	}

	for i, role := range req.Workflow {
		status := stageBefore(i, closing, atClosing)
		if req.Status == workflow.StateApproved {
			status = StagePassed
		}
		progress.Stages[i] = Stage{Role: role, Status: status}
	}

	return progress
}

// stageBefore marks stages before pivot as passed, the pivot itself with atPivot, and the rest pending
func stageBefore(i, pivot int, atPivot StageStatus) StageStatus {
	switch {
	case i < pivot:
		return StagePassed
	case i == pivot:
		return atPivot
	default:
		return StagePending
	}
}
