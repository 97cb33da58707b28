package entity

import (
	"time"

	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// HistoryAction names what happened in a history event
type HistoryAction string

const (
	ActionCreated             HistoryAction = "Created"
	ActionApproved            HistoryAction = "Approved"
	ActionRejected            HistoryAction = "Rejected"
	ActionCommented           HistoryAction = "Commented"
	ActionResolvedAndClosed   HistoryAction = "ResolvedAndClosed"
	ActionCancelled           HistoryAction = "Cancelled"
	ActionResolvedAndDirected HistoryAction = "ResolvedAndDirected"
	ActionDirectiveViewed     HistoryAction = "DirectiveViewed"
	ActionDirectiveReplied    HistoryAction = "DirectiveReplied"
)

// IsValid returns true if the action is known
func (a HistoryAction) IsValid() bool {
	switch a {
	case ActionCreated, ActionApproved, ActionRejected, ActionCommented, ActionResolvedAndClosed,
		ActionCancelled, ActionResolvedAndDirected, ActionDirectiveViewed, ActionDirectiveReplied:
		return true
	default:
		return false
	}
}

// HistoryEvent is one entry of a request's append-only ledger.
// ActorName is a snapshot taken when the action happened.
type HistoryEvent struct {
	Actor      Actor          `json:"actor"`
	ActorName  string         `json:"actor_name"`
	Action     HistoryAction  `json:"action"`
	Comment    string         `json:"comment,omitempty"`
	DirectedTo *workflow.Role `json:"directed_to,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// DirectiveResponse is the delegate's reply to a directive
type DirectiveResponse struct {
	Comment  string `json:"comment"`
	ImageURL string `json:"image_url,omitempty"`
}

// Request is an approval request or a direct directive
type Request struct {
	ID                int64                `json:"id"`
	RequestNumber     string               `json:"request_number"`
	Type              workflow.RequestType `json:"type"`
	Topic             workflow.Topic       `json:"topic,omitempty"`
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	FromRole          workflow.Role        `json:"from_role,omitempty"`
	FromDelegateID    *int64               `json:"from_delegate_id,omitempty"`
	ToDelegateID      *int64               `json:"to_delegate_id,omitempty"`
	Workflow          []workflow.Role      `json:"workflow"`
	CurrentStageIndex int                  `json:"current_stage_index"`
	Status            workflow.State       `json:"status"`
	History           []HistoryEvent       `json:"history"`
	Attachment        string               `json:"attachment,omitempty"`
	DirectiveResponse *DirectiveResponse   `json:"directive_response,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	LastActionAt      time.Time            `json:"last_action_at"`
}

// IsDirective reports whether the request is a direct directive to a delegate
func (r *Request) IsDirective() bool {
	return r.Type == workflow.TypeDirectDirective
}

// CurrentHolder returns the role holding the request, if any
func (r *Request) CurrentHolder() (workflow.Role, bool) {
	if r.Status.IsTerminal() || r.CurrentStageIndex < 0 || r.CurrentStageIndex >= len(r.Workflow) {
		return "", false
	}
	return r.Workflow[r.CurrentStageIndex], true
}

// Origin returns the actor that created the request
func (r *Request) Origin() Actor {
	if r.FromDelegateID != nil {
		return DelegateActor(*r.FromDelegateID)
	}
	return RoleActor(r.FromRole)
}

// HasAction reports whether the ledger contains the action
func (r *Request) HasAction(action HistoryAction) bool {
	for _, evt := range r.History {
		if evt.Action == action {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the request
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}

	c := *r
	c.FromDelegateID = cloneInt64(r.FromDelegateID)
	c.ToDelegateID = cloneInt64(r.ToDelegateID)
	c.Workflow = append([]workflow.Role(nil), r.Workflow...)
	if c.Workflow == nil {
		c.Workflow = []workflow.Role{}
	}

	c.History = make([]HistoryEvent, len(r.History))
	for i, evt := range r.History {
		if evt.DirectedTo != nil {
			role := *evt.DirectedTo
			evt.DirectedTo = &role
		}
		c.History[i] = evt
	}

	if r.DirectiveResponse != nil {
		resp := *r.DirectiveResponse
		c.DirectiveResponse = &resp
	}

	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
