// Package rows maps requests and their ledger to table rows. It is shared by
// the SQLite and PostgreSQL repositories; only placeholders differ between them.
package rows

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Scanner is implemented by *sql.Row, *sql.Rows and pgx.Row
type Scanner interface {
	Scan(dest ...any) error
}

// RequestColumns is the select list read by ScanRequest
const RequestColumns = `id, request_number, type, topic, title, description, from_role,
	from_delegate_id, to_delegate_id, workflow, current_stage_index, status, attachment,
	response_comment, response_image_url, created_at, last_action_at`

// HistoryColumns is the select list read by ScanHistory
const HistoryColumns = `seq, actor_kind, actor_role, actor_delegate_id, actor_name,
	action, comment, directed_to, created_at`

// ScanRequest reads one request row without its history
func ScanRequest(s Scanner) (*entity.Request, error) {
	var (
		req          entity.Request
		reqType      string
		topic        string
		fromRole     string
		status       string
		workflowJSON []byte
		respComment  *string
		respImageURL *string
	)

	err := s.Scan(
		&req.ID,
		&req.RequestNumber,
		&reqType,
		&topic,
		&req.Title,
		&req.Description,
		&fromRole,
		&req.FromDelegateID,
		&req.ToDelegateID,
		&workflowJSON,
		&req.CurrentStageIndex,
		&status,
		&req.Attachment,
		&respComment,
		&respImageURL,
		&req.CreatedAt,
		&req.LastActionAt,
	)
	if err != nil {
		return nil, err
	}

	req.Type = workflow.RequestType(reqType)
	req.Topic = workflow.Topic(topic)
	req.FromRole = workflow.Role(fromRole)
	req.Status = workflow.State(status)
	req.CreatedAt = req.CreatedAt.UTC()
	req.LastActionAt = req.LastActionAt.UTC()

	stages, err := DecodeWorkflow(workflowJSON)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", req.RequestNumber, err)
	}
	req.Workflow = stages

	if respComment != nil {
		req.DirectiveResponse = &entity.DirectiveResponse{Comment: *respComment}
		if respImageURL != nil {
			req.DirectiveResponse.ImageURL = *respImageURL
		}
	}

	return &req, nil
}

// ScanHistory reads one ledger row
func ScanHistory(s Scanner) (int, entity.HistoryEvent, error) {
	var (
		seq        int
		evt        entity.HistoryEvent
		kind       string
		role       string
		delegateID *int64
		action     string
		directedTo *string
	)

	err := s.Scan(&seq, &kind, &role, &delegateID, &evt.ActorName, &action, &evt.Comment, &directedTo, &evt.Timestamp)
	if err != nil {
		return 0, evt, err
	}

	evt.Actor = entity.Actor{Kind: entity.ActorKind(kind), Role: workflow.Role(role)}
	if delegateID != nil {
		evt.Actor.DelegateID = *delegateID
	}
	evt.Action = entity.HistoryAction(action)
	if !evt.Action.IsValid() {
		return 0, evt, fmt.Errorf("unknown history action %q at seq %d", action, seq)
	}
	if directedTo != nil {
		target := workflow.Role(*directedTo)
		evt.DirectedTo = &target
	}
	evt.Timestamp = evt.Timestamp.UTC()

	return seq, evt, nil
}

// HistoryArgs returns the insert arguments for one ledger row, in the order
// request_id, seq, then HistoryColumns after seq
func HistoryArgs(requestID int64, seq int, evt entity.HistoryEvent) []any {
	var delegateID *int64
	if evt.Actor.Kind == entity.ActorKindDelegate {
		id := evt.Actor.DelegateID
		delegateID = &id
	}

	var directedTo *string
	if evt.DirectedTo != nil {
		target := evt.DirectedTo.String()
		directedTo = &target
	}

	return []any{
		requestID,
		seq,
		string(evt.Actor.Kind),
		string(evt.Actor.Role),
		delegateID,
		evt.ActorName,
		string(evt.Action),
		evt.Comment,
		directedTo,
		evt.Timestamp.UTC(),
	}
}

// EncodeWorkflow serializes the stage list
func EncodeWorkflow(stages []workflow.Role) (string, error) {
	if stages == nil {
		stages = []workflow.Role{}
	}
	b, err := json.Marshal(stages)
	if err != nil {
		return "", fmt.Errorf("encode workflow: %w", err)
	}
	return string(b), nil
}

// DecodeWorkflow parses the stage list
func DecodeWorkflow(b []byte) ([]workflow.Role, error) {
	stages := []workflow.Role{}
	if len(b) == 0 {
		return stages, nil
	}
	if err := json.Unmarshal(b, &stages); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return stages, nil
}

// Holder is the current_holder column value; empty when nobody holds the request
func Holder(req *entity.Request) string {
	holder, ok := req.CurrentHolder()
	if !ok {
		return ""
	}
	return holder.String()
}

// Response returns the nullable directive response columns
func Response(req *entity.Request) (*string, *string) {
	if req.DirectiveResponse == nil {
		return nil, nil
	}
	comment := req.DirectiveResponse.Comment
	var image *string
	if req.DirectiveResponse.ImageURL != "" {
		url := req.DirectiveResponse.ImageURL
		image = &url
	}
	return &comment, image
}

// Filter renders the WHERE clause and paging of a listing.
// placeholder returns the bind marker for the n-th argument, starting at 1.
func Filter(filter port.RequestFilter, placeholder func(n int) string) (string, []any) {
	var (
		conds []string
		args  []any
	)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, placeholder(len(args))))
	}

	if filter.Type != "" {
		add("type = %s", string(filter.Type))
	}
	if filter.Status != "" {
		add("status = %s", string(filter.Status))
	}
	if filter.Holder != "" {
		add("current_holder = %s", string(filter.Holder))
	}
	if filter.ToDelegateID != nil {
		add("to_delegate_id = %s", *filter.ToDelegateID)
	}
	if !filter.CreatedBefore.IsZero() {
		add("created_at < %s", filter.CreatedBefore.UTC())
	}

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, id DESC")

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		b.WriteString(" LIMIT " + placeholder(len(args)))
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			b.WriteString(" OFFSET " + placeholder(len(args)))
		}
	}

	return b.String(), args
}

// CheckAppend rejects an update whose ledger is shorter than what is stored
func CheckAppend(req *entity.Request, stored int) error {
	if stored > len(req.History) {
		return fmt.Errorf("%w: request %s has %d stored history events, update carries %d",
			workflow.ErrPersistence, req.RequestNumber, stored, len(req.History))
	}
	return nil
}
