package workflow

// Trigger represents an action a holder of a request can take on it
type Trigger string

const (
	TriggerApprove          Trigger = "APPROVE"
	TriggerReject           Trigger = "REJECT"
	TriggerResolveAndClose  Trigger = "RESOLVE_AND_CLOSE"
	TriggerResolveAndDirect Trigger = "RESOLVE_AND_DIRECT"
	TriggerComment          Trigger = "COMMENT"
	TriggerViewDirective    Trigger = "VIEW_DIRECTIVE"
	TriggerReply            Trigger = "REPLY"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger is one of the defined actions
func (t Trigger) IsValid() bool {
	switch t {
	case TriggerApprove,
		TriggerReject,
		TriggerResolveAndClose,
		TriggerResolveAndDirect,
		TriggerComment,
		TriggerViewDirective,
		TriggerReply:
		return true
	default:
		return false
	}
}

// IsDirectiveTrigger reports whether the trigger belongs to the delegate-side directive flow
func (t Trigger) IsDirectiveTrigger() bool {
	return t == TriggerViewDirective || t == TriggerReply
}
