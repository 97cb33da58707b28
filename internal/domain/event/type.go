package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated   Type = "request.created"
	TypeRequestAdvanced  Type = "request.advanced"
	TypeRequestClosed    Type = "request.closed"
	TypeRequestDirected  Type = "request.directed"
	TypeRequestCommented Type = "request.commented"
	TypeDirectiveViewed  Type = "directive.viewed"
	TypeDirectiveReplied Type = "directive.replied"
	TypeDirectiveExpired Type = "directive.expired"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestAdvanced,
		TypeRequestClosed,
		TypeRequestDirected,
		TypeRequestCommented,
		TypeDirectiveViewed,
		TypeDirectiveReplied,
		TypeDirectiveExpired:
		return true
	default:
		return false
	}
}
