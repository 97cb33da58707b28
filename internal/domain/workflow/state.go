package workflow

// State represents the status of a request in the approval lifecycle
type State string

const (
	StatePendingApproval State = "PENDING_APPROVAL"
	StateApproved        State = "APPROVED"
	StateRejected        State = "REJECTED"
	StateCompleted       State = "COMPLETED"
	StateCancelled       State = "CANCELLED"
)

var validStates = map[State]bool{
	StatePendingApproval: true,
	StateApproved:        true,
	StateRejected:        true,
	StateCompleted:       true,
	StateCancelled:       true,
}

// Every state except PendingApproval closes the request.
var terminalStates = map[State]bool{
	StateApproved:  true,
	StateRejected:  true,
	StateCompleted: true,
	StateCancelled: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid request state
func (s State) IsValid() bool {
	return validStates[s]
}
