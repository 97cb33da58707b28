package workflow

// Role is an organizational role that can hold a workflow stage
type Role string

const (
	RoleGeneralManager  Role = "GeneralManager"
	RoleMovementManager Role = "MovementManager"
	RoleOpsSupervisor   Role = "OpsSupervisor"
	RoleHR              Role = "HR"
	RoleFinance         Role = "Finance"
	RoleLegal           Role = "Legal"
)

// Roles lists every staff role in display order
var Roles = []Role{
	RoleGeneralManager,
	RoleMovementManager,
	RoleOpsSupervisor,
	RoleHR,
	RoleFinance,
	RoleLegal,
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// IsValid returns true if the role is a known staff role
func (r Role) IsValid() bool {
	switch r {
	case RoleGeneralManager, RoleMovementManager, RoleOpsSupervisor, RoleHR, RoleFinance, RoleLegal:
		return true
	default:
		return false
	}
}

// CanDirect reports whether the role may resolve a request and route a new one elsewhere
func (r Role) CanDirect() bool {
	return r == RoleGeneralManager
}

// RequestType classifies a request; it never changes after creation
type RequestType string

const (
	TypeInternal        RequestType = "Internal"
	TypeEmployee        RequestType = "Employee"
	TypeDirectDirective RequestType = "DirectDirective"
)

// String returns the string representation of the request type
func (t RequestType) String() string {
	return string(t)
}

// IsValid returns true if the request type is known
func (t RequestType) IsValid() bool {
	switch t {
	case TypeInternal, TypeEmployee, TypeDirectDirective:
		return true
	default:
		return false
	}
}

// NumberPrefix returns the request number prefix of the type
func (t RequestType) NumberPrefix() string {
	switch t {
	case TypeInternal:
		return "D0"
	case TypeDirectDirective:
		return "T0"
	case TypeEmployee:
		return "M0"
	default:
		return ""
	}
}

// Topic is the subject of a delegate-originated request
type Topic string

const (
	TopicLeave                 Topic = "Leave"
	TopicFinancial             Topic = "Financial"
	TopicClearance             Topic = "Clearance"
	TopicConfidentialComplaint Topic = "ConfidentialComplaint"
	TopicContactSupervisor     Topic = "ContactSupervisor"
	TopicOther                 Topic = "Other"
)

// String returns the string representation of the topic
func (t Topic) String() string {
	return string(t)
}

// IsValid returns true if the topic is known
func (t Topic) IsValid() bool {
	switch t {
	case TopicLeave, TopicFinancial, TopicClearance, TopicConfidentialComplaint, TopicContactSupervisor, TopicOther:
		return true
	default:
		return false
	}
}
