package workflow

import "fmt"

// DeriveWorkflow computes the ordered roles a new request must pass through.
// The result is frozen on the request and never recomputed.
//
// Rules, first match wins:
//   - directives have no staged chain
//   - ContactSupervisor stops at the ops supervisor
//   - confidential complaints skip the direct supervisor
//   - financial and clearance requests end at Finance
//   - other employee requests end at the general manager
//   - internal requests go straight to the target department
func DeriveWorkflow(requestType RequestType, topic Topic, target Role) ([]Role, error) {
	switch requestType {
	case TypeDirectDirective:
		return []Role{}, nil

	case TypeEmployee:
		switch topic {
		case TopicContactSupervisor:
			return []Role{RoleOpsSupervisor}, nil
		case TopicConfidentialComplaint:
			return []Role{RoleMovementManager, RoleGeneralManager}, nil
		case TopicFinancial, TopicClearance:
			return []Role{RoleOpsSupervisor, RoleMovementManager, RoleHR, RoleGeneralManager, RoleFinance}, nil
		case TopicLeave, TopicOther, "":
			return []Role{RoleOpsSupervisor, RoleMovementManager, RoleHR, RoleGeneralManager}, nil
		default:
			return nil, fmt.Errorf("%w: unknown topic %q", ErrValidation, topic)
		}

	case TypeInternal:
		if !target.IsValid() {
			return nil, fmt.Errorf("%w: internal request needs a valid target role, got %q", ErrValidation, target)
		}
		return []Role{target}, nil

	default:
		return nil, fmt.Errorf("%w: unknown request type %q", ErrValidation, requestType)
	}
}
