package entity

import (
	"fmt"

	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// ActorKind distinguishes who performed a history event
type ActorKind string

const (
	ActorKindRole     ActorKind = "Role"
	ActorKindDelegate ActorKind = "Delegate"
	ActorKindSystem   ActorKind = "System"
)

// Actor identifies the party acting on a request: a staff role, a delegate, or the system
type Actor struct {
	Kind       ActorKind     `json:"kind"`
	Role       workflow.Role `json:"role,omitempty"`
	DelegateID int64         `json:"delegate_id,omitempty"`
}

// RoleActor returns an actor for a staff role
func RoleActor(role workflow.Role) Actor {
	return Actor{Kind: ActorKindRole, Role: role}
}

// DelegateActor returns an actor for a delegate
func DelegateActor(delegateID int64) Actor {
	return Actor{Kind: ActorKindDelegate, DelegateID: delegateID}
}

// SystemActor returns the system actor
func SystemActor() Actor {
	return Actor{Kind: ActorKindSystem}
}

// IsRole reports whether the actor is the given staff role
func (a Actor) IsRole(role workflow.Role) bool {
	return a.Kind == ActorKindRole && a.Role == role
}

// IsDelegate reports whether the actor is the given delegate
func (a Actor) IsDelegate(delegateID int64) bool {
	return a.Kind == ActorKindDelegate && a.DelegateID == delegateID
}

// Validate checks that the actor is well formed
func (a Actor) Validate() error {
	switch a.Kind {
	case ActorKindRole:
		if !a.Role.IsValid() {
			return fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, a.Role)
		}
	case ActorKindDelegate:
		if a.DelegateID <= 0 {
			return fmt.Errorf("%w: delegate actor needs an id", workflow.ErrValidation)
		}
	case ActorKindSystem:
	default:
		return fmt.Errorf("%w: unknown actor kind %q", workflow.ErrValidation, a.Kind)
	}
	return nil
}

// String returns the role name, "Delegate#<id>" or "System"
func (a Actor) String() string {
	switch a.Kind {
	case ActorKindRole:
		return a.Role.String()
	case ActorKindDelegate:
		return fmt.Sprintf("Delegate#%d", a.DelegateID)
	default:
		return string(ActorKindSystem)
	}
}
