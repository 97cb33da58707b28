package entity

import "github.com/garyjia/delegate-desk/internal/domain/workflow"

// Staff is an internal employee holding one organizational role
type Staff struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Role       workflow.Role `json:"role"`
	LarkOpenID string        `json:"lark_open_id,omitempty"`
}

// DelegateKind is the contract type of a delegate
type DelegateKind string

const (
	DelegateKindKafala DelegateKind = "Kafala" // sponsored
	DelegateKindAjir   DelegateKind = "Ajir"   // hired
)

// Delegate is a contracted delivery driver
type Delegate struct {
	ID     int64        `json:"id"`
	Name   string       `json:"name"`
	Kind   DelegateKind `json:"kind"`
	Active bool         `json:"active"`
}
