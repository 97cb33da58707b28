package port

import (
	"context"

	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Recipient is who a notification is addressed to
type Recipient struct {
	Name       string
	Role       workflow.Role
	LarkOpenID string
}

// Notifier delivers a short text message to a staff member
type Notifier interface {
	Notify(ctx context.Context, recipient Recipient, text string) error
}

// DraftInput is what the drafter knows about the directive to write
type DraftInput struct {
	IssuerRole   workflow.Role
	DelegateName string
	Subject      string
	Notes        string
	Language     string
}

// DirectiveDrafter writes a short directive text for a delegate
type DirectiveDrafter interface {
	DraftDirective(ctx context.Context, in DraftInput) (string, error)
}
