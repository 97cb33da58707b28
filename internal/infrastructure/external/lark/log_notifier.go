package lark

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/delegate-desk/internal/application/port"
)

// LogNotifier stands in for Lark when no app credentials are configured.
// Messages are written to the log instead of being delivered.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the message
func (n *LogNotifier) Notify(_ context.Context, recipient port.Recipient, text string) error {
	n.logger.Info("Notification (lark disabled)",
		zap.String("recipient", recipient.Name),
		zap.String("role", recipient.Role.String()),
		zap.String("text", text))
	return nil
}

var _ port.Notifier = (*LogNotifier)(nil)
