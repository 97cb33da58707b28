package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// ErrDraftingDisabled is returned when no drafter is configured
var ErrDraftingDisabled = errors.New("directive drafting is not configured")

// DraftRequest asks for a directive text to be suggested
type DraftRequest struct {
	FromRole   workflow.Role `json:"from_role"`
	DelegateID int64         `json:"delegate_id"`
	Subject    string        `json:"subject"`
	Notes      string        `json:"notes"`
	Language   string        `json:"lang"`
}

// DraftService suggests directive texts. Suggestions are never stored;
// the issuer edits and submits them through CreateDirective.
type DraftService struct {
	drafter   port.DirectiveDrafter
	directory *Directory
	logger    Logger
}

// NewDraftService creates a new DraftService; drafter may be nil
func NewDraftService(drafter port.DirectiveDrafter, directory *Directory, logger Logger) *DraftService {
	return &DraftService{drafter: drafter, directory: directory, logger: logger}
}

// Draft returns a suggested directive text
func (s *DraftService) Draft(ctx context.Context, in DraftRequest) (string, error) {
	if s.drafter == nil {
		return "", ErrDraftingDisabled
	}
	if !in.FromRole.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", workflow.ErrValidation, in.FromRole)
	}
	if strings.TrimSpace(in.Subject) == "" {
		return "", fmt.Errorf("%w: subject is required", workflow.ErrValidation)
	}

	delegate, err := s.directory.Delegate(ctx, in.DelegateID)
	if err != nil {
		return "", err
	}

	lang := in.Language
	if lang == "" {
		lang = "en"
	}

	text, err := s.drafter.DraftDirective(ctx, port.DraftInput{
		IssuerRole:   in.FromRole,
		DelegateName: delegate.Name,
		Subject:      strings.TrimSpace(in.Subject),
		Notes:        strings.TrimSpace(in.Notes),
		Language:     lang,
	})
	if err != nil {
		s.logger.Error("Failed to draft directive", "error", err, "delegate_id", in.DelegateID)
		return "", fmt.Errorf("draft directive: %w", err)
	}

	s.logger.Info("Directive drafted", "delegate_id", in.DelegateID, "length", len(text))
	return text, nil
}
