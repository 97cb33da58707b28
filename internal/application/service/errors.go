package service

import (
	"errors"

	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// errorKind names the error class for logs and metric labels
func errorKind(err error) string {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return "validation"
	case errors.Is(err, workflow.ErrExpired):
		return "expired"
	case errors.Is(err, workflow.ErrTerminal):
		return "terminal"
	case errors.Is(err, workflow.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, workflow.ErrNotFound):
		return "not_found"
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed):
		return "invalid_transition"
	case errors.Is(err, workflow.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}
