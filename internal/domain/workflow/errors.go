package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")

	// ErrValidation is returned when an action is missing a required field
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the actor does not hold the request
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound is returned when a referenced request, staff member or delegate does not exist
	ErrNotFound = errors.New("not found")

	// ErrPersistence wraps failures from the record store
	ErrPersistence = errors.New("persistence failure")
)

var (
	// ErrTerminal is returned for any action on a closed request
	ErrTerminal = fmt.Errorf("%w: request is closed", ErrUnauthorized)

	// ErrExpired is returned when a delegate acts on a directive past its reply window
	ErrExpired = fmt.Errorf("%w: directive has expired", ErrUnauthorized)
)
