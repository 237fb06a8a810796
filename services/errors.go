package services

import (
	"errors"
	"fmt"

	"github.com/krshsl/brandcast/models"
	"github.com/krshsl/brandcast/repository"
)

// ErrNotFound is shared with the repository so a write to a row removed meanwhile maps to 404.
var (
	ErrNotFound           = repository.ErrNotFound
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNoAccountConnected = errors.New("no account connected")
	ErrPrecondition       = errors.New("precondition not met")
	ErrCollaborator       = errors.New("collaborator failure")
)

func notFound(entity, id string) error {
	return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
}

// invalidState wraps state machine rejections so callers only need ErrInvalidState.
func invalidState(err error) error {
	if errors.Is(err, models.ErrInvalidTransition) {
		return fmt.Errorf("%w: %s", ErrInvalidState, err.Error())
	}
	return err
}

func collaboratorFailure(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrCollaborator, what, err)
}
