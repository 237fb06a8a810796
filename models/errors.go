package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is the sentinel every TransitionError unwraps to.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionError reports a status change the entity's state machine does not allow.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
