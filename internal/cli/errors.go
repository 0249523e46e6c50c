package cli

import (
	"errors"
	"fmt"

	"todo-cli/internal/state"
)

type notFoundError struct {
	kind string
	id   int
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %d", e.kind, e.id)
}

func errNotFound(kind string, id int) error {
	return notFoundError{kind: kind, id: id}
}

// opError prefixes err with the banner text the controller raised for it.
func opError(ctl *state.Controller, err error) error {
	if errors.Is(err, state.ErrEmptyTitle) {
		return err
	}
	if msg := ctl.Snapshot().Error; !msg.IsEmpty() {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
