package detail

import (
	"fmt"

	apperr "github.com/graphia/graphia-server/internal/errors"
)

// State is the lifecycle position of a detail view.
type State int

// Detail view states.
const (
	Loading State = iota
	Viewing
	NotFound
	LoadError
	Editing
	Saving
)

var stateNames = [...]string{
	Loading:   "loading",
	Viewing:   "viewing",
	NotFound:  "not_found",
	LoadError: "load_error",
	Editing:   "editing",
	Saving:    "saving",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Errors returned by transitions.
var (
	ErrNotOwner          = apperr.Forbidden("only the owner can edit this artifact")
	ErrInvalidTransition = apperr.ErrInvalidTransition
)

func invalidTransition(from State, op string) error {
	return apperr.InvalidTransitionf("cannot %s while %s", op, from)
}
