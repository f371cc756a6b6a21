package escalation

import "github.com/linnemanlabs/go-core/xerrors"

// Domain errors. The HTTP layer maps these to response codes; everything
// else wraps them with context via %w.
var (
	// ErrNotFound means no escalation exists with the given id.
	ErrNotFound = xerrors.New("escalation not found")

	// ErrInvalidInput means a required create field is missing.
	ErrInvalidInput = xerrors.New("invalid input")

	// ErrAlreadyResolved means the escalation is terminal and the requested
	// mutation was rejected.
	ErrAlreadyResolved = xerrors.New("escalation already resolved")

	// ErrInvalidTransition means the requested status change is not
	// permitted by the lifecycle state machine.
	ErrInvalidTransition = xerrors.New("invalid status transition")
)
