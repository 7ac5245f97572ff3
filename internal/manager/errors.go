package manager

import "fmt"

// Error codes recorded in the manager's error queue.
const (
	// CodeUnknownRepo flags an id that is not listed in the available
	// overlay list.
	CodeUnknownRepo = 1

	// CodeUsage flags malformed caller input.
	CodeUsage = 2

	// CodeFetch flags a failed remote list refresh.
	CodeFetch = -1

	// CodeInternal flags a failed catalog or storage operation.
	CodeInternal = -2
)

// Error is one entry in the manager's drainable error queue.
type Error struct {
	Code    int
	Message string
}

func (e Error) String() string {
	return fmt.Sprintf("Error: %d, %s", e.Code, e.Message)
}

// UnsupportedInputError reports a batch argument that is neither a
// single id nor a sequence of ids.
type UnsupportedInputError struct {
	Value any
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported input type: %T", e.Value)
}

// UnknownRepoError reports a batch operation target that is not
// listed in the available overlay list.
type UnknownRepoError struct {
	ID string
}

func (e *UnknownRepoError) Error() string {
	return fmt.Sprintf("repo id %q is not listed in the current available overlays list", e.ID)
}
