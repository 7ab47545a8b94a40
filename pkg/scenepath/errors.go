package scenepath

import "errors"

var (
	// ErrInvalidPath indicates a string that is not an absolute scene path.
	ErrInvalidPath = errors.New("scenepath: invalid path")

	// ErrInvalidName indicates a segment that is not a valid element name.
	ErrInvalidName = errors.New("scenepath: invalid name")
)
