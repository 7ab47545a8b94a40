package stage

import "errors"

var (
	// ErrPrimNotFound indicates that no prim exists at the given path.
	ErrPrimNotFound = errors.New("stage: prim not found")

	// ErrRootPrim indicates an edit addressed at the pseudo-root.
	ErrRootPrim = errors.New("stage: cannot edit the pseudo-root")

	// ErrClosed indicates an edit on a closed stage.
	ErrClosed = errors.New("stage: closed")

	// ErrEmptyField indicates a field edit without a field name.
	ErrEmptyField = errors.New("stage: empty field name")

	// ErrEmptyLayer indicates a muting edit without a layer identifier.
	ErrEmptyLayer = errors.New("stage: empty layer identifier")
)
