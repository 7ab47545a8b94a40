package notice

import "errors"

// ErrTypeMismatch indicates an attempt to merge notices of different
// variants. It is a programming error on the caller's side.
var ErrTypeMismatch = errors.New("notice: type mismatch")
