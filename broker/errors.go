package broker

import "errors"

var (
	// ErrStageExpired is returned when a broker is used after its stage was
	// closed or released from the registry.
	ErrStageExpired = errors.New("broker: stage expired")

	// ErrNilStage is returned when a broker is requested for a nil stage.
	ErrNilStage = errors.New("broker: nil stage")

	// ErrNilNotice is returned when Process is called with a nil notice.
	ErrNilNotice = errors.New("broker: nil notice")

	// ErrTransactionClosed is returned when a Transaction is closed twice.
	ErrTransactionClosed = errors.New("broker: transaction already closed")
)
