package broker

import (
	"sync"
)

// Transaction is a scoped handle on one Begin/End pair. Close or Discard
// must be called exactly once; later calls are no-ops that report
// ErrTransactionClosed.
//
//	tx, err := broker.NewTransaction(b, nil)
//	if err != nil {
//		return err
//	}
//	defer tx.Close()
type Transaction struct {
	b    *Broker
	mu   sync.Mutex
	done bool
}

// NewTransaction begins a transaction on b.
func NewTransaction(b *Broker, predicate Predicate) (*Transaction, error) {
	if err := b.Begin(predicate); err != nil {
		return nil, err
	}
	return &Transaction{b: b}, nil
}

// NewStageTransaction begins a transaction on the process-wide broker of st.
func NewStageTransaction(st Stage, predicate Predicate) (*Transaction, error) {
	b, err := Create(st)
	if err != nil {
		return nil, err
	}
	return NewTransaction(b, predicate)
}

// Broker returns the broker the transaction runs on.
func (t *Transaction) Broker() *Broker {
	return t.b
}

func (t *Transaction) finish() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Close ends the transaction. If it is the outermost one, the captured
// notices are merged and delivered.
func (t *Transaction) Close() error {
	if !t.finish() {
		return ErrTransactionClosed
	}
	return t.b.End()
}

// Discard ends the transaction and drops everything it captured.
func (t *Transaction) Discard() error {
	if !t.finish() {
		return ErrTransactionClosed
	}
	t.b.Abort()
	return nil
}

// WithTransaction runs fn inside a transaction on b. The transaction is
// ended on every exit path: when fn returns (with or without an error) and
// when it panics.
//
// The error from fn takes precedence over an error from ending the
// transaction.
func WithTransaction(b *Broker, predicate Predicate, fn func() error) (err error) {
	tx, err := NewTransaction(b, predicate)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tx.Close(); err == nil {
			err = cerr
		}
	}()
	return fn()
}
