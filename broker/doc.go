// Package broker batches notices emitted by edits to a stage.
//
// A Broker sits between notice producers and listeners. Outside a
// transaction, every notice passed to Process is delivered at once. Inside
// one, notices are captured per type and delivered when the outermost
// transaction ends, with each run of same-typed mergeable notices folded
// into a single notice:
//
//	b, _ := broker.Create(st)
//	err := broker.WithTransaction(b, nil, func() error {
//		// edits here emit notices that are held back
//		return nil
//	})
//
// Transactions nest. Ending an inner transaction hands its captured notices
// to the enclosing one; nothing is delivered until the stack is empty.
// A transaction may carry a Predicate; notices it rejects are dropped for
// good. Abort drops the innermost transaction without delivering anything.
//
// Brokers are kept in a Registry, one per stage identity. Entries whose
// stage has expired are pruned on the next Create; Release removes one
// explicitly.
//
// Thread Safety:
// A Broker serializes all operations on one mutex. Listeners run after the
// mutex is released and may call back into the broker. Predicates run under
// the mutex and must not.
package broker
