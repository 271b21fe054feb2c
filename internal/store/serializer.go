package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreClosed is returned for operations enqueued after (or still
// queued when) the store is closed.
var ErrStoreClosed = errors.New("store is closed")

// serialOp is one queued database operation.
type serialOp struct {
	fn   func() error
	done chan error
}

// serializer guarantees that at most one logical database operation runs
// at a time. Operations are executed by a single worker goroutine in FIFO
// order; a failing operation does not block the chain. This is a
// cooperative, single-flight discipline, not a reentrant lock: an
// operation must not enqueue another operation while holding its turn.
type serializer struct {
	ops  chan serialOp
	quit chan struct{}
}

func newSerializer() *serializer {
	s := &serializer{
		ops:  make(chan serialOp, 64),
		quit: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *serializer) run() {
	for {
		select {
		case op := <-s.ops:
			op.done <- runOp(op.fn)
		case <-s.quit:
			// Fail anything that was queued but never started.
			for {
				select {
				case op := <-s.ops:
					op.done <- ErrStoreClosed
				default:
					return
				}
			}
		}
	}
}

// runOp executes fn, converting a panic into an error so one broken
// operation cannot take the worker (and every later operation) down.
func runOp(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return fn()
}

// enqueue submits fn and waits for its result. The context applies only
// while the operation is waiting in the queue; once started, operations
// run to completion (the store has no cancellation primitive).
func (s *serializer) enqueue(ctx context.Context, fn func() error) error {
	op := serialOp{fn: fn, done: make(chan error, 1)}
	select {
	case s.ops <- op:
	case <-s.quit:
		return ErrStoreClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-op.done
}

func (s *serializer) close() {
	select {
	case <-s.quit:
		// already closed
	default:
		close(s.quit)
	}
}
