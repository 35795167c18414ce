package bridge

import (
	"sync"
	"sync/atomic"
)

// NewOneshot returns the two ends of a single-value channel. The sender may
// complete it at most once; the receiver may take the value at most once.
// A completed Send happens before the matching Recv returns.
func NewOneshot[T any]() (*Sender[T], *Receiver[T]) {
	c := &cell[T]{done: make(chan struct{})}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

type cell[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
}

// Sender is the producing end of a oneshot.
type Sender[T any] struct {
	c *cell[T]
}

// Send stores v and wakes the receiver. It reports false if a value was
// already sent, in which case v is discarded.
func (s *Sender[T]) Send(v T) bool {
	sent := false
	s.c.once.Do(func() {
		s.c.val = v
		close(s.c.done)
		sent = true
	})
	return sent
}

// Receiver is the consuming end of a oneshot.
type Receiver[T any] struct {
	c     *cell[T]
	taken atomic.Bool
}

// Done is closed once a value has been sent.
func (r *Receiver[T]) Done() <-chan struct{} { return r.c.done }

// Recv blocks until a value is sent and returns it. Only the first call
// receives the value; later calls return immediately with ok false.
func (r *Receiver[T]) Recv() (v T, ok bool) {
	if !r.taken.CompareAndSwap(false, true) {
		return v, false
	}
	<-r.c.done
	return r.c.val, true
}
