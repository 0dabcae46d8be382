// Package mailbox is bounded non-blocking queue between event loop and collaborators.
package mailbox

import (
	"sync/atomic"

	"github.com/temoto/oledpod/log2"
)

const DefaultSize = 16

type Box[T any] struct {
	name    string
	ch      chan T
	log     *log2.Log
	dropped uint64 // atomic
}

func New[T any](name string, size int, log *log2.Log) *Box[T] {
	if size <= 0 {
		size = DefaultSize
	}
	return &Box[T]{
		name: name,
		ch:   make(chan T, size),
		log:  log,
	}
}

// TrySend never blocks, full mailbox drops value and logs it.
func (self *Box[T]) TrySend(x T) bool {
	select {
	case self.ch <- x:
		return true
	default:
		n := atomic.AddUint64(&self.dropped, 1)
		self.log.Errorf("mailbox=%s full, dropped=%d value=%v", self.name, n, x)
		return false
	}
}

// Drain calls f for every value available right now and returns number of values.
func (self *Box[T]) Drain(f func(T)) int {
	n := 0
	for {
		select {
		case x := <-self.ch:
			f(x)
			n++
		default:
			return n
		}
	}
}

// Chan is for collaborator goroutines that wait for requests.
func (self *Box[T]) Chan() <-chan T { return self.ch }

func (self *Box[T]) Len() int        { return len(self.ch) }
func (self *Box[T]) Dropped() uint64 { return atomic.LoadUint64(&self.dropped) }
func (self *Box[T]) String() string  { return self.name }
