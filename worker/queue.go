package worker

import (
	"sync/atomic"
)

// Queue is an unbounded lock-free FIFO for exactly one producer goroutine
// and one consumer goroutine.
//
// The queue always holds a sentinel node: head is the last dequeued node,
// only touched by the consumer, and tail the last enqueued one, only touched
// by the producer. Nodes are published through their atomic next pointer.
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
}

type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	sentinel := &node[T]{}
	return &Queue[T]{head: sentinel, tail: sentinel}
}

// Enqueue appends a value. It never blocks. Must only be called by the
// producer.
func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	q.tail.next.Store(n)
	q.tail = n
}

// Dequeue removes the oldest value. It reports false if the queue is empty.
// Must only be called by the consumer.
func (q *Queue[T]) Dequeue() (T, bool) {
	next := q.head.next.Load()
	if next == nil {
		var zero T
		return zero, false
	}
	v := next.value
	var zero T
	next.value = zero
	q.head = next
	return v, true
}
