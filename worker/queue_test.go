package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := NewQueue[string]()
	_, ok := q.Dequeue()
	assert.False(t, ok)

	q.Enqueue("a")
	q.Enqueue("b")
	v, ok := q.Dequeue()
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	q.Enqueue("c")
	for _, want := range []string{"b", "c"} {
		v, ok = q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, want, v)
	}
	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_concurrent(t *testing.T) {
	const n = 100000
	q := NewQueue[int]()
	go func() {
		for i := 0; i < n; i++ {
			q.Enqueue(i)
		}
	}()

	next := 0
	for next < n {
		v, ok := q.Dequeue()
		if !ok {
			continue
		}
		if v != next {
			t.Fatalf("got %v, want %v", v, next)
		}
		next++
	}
	_, ok := q.Dequeue()
	assert.False(t, ok)
}
