package cotask

import (
	"slices"
	"sort"
)

type lesser[E any] interface {
	less(v E) bool
}

// priorityqueue is a stable priority queue: elements that compare equal pop
// in push order.
// Popped slots at the front are reclaimed lazily when the queue empties or
// when they make up more than half of the backing array.
type priorityqueue[E lesser[E]] struct {
	items []E
	head  int
}

func (q *priorityqueue[E]) Empty() bool {
	return q.head == len(q.items)
}

func (q *priorityqueue[E]) Len() int {
	return len(q.items) - q.head
}

func (q *priorityqueue[E]) Push(v E) {
	s := q.items[q.head:]
	i := sort.Search(len(s), func(i int) bool { return v.less(s[i]) })
	q.items = slices.Insert(q.items, q.head+i, v)
}

func (q *priorityqueue[E]) Pop() (v E) {
	var zero E

	v, q.items[q.head] = q.items[q.head], zero
	q.head++

	switch n := len(q.items); {
	case q.head == n:
		q.items, q.head = q.items[:0], 0
	case q.head > n/2:
		m := copy(q.items, q.items[q.head:])
		clear(q.items[m:])
		q.items, q.head = q.items[:m], 0
	}

	return v
}
