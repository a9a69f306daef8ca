package scheduler

import "container/heap"

// item is one pending ticket. seq breaks priority ties in submission order.
type item struct {
	ticket *Ticket
	seq    uint64
	index  int
}

// queue is a min-heap on (priority, seq). It is not safe for concurrent use.
type queue struct {
	items []*item
	seq   uint64
}

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if a.ticket.Request.Priority != b.ticket.Request.Priority {
		return a.ticket.Request.Priority < b.ticket.Request.Priority
	}
	return a.seq < b.seq
}

func (q *queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *queue) Push(x any) {
	it := x.(*item)
	it.index = len(q.items)
	q.items = append(q.items, it)
}

func (q *queue) Pop() any {
	n := len(q.items)
	it := q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	it.index = -1
	return it
}

func (q *queue) push(t *Ticket) *item {
	q.seq++
	it := &item{ticket: t, seq: q.seq}
	heap.Push(q, it)
	return it
}

func (q *queue) pop() *Ticket {
	if len(q.items) == 0 {
		return nil
	}
	return heap.Pop(q).(*item).ticket
}

// remove drops it from the queue. It reports false when it was already taken.
func (q *queue) remove(it *item) bool {
	if it == nil || it.index < 0 || it.index >= len(q.items) || q.items[it.index] != it {
		return false
	}
	heap.Remove(q, it.index)
	return true
}

// drain empties the queue and returns the tickets in priority order.
func (q *queue) drain() []*Ticket {
	out := make([]*Ticket, 0, len(q.items))
	for t := q.pop(); t != nil; t = q.pop() {
		out = append(out, t)
	}
	return out
}
