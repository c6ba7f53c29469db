package kinetix

import "container/heap"

// BoundedPQ is the two-level event sorter: one min-heap of events per
// particle slot, plus a top heap over the non-empty slots keyed by
// their minima. Evicting every prediction for one particle is a single
// bucket clear; the global structure is never walked. Slot N holds
// system events.
type BoundedPQ struct {
	buckets []*bucket
	top     topHeap
}

type bucket struct {
	slot   int
	events eventHeap
	pos    int // index in the top heap, -1 when absent
}

func NewBoundedPQ(particles int) *BoundedPQ {
	pq := &BoundedPQ{buckets: make([]*bucket, particles+1)}
	for i := range pq.buckets {
		pq.buckets[i] = &bucket{slot: i, pos: -1}
	}
	return pq
}

// SystemSlot is the bucket index reserved for system events.
func (pq *BoundedPQ) SystemSlot() int { return len(pq.buckets) - 1 }

func (pq *BoundedPQ) slotFor(e Event) int {
	if e.Kind == EventSystem {
		return pq.SystemSlot()
	}
	return e.Primary
}

// Push inserts a predicted event under its owning slot.
func (pq *BoundedPQ) Push(e Event) {
	b := pq.buckets[pq.slotFor(e)]
	heap.Push(&b.events, e)
	if b.pos == -1 {
		heap.Push(&pq.top, b)
	} else if b.events[0] == e {
		heap.Fix(&pq.top, b.pos)
	}
}

// Peek returns the globally earliest event without removing it.
func (pq *BoundedPQ) Peek() (Event, bool) {
	if len(pq.top) == 0 {
		return Event{}, false
	}
	return pq.top[0].events[0], true
}

// Pop removes and returns the globally earliest event.
func (pq *BoundedPQ) Pop() (Event, bool) {
	if len(pq.top) == 0 {
		return Event{}, false
	}
	b := pq.top[0]
	e := heap.Pop(&b.events).(Event)
	if len(b.events) == 0 {
		heap.Remove(&pq.top, b.pos)
	} else {
		heap.Fix(&pq.top, b.pos)
	}
	return e, true
}

// Clear evicts every event in one slot. O(log buckets); the events are
// dropped wholesale rather than deleted one by one.
func (pq *BoundedPQ) Clear(slot int) {
	b := pq.buckets[slot]
	b.events = b.events[:0]
	if b.pos >= 0 {
		heap.Remove(&pq.top, b.pos)
	}
}

// Len is the total number of queued events across all slots.
func (pq *BoundedPQ) Len() int {
	n := 0
	for _, b := range pq.buckets {
		n += len(b.events)
	}
	return n
}

// SlotLen is the number of events queued for one slot.
func (pq *BoundedPQ) SlotLen(slot int) int { return len(pq.buckets[slot].events) }

type eventHeap []Event

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)        { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

type topHeap []*bucket

func (h topHeap) Len() int           { return len(h) }
func (h topHeap) Less(i, j int) bool { return h[i].events[0].less(h[j].events[0]) }
func (h topHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}
func (h *topHeap) Push(x any) {
	b := x.(*bucket)
	b.pos = len(*h)
	*h = append(*h, b)
}
func (h *topHeap) Pop() any {
	old := *h
	n := len(old)
	b := old[n-1]
	b.pos = -1
	*h = old[:n-1]
	return b
}
