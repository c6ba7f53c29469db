package kinetix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedPQOrdering(t *testing.T) {
	pq := NewBoundedPQ(4)

	pq.Push(Event{FireTime: 3.0, Kind: EventInteraction, Primary: 0, Counterparty: 1})
	pq.Push(Event{FireTime: 1.0, Kind: EventGlobal, Primary: 2})
	pq.Push(Event{FireTime: 2.0, Kind: EventLocal, Primary: 1})
	pq.Push(Event{FireTime: 0.5, Kind: EventInteraction, Primary: 3, Counterparty: 0})

	var times []float64
	for {
		e, ok := pq.Pop()
		if !ok {
			break
		}
		times = append(times, e.FireTime)
	}
	assert.Equal(t, []float64{0.5, 1.0, 2.0, 3.0}, times)
}

func TestBoundedPQTieBreak(t *testing.T) {
	pq := NewBoundedPQ(4)

	// Same fire time: primary id, then counterparty id decide.
	pq.Push(Event{FireTime: 1.0, Kind: EventInteraction, Primary: 2, Counterparty: 3})
	pq.Push(Event{FireTime: 1.0, Kind: EventInteraction, Primary: 0, Counterparty: 2})
	pq.Push(Event{FireTime: 1.0, Kind: EventInteraction, Primary: 0, Counterparty: 1})

	e, ok := pq.Pop()
	require.True(t, ok)
	assert.Equal(t, 0, e.Primary)
	assert.Equal(t, 1, e.Counterparty)

	e, ok = pq.Pop()
	require.True(t, ok)
	assert.Equal(t, 0, e.Primary)
	assert.Equal(t, 2, e.Counterparty)

	e, ok = pq.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, e.Primary)
}

func TestBoundedPQClearSlot(t *testing.T) {
	pq := NewBoundedPQ(3)

	pq.Push(Event{FireTime: 1.0, Kind: EventGlobal, Primary: 0})
	pq.Push(Event{FireTime: 1.5, Kind: EventLocal, Primary: 0})
	pq.Push(Event{FireTime: 2.0, Kind: EventGlobal, Primary: 1})

	require.Equal(t, 3, pq.Len())
	pq.Clear(0)
	require.Equal(t, 1, pq.Len())

	e, ok := pq.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, e.Primary)

	_, ok = pq.Pop()
	assert.False(t, ok)
}

func TestBoundedPQSystemSlot(t *testing.T) {
	pq := NewBoundedPQ(2)

	pq.Push(Event{FireTime: 5.0, Kind: EventSystem, Primary: 2, Counterparty: 0})
	pq.Push(Event{FireTime: 1.0, Kind: EventGlobal, Primary: 0})

	require.Equal(t, 1, pq.SlotLen(pq.SystemSlot()))

	e, ok := pq.Pop()
	require.True(t, ok)
	assert.Equal(t, EventGlobal, e.Kind)

	e, ok = pq.Pop()
	require.True(t, ok)
	assert.Equal(t, EventSystem, e.Kind)
}

func TestBoundedPQPushAfterClear(t *testing.T) {
	pq := NewBoundedPQ(2)

	pq.Push(Event{FireTime: 1.0, Kind: EventGlobal, Primary: 0})
	pq.Clear(0)
	pq.Push(Event{FireTime: 2.0, Kind: EventGlobal, Primary: 0})

	e, ok := pq.Pop()
	require.True(t, ok)
	assert.Equal(t, 2.0, e.FireTime)
}

func TestBoundedPQPeekDoesNotRemove(t *testing.T) {
	pq := NewBoundedPQ(1)

	pq.Push(Event{FireTime: 1.0, Kind: EventGlobal, Primary: 0})

	p1, ok := pq.Peek()
	require.True(t, ok)
	p2, ok := pq.Peek()
	require.True(t, ok)
	assert.Equal(t, p1, p2)
	assert.Equal(t, 1, pq.Len())
}
