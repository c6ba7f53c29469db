package kinetix

import "github.com/go-gl/mathgl/mgl64"

type EventKind int

const (
	EventNone EventKind = iota
	// EventInteraction is a two-particle collision. Counterparty is the
	// second particle id.
	EventInteraction
	// EventLocal is a particle/wall interaction. Counterparty is the
	// local's registry index.
	EventLocal
	// EventGlobal is an event emitted by an always-active global, the
	// cell crossing being the common case. Counterparty is the global's
	// registry index; Aux carries the global's private payload.
	EventGlobal
	// EventSystem is a scheduled callback (ticker, end-of-run sentinel)
	// living in the scheduler's extra slot. Counterparty indexes the
	// system event table.
	EventSystem
)

func (k EventKind) String() string {
	switch k {
	case EventInteraction:
		return "Interaction"
	case EventLocal:
		return "Local"
	case EventGlobal:
		return "Global"
	case EventSystem:
		return "System"
	}
	return "None"
}

// Event is a predicted future transition. Events are immutable once
// pushed: the only transitions are pop-and-execute or pop-and-discard.
// Counter is the invalidation token: the event counter of the particle
// whose change would falsify this prediction, observed at prediction
// time. For interactions that is the counterparty (the primary's whole
// bucket is evicted when the primary changes); for everything else it
// is the primary itself.
type Event struct {
	FireTime     float64
	Kind         EventKind
	Primary      int
	Counterparty int
	Counter      uint64
	Aux          int
}

// less is the total event order: fire time, then primary id, then
// counterparty id, then kind. Part of the observable contract; two runs
// from the same snapshot replay the identical stream.
func (e Event) less(o Event) bool {
	if e.FireTime != o.FireTime {
		return e.FireTime < o.FireTime
	}
	if e.Primary != o.Primary {
		return e.Primary < o.Primary
	}
	if e.Counterparty != o.Counterparty {
		return e.Counterparty < o.Counterparty
	}
	return e.Kind < o.Kind
}

// EventDelta is the structured outcome of a resolved event, handed to
// output plugins.
type EventDelta struct {
	Event     Event
	Time      float64
	Impulse   mgl64.Vec3
	Particles []int
}
