package kinetix

// OutputPlugin consumes the resolved event stream. Plugins run on the
// simulation goroutine and must not mutate simulation state.
type OutputPlugin interface {
	Name() string
	// EventDone is invoked once per executed event with its delta.
	EventDone(s *Sim, d EventDelta)
	// Tick is invoked by the periodic ticker system event.
	Tick(s *Sim, t float64)
}

// ConservationPlugin counts collisions and samples the kinetic energy
// of the system at every tick. Hard-sphere dynamics must conserve it to
// rounding error; drift here means a resolution bug.
type ConservationPlugin struct {
	Collisions  uint64
	LastKinetic float64
	Samples     int
}

func (cp *ConservationPlugin) Name() string { return "Conservation" }

func (cp *ConservationPlugin) EventDone(s *Sim, d EventDelta) {
	if d.Event.Kind == EventInteraction {
		cp.Collisions++
	}
}

func (cp *ConservationPlugin) Tick(s *Sim, t float64) {
	cp.LastKinetic = s.KineticEnergy()
	cp.Samples++
}

// EventRecord is one line of the observable event stream.
type EventRecord struct {
	Time         float64
	Kind         EventKind
	Primary      int
	Counterparty int
}

// EventRecorder captures the full resolved stream. Two runs from the
// same snapshot must record byte-identical sequences.
type EventRecorder struct {
	Records []EventRecord
}

func (er *EventRecorder) Name() string { return "EventRecorder" }

func (er *EventRecorder) EventDone(s *Sim, d EventDelta) {
	er.Records = append(er.Records, EventRecord{
		Time:         d.Time,
		Kind:         d.Event.Kind,
		Primary:      d.Event.Primary,
		Counterparty: d.Event.Counterparty,
	})
}

func (er *EventRecorder) Tick(s *Sim, t float64) {}
