package kinetix

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sim is the sole owner of all simulation state. The scheduler, cell
// tracker and streaming model hold read handles into it; every state
// transition is serialised through Run on a single goroutine. The only
// shared resource is the render proxy's handoff buffer.
type Sim struct {
	log   Logger
	runID uuid.UUID

	store        *ParticleStore
	boundary     Boundary
	liou         *Liouvillean
	interactions *InteractionRegistry
	locals       *LocalRegistry
	globals      *GlobalRegistry
	systems      []SystemEvent
	scheduler    *Scheduler
	outputs      []OutputPlugin
	render       *RenderProxy

	time          float64
	collisions    uint64
	freestreamAcc float64
	endTime       float64
	maxCollisions uint64

	stop        atomic.Bool
	initialised bool
}

func (s *Sim) Time() float64                      { return s.time }
func (s *Sim) Collisions() uint64                 { return s.collisions }
func (s *Sim) RunID() uuid.UUID                   { return s.runID }
func (s *Sim) Store() *ParticleStore              { return s.store }
func (s *Sim) Boundary() Boundary                 { return s.boundary }
func (s *Sim) Liouvillean() *Liouvillean          { return s.liou }
func (s *Sim) Scheduler() *Scheduler              { return s.scheduler }
func (s *Sim) Interactions() *InteractionRegistry { return s.interactions }
func (s *Sim) Locals() *LocalRegistry             { return s.locals }
func (s *Sim) Globals() *GlobalRegistry           { return s.globals }

// Stop requests a cooperative halt. Safe from any goroutine; the loop
// notices between events and exits with ErrShutdown.
func (s *Sim) Stop() { s.stop.Store(true) }

// Init wires the scheduler and validates the configuration. Fatal on a
// missing neighbour list or inconsistent species.
func (s *Sim) Init() error {
	if s.initialised {
		return nil
	}
	for id := 0; id < s.store.Len(); id++ {
		p := s.store.Get(id)
		if int(p.Species) < 0 || int(p.Species) >= len(s.store.AllSpecies()) {
			return configErrorf("particle %d references unknown species %d", id, p.Species)
		}
		for k := 0; k < 3; k++ {
			if math.IsNaN(p.Position[k]) || math.IsNaN(p.Velocity[k]) {
				return physicsErrorf("particle %d has NaN state in the snapshot", id)
			}
		}
	}

	s.store.SetStreamer(s.liou)
	if err := s.scheduler.Init(); err != nil {
		return err
	}
	s.initialised = true
	s.log.Infof("initialised: %d particles, %d events queued, t=%v", s.store.Len(), s.scheduler.QueueLen(), s.time)
	return nil
}

// Run drives the event loop to the end time, the collision budget, or a
// stop request, whichever comes first. Events fire in strictly
// non-decreasing time order; the stream is deterministic for a given
// snapshot.
func (s *Sim) Run() error {
	if err := s.Init(); err != nil {
		return err
	}

	for {
		if s.stop.Load() {
			s.flush()
			return ErrShutdown
		}

		e, ok := s.scheduler.Peek()
		if !ok {
			return physicsErrorf("event queue empty at t=%v before the end of the run; simulation stuck", s.time)
		}
		if e.FireTime > s.endTime {
			break
		}
		s.scheduler.Pop()

		if s.scheduler.Stale(e) {
			continue
		}
		if e.FireTime < s.time {
			return physicsErrorf("%s event for particle %d fires at %v, behind the system clock %v",
				e.Kind, e.Primary, e.FireTime, s.time)
		}

		s.freestreamAcc += e.FireTime - s.time
		s.time = e.FireTime

		var err error
		switch e.Kind {
		case EventInteraction:
			err = s.runInteraction(e)
		case EventLocal:
			err = s.runLocal(e)
		case EventGlobal:
			err = s.runGlobal(e)
		case EventSystem:
			err = s.runSystem(e)
		}
		if errors.Is(err, errEndOfRun) {
			break
		}
		if err != nil {
			return err
		}

		if s.maxCollisions > 0 && s.collisions >= s.maxCollisions {
			break
		}
	}

	s.flush()
	return nil
}

func (s *Sim) runInteraction(e Event) error {
	i, j := e.Primary, e.Counterparty
	if err := s.store.UpdateTo(i, e.FireTime); err != nil {
		return err
	}
	if err := s.store.UpdateTo(j, e.FireTime); err != nil {
		return err
	}
	p, q := s.store.Get(i), s.store.Get(j)

	impulse := s.liou.ResolvePair(p, q, s.store.Mass(i), s.store.Mass(j))
	s.store.Bump(i)
	s.store.Bump(j)
	s.collisions++
	s.freestreamAcc = 0

	s.scheduler.InvalidateFor(i)
	s.scheduler.InvalidateFor(j)
	s.scheduler.AddEvents(p)
	s.scheduler.AddEvents(q)

	s.notify(EventDelta{Event: e, Time: s.time, Impulse: impulse, Particles: []int{i, j}})
	return nil
}

func (s *Sim) runLocal(e Event) error {
	id := e.Primary
	if err := s.store.UpdateTo(id, e.FireTime); err != nil {
		return err
	}
	p := s.store.Get(id)

	normal, _ := s.locals.Get(e.Counterparty).Plane()
	impulse := s.liou.ResolveWall(p, normal, s.store.Mass(id))
	s.store.Bump(id)

	s.scheduler.InvalidateFor(id)
	s.scheduler.AddEvents(p)

	s.notify(EventDelta{Event: e, Time: s.time, Impulse: impulse, Particles: []int{id}})
	return nil
}

func (s *Sim) runGlobal(e Event) error {
	id := e.Primary
	if err := s.store.UpdateTo(id, e.FireTime); err != nil {
		return err
	}
	p := s.store.Get(id)

	if cl, ok := s.globals.Get(e.Counterparty).(*CellList); ok {
		// Signals fire synchronously here: the scheduler picks up the
		// newly visible counterparties before the event completes.
		cl.ExecuteCrossing(p, e.Aux)
	}
	s.scheduler.PushGlobal(p, e.Counterparty)

	s.notify(EventDelta{Event: e, Time: s.time, Particles: []int{id}})
	return nil
}

func (s *Sim) runSystem(e Event) error {
	idx := e.Counterparty
	if err := s.systems[idx].Execute(s, e.FireTime); err != nil {
		return err
	}
	s.scheduler.RearmSystem(idx)
	return nil
}

func (s *Sim) notify(d EventDelta) {
	for _, out := range s.outputs {
		out.EventDone(s, d)
	}
}

func (s *Sim) tick(t float64) {
	for _, out := range s.outputs {
		out.Tick(s, t)
	}
	if s.render != nil {
		s.render.Publish(s)
	}
}

func (s *Sim) flush() {
	if s.freestreamAcc != 0 {
		// Whether this residual belongs to the run or the next one is
		// undecided; surface it rather than fold it in silently.
		s.log.Warnf("unflushed free-stream time %v at shutdown", s.freestreamAcc)
	}
}

// ReInitNeighbourList rebuilds the cell decomposition mid-run. The
// scheduler rebuilds with it, so the event stream continues exactly as
// a fresh run from the current state would.
func (s *Sim) ReInitNeighbourList() {
	s.scheduler.NeighbourList().ReInit()
}

// KineticEnergy sums the instantaneous kinetic energy. Velocities only
// change at events, so staleness of particle clocks does not matter.
func (s *Sim) KineticEnergy() float64 {
	ke := 0.0
	for id := 0; id < s.store.Len(); id++ {
		v := s.store.Get(id).Velocity
		ke += 0.5 * s.store.Mass(id) * v.Dot(v)
	}
	return ke
}

// Momentum sums the total linear momentum.
func (s *Sim) Momentum() mgl64.Vec3 {
	var mom mgl64.Vec3
	for id := 0; id < s.store.Len(); id++ {
		mom = mom.Add(s.store.Get(id).Velocity.Mul(s.store.Mass(id)))
	}
	return mom
}
