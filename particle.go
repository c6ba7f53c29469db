package kinetix

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type SpeciesID int

// Species describes one particle type: its display name, inertial mass
// and hard-core diameter. The diameter is the static one; compression
// dynamics scale it at prediction time.
type Species struct {
	Name     string
	Mass     float64
	Diameter float64
}

// Particle is a point mass under free flight. LocalClock is the
// simulation time at which Position and Velocity were last brought up
// to date; a particle is stale whenever its clock trails the system
// clock.
type Particle struct {
	ID         int
	Position   mgl64.Vec3
	Velocity   mgl64.Vec3
	LocalClock float64
	Species    SpeciesID
}

// streamer advances a single particle ballistically. Implemented by the
// Liouvillean; the store stays ignorant of the kinematics model.
type streamer interface {
	FreeStream(p *Particle, dt float64)
}

// ParticleStore owns the authoritative particle vector plus the
// per-particle event counters used to invalidate stale predictions.
type ParticleStore struct {
	particles []Particle
	counters  []uint64
	species   []Species
	stream    streamer
}

func NewParticleStore(particles []Particle, species []Species) *ParticleStore {
	return &ParticleStore{
		particles: particles,
		counters:  make([]uint64, len(particles)),
		species:   species,
	}
}

func (s *ParticleStore) SetStreamer(st streamer) { s.stream = st }

func (s *ParticleStore) Len() int { return len(s.particles) }

func (s *ParticleStore) Get(id int) *Particle { return &s.particles[id] }

func (s *ParticleStore) Species(id SpeciesID) *Species { return &s.species[id] }

func (s *ParticleStore) AllSpecies() []Species { return s.species }

func (s *ParticleStore) Mass(id int) float64 {
	return s.species[s.particles[id].Species].Mass
}

func (s *ParticleStore) Diameter(id int) float64 {
	return s.species[s.particles[id].Species].Diameter
}

// Counter returns the invalidation token for a particle. Events carry
// the token observed at prediction time; a mismatch at pop time marks
// the event stale.
func (s *ParticleStore) Counter(id int) uint64 { return s.counters[id] }

// Bump invalidates every outstanding prediction involving the particle.
// Called exactly when a particle's velocity changes.
func (s *ParticleStore) Bump(id int) { s.counters[id]++ }

// UpdateTo advances a single particle's trajectory to the absolute time
// t and stamps its clock. This is the hot path; it touches only the one
// particle. Time must not run backwards.
func (s *ParticleStore) UpdateTo(id int, t float64) error {
	p := &s.particles[id]
	dt := t - p.LocalClock
	if dt < 0 {
		return physicsErrorf("particle %d asked to stream backwards: clock %v, target %v", id, p.LocalClock, t)
	}
	if dt > 0 {
		s.stream.FreeStream(p, dt)
	}
	p.LocalClock = t
	if math.IsNaN(p.Position[0]) || math.IsNaN(p.Position[1]) || math.IsNaN(p.Position[2]) {
		return physicsErrorf("particle %d position is NaN after streaming to %v", id, t)
	}
	return nil
}

// UpdateAll brings every particle to time t. Convenience for snapshot
// capture; the event loop never needs it.
func (s *ParticleStore) UpdateAll(t float64) error {
	for id := range s.particles {
		if err := s.UpdateTo(id, t); err != nil {
			return err
		}
	}
	return nil
}
