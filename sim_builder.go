package kinetix

import (
	"math"

	"github.com/google/uuid"
)

// SimBuilder assembles a simulation from parts. Registry order is the
// order of the With* calls and is preserved through snapshots.
type SimBuilder struct {
	log             Logger
	boundary        Boundary
	species         []Species
	particles       []Particle
	interactions    []Interaction
	locals          []Local
	systems         []SystemEvent
	outputs         []OutputPlugin
	render          *RenderProxy
	compressionRate float64
	compressing     bool
	startTime       float64
	endTime         float64
	maxCollisions   uint64
	maxCellsPerAxis int
	runID           uuid.UUID
}

func NewSimBuilder() *SimBuilder {
	return &SimBuilder{
		endTime: math.Inf(1),
		runID:   uuid.New(),
	}
}

func (b *SimBuilder) WithLogger(l Logger) *SimBuilder { b.log = l; return b }

func (b *SimBuilder) WithBoundary(bc Boundary) *SimBuilder { b.boundary = bc; return b }

func (b *SimBuilder) WithSpecies(sp ...Species) *SimBuilder {
	b.species = append(b.species, sp...)
	return b
}

func (b *SimBuilder) WithParticles(ps ...Particle) *SimBuilder {
	b.particles = append(b.particles, ps...)
	return b
}

func (b *SimBuilder) WithInteraction(i Interaction) *SimBuilder {
	b.interactions = append(b.interactions, i)
	return b
}

func (b *SimBuilder) WithLocal(l Local) *SimBuilder {
	b.locals = append(b.locals, l)
	return b
}

func (b *SimBuilder) WithSystemEvent(se SystemEvent) *SimBuilder {
	b.systems = append(b.systems, se)
	return b
}

func (b *SimBuilder) WithOutput(o OutputPlugin) *SimBuilder {
	b.outputs = append(b.outputs, o)
	return b
}

func (b *SimBuilder) WithRenderProxy(rp *RenderProxy) *SimBuilder { b.render = rp; return b }

// WithCompression switches the streaming model to the growing-diameter
// mode at the given rate.
func (b *SimBuilder) WithCompression(rate float64) *SimBuilder {
	b.compressing = true
	b.compressionRate = rate
	return b
}

func (b *SimBuilder) WithStartTime(t float64) *SimBuilder { b.startTime = t; return b }

func (b *SimBuilder) WithEndTime(t float64) *SimBuilder { b.endTime = t; return b }

func (b *SimBuilder) WithMaxCollisions(n uint64) *SimBuilder { b.maxCollisions = n; return b }

func (b *SimBuilder) WithMaxCellsPerAxis(n int) *SimBuilder { b.maxCellsPerAxis = n; return b }

func (b *SimBuilder) WithRunID(id uuid.UUID) *SimBuilder { b.runID = id; return b }

// interactionRange is the largest hard-core diameter any pair can have;
// the cell decomposition must be at least this wide.
func (b *SimBuilder) interactionRange() float64 {
	rng := 0.0
	for _, sp := range b.species {
		rng = math.Max(rng, sp.Diameter)
	}
	for _, it := range b.interactions {
		if hs, ok := it.(*HardSphereInteraction); ok {
			rng = math.Max(rng, hs.Diam)
		}
	}
	return rng
}

func (b *SimBuilder) Build() (*Sim, error) {
	if b.boundary == nil {
		return nil, configErrorf("no boundary condition configured")
	}
	if len(b.species) == 0 {
		return nil, configErrorf("no species configured")
	}
	if len(b.particles) == 0 {
		return nil, configErrorf("no particles configured")
	}
	if len(b.interactions) == 0 {
		return nil, configErrorf("no interactions configured")
	}
	log := b.log
	if log == nil {
		log = NewNopLogger()
	}

	particles := make([]Particle, len(b.particles))
	copy(particles, b.particles)
	for i := range particles {
		particles[i].ID = i
		particles[i].LocalClock = b.startTime
		b.boundary.Apply(&particles[i].Position)
	}
	store := NewParticleStore(particles, b.species)

	var liou *Liouvillean
	if b.compressing {
		liou = NewCompressingLiouvillean(b.boundary, b.compressionRate)
	} else {
		liou = NewNewtonianLiouvillean(b.boundary)
	}
	store.SetStreamer(liou)

	interactions := &InteractionRegistry{}
	for _, it := range b.interactions {
		interactions.Add(it)
	}
	locals := &LocalRegistry{}
	for _, l := range b.locals {
		locals.Add(l)
	}

	cells, err := NewCellList(store, b.boundary, locals, b.interactionRange(), b.maxCellsPerAxis)
	if err != nil {
		return nil, err
	}
	globals := &GlobalRegistry{}
	globals.Add(cells)

	systems := append([]SystemEvent{}, b.systems...)
	if !math.IsInf(b.endTime, 1) {
		systems = append(systems, &Halt{At: b.endTime})
	}

	s := &Sim{
		log:           log,
		runID:         b.runID,
		store:         store,
		boundary:      b.boundary,
		liou:          liou,
		interactions:  interactions,
		locals:        locals,
		globals:       globals,
		systems:       systems,
		outputs:       append([]OutputPlugin{}, b.outputs...),
		render:        b.render,
		time:          b.startTime,
		endTime:       b.endTime,
		maxCollisions: b.maxCollisions,
	}
	s.scheduler = NewScheduler(log, store, liou, interactions, locals, globals, systems)
	return s, nil
}
