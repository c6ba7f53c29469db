package kinetix

import "github.com/go-gl/mathgl/mgl64"

// Interaction enumerates which particle pairs it governs and the
// hard-core diameter it assigns them. Registries are ordered: the first
// applicable entry wins, and the order round-trips through snapshots.
type Interaction interface {
	Name() string
	Applies(a, b *Particle) bool
	Diameter(a, b *Particle) float64
}

// HardSphereInteraction gives every governed pair a single fixed
// diameter. With AllPairs set it governs every pair; otherwise only
// pairs of SpeciesA with SpeciesB.
type HardSphereInteraction struct {
	Label    string
	Diam     float64
	SpeciesA SpeciesID
	SpeciesB SpeciesID
	AllPairs bool
}

func NewHardSphereInteraction(label string, diameter float64) *HardSphereInteraction {
	return &HardSphereInteraction{Label: label, Diam: diameter, AllPairs: true}
}

func (hs *HardSphereInteraction) Name() string { return hs.Label }

func (hs *HardSphereInteraction) Applies(a, b *Particle) bool {
	if hs.AllPairs {
		return true
	}
	return (a.Species == hs.SpeciesA && b.Species == hs.SpeciesB) ||
		(a.Species == hs.SpeciesB && b.Species == hs.SpeciesA)
}

func (hs *HardSphereInteraction) Diameter(a, b *Particle) float64 { return hs.Diam }

type InteractionRegistry struct {
	items []Interaction
}

func (r *InteractionRegistry) Add(i Interaction)    { r.items = append(r.items, i) }
func (r *InteractionRegistry) Items() []Interaction { return r.items }

// For returns the first interaction governing the pair, in registry
// order.
func (r *InteractionRegistry) For(a, b *Particle) (Interaction, bool) {
	for _, it := range r.items {
		if it.Applies(a, b) {
			return it, true
		}
	}
	return nil, false
}

// Local is a static environmental element, a wall or sink, that acts as
// an interaction counterparty for particles in its vicinity.
type Local interface {
	Name() string
	Applies(p *Particle) bool
	// Plane returns the wall plane as unit normal plus offset
	// (normal . x = offset).
	Plane() (mgl64.Vec3, float64)
}

// PlanarWall specularly reflects any particle reaching its plane.
type PlanarWall struct {
	Label  string
	Normal mgl64.Vec3
	Offset float64
}

func (w *PlanarWall) Name() string                 { return w.Label }
func (w *PlanarWall) Applies(p *Particle) bool     { return true }
func (w *PlanarWall) Plane() (mgl64.Vec3, float64) { return w.Normal, w.Offset }

type LocalRegistry struct {
	items []Local
}

func (r *LocalRegistry) Add(l Local)      { r.items = append(r.items, l) }
func (r *LocalRegistry) Items() []Local   { return r.items }
func (r *LocalRegistry) Get(id int) Local { return r.items[id] }
func (r *LocalRegistry) Len() int         { return len(r.items) }

// Global is an always-active event source. Unlike interactions and
// locals, globals are not filtered through the neighbour list; every
// particle can owe its next event to any global.
type Global interface {
	Name() string
	Applies(p *Particle) bool
	// NextEvent predicts the global's next event for the particle. The
	// particle is current (clock == system time) when called.
	NextEvent(p *Particle) (Event, bool)
}

type GlobalRegistry struct {
	items []Global
}

func (r *GlobalRegistry) Add(g Global)      { r.items = append(r.items, g) }
func (r *GlobalRegistry) Items() []Global   { return r.items }
func (r *GlobalRegistry) Get(id int) Global { return r.items[id] }

// CellList returns the registered neighbour list, if any. The
// neighbour-list scheduler requires one.
func (r *GlobalRegistry) CellList() (*CellList, int, bool) {
	for i, g := range r.items {
		if cl, ok := g.(*CellList); ok {
			return cl, i, true
		}
	}
	return nil, 0, false
}
