package kinetix

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NeighbourFunc receives a particle and a counterparty id (particle or
// local, per signal).
type NeighbourFunc func(p *Particle, id int)

// Subscription deregisters a signal handler when closed.
type Subscription struct {
	cancel func()
}

func (s *Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

type neighbourSignal struct {
	nextToken int
	handlers  []neighbourHandler
}

type neighbourHandler struct {
	token int
	fn    NeighbourFunc
}

func (s *neighbourSignal) subscribe(fn NeighbourFunc) *Subscription {
	tok := s.nextToken
	s.nextToken++
	s.handlers = append(s.handlers, neighbourHandler{token: tok, fn: fn})
	return &Subscription{cancel: func() {
		for i, h := range s.handlers {
			if h.token == tok {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	}}
}

func (s *neighbourSignal) emit(p *Particle, id int) {
	for _, h := range s.handlers {
		h.fn(p, id)
	}
}

// CellList is the neighbour tracker: a regular decomposition of the
// primary box into cells at least one interaction range wide. It owns
// cell occupancy only; particle state stays in the store. Change
// notifications are synchronous calls on the simulation goroutine.
type CellList struct {
	store    *ParticleStore
	boundary Boundary

	dims     [3]int     // cells per axis
	width    [3]float64 // cell edge lengths
	box      mgl64.Vec3
	periodic bool

	occupants [][]int // per cell, unordered via swap-remove
	cellOf    []int   // particle id -> cell id
	slotOf    []int   // particle id -> index within its cell's occupants
	stencil   [][]int // per cell, itself plus its distinct neighbours
	locals    [][]int // per cell, local ids in view

	localReg   *LocalRegistry
	globalID   int // index in the global registry, set at registration
	maxPerAxis int

	onCrossing     neighbourSignal
	onNewLocal     neighbourSignal
	onNewNeighbour neighbourSignal
	onReInit       []func()
}

// DefaultMaxCellsPerAxis bounds the decomposition so huge dilute boxes
// do not allocate absurd cell counts.
const DefaultMaxCellsPerAxis = 32

// NewCellList sizes the decomposition from the box and the interaction
// range. Every cell edge is at least `rng` long, so all interaction
// partners of a particle live in its own or an adjacent cell.
func NewCellList(store *ParticleStore, b Boundary, locals *LocalRegistry, rng float64, maxPerAxis int) (*CellList, error) {
	if rng <= 0 {
		return nil, configErrorf("cell list needs a positive interaction range, got %v", rng)
	}
	if maxPerAxis <= 0 {
		maxPerAxis = DefaultMaxCellsPerAxis
	}

	cl := &CellList{
		store:      store,
		boundary:   b,
		box:        b.Box(),
		periodic:   b.Type() == "Periodic",
		localReg:   locals,
		maxPerAxis: maxPerAxis,
	}
	for i := 0; i < 3; i++ {
		n := int(math.Floor(cl.box[i] / rng))
		if n > maxPerAxis {
			n = maxPerAxis
		}
		if n < 3 {
			return nil, &CapacityError{Axis: i, Cells: n}
		}
		cl.dims[i] = n
		cl.width[i] = cl.box[i] / float64(n)
	}

	cl.build()
	return cl, nil
}

func (cl *CellList) Name() string             { return "SchedulerNBList" }
func (cl *CellList) Applies(p *Particle) bool { return true }
func (cl *CellList) Dims() [3]int             { return cl.dims }
func (cl *CellList) CellWidth() [3]float64    { return cl.width }

func (cl *CellList) setGlobalID(id int) { cl.globalID = id }

func (cl *CellList) cellCount() int { return cl.dims[0] * cl.dims[1] * cl.dims[2] }

func (cl *CellList) cellID(ix, iy, iz int) int {
	return (ix*cl.dims[1]+iy)*cl.dims[2] + iz
}

func (cl *CellList) cellCoords(id int) (int, int, int) {
	iz := id % cl.dims[2]
	iy := (id / cl.dims[2]) % cl.dims[1]
	ix := id / (cl.dims[1] * cl.dims[2])
	return ix, iy, iz
}

// locate maps a position to its cell. Positions are folded first, so
// out-of-box inputs are fine under periodic boundaries.
func (cl *CellList) locate(pos mgl64.Vec3) int {
	cl.boundary.Apply(&pos)
	var idx [3]int
	for i := 0; i < 3; i++ {
		k := int(math.Floor((pos[i] + cl.box[i]/2) / cl.width[i]))
		if k < 0 {
			k = 0
		}
		if k >= cl.dims[i] {
			k = cl.dims[i] - 1
		}
		idx[i] = k
	}
	return cl.cellID(idx[0], idx[1], idx[2])
}

func (cl *CellList) build() {
	n := cl.cellCount()
	cl.occupants = make([][]int, n)
	cl.stencil = make([][]int, n)
	cl.locals = make([][]int, n)
	cl.cellOf = make([]int, cl.store.Len())
	cl.slotOf = make([]int, cl.store.Len())

	for c := 0; c < n; c++ {
		cl.stencil[c] = cl.buildStencil(c)
		cl.locals[c] = cl.buildLocals(c)
	}
	for id := 0; id < cl.store.Len(); id++ {
		cl.cellOf[id] = -1
		cl.Insert(cl.store.Get(id))
	}
}

func (cl *CellList) buildStencil(c int) []int {
	ix, iy, iz := cl.cellCoords(c)
	var out []int
	seen := make(map[int]bool, 27)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				nx, okx := cl.shift(0, ix, dx)
				ny, oky := cl.shift(1, iy, dy)
				nz, okz := cl.shift(2, iz, dz)
				if !okx || !oky || !okz {
					continue
				}
				id := cl.cellID(nx, ny, nz)
				if !seen[id] {
					seen[id] = true
					out = append(out, id)
				}
			}
		}
	}
	return out
}

func (cl *CellList) shift(axis, i, d int) (int, bool) {
	j := i + d
	if cl.periodic {
		if j < 0 {
			j += cl.dims[axis]
		}
		if j >= cl.dims[axis] {
			j -= cl.dims[axis]
		}
		return j, true
	}
	if j < 0 || j >= cl.dims[axis] {
		return 0, false
	}
	return j, true
}

// buildLocals assigns each wall local to the cells its plane can reach.
func (cl *CellList) buildLocals(c int) []int {
	if cl.localReg == nil || cl.localReg.Len() == 0 {
		return nil
	}
	ix, iy, iz := cl.cellCoords(c)
	center := mgl64.Vec3{
		-cl.box[0]/2 + (float64(ix)+0.5)*cl.width[0],
		-cl.box[1]/2 + (float64(iy)+0.5)*cl.width[1],
		-cl.box[2]/2 + (float64(iz)+0.5)*cl.width[2],
	}
	halfDiag := 0.5 * math.Sqrt(cl.width[0]*cl.width[0]+cl.width[1]*cl.width[1]+cl.width[2]*cl.width[2])

	var out []int
	for lid := 0; lid < cl.localReg.Len(); lid++ {
		normal, offset := cl.localReg.Get(lid).Plane()
		dist := math.Abs(normal.Dot(center) - offset)
		if dist <= halfDiag+cl.maxWidth() {
			out = append(out, lid)
		}
	}
	return out
}

func (cl *CellList) maxWidth() float64 {
	return math.Max(cl.width[0], math.Max(cl.width[1], cl.width[2]))
}

// Insert registers a particle with the cell covering its position. O(1)
// amortised.
func (cl *CellList) Insert(p *Particle) {
	c := cl.locate(p.Position)
	cl.insertInto(p.ID, c)
}

func (cl *CellList) insertInto(id, c int) {
	cl.cellOf[id] = c
	cl.slotOf[id] = len(cl.occupants[c])
	cl.occupants[c] = append(cl.occupants[c], id)
}

// Remove unregisters a particle from its cell. O(1) via swap-remove.
func (cl *CellList) Remove(p *Particle) {
	c := cl.cellOf[p.ID]
	if c < 0 {
		return
	}
	slot := cl.slotOf[p.ID]
	occ := cl.occupants[c]
	last := len(occ) - 1
	moved := occ[last]
	occ[slot] = moved
	cl.slotOf[moved] = slot
	cl.occupants[c] = occ[:last]
	cl.cellOf[p.ID] = -1
}

// CellOf reports the cell currently holding the particle.
func (cl *CellList) CellOf(id int) int { return cl.cellOf[id] }

// ForEachNeighbour invokes fn for every particle in p's cell and the
// adjacent cells, excluding p itself.
func (cl *CellList) ForEachNeighbour(p *Particle, fn NeighbourFunc) {
	for _, c := range cl.stencil[cl.cellOf[p.ID]] {
		for _, q := range cl.occupants[c] {
			if q != p.ID {
				fn(p, q)
			}
		}
	}
}

// ForEachLocalElement invokes fn for every local in view of p's cell
// neighbourhood, each exactly once.
func (cl *CellList) ForEachLocalElement(p *Particle, fn NeighbourFunc) {
	if cl.localReg == nil || cl.localReg.Len() == 0 {
		return
	}
	seen := make([]bool, cl.localReg.Len())
	for _, c := range cl.stencil[cl.cellOf[p.ID]] {
		for _, lid := range cl.locals[c] {
			if !seen[lid] {
				seen[lid] = true
				fn(p, lid)
			}
		}
	}
}

// crossing payload packed into Event.Aux.
func packCrossing(axis, dir int) int {
	bit := 0
	if dir > 0 {
		bit = 1
	}
	return axis<<1 | bit
}

func unpackCrossing(aux int) (axis, dir int) {
	axis = aux >> 1
	dir = -1
	if aux&1 == 1 {
		dir = 1
	}
	return axis, dir
}

// NextEvent predicts when the particle first exits its current cell
// under free flight. Pure: repeated calls with unchanged state agree.
func (cl *CellList) NextEvent(p *Particle) (Event, bool) {
	c := cl.cellOf[p.ID]
	ix, iy, iz := cl.cellCoords(c)
	coords := [3]int{ix, iy, iz}

	pos := p.Position
	cl.boundary.Apply(&pos)

	best := math.Inf(1)
	bestAux := 0
	for axis := 0; axis < 3; axis++ {
		v := p.Velocity[axis]
		if v == 0 {
			continue
		}
		var dir int
		if v > 0 {
			dir = 1
		} else {
			dir = -1
		}
		if _, ok := cl.shift(axis, coords[axis], dir); !ok {
			// Edge cell of a bounded box: nothing to cross into.
			continue
		}
		local := pos[axis] + cl.box[axis]/2 - float64(coords[axis])*cl.width[axis]
		var tau float64
		if v > 0 {
			tau = (cl.width[axis] - local) / v
		} else {
			tau = -local / v
		}
		if tau < 0 {
			tau = 0
		}
		if tau < best {
			best = tau
			bestAux = packCrossing(axis, dir)
		}
	}
	if math.IsInf(best, 1) {
		return Event{}, false
	}
	return Event{
		FireTime:     p.LocalClock + best,
		Kind:         EventGlobal,
		Primary:      p.ID,
		Counterparty: cl.globalID,
		Counter:      cl.store.Counter(p.ID),
		Aux:          bestAux,
	}, true
}

// ExecuteCrossing moves the particle into the adjacent cell named by
// the event payload and emits the change signals: the crossing itself,
// then one notification per newly visible particle and local.
func (cl *CellList) ExecuteCrossing(p *Particle, aux int) {
	axis, dir := unpackCrossing(aux)
	oldCell := cl.cellOf[p.ID]
	ix, iy, iz := cl.cellCoords(oldCell)
	coords := [3]int{ix, iy, iz}

	j, ok := cl.shift(axis, coords[axis], dir)
	if !ok {
		// Edge cell of a bounded box; the particle stays until a wall
		// or boundary event turns it around.
		return
	}
	coords[axis] = j
	newCell := cl.cellID(coords[0], coords[1], coords[2])

	cl.Remove(p)
	cl.insertInto(p.ID, newCell)
	cl.onCrossing.emit(p, newCell)

	// Newly visible cells: in the new stencil but not the old one.
	inOld := make(map[int]bool, len(cl.stencil[oldCell]))
	for _, c := range cl.stencil[oldCell] {
		inOld[c] = true
	}
	var localSeen []bool
	if cl.localReg != nil && cl.localReg.Len() > 0 {
		localSeen = make([]bool, cl.localReg.Len())
		for _, c := range cl.stencil[oldCell] {
			for _, lid := range cl.locals[c] {
				localSeen[lid] = true
			}
		}
	}
	for _, c := range cl.stencil[newCell] {
		if inOld[c] {
			continue
		}
		for _, q := range cl.occupants[c] {
			if q != p.ID {
				cl.onNewNeighbour.emit(p, q)
			}
		}
		for _, lid := range cl.locals[c] {
			if !localSeen[lid] {
				localSeen[lid] = true
				cl.onNewLocal.emit(p, lid)
			}
		}
	}
}

// ReInit rebuilds cell occupancy from the store and tells subscribers
// to rebuild whatever they derived from the old decomposition.
func (cl *CellList) ReInit() {
	cl.build()
	for _, fn := range cl.onReInit {
		fn()
	}
}

// OnCrossing fires after a particle moves to a new cell; the id is the
// destination cell.
func (cl *CellList) OnCrossing(fn NeighbourFunc) *Subscription {
	return cl.onCrossing.subscribe(fn)
}

// OnNewLocal fires once per local element entering a particle's view.
func (cl *CellList) OnNewLocal(fn NeighbourFunc) *Subscription {
	return cl.onNewLocal.subscribe(fn)
}

// OnNewNeighbour fires once per particle entering another's view.
func (cl *CellList) OnNewNeighbour(fn NeighbourFunc) *Subscription {
	return cl.onNewNeighbour.subscribe(fn)
}

// OnReInit fires after the decomposition is rebuilt.
func (cl *CellList) OnReInit(fn func()) {
	cl.onReInit = append(cl.onReInit, fn)
}
