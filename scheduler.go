package kinetix

// Scheduler owns the sorter and the event-addition policy. It requires
// a neighbour list among the globals: interactions and locals are only
// ever predicted against the counterparties the cell tracker reports.
type Scheduler struct {
	log          Logger
	store        *ParticleStore
	liou         *Liouvillean
	interactions *InteractionRegistry
	locals       *LocalRegistry
	globals      *GlobalRegistry
	systems      []SystemEvent

	sorter *BoundedPQ
	nblist *CellList
	wired  bool
}

func NewScheduler(log Logger, store *ParticleStore, liou *Liouvillean,
	interactions *InteractionRegistry, locals *LocalRegistry, globals *GlobalRegistry,
	systems []SystemEvent) *Scheduler {
	return &Scheduler{
		log:          log,
		store:        store,
		liou:         liou,
		interactions: interactions,
		locals:       locals,
		globals:      globals,
		systems:      systems,
	}
}

// Init builds the sorter from scratch: one bucket per particle plus the
// system slot, every bucket populated through the addition policy. Also
// runs on every neighbour-list rebuild.
func (sc *Scheduler) Init() error {
	cl, gid, ok := sc.globals.CellList()
	if !ok {
		return configErrorf("the neighbour-list scheduler requires a %q global; none is configured", "SchedulerNBList")
	}
	cl.setGlobalID(gid)
	sc.nblist = cl

	sc.sorter = NewBoundedPQ(sc.store.Len())
	for id := 0; id < sc.store.Len(); id++ {
		sc.AddEvents(sc.store.Get(id))
	}
	sc.RebuildSystemEvents()

	// Register with the cell tracker once; Init reruns on ReInit and
	// must not stack duplicate handlers.
	if !sc.wired {
		sc.wired = true
		cl.OnNewNeighbour(sc.addInteractionEvent)
		cl.OnNewLocal(sc.addLocalEvent)
		cl.OnReInit(func() {
			if err := sc.Init(); err != nil {
				sc.log.Errorf("scheduler rebuild failed: %v", err)
			}
		})
	}
	return nil
}

// AddEvents repopulates the particle's bucket: one event per applicable
// global, plus pair and local predictions against everything the cell
// tracker has in view. Everything is pushed; duplicates against the
// counterparty's bucket are left for the counter mechanism to discard.
func (sc *Scheduler) AddEvents(p *Particle) {
	for _, g := range sc.globals.Items() {
		if g.Applies(p) {
			if e, ok := g.NextEvent(p); ok {
				sc.sorter.Push(e)
			}
		}
	}
	sc.nblist.ForEachLocalElement(p, sc.addLocalEvent)
	sc.nblist.ForEachNeighbour(p, sc.addInteractionEvent)
}

func (sc *Scheduler) addInteractionEvent(p *Particle, qid int) {
	q := sc.store.Get(qid)
	it, ok := sc.interactions.For(p, q)
	if !ok {
		return
	}
	t, ok := sc.liou.PredictPair(p, q, it.Diameter(p, q))
	if !ok {
		return
	}
	sc.sorter.Push(Event{
		FireTime:     t,
		Kind:         EventInteraction,
		Primary:      p.ID,
		Counterparty: qid,
		Counter:      sc.store.Counter(qid),
	})
}

func (sc *Scheduler) addLocalEvent(p *Particle, lid int) {
	l := sc.locals.Get(lid)
	if !l.Applies(p) {
		return
	}
	normal, offset := l.Plane()
	t, ok := sc.liou.PredictWall(p, normal, offset, sc.store.Diameter(p.ID)/2)
	if !ok {
		return
	}
	sc.sorter.Push(Event{
		FireTime:     t,
		Kind:         EventLocal,
		Primary:      p.ID,
		Counterparty: lid,
		Counter:      sc.store.Counter(p.ID),
	})
}

// PushGlobal re-arms one global's next event for the particle, used
// after a global event fires without changing any velocity.
func (sc *Scheduler) PushGlobal(p *Particle, globalID int) {
	g := sc.globals.Get(globalID)
	if !g.Applies(p) {
		return
	}
	if e, ok := g.NextEvent(p); ok {
		sc.sorter.Push(e)
	}
}

// RebuildSystemEvents refreshes the system slot from the system event
// table.
func (sc *Scheduler) RebuildSystemEvents() {
	sc.sorter.Clear(sc.sorter.SystemSlot())
	for i, sys := range sc.systems {
		sc.pushSystem(i, sys)
	}
}

func (sc *Scheduler) pushSystem(idx int, sys SystemEvent) {
	if t, ok := sys.NextTime(); ok {
		sc.sorter.Push(Event{
			FireTime:     t,
			Kind:         EventSystem,
			Primary:      sc.store.Len(),
			Counterparty: idx,
		})
	}
}

// RearmSystem pushes the next occurrence of one system event after it
// fired.
func (sc *Scheduler) RearmSystem(idx int) {
	sc.pushSystem(idx, sc.systems[idx])
}

// InvalidateFor evicts every prediction owned by a particle. Called
// whenever its velocity changes, before AddEvents repopulates.
func (sc *Scheduler) InvalidateFor(id int) { sc.sorter.Clear(id) }

func (sc *Scheduler) Peek() (Event, bool) { return sc.sorter.Peek() }
func (sc *Scheduler) Pop() (Event, bool)  { return sc.sorter.Pop() }

// Stale reports whether the popped event's invalidation token no longer
// matches the live counter. Stale events are discarded silently; their
// existence in the heap is by design.
func (sc *Scheduler) Stale(e Event) bool {
	switch e.Kind {
	case EventInteraction:
		return sc.store.Counter(e.Counterparty) != e.Counter
	case EventLocal, EventGlobal:
		return sc.store.Counter(e.Primary) != e.Counter
	}
	return false
}

// NeighbourList exposes the wired cell tracker.
func (sc *Scheduler) NeighbourList() *CellList { return sc.nblist }

// QueueLen is the number of events currently queued.
func (sc *Scheduler) QueueLen() int { return sc.sorter.Len() }
