package kinetix

import "sync"

// RenderQuad is one particle as the detached visualiser sees it.
type RenderQuad struct {
	X, Y, Z float64
	Radius  float64
}

// RenderProxy is the handoff buffer between the simulation goroutine
// and a detached consumer. The producer copies under the mutex and
// continues; the consumer treats its copy as read-only. This is the
// only state shared outside the simulation goroutine.
type RenderProxy struct {
	mu   sync.Mutex
	buf  []RenderQuad
	time float64
}

func NewRenderProxy() *RenderProxy { return &RenderProxy{} }

// Publish copies the current particle positions and effective radii
// into the handoff buffer. Called from ticker events on the simulation
// goroutine.
func (rp *RenderProxy) Publish(s *Sim) {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	n := s.store.Len()
	if cap(rp.buf) < n {
		rp.buf = make([]RenderQuad, n)
	}
	rp.buf = rp.buf[:n]
	for id := 0; id < n; id++ {
		p := s.store.Get(id)
		// Positions are published as-of each particle's own clock;
		// the visualiser tolerates sub-event staleness.
		base := s.store.Diameter(id)
		rp.buf[id] = RenderQuad{
			X:      p.Position[0],
			Y:      p.Position[1],
			Z:      p.Position[2],
			Radius: s.liou.EffectiveDiameter(base, s.time) / 2,
		}
	}
	rp.time = s.time
}

// Snapshot returns a copy of the latest published frame and its time.
func (rp *RenderProxy) Snapshot() ([]RenderQuad, float64) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	out := make([]RenderQuad, len(rp.buf))
	copy(out, rp.buf)
	return out, rp.time
}
