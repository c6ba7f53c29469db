package kinetix

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type LiouvilleanMode int

const (
	// ModeNewtonian is plain ballistic free flight between hard-core
	// collisions.
	ModeNewtonian LiouvilleanMode = iota
	// ModeCompressing grows the effective hard-core diameter linearly
	// with system time. Used to compact a configuration towards a
	// target packing fraction.
	ModeCompressing
)

// Liouvillean is the streaming model: it answers when a particle next
// interacts with a counterparty and what the post-collision state is.
// It is a value type; the mode tag selects the behaviour.
type Liouvillean struct {
	Mode       LiouvilleanMode
	GrowthRate float64

	boundary Boundary
}

func NewNewtonianLiouvillean(b Boundary) *Liouvillean {
	return &Liouvillean{Mode: ModeNewtonian, boundary: b}
}

func NewCompressingLiouvillean(b Boundary, rate float64) *Liouvillean {
	return &Liouvillean{Mode: ModeCompressing, GrowthRate: rate, boundary: b}
}

func (l *Liouvillean) TypeName() string {
	if l.Mode == ModeCompressing {
		return "Compression"
	}
	return "Newtonian"
}

func (l *Liouvillean) rate() float64 {
	if l.Mode == ModeCompressing {
		return l.GrowthRate
	}
	return 0
}

// EffectiveDiameter is the hard-core diameter in force at absolute time
// t. Predictions and resolutions are polymorphic over this, so the
// compression mode needs no special casing at call sites.
func (l *Liouvillean) EffectiveDiameter(base, t float64) float64 {
	return base + l.rate()*t
}

// FreeStream advances a particle ballistically by dt and folds the new
// position back into the primary box.
func (l *Liouvillean) FreeStream(p *Particle, dt float64) {
	p.Position = p.Position.Add(p.Velocity.Mul(dt))
	l.boundary.Apply(&p.Position)
}

// PredictPair returns the earliest absolute time at or after both
// particles' clocks at which their surfaces touch, or false if they
// never do. Deterministic: the result depends only on the two particle
// states, never on evaluation order.
func (l *Liouvillean) PredictPair(a, b *Particle, diameter float64) (float64, bool) {
	t0 := math.Max(a.LocalClock, b.LocalClock)

	// Virtually stream both to the common origin time.
	ra := a.Position.Add(a.Velocity.Mul(t0 - a.LocalClock))
	rb := b.Position.Add(b.Velocity.Mul(t0 - b.LocalClock))

	r := l.boundary.MinimumImage(ra.Sub(rb))
	v := a.Velocity.Sub(b.Velocity)

	rate := l.rate()
	d := l.EffectiveDiameter(diameter, t0)

	// |r + v tau|^2 = (d + rate tau)^2, smallest non-negative root.
	A := v.Dot(v) - rate*rate
	B := r.Dot(v) - rate*d
	C := r.Dot(r) - d*d

	if C <= 0 && B < 0 {
		// Already touching (or overlapping) and approaching.
		return t0, true
	}
	disc := B*B - A*C
	if disc < 0 {
		return 0, false
	}
	den := -B + math.Sqrt(disc)
	if den <= 0 {
		return 0, false
	}
	tau := C / den
	if tau < 0 {
		return 0, false
	}
	return t0 + tau, true
}

// ResolvePair applies the elastic smooth-sphere impulse to two
// particles already streamed to the collision time. Momentum is
// conserved exactly; kinetic energy is conserved in Newtonian mode.
func (l *Liouvillean) ResolvePair(a, b *Particle, ma, mb float64) mgl64.Vec3 {
	r := l.boundary.MinimumImage(a.Position.Sub(b.Position))
	rhat := r.Normalize()
	v := a.Velocity.Sub(b.Velocity)

	// In compression mode the surfaces close at the growth rate on top
	// of the kinematic approach speed.
	approach := v.Dot(rhat) - l.rate()

	mu := ma * mb / (ma + mb)
	impulse := rhat.Mul(2 * mu * approach)

	a.Velocity = a.Velocity.Sub(impulse.Mul(1 / ma))
	b.Velocity = b.Velocity.Add(impulse.Mul(1 / mb))
	return impulse
}

// PredictWall returns the absolute time the particle's surface reaches
// the wall plane, or false if it is moving away or parallel.
func (l *Liouvillean) PredictWall(p *Particle, normal mgl64.Vec3, offset, radius float64) (float64, bool) {
	gap := offset - normal.Dot(p.Position)
	speed := normal.Dot(p.Velocity)
	if speed == 0 {
		return 0, false
	}

	var tau float64
	switch {
	case gap > 0 && speed > 0:
		tau = (gap - radius) / speed
	case gap < 0 && speed < 0:
		tau = (gap + radius) / speed
	default:
		return 0, false
	}
	if tau < 0 {
		// Surface already inside the wall margin; collide immediately.
		tau = 0
	}
	return p.LocalClock + tau, true
}

// ResolveWall reflects the particle specularly off the wall plane.
func (l *Liouvillean) ResolveWall(p *Particle, normal mgl64.Vec3, mass float64) mgl64.Vec3 {
	vn := normal.Dot(p.Velocity)
	p.Velocity = p.Velocity.Sub(normal.Mul(2 * vn))
	return normal.Mul(-2 * mass * vn)
}
