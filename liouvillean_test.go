package kinetix

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func bigBox() Boundary {
	return &PeriodicBoundary{Dimensions: mgl64.Vec3{100, 100, 100}}
}

func TestPredictPairHeadOn(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	a := &Particle{ID: 0, Position: mgl64.Vec3{-2, 0, 0}, Velocity: mgl64.Vec3{1, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{2, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}}

	// Gap of 4, closing at 2, touching at separation 1.
	tc, ok := liou.PredictPair(a, b, 1.0)
	if !ok {
		t.Fatal("expected a collision")
	}
	if math.Abs(tc-1.5) > 1e-12 {
		t.Errorf("collision time = %v, want 1.5", tc)
	}
}

func TestPredictPairSeparating(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	a := &Particle{ID: 0, Position: mgl64.Vec3{-2, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{2, 0, 0}, Velocity: mgl64.Vec3{1, 0, 0}}

	if _, ok := liou.PredictPair(a, b, 1.0); ok {
		t.Error("separating pair predicted a collision")
	}
}

func TestPredictPairMiss(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	// Approaching but offset by more than a diameter; they pass by.
	a := &Particle{ID: 0, Position: mgl64.Vec3{-2, 1.5, 0}, Velocity: mgl64.Vec3{1, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{2, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}}

	if tc, ok := liou.PredictPair(a, b, 1.0); ok {
		t.Errorf("grazing miss predicted a collision at %v", tc)
	}
}

func TestPredictPairStaleClocks(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	// Same geometry as the head-on case but one particle last updated
	// at t=1: its stored position compensates so the trajectory is the
	// same, and prediction streams from the later clock.
	a := &Particle{ID: 0, Position: mgl64.Vec3{-2, 0, 0}, Velocity: mgl64.Vec3{1, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{1, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}, LocalClock: 1}

	tc, ok := liou.PredictPair(a, b, 1.0)
	if !ok {
		t.Fatal("expected a collision")
	}
	if math.Abs(tc-1.5) > 1e-12 {
		t.Errorf("collision time = %v, want 1.5", tc)
	}
}

func TestPredictBeforeContactNoOverlap(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	a := &Particle{ID: 0, Position: mgl64.Vec3{-3, 0.2, 0}, Velocity: mgl64.Vec3{1.3, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{2, 0, 0}, Velocity: mgl64.Vec3{-0.7, 0, 0}}

	tc, ok := liou.PredictPair(a, b, 1.0)
	if !ok {
		t.Fatal("expected a collision")
	}

	// The pair must stay separated right up to contact and touch at tc.
	sep := func(tt float64) float64 {
		ra := a.Position.Add(a.Velocity.Mul(tt))
		rb := b.Position.Add(b.Velocity.Mul(tt))
		return ra.Sub(rb).Len()
	}
	for _, f := range []float64{0, 0.25, 0.5, 0.75, 0.99} {
		if d := sep(f * tc); d < 1.0-1e-9 {
			t.Errorf("overlap before contact: separation %v at t=%v", d, f*tc)
		}
	}
	if d := sep(tc); math.Abs(d-1.0) > 1e-9 {
		t.Errorf("separation at contact = %v, want 1.0", d)
	}
}

func TestResolvePairHeadOnSwapsVelocities(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	a := &Particle{ID: 0, Position: mgl64.Vec3{-0.5, 0, 0}, Velocity: mgl64.Vec3{1, 0, 0}, LocalClock: 1.5}
	b := &Particle{ID: 1, Position: mgl64.Vec3{0.5, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}, LocalClock: 1.5}

	liou.ResolvePair(a, b, 1.0, 1.0)

	if a.Velocity != (mgl64.Vec3{-1, 0, 0}) {
		t.Errorf("a velocity = %v, want (-1,0,0)", a.Velocity)
	}
	if b.Velocity != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("b velocity = %v, want (1,0,0)", b.Velocity)
	}
}

func TestResolvePairConservation(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	ma, mb := 2.0, 3.0
	a := &Particle{ID: 0, Position: mgl64.Vec3{0, 0, 0}, Velocity: mgl64.Vec3{1, 0.5, -0.25}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{0.8, 0.6, 0}, Velocity: mgl64.Vec3{-0.5, -1, 0.75}}

	momBefore := a.Velocity.Mul(ma).Add(b.Velocity.Mul(mb))
	keBefore := 0.5*ma*a.Velocity.Dot(a.Velocity) + 0.5*mb*b.Velocity.Dot(b.Velocity)

	liou.ResolvePair(a, b, ma, mb)

	momAfter := a.Velocity.Mul(ma).Add(b.Velocity.Mul(mb))
	keAfter := 0.5*ma*a.Velocity.Dot(a.Velocity) + 0.5*mb*b.Velocity.Dot(b.Velocity)

	if momAfter.Sub(momBefore).Len() > 1e-12 {
		t.Errorf("momentum drifted: %v -> %v", momBefore, momAfter)
	}
	if math.Abs(keAfter-keBefore) > 1e-12 {
		t.Errorf("kinetic energy drifted: %v -> %v", keBefore, keAfter)
	}
}

func TestCompressionEffectiveDiameter(t *testing.T) {
	liou := NewCompressingLiouvillean(bigBox(), 0.01)

	if d := liou.EffectiveDiameter(1.0, 0); d != 1.0 {
		t.Errorf("diameter at t=0: %v", d)
	}
	if d := liou.EffectiveDiameter(1.0, 50); math.Abs(d-1.5) > 1e-12 {
		t.Errorf("diameter at t=50: %v, want 1.5", d)
	}
}

func TestCompressionStaticPairCollides(t *testing.T) {
	liou := NewCompressingLiouvillean(bigBox(), 0.01)

	// Two resting spheres two units apart: surfaces meet when the
	// growing diameter reaches their separation.
	a := &Particle{ID: 0, Position: mgl64.Vec3{-1, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{1, 0, 0}}

	tc, ok := liou.PredictPair(a, b, 1.0)
	if !ok {
		t.Fatal("compression must force a collision")
	}
	if math.Abs(tc-100.0) > 1e-9 {
		t.Errorf("collision time = %v, want 100", tc)
	}
}

func TestCompressionBeatsStaticTouchingTime(t *testing.T) {
	rate := 0.01
	liou := NewCompressingLiouvillean(bigBox(), rate)

	// Closing speed 0.04 over a gap of 4: static diameters touch at
	// t=100. Growth must strictly beat that, at the root of the
	// growing-diameter quadratic.
	a := &Particle{ID: 0, Position: mgl64.Vec3{-2.5, 0, 0}, Velocity: mgl64.Vec3{0.02, 0, 0}}
	b := &Particle{ID: 1, Position: mgl64.Vec3{2.5, 0, 0}, Velocity: mgl64.Vec3{-0.02, 0, 0}}

	tc, ok := liou.PredictPair(a, b, 1.0)
	if !ok {
		t.Fatal("expected a collision")
	}
	if tc >= 100.0 {
		t.Errorf("collision time %v not earlier than the static touching time", tc)
	}

	// Independent root: |r| - speed*t = d0 + rate*t.
	want := (5.0 - 1.0) / (0.04 + rate)
	if math.Abs(tc-want) > 1e-9 {
		t.Errorf("collision time = %v, want %v", tc, want)
	}
}

func TestPredictWall(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	p := &Particle{ID: 0, Position: mgl64.Vec3{0, 0, 0}, Velocity: mgl64.Vec3{2, 0, 0}}
	normal := mgl64.Vec3{1, 0, 0}

	// Wall plane at x=5, radius 0.5: surface contact at x=4.5.
	tc, ok := liou.PredictWall(p, normal, 5.0, 0.5)
	if !ok {
		t.Fatal("expected a wall hit")
	}
	if math.Abs(tc-2.25) > 1e-12 {
		t.Errorf("wall time = %v, want 2.25", tc)
	}

	// Moving away: never.
	p.Velocity = mgl64.Vec3{-2, 0, 0}
	if _, ok := liou.PredictWall(p, normal, 5.0, 0.5); ok {
		t.Error("receding particle predicted a wall hit")
	}
}

func TestResolveWallSpecular(t *testing.T) {
	liou := NewNewtonianLiouvillean(bigBox())

	p := &Particle{ID: 0, Velocity: mgl64.Vec3{2, 1, -0.5}}
	liou.ResolveWall(p, mgl64.Vec3{1, 0, 0}, 1.0)

	if p.Velocity != (mgl64.Vec3{-2, 1, -0.5}) {
		t.Errorf("reflected velocity = %v, want (-2,1,-0.5)", p.Velocity)
	}
}
