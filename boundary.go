package kinetix

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Boundary folds positions back into the primary simulation box and
// defines how displacements between particles are measured. Apply is
// idempotent: folding an already-folded position is a no-op.
type Boundary interface {
	Type() string
	// Box returns the edge lengths of the primary box.
	Box() mgl64.Vec3
	// Apply folds pos into the primary box, in place.
	Apply(pos *mgl64.Vec3)
	// MinimumImage maps a raw displacement to the shortest equivalent
	// displacement under the boundary.
	MinimumImage(dr mgl64.Vec3) mgl64.Vec3
}

// PeriodicBoundary wraps coordinates into [-L/2, L/2) on each axis.
type PeriodicBoundary struct {
	Dimensions mgl64.Vec3
}

func (b *PeriodicBoundary) Type() string    { return "Periodic" }
func (b *PeriodicBoundary) Box() mgl64.Vec3 { return b.Dimensions }

func (b *PeriodicBoundary) Apply(pos *mgl64.Vec3) {
	// Floor form keeps -L/2 fixed, so double application is the identity.
	for i := 0; i < 3; i++ {
		l := b.Dimensions[i]
		pos[i] -= l * math.Floor(pos[i]/l+0.5)
	}
}

func (b *PeriodicBoundary) MinimumImage(dr mgl64.Vec3) mgl64.Vec3 {
	b.Apply(&dr)
	return dr
}

// ReflectingBoundary folds coordinates by mirroring at the box faces.
// Velocities are handled by wall locals; this only normalises positions.
type ReflectingBoundary struct {
	Dimensions mgl64.Vec3
}

func (b *ReflectingBoundary) Type() string    { return "Reflecting" }
func (b *ReflectingBoundary) Box() mgl64.Vec3 { return b.Dimensions }

func (b *ReflectingBoundary) Apply(pos *mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		l := b.Dimensions[i]
		// Triangle-wave fold of period 2L into [-L/2, L/2].
		x := pos[i] + l/2
		x = math.Mod(x, 2*l)
		if x < 0 {
			x += 2 * l
		}
		if x > l {
			x = 2*l - x
		}
		pos[i] = x - l/2
	}
}

func (b *ReflectingBoundary) MinimumImage(dr mgl64.Vec3) mgl64.Vec3 { return dr }

// NoBoundary leaves positions untouched. The box extent is still needed
// by the neighbour list to size its cells.
type NoBoundary struct {
	Dimensions mgl64.Vec3
}

func (b *NoBoundary) Type() string                          { return "None" }
func (b *NoBoundary) Box() mgl64.Vec3                       { return b.Dimensions }
func (b *NoBoundary) Apply(pos *mgl64.Vec3)                 {}
func (b *NoBoundary) MinimumImage(dr mgl64.Vec3) mgl64.Vec3 { return dr }
