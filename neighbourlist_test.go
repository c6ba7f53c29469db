package kinetix

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCellList(t *testing.T, positions []mgl64.Vec3, vels []mgl64.Vec3) (*CellList, *ParticleStore, *Liouvillean) {
	t.Helper()
	bc := &PeriodicBoundary{Dimensions: mgl64.Vec3{9, 9, 9}}
	particles := make([]Particle, len(positions))
	for i := range positions {
		particles[i] = Particle{ID: i, Position: positions[i], Species: 0}
		if vels != nil {
			particles[i].Velocity = vels[i]
		}
	}
	store := NewParticleStore(particles, []Species{{Name: "A", Mass: 1, Diameter: 1}})
	liou := NewNewtonianLiouvillean(bc)
	store.SetStreamer(liou)

	cl, err := NewCellList(store, bc, &LocalRegistry{}, 1.0, 0)
	require.NoError(t, err)
	return cl, store, liou
}

func TestCellListOccupancyInvariant(t *testing.T) {
	positions := []mgl64.Vec3{
		{0, 0, 0}, {4.4, -4.4, 0}, {-4.4, 4.4, 4.4}, {1.2, 1.2, 1.2}, {1.3, 1.3, 1.3},
	}
	cl, _, _ := testCellList(t, positions, nil)

	for id, pos := range positions {
		c := cl.locate(pos)
		assert.Equal(t, c, cl.CellOf(id), "particle %d cell mismatch", id)

		found := false
		for _, q := range cl.occupants[c] {
			if q == id {
				found = true
			}
		}
		assert.True(t, found, "cell %d does not hold particle %d", c, id)
	}

	// Converse: every occupant of every cell locates back to it.
	for c, occ := range cl.occupants {
		for _, id := range occ {
			assert.Equal(t, c, cl.CellOf(id))
		}
	}
}

func TestCellListForEachNeighbour(t *testing.T) {
	// 0 and 1 a single cell apart, 2 across the box.
	positions := []mgl64.Vec3{{0, 0, 0}, {1.2, 0, 0}, {-4.4, -4.4, -4.4}}
	cl, store, _ := testCellList(t, positions, nil)

	var seen []int
	cl.ForEachNeighbour(store.Get(0), func(p *Particle, q int) {
		seen = append(seen, q)
	})
	assert.Equal(t, []int{1}, seen)
}

func TestCellListNeighbourExcludesSelf(t *testing.T) {
	positions := []mgl64.Vec3{{0, 0, 0}}
	cl, store, _ := testCellList(t, positions, nil)

	cl.ForEachNeighbour(store.Get(0), func(p *Particle, q int) {
		t.Errorf("lone particle reported neighbour %d", q)
	})
}

func TestNextCellCrossingPure(t *testing.T) {
	positions := []mgl64.Vec3{{0.2, 0, 0}}
	vels := []mgl64.Vec3{{1, 0.3, 0}}
	cl, store, _ := testCellList(t, positions, vels)

	e1, ok1 := cl.NextEvent(store.Get(0))
	e2, ok2 := cl.NextEvent(store.Get(0))
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, e1, e2)
}

func TestCrossingMovesParticleAndSignals(t *testing.T) {
	// Particle 0 heads +x towards the cell face; particle 1 sits two
	// cells ahead, visible only after the crossing.
	positions := []mgl64.Vec3{{0.2, 0, 0}, {1.8, 0, 0}}
	vels := []mgl64.Vec3{{1, 0, 0}, {0, 0, 0}}
	cl, store, _ := testCellList(t, positions, vels)

	oldCell := cl.CellOf(0)

	var crossings, newNeighbours []int
	cl.OnCrossing(func(p *Particle, cell int) { crossings = append(crossings, cell) })
	cl.OnNewNeighbour(func(p *Particle, q int) { newNeighbours = append(newNeighbours, q) })

	e, ok := cl.NextEvent(store.Get(0))
	require.True(t, ok)
	require.NoError(t, store.UpdateTo(0, e.FireTime))

	cl.ExecuteCrossing(store.Get(0), e.Aux)

	newCell := cl.CellOf(0)
	assert.NotEqual(t, oldCell, newCell)
	assert.Equal(t, []int{newCell}, crossings, "exactly one crossing signal")
	assert.Equal(t, []int{1}, newNeighbours, "particle 1 became visible exactly once")
}

func TestSubscriptionCloseDeregisters(t *testing.T) {
	positions := []mgl64.Vec3{{0.2, 0, 0}}
	vels := []mgl64.Vec3{{1, 0, 0}}
	cl, store, _ := testCellList(t, positions, vels)

	fired := 0
	sub := cl.OnCrossing(func(p *Particle, cell int) { fired++ })
	sub.Close()

	e, ok := cl.NextEvent(store.Get(0))
	require.True(t, ok)
	require.NoError(t, store.UpdateTo(0, e.FireTime))
	cl.ExecuteCrossing(store.Get(0), e.Aux)

	assert.Zero(t, fired)
}

func TestCellListCapacityError(t *testing.T) {
	bc := &PeriodicBoundary{Dimensions: mgl64.Vec3{2, 2, 2}}
	store := NewParticleStore([]Particle{{ID: 0}}, []Species{{Name: "A", Mass: 1, Diameter: 1}})

	_, err := NewCellList(store, bc, &LocalRegistry{}, 1.0, 0)
	require.Error(t, err)

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Cells)
}

func TestCellListReInitKeepsOccupancy(t *testing.T) {
	positions := []mgl64.Vec3{{0, 0, 0}, {3.3, -1.1, 2.2}}
	cl, _, _ := testCellList(t, positions, nil)

	rebuilt := false
	cl.OnReInit(func() { rebuilt = true })
	cl.ReInit()

	assert.True(t, rebuilt)
	for id, pos := range positions {
		assert.Equal(t, cl.locate(pos), cl.CellOf(id))
	}
}

func TestLocalElementsInView(t *testing.T) {
	// A bounded box: under periodic wrap both walls would be in view
	// through the boundary.
	bc := &NoBoundary{Dimensions: mgl64.Vec3{9, 9, 9}}
	store := NewParticleStore(
		[]Particle{{ID: 0, Position: mgl64.Vec3{-4, 0, 0}}},
		[]Species{{Name: "A", Mass: 1, Diameter: 1}},
	)
	locals := &LocalRegistry{}
	locals.Add(&PlanarWall{Label: "left", Normal: mgl64.Vec3{1, 0, 0}, Offset: -4.5})
	locals.Add(&PlanarWall{Label: "right", Normal: mgl64.Vec3{1, 0, 0}, Offset: 4.5})

	cl, err := NewCellList(store, bc, locals, 1.0, 0)
	require.NoError(t, err)

	var seen []int
	cl.ForEachLocalElement(store.Get(0), func(p *Particle, lid int) {
		seen = append(seen, lid)
	})
	// Near the left wall only.
	assert.Equal(t, []int{0}, seen)
}
