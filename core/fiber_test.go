package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiberSpringScenario(t *testing.T) {
	a := Particle{Position: mgl32.Vec3{0, 0, 0}}
	b := Particle{Position: mgl32.Vec3{3, 0, 0}}
	f := Fiber{StartIndex: 0, EndIndex: 1, RestLength: 1, Active: 1}
	u := &FiberUniforms{MaxStretchDistance: 10, SpringStrength: 1, SpringDamping: 0, DeltaTime: 1}

	delta, ok := FiberForce(&f, &a, &b, u)

	require.True(t, ok)
	// (3-1) * 1.0 = 2.0 along +x for the start particle; the end particle
	// receives the negation.
	assert.InDelta(t, 2.0, float64(delta.X()), 1e-6)
	assert.InDelta(t, 0, float64(delta.Y()), 1e-6)
	assert.InDelta(t, 2.0, float64(f.Strength), 1e-6)
}

func TestFiberDampingOpposesSeparation(t *testing.T) {
	a := Particle{Position: mgl32.Vec3{0, 0, 0}, Velocity: mgl32.Vec3{-1, 0, 0}}
	b := Particle{Position: mgl32.Vec3{1, 0, 0}, Velocity: mgl32.Vec3{1, 0, 0}}
	f := Fiber{RestLength: 1, Active: 1}
	u := &FiberUniforms{MaxStretchDistance: 10, SpringStrength: 0, SpringDamping: 0.5, DeltaTime: 1}

	delta, ok := FiberForce(&f, &a, &b, u)

	require.True(t, ok)
	// Separation at rest length: spring term zero, damping term
	// (relVel . dir) * 0.5 = 2 * 0.5 = 1 pulling the endpoints together.
	assert.InDelta(t, 1.0, float64(delta.X()), 1e-6)
}

func TestFiberOverstretchDeactivatesPermanently(t *testing.T) {
	a := Particle{Position: mgl32.Vec3{0, 0, 0}}
	b := Particle{Position: mgl32.Vec3{20, 0, 0}}
	f := Fiber{RestLength: 1, Active: 1, Strength: 3}
	u := &FiberUniforms{MaxStretchDistance: 10, SpringStrength: 1, DeltaTime: 1}

	_, ok := FiberForce(&f, &a, &b, u)
	require.False(t, ok, "no force may apply on the deactivating frame")
	assert.Equal(t, uint32(0), f.Active)
	assert.Equal(t, float32(0), f.Strength)

	// Bring the endpoints back within range: the fiber must stay inert.
	b.Position = mgl32.Vec3{1, 0, 0}
	_, ok = FiberForce(&f, &a, &b, u)
	assert.False(t, ok, "a deactivated fiber never reactivates")
	assert.Equal(t, uint32(0), f.Active)
}

func TestInactiveFiberSkipped(t *testing.T) {
	a := Particle{Position: mgl32.Vec3{0, 0, 0}}
	b := Particle{Position: mgl32.Vec3{3, 0, 0}}
	f := Fiber{RestLength: 1, Active: 0}
	u := &FiberUniforms{MaxStretchDistance: 10, SpringStrength: 1, DeltaTime: 1}

	_, ok := FiberForce(&f, &a, &b, u)
	assert.False(t, ok)
}

// Two fibers sharing an endpoint must both contribute to the shared
// particle's velocity. This pins the accumulation semantics chosen for the
// fiber stage: deltas gather in a separate buffer and are summed into
// velocity afterwards, so no contribution can be lost to a concurrent
// read-modify-write.
func TestSharedEndpointKeepsBothContributions(t *testing.T) {
	store := &ParticleStore{
		Particles: []Particle{
			{Position: mgl32.Vec3{0, 0, 0}, Life: 100},
			{Position: mgl32.Vec3{3, 0, 0}, Life: 100},
			{Position: mgl32.Vec3{-3, 0, 0}, Life: 100},
		},
		positions: make([]float32, 9),
		colors:    make([]float32, 9),
	}
	fibers := &FiberStore{Fibers: []Fiber{
		{StartIndex: 0, EndIndex: 1, RestLength: 1, Active: 1},
		{StartIndex: 0, EndIndex: 2, RestLength: 1, Active: 1},
	}}
	ref := NewReference(store, fibers)

	su := &SimUniforms{DeltaTime: 0, ParticleCount: 3} // freeze the sim stage
	fu := &FiberUniforms{MaxStretchDistance: 10, SpringStrength: 1, DeltaTime: 1}
	ref.Frame(su, fu, true)

	// The two springs pull particle 0 in opposite directions with equal
	// magnitude 2; a lost contribution would leave |v| = 2 instead of 0.
	assert.InDelta(t, 0, float64(store.Particles[0].Velocity.X()), 1e-6)
	// The outer particles each received exactly one pull toward the center.
	assert.InDelta(t, -2, float64(store.Particles[1].Velocity.X()), 1e-6)
	assert.InDelta(t, 2, float64(store.Particles[2].Velocity.X()), 1e-6)
}

func TestBuildFiberStoreInvariants(t *testing.T) {
	store := NewParticleStore(500)
	fs := BuildFiberStore(store, 200, 2.5)

	require.NotEmpty(t, fs.Fibers, "seed positions within a radius-5 sphere should yield close pairs")
	assert.LessOrEqual(t, len(fs.Fibers), 200)
	for _, f := range fs.Fibers {
		assert.NotEqual(t, f.StartIndex, f.EndIndex)
		assert.Less(t, int(f.StartIndex), store.Count())
		assert.Less(t, int(f.EndIndex), store.Count())
		assert.Greater(t, f.RestLength, float32(0))
		assert.LessOrEqual(t, f.RestLength, float32(2.5)+1e-4)
		assert.Equal(t, uint32(1), f.Active)
	}
}

func TestActiveSegmentsFilter(t *testing.T) {
	fs := &FiberStore{Fibers: []Fiber{
		{StartIndex: 0, EndIndex: 1, Active: 1, Strength: 0.5},
		{StartIndex: 1, EndIndex: 2, Active: 0, Strength: 9},
		{StartIndex: 2, EndIndex: 3, Active: 1, Strength: 0.1},
	}}
	segs := fs.ActiveSegments(nil)
	require.Len(t, segs, 2)
	assert.Equal(t, uint32(0), segs[0].StartIndex)
	assert.Equal(t, uint32(2), segs[1].StartIndex)
}
