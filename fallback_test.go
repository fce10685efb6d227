package morphcloud

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morphcloud/morphcloud/core"
)

func noPointerParams() Params {
	p := DefaultParams()
	p.Pointer.Radius = 0
	return p
}

func flatDest(n int, v mgl32.Vec3) []float32 {
	dest := make([]float32, n*3)
	for i := 0; i < n; i++ {
		dest[i*3+0] = v.X()
		dest[i*3+1] = v.Y()
		dest[i*3+2] = v.Z()
	}
	return dest
}

func TestFallbackTweenReachesDestinationExactly(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	dest := flatDest(store.Count(), mgl32.Vec3{1, 2, 3})
	fb.StartMorph(store.Positions(), dest, 0.5)
	require.True(t, fb.Morphing())

	for i := 0; i < 40; i++ {
		fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)
	}
	assert.False(t, fb.Morphing())

	pos := store.Positions()
	assert.InDelta(t, 1.0, pos[0], 1e-5)
	assert.InDelta(t, 2.0, pos[1], 1e-5)
	assert.InDelta(t, 3.0, pos[2], 1e-5)
}

func TestFallbackZeroDurationCompletesInOneStep(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	fb.StartMorph(store.Positions(), flatDest(store.Count(), mgl32.Vec3{}), 0)
	fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)

	assert.False(t, fb.Morphing())
	for i, v := range store.Positions() {
		if v != 0 {
			t.Fatalf("position[%d] = %v after zero-duration morph to origin", i, v)
		}
	}
}

func TestFallbackLastMorphWins(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	fb.StartMorph(store.Positions(), flatDest(store.Count(), mgl32.Vec3{9, 9, 9}), 5)
	fb.StartMorph(store.Positions(), flatDest(store.Count(), mgl32.Vec3{-1, 0, 1}), 0.2)

	for i := 0; i < 30; i++ {
		fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)
	}

	pos := store.Positions()
	assert.InDelta(t, -1.0, pos[0], 1e-5)
	assert.InDelta(t, 0.0, pos[1], 1e-5)
	assert.InDelta(t, 1.0, pos[2], 1e-5)
}

func TestFallbackShortDestinationLeavesTailUntouched(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	last := len(store.Positions()) - 3
	wantX := store.Positions()[last]

	// Cover only the first half of the cloud.
	fb.StartMorph(store.Positions(), flatDest(store.Count()/2, mgl32.Vec3{}), 0)
	fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)

	assert.Equal(t, wantX, store.Positions()[last])
	assert.Zero(t, store.Positions()[0])
}

func TestFallbackPointerAttract(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	// Collapse everything to the origin first so distances are known.
	fb.StartMorph(store.Positions(), flatDest(store.Count(), mgl32.Vec3{}), 0)
	fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)

	params = DefaultParams() // pointer back on, attract mode
	fb.Step(1.0/60.0, store, mgl32.Vec2{0.5, 0}, &params)

	assert.Greater(t, store.Positions()[0], float32(0), "particle should move toward the pointer")
	assert.True(t, fb.Active())

	// Colors follow the speed ramp away from pure cool.
	assert.NotEqual(t, core.CoolColor.X(), store.Colors()[0])
}

func TestFallbackIdleWithoutWork(t *testing.T) {
	store := core.NewParticleStore(core.MinParticles)
	fb := NewCpuFallback(store.Count())
	params := noPointerParams()

	fb.Step(1.0/60.0, store, mgl32.Vec2{}, &params)
	assert.False(t, fb.Active())
}
