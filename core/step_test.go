package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietUniforms(dt float32) *SimUniforms {
	return &SimUniforms{
		DeltaTime:     dt,
		ParticleCount: 1,
		RespawnRate:   0.2,
	}
}

func TestLifeDecrement(t *testing.T) {
	p := Particle{Life: 2.0}
	u := quietUniforms(1.0 / 60.0)

	StepParticle(&p, u, mgl32.Vec3{}, false)

	// life = 2.0 - (1/60)*0.2
	assert.InDelta(t, 1.996667, float64(p.Life), 1e-5)
}

func TestRespawnResetsStateTogether(t *testing.T) {
	p := Particle{
		Position: mgl32.Vec3{40, 40, 40}, // clearly outside the spawn sphere
		Velocity: mgl32.Vec3{9, 9, 9},
		Life:     0.001,
	}
	u := &SimUniforms{DeltaTime: 1, RespawnRate: 1, ParticleCount: 1, Gravity: 50}

	StepParticle(&p, u, mgl32.Vec3{}, false)

	if p.Position.Len() > SpawnRadius+1e-4 {
		t.Errorf("respawned position %v outside sphere of radius %f", p.Position, float32(SpawnRadius))
	}
	assert.Equal(t, mgl32.Vec3{}, p.Velocity, "respawn must zero velocity")
	require.GreaterOrEqual(t, p.Life, float32(1.0))
	require.Less(t, p.Life, float32(3.0))
}

func TestRespawnSkipsForcesThatFrame(t *testing.T) {
	p := Particle{Position: mgl32.Vec3{1, 1, 1}, Life: 0}
	u := &SimUniforms{DeltaTime: 1, RespawnRate: 1, ParticleCount: 1, Gravity: 1000, TurbulenceScale: 1000}

	StepParticle(&p, u, mgl32.Vec3{}, false)

	// With gravity 1000 and dt 1, a force-integrated particle would be far
	// outside the spawn sphere after a single step.
	if p.Position.Len() > SpawnRadius+1e-4 {
		t.Errorf("respawned particle moved under stale forces: %v", p.Position)
	}
}

func TestDampingConvergesToRest(t *testing.T) {
	p := Particle{Position: mgl32.Vec3{0, 0, 0}, Velocity: mgl32.Vec3{3, -2, 1}, Life: 1e6}
	u := &SimUniforms{DeltaTime: 1.0 / 60.0, ParticleCount: 1}

	prev := p.Velocity.Len()
	for i := 0; i < 600; i++ {
		StepParticle(&p, u, mgl32.Vec3{}, false)
		cur := p.Velocity.Len()
		if cur > prev+1e-6 {
			t.Fatalf("speed grew under zero forces at step %d: %f -> %f", i, prev, cur)
		}
		prev = cur
	}
	assert.Less(t, prev, float32(0.001), "speed should converge toward zero")
}

func TestPointerRepelFalloff(t *testing.T) {
	p := Particle{Position: mgl32.Vec3{2.5, 0, 0}, Life: 10}
	u := &SimUniforms{
		Pointer:          mgl32.Vec2{0, 0},
		PointerRadius:    5,
		PointerStrength:  1,
		PointerInfluence: 1,
		PointerMode:      PointerRepel,
	}

	force := PointerForce(p.Position, u)

	// falloff = (1 - 2.5/5)^2 = 0.25, directed away from the pointer (+x).
	assert.InDelta(t, 0.25, float64(force.X()), 1e-6)
	assert.InDelta(t, 0, float64(force.Y()), 1e-6)
	assert.InDelta(t, 0, float64(force.Z()), 1e-6)
}

func TestPointerAttractPullsToward(t *testing.T) {
	u := &SimUniforms{
		Pointer:          mgl32.Vec2{0, 0},
		PointerRadius:    5,
		PointerStrength:  2,
		PointerInfluence: 0.5,
		PointerMode:      PointerAttract,
	}
	force := PointerForce(mgl32.Vec3{2.5, 0, 0}, u)
	assert.InDelta(t, -0.25, float64(force.X()), 1e-6)
}

func TestPointerOutOfRangeParamsDegradeToZero(t *testing.T) {
	nan := float32(0)
	nan /= nan
	cases := []*SimUniforms{
		{Pointer: mgl32.Vec2{0, 0}, PointerRadius: -1, PointerStrength: 1, PointerInfluence: 1},
		{Pointer: mgl32.Vec2{0, 0}, PointerRadius: 0, PointerStrength: 1, PointerInfluence: 1},
		{Pointer: mgl32.Vec2{0, 0}, PointerRadius: nan, PointerStrength: 1, PointerInfluence: 1},
	}
	for i, u := range cases {
		if f := PointerForce(mgl32.Vec3{1, 0, 0}, u); f != (mgl32.Vec3{}) {
			t.Errorf("case %d: expected zero force, got %v", i, f)
		}
	}
}

func TestMorphBlendUsesAnchorWithoutTarget(t *testing.T) {
	anchor := mgl32.Vec3{1, 0, 0}
	target := mgl32.Vec3{-1, 0, 0}

	mk := func() Particle {
		return Particle{Position: mgl32.Vec3{0, 0, 0}, MorphAnchor: anchor, Life: 10}
	}
	u := &SimUniforms{DeltaTime: 0.1, AttractionStrength: 1, MorphProgress: 1, ParticleCount: 1}

	withTarget := mk()
	StepParticle(&withTarget, u, target, true)
	withoutTarget := mk()
	StepParticle(&withoutTarget, u, target, false)

	assert.Negative(t, withTarget.Velocity.X(), "full morph progress should pull toward the target")
	assert.Positive(t, withoutTarget.Velocity.X(), "uncovered index should still pull toward its anchor")
}

func TestColorTracksSpeed(t *testing.T) {
	fast := Particle{Velocity: mgl32.Vec3{5, 0, 0}, Life: 10}
	slow := Particle{Life: 10}
	u := &SimUniforms{DeltaTime: 1.0 / 60.0, ParticleCount: 1}

	StepParticle(&fast, u, mgl32.Vec3{}, false)
	StepParticle(&slow, u, mgl32.Vec3{}, false)

	// Speed 5 clamps to 0.5 and lands exactly on the warm end.
	assert.InDelta(t, float64(WarmColor.X()), float64(fast.Color.X()), 1e-5)
	assert.InDelta(t, float64(CoolColor.X()), float64(slow.Color.X()), 1e-5)
}

func TestReferenceLifeStrictlyDecreasesBetweenRespawns(t *testing.T) {
	store := NewParticleStore(MinParticles)
	ref := NewReference(store, nil)
	su := &SimUniforms{DeltaTime: 1.0 / 60.0, ParticleCount: uint32(store.Count()), RespawnRate: 1}

	before := make([]float32, store.Count())
	for i, p := range store.Particles {
		before[i] = p.Life
	}
	ref.Frame(su, &FiberUniforms{}, false)
	for i, p := range store.Particles {
		if p.Life >= before[i] && p.Life < 1 {
			t.Fatalf("particle %d: life went from %f to %f without a respawn", i, before[i], p.Life)
		}
	}
}
