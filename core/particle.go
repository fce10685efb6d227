// Package core holds the canonical particle and fiber data model, the
// buffer layout rules shared with the GPU shaders, and a single-threaded
// reference implementation of both simulation stages.
package core

import "github.com/go-gl/mathgl/mgl32"

const (
	// SpawnRadius bounds initial placement and respawn placement.
	SpawnRadius = 5.0

	// VelocityDamping is applied every integration step. Fixed by design:
	// it bounds velocity growth under arbitrarily strong forces.
	VelocityDamping = 0.98

	// MinParticles and MaxParticles clamp the configured capacity.
	MinParticles = 100
	MaxParticles = 10000
)

// Color ramp endpoints for the speed-derived particle color.
var (
	CoolColor = mgl32.Vec3{0.15, 0.35, 0.95}
	WarmColor = mgl32.Vec3{1.0, 0.45, 0.1}
)

// Particle matches the WGSL layout in simulate.wgsl (64 bytes, see layout.go).
type Particle struct {
	Position    mgl32.Vec3
	Life        float32 // remaining lifetime, seconds
	Velocity    mgl32.Vec3
	Size        float32 // rendering hint, set at spawn only
	Color       mgl32.Vec3
	MorphAnchor mgl32.Vec3 // home target when no morph target covers this index
}

// PointerMode selects the sign of the pointer force.
type PointerMode uint32

const (
	PointerAttract PointerMode = 0
	PointerRepel   PointerMode = 1
)

// SimUniforms is the per-frame parameter record for the simulation stage.
// Written once per frame by the sync bridge, read-only to the stage.
type SimUniforms struct {
	Time               float32
	DeltaTime          float32
	ParticleCount      uint32
	Gravity            float32
	TurbulenceScale    float32
	AttractionStrength float32
	MorphProgress      float32
	RespawnRate        float32
	Pointer            mgl32.Vec2
	PointerRadius      float32
	PointerStrength    float32
	PointerInfluence   float32
	PointerMode        PointerMode
	TargetCount        uint32
}

// FiberUniforms is the per-frame parameter record for the fiber stage.
type FiberUniforms struct {
	MaxStretchDistance float32
	SpringStrength     float32
	SpringDamping      float32
	DeltaTime          float32
	FiberCount         uint32
}
