package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/morphcloud/morphcloud/noise"
)

// respawnSeedVel and respawnSeedAnchor decorrelate the respawn seed from
// the stale position alone; they match the constants in simulate.wgsl.
const (
	respawnSeedVel    = 7.31
	respawnSeedAnchor = 3.17
)

// StepParticle advances one particle by one frame. It is order-independent
// across indices: it reads and writes only *p. The GPU simulation stage in
// simulate.wgsl implements the same function; this one backs the tests and
// the headless reference path.
//
// target is the externally supplied morph target for this index; hasTarget
// is false when the morph array does not cover the index, in which case the
// particle is attracted to its morph anchor only.
func StepParticle(p *Particle, u *SimUniforms, target mgl32.Vec3, hasTarget bool) {
	p.Life -= u.DeltaTime * u.RespawnRate
	if p.Life <= 0 {
		// Respawn replaces the whole frame for this particle: position,
		// velocity and life are reset together, and no stale forces apply.
		seed := p.Position.
			Add(p.Velocity.Mul(respawnSeedVel)).
			Add(p.MorphAnchor.Mul(respawnSeedAnchor))
		p.Position = noise.SphericalHash(seed, SpawnRadius)
		p.Velocity = mgl32.Vec3{}
		p.Life = 1 + noise.Hash(p.Position)*2
		return
	}

	t := u.Time * 0.05
	turbulence := noise.Curl(p.Position.Mul(0.2).Add(mgl32.Vec3{t, t, t})).
		Mul(u.TurbulenceScale)

	gravity := mgl32.Vec3{0, -u.Gravity, 0}

	blended := p.MorphAnchor
	if hasTarget {
		blended = lerpVec3(p.MorphAnchor, target, u.MorphProgress)
	}
	attraction := blended.Sub(p.Position).Mul(u.AttractionStrength)

	pointer := PointerForce(p.Position, u)

	vel := p.Velocity.
		Add(turbulence.Add(gravity).Add(attraction).Add(pointer).Mul(u.DeltaTime)).
		Mul(VelocityDamping)
	p.Velocity = vel
	p.Position = p.Position.Add(vel.Mul(u.DeltaTime))

	p.Color = SpeedColor(vel.Len())
}

// SpeedColor maps a speed onto the cool-to-warm ramp; the ramp saturates
// at speed 0.5.
func SpeedColor(speed float32) mgl32.Vec3 {
	s := clamp32(speed, 0, 0.5)
	return lerpVec3(CoolColor, WarmColor, smoothstep(0, 0.5, s))
}

// PointerForce implements the quadratic-falloff pointer interaction shared
// by the simulation stage and the CPU fallback path. Out-of-range radius
// values degrade to zero force.
func PointerForce(pos mgl32.Vec3, u *SimUniforms) mgl32.Vec3 {
	if !(u.PointerRadius > 0) { // also rejects NaN
		return mgl32.Vec3{}
	}
	pointer := mgl32.Vec3{u.Pointer.X(), u.Pointer.Y(), 0}
	toPointer := pointer.Sub(pos)
	dist := toPointer.Len()
	if dist >= u.PointerRadius || dist < 1e-5 {
		return mgl32.Vec3{}
	}
	falloff := 1 - dist/u.PointerRadius
	mag := falloff * falloff * u.PointerStrength * u.PointerInfluence
	dir := toPointer.Mul(1 / dist)
	if u.PointerMode == PointerRepel {
		dir = dir.Mul(-1)
	}
	return dir.Mul(mag)
}

// Reference runs both stages on the CPU with the same semantics the GPU
// path has: the simulation stage touches each particle independently, and
// fiber forces accumulate into a separate per-particle buffer that is
// summed into velocity afterwards, so fibers sharing an endpoint never lose
// a contribution.
type Reference struct {
	Store  *ParticleStore
	Fibers *FiberStore

	// Targets is the external morph-target array, index-aligned and
	// allowed to be shorter than the particle count.
	Targets []mgl32.Vec3

	accum []mgl32.Vec3
}

// NewReference wires a reference simulation over existing stores.
func NewReference(store *ParticleStore, fibers *FiberStore) *Reference {
	return &Reference{
		Store:  store,
		Fibers: fibers,
		accum:  make([]mgl32.Vec3, store.Count()),
	}
}

// Frame advances the whole system by one frame: simulation stage, then the
// fiber stage against this frame's state, then the mirror refresh.
func (r *Reference) Frame(su *SimUniforms, fu *FiberUniforms, fibersEnabled bool) {
	n := int(su.ParticleCount)
	if n > r.Store.Count() {
		n = r.Store.Count()
	}
	for i := 0; i < n; i++ {
		target := mgl32.Vec3{}
		hasTarget := i < len(r.Targets)
		if hasTarget {
			target = r.Targets[i]
		}
		StepParticle(&r.Store.Particles[i], su, target, hasTarget)
	}

	if fibersEnabled && r.Fibers != nil {
		for i := range r.accum {
			r.accum[i] = mgl32.Vec3{}
		}
		for i := range r.Fibers.Fibers {
			f := &r.Fibers.Fibers[i]
			if int(f.StartIndex) >= n || int(f.EndIndex) >= n {
				continue
			}
			a := &r.Store.Particles[f.StartIndex]
			b := &r.Store.Particles[f.EndIndex]
			delta, ok := FiberForce(f, a, b, fu)
			if !ok {
				continue
			}
			r.accum[f.StartIndex] = r.accum[f.StartIndex].Add(delta)
			r.accum[f.EndIndex] = r.accum[f.EndIndex].Sub(delta)
		}
		for i := 0; i < n; i++ {
			r.Store.Particles[i].Velocity = r.Store.Particles[i].Velocity.Add(r.accum[i])
		}
	}

	r.Store.SyncMirror()
}

func lerpVec3(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp32(v, lo, hi float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return lo
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func smoothstep(edge0, edge1, x float32) float32 {
	t := clamp32((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
