package core

import "github.com/go-gl/mathgl/mgl32"

// Fiber matches the WGSL layout in fibers.wgsl (32 bytes, see layout.go).
// Active is stored as 0/1. Once a fiber deactivates it never reactivates;
// callers must check Active before using Strength or the endpoints.
type Fiber struct {
	StartIndex uint32
	EndIndex   uint32
	RestLength float32
	Active     uint32
	Strength   float32 // last computed force magnitude, output only
}

// FiberForce runs one fiber update against this frame's particle state.
// If the endpoints have separated beyond MaxStretchDistance the fiber is
// permanently deactivated and no force applies. Otherwise it returns the
// velocity delta to add to the start particle; the end particle receives
// the negation. Strength records the combined force magnitude.
func FiberForce(f *Fiber, a, b *Particle, u *FiberUniforms) (mgl32.Vec3, bool) {
	if f.Active == 0 {
		return mgl32.Vec3{}, false
	}

	d := b.Position.Sub(a.Position)
	dist := d.Len()
	if dist > u.MaxStretchDistance {
		f.Active = 0
		f.Strength = 0
		return mgl32.Vec3{}, false
	}
	if dist < 1e-6 {
		// Coincident endpoints have no defined direction.
		return mgl32.Vec3{}, false
	}

	dir := d.Mul(1 / dist)
	spring := (dist - f.RestLength) * u.SpringStrength
	damping := b.Velocity.Sub(a.Velocity).Dot(dir) * u.SpringDamping
	total := spring + damping

	f.Strength = abs32(total)
	return dir.Mul(total * u.DeltaTime), true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
