package morphcloud

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/morphcloud/morphcloud/core"
)

// fallbackState tracks whether the CPU path currently has work to do.
type fallbackState int

const (
	fallbackIdle fallbackState = iota
	fallbackActive
)

// CpuFallback is the reduced simulation used when no compute backend is
// available. Per frame it applies only the pointer interaction force to the
// CPU-held position/color mirror; morphing runs as an eased tween instead
// of the morph-progress uniform. Turbulence, gravity and fibers stay off.
type CpuFallback struct {
	state fallbackState
	vel   []mgl32.Vec3
	tween *core.Tween
}

// NewCpuFallback sizes the fallback for a store of n particles.
func NewCpuFallback(n int) *CpuFallback {
	return &CpuFallback{vel: make([]mgl32.Vec3, n)}
}

// StartMorph begins easing the mirror toward dest. Any in-flight tween is
// cancelled immediately: last writer wins, nothing queues.
func (c *CpuFallback) StartMorph(positions []float32, dest []float32, duration float32) {
	c.tween = core.StartTween(positions, dest, duration)
	c.state = fallbackActive
}

// Morphing reports whether a tween is in flight.
func (c *CpuFallback) Morphing() bool {
	return c.tween != nil && !c.tween.Done()
}

// Step advances the fallback by one frame, mutating the store's mirror in
// place.
func (c *CpuFallback) Step(dt float32, store *core.ParticleStore, pointer mgl32.Vec2, p *Params) {
	positions := store.Positions()
	colors := store.Colors()

	if c.tween != nil {
		c.tween.Advance(dt, positions)
		if c.tween.Done() {
			c.tween = nil
		}
	}

	u := &core.SimUniforms{
		Pointer:          pointer,
		PointerRadius:    p.Pointer.Radius,
		PointerStrength:  p.Pointer.Strength,
		PointerInfluence: p.Pointer.Influence,
		PointerMode:      p.Pointer.PointerMode(),
	}

	n := len(positions) / 3
	moving := false
	for i := 0; i < n; i++ {
		pos := mgl32.Vec3{positions[i*3], positions[i*3+1], positions[i*3+2]}

		force := core.PointerForce(pos, u)
		v := c.vel[i].Add(force.Mul(dt)).Mul(core.VelocityDamping)
		c.vel[i] = v
		if v.Len() > 1e-5 {
			moving = true
		}

		pos = pos.Add(v.Mul(dt))
		positions[i*3] = pos.X()
		positions[i*3+1] = pos.Y()
		positions[i*3+2] = pos.Z()

		col := core.SpeedColor(v.Len())
		colors[i*3] = col.X()
		colors[i*3+1] = col.Y()
		colors[i*3+2] = col.Z()
	}

	if moving || c.tween != nil {
		c.state = fallbackActive
	} else {
		c.state = fallbackIdle
	}
}

// Active reports whether the fallback moved anything last frame.
func (c *CpuFallback) Active() bool { return c.state == fallbackActive }
