package core

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/morphcloud/morphcloud/noise"
)

// ParticleStore is the canonical per-particle state buffer plus the
// CPU-side position/color mirror consumed by the external renderer.
// Capacity is fixed at construction; changing it means building a new store.
type ParticleStore struct {
	Particles []Particle

	// Flat xyz / rgb mirrors, index-aligned with Particles, length count*3.
	positions []float32
	colors    []float32
}

// NewParticleStore allocates and seeds a store of exactly n particles.
// Seeding is deterministic: placement derives from the spatial hash of the
// particle index, so two stores of equal size start identical.
func NewParticleStore(n int) *ParticleStore {
	s := &ParticleStore{
		Particles: make([]Particle, n),
		positions: make([]float32, n*3),
		colors:    make([]float32, n*3),
	}
	for i := range s.Particles {
		seed := mgl32.Vec3{float32(i) * 0.731, float32(i) * -1.177, float32(i) * 0.397}
		pos := noise.SphericalHash(seed, SpawnRadius)
		s.Particles[i] = Particle{
			Position:    pos,
			Life:        1 + noise.Hash(pos)*2,
			Size:        0.5 + noise.Hash(seed.Add(mgl32.Vec3{31.7, 0, 0}))*1.5,
			Color:       CoolColor,
			MorphAnchor: pos,
		}
	}
	s.SyncMirror()
	return s
}

// Count returns the fixed particle capacity.
func (s *ParticleStore) Count() int { return len(s.Particles) }

// Positions returns the mirrored flat position array (length count*3).
// The slice is reused across frames; callers must not retain it across Step.
func (s *ParticleStore) Positions() []float32 { return s.positions }

// Colors returns the mirrored flat color array (length count*3).
func (s *ParticleStore) Colors() []float32 { return s.colors }

// SyncMirror refreshes the flat mirrors from the struct array. Used by the
// CPU paths; the GPU path fills the mirrors from readback bytes instead.
func (s *ParticleStore) SyncMirror() {
	for i, p := range s.Particles {
		s.positions[i*3+0] = p.Position.X()
		s.positions[i*3+1] = p.Position.Y()
		s.positions[i*3+2] = p.Position.Z()
		s.colors[i*3+0] = p.Color.X()
		s.colors[i*3+1] = p.Color.Y()
		s.colors[i*3+2] = p.Color.Z()
	}
}

// FiberStore is the canonical per-fiber connectivity buffer. Fibers are
// never compacted: deactivated entries stay in place so indices remain
// stable for the whole session.
type FiberStore struct {
	Fibers []Fiber
}

// BuildFiberStore connects sparse particle pairs whose seed separation is
// within connectDistance, up to maxFibers entries. Rest length is the
// initial separation. The scan window over subsequent indices keeps
// construction linear; seed positions are hash-scattered, so windowed pairs
// are as good as random ones.
func BuildFiberStore(ps *ParticleStore, maxFibers int, connectDistance float32) *FiberStore {
	fs := &FiberStore{Fibers: make([]Fiber, 0, maxFibers)}
	if maxFibers <= 0 || connectDistance <= 0 {
		return fs
	}
	const window = 48
	n := ps.Count()
	for i := 0; i < n && len(fs.Fibers) < maxFibers; i++ {
		for j := i + 1; j < n && j <= i+window; j++ {
			d := ps.Particles[j].Position.Sub(ps.Particles[i].Position).Len()
			if d > connectDistance || d < 1e-4 {
				continue
			}
			fs.Fibers = append(fs.Fibers, Fiber{
				StartIndex: uint32(i),
				EndIndex:   uint32(j),
				RestLength: d,
				Active:     1,
			})
			if len(fs.Fibers) >= maxFibers {
				break
			}
		}
	}
	return fs
}

// Count returns the fixed fiber capacity.
func (fs *FiberStore) Count() int { return len(fs.Fibers) }

// FiberSegment is the visualization view of one active fiber.
type FiberSegment struct {
	StartIndex uint32
	EndIndex   uint32
	Strength   float32
}

// ActiveSegments returns endpoint pairs and last force magnitudes for the
// fibers still active, appended to dst to avoid per-frame allocation.
func (fs *FiberStore) ActiveSegments(dst []FiberSegment) []FiberSegment {
	for _, f := range fs.Fibers {
		if f.Active == 0 {
			continue
		}
		dst = append(dst, FiberSegment{StartIndex: f.StartIndex, EndIndex: f.EndIndex, Strength: f.Strength})
	}
	return dst
}
