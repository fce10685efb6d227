package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// GPU buffer layout. These strides and the field offsets below are the
// single source of truth shared with the WGSL structs in the shaders
// package; vec3 fields carry 16-byte alignment, hence the padding floats.
const (
	ParticleStride = 64 // position+life | velocity+size | color+pad | anchor+pad
	FiberStride    = 32 // start,end,rest,active | strength + 12 pad
	TargetStride   = 16 // vec4<f32>, w unused
	AccumStride    = 16 // three atomic<i32> fixed-point accumulators + pad

	SimUniformsSize   = 64
	FiberUniformsSize = 32
)

// ForceScale converts fiber force deltas to the fixed-point representation
// the GPU accumulates atomically. Matches FORCE_SCALE in fibers.wgsl.
const ForceScale = 65536.0

// EncodeParticles serializes the store for the initial GPU upload.
func (s *ParticleStore) EncodeParticles() []byte {
	buf := make([]byte, len(s.Particles)*ParticleStride)
	for i, p := range s.Particles {
		o := i * ParticleStride
		putVec3(buf[o:], p.Position)
		putF32(buf[o+12:], p.Life)
		putVec3(buf[o+16:], p.Velocity)
		putF32(buf[o+28:], p.Size)
		putVec3(buf[o+32:], p.Color)
		putVec3(buf[o+48:], p.MorphAnchor)
	}
	return buf
}

// DecodeMirror copies position and color from readback bytes into the
// CPU mirror. Velocity, life and the rest of the record are left on the
// GPU; the renderer only consumes positions and colors. A short buffer
// updates the entries it covers and leaves the rest as-is.
func (s *ParticleStore) DecodeMirror(data []byte) error {
	if len(data)%ParticleStride != 0 {
		return fmt.Errorf("particle readback: %d bytes is not a multiple of the %d-byte stride", len(data), ParticleStride)
	}
	n := len(data) / ParticleStride
	if n > len(s.Particles) {
		n = len(s.Particles)
	}
	for i := 0; i < n; i++ {
		o := i * ParticleStride
		s.positions[i*3+0] = getF32(data[o:])
		s.positions[i*3+1] = getF32(data[o+4:])
		s.positions[i*3+2] = getF32(data[o+8:])
		s.colors[i*3+0] = getF32(data[o+32:])
		s.colors[i*3+1] = getF32(data[o+36:])
		s.colors[i*3+2] = getF32(data[o+40:])
	}
	return nil
}

// EncodeFibers serializes the fiber store for the initial GPU upload.
func (fs *FiberStore) EncodeFibers() []byte {
	buf := make([]byte, len(fs.Fibers)*FiberStride)
	for i, f := range fs.Fibers {
		o := i * FiberStride
		binary.LittleEndian.PutUint32(buf[o:], f.StartIndex)
		binary.LittleEndian.PutUint32(buf[o+4:], f.EndIndex)
		putF32(buf[o+8:], f.RestLength)
		binary.LittleEndian.PutUint32(buf[o+12:], f.Active)
		putF32(buf[o+16:], f.Strength)
	}
	return buf
}

// DecodeFiberState copies active flags and strengths from readback bytes
// back into the store. Geometry (indices, rest length) never changes
// GPU-side, so only the mutable fields are read.
func (fs *FiberStore) DecodeFiberState(data []byte) error {
	if len(data)%FiberStride != 0 {
		return fmt.Errorf("fiber readback: %d bytes is not a multiple of the %d-byte stride", len(data), FiberStride)
	}
	n := len(data) / FiberStride
	if n > len(fs.Fibers) {
		n = len(fs.Fibers)
	}
	for i := 0; i < n; i++ {
		o := i * FiberStride
		active := binary.LittleEndian.Uint32(data[o+12:])
		// Deactivation is permanent for the session; never flip back on.
		if active == 0 {
			fs.Fibers[i].Active = 0
		}
		fs.Fibers[i].Strength = getF32(data[o+16:])
	}
	return nil
}

// EncodeTargets serializes a morph-target array as vec4 entries.
func EncodeTargets(points []mgl32.Vec3) []byte {
	buf := make([]byte, len(points)*TargetStride)
	for i, p := range points {
		putVec3(buf[i*TargetStride:], p)
	}
	return buf
}

// PackSimUniforms lays the record out exactly as the WGSL SimUniforms
// struct expects it.
func PackSimUniforms(u *SimUniforms) []byte {
	buf := make([]byte, SimUniformsSize)
	putF32(buf[0:], u.Time)
	putF32(buf[4:], u.DeltaTime)
	binary.LittleEndian.PutUint32(buf[8:], u.ParticleCount)
	putF32(buf[12:], u.Gravity)
	putF32(buf[16:], u.TurbulenceScale)
	putF32(buf[20:], u.AttractionStrength)
	putF32(buf[24:], u.MorphProgress)
	putF32(buf[28:], u.RespawnRate)
	putF32(buf[32:], u.Pointer.X())
	putF32(buf[36:], u.Pointer.Y())
	putF32(buf[40:], u.PointerRadius)
	putF32(buf[44:], u.PointerStrength)
	putF32(buf[48:], u.PointerInfluence)
	binary.LittleEndian.PutUint32(buf[52:], uint32(u.PointerMode))
	binary.LittleEndian.PutUint32(buf[56:], u.TargetCount)
	return buf
}

// PackFiberUniforms lays the record out as the WGSL FiberUniforms struct.
func PackFiberUniforms(u *FiberUniforms) []byte {
	buf := make([]byte, FiberUniformsSize)
	putF32(buf[0:], u.MaxStretchDistance)
	putF32(buf[4:], u.SpringStrength)
	putF32(buf[8:], u.SpringDamping)
	putF32(buf[12:], u.DeltaTime)
	binary.LittleEndian.PutUint32(buf[16:], u.FiberCount)
	return buf
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

func getF32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putVec3(b []byte, v mgl32.Vec3) {
	putF32(b[0:], v.X())
	putF32(b[4:], v.Y())
	putF32(b[8:], v.Z())
}
