package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Hash maps a point to a deterministic pseudo-random value in [0, 1).
// It is intentionally unrelated to the gradient field: respawn placement
// must not correlate with the force field sampled at the same point.
func Hash(p mgl32.Vec3) float32 {
	x := math.Float32bits(p.X())
	y := math.Float32bits(p.Y())
	z := math.Float32bits(p.Z())

	h := x*0x9e3779b1 ^ y*0x85ebca77 ^ z*0xc2b2ae3d
	h ^= h >> 15
	h *= 0x27d4eb2f
	h ^= h >> 13
	h *= 0x165667b1
	h ^= h >> 16

	// Top 24 bits to a float in [0,1); avoids rounding up to 1.0.
	return float32(h>>8) * (1.0 / 16777216.0)
}

// SphericalHash returns a deterministic point uniformly distributed inside
// a sphere of the given radius, derived from three decorrelated hashes of
// the seed point. Used for respawn placement.
func SphericalHash(seed mgl32.Vec3, radius float32) mgl32.Vec3 {
	u := Hash(seed)
	v := Hash(seed.Add(mgl32.Vec3{19.19, 7.07, 3.33}))
	w := Hash(seed.Add(mgl32.Vec3{-4.44, 13.13, 27.27}))

	theta := 2 * math.Pi * float64(u)
	cosPhi := 2*float64(v) - 1
	sinPhi := math.Sqrt(1 - cosPhi*cosPhi)
	// Cube root keeps the radial distribution uniform in volume.
	r := float64(radius) * math.Cbrt(float64(w))

	return mgl32.Vec3{
		float32(r * sinPhi * math.Cos(theta)),
		float32(r * sinPhi * math.Sin(theta)),
		float32(r * cosPhi),
	}
}
