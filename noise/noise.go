// Package noise provides the scalar gradient noise, divergence-free curl
// field and spatial hash used by the particle simulation.
package noise

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// curlEpsilon is the finite-difference step used by Curl. Kept small enough
// that the field stays visually smooth, large enough for float32 positions.
const curlEpsilon = 0.01

// Field is a deterministic gradient-noise generator. The zero value is not
// usable; construct with NewField.
type Field struct {
	perm [512]int
}

// NewField builds a field from a seed. Equal seeds yield identical fields.
func NewField(seed int64) *Field {
	f := &Field{}
	rng := rand.New(rand.NewSource(seed))

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < 256; i++ {
		f.perm[i] = perm[i]
		f.perm[i+256] = perm[i]
	}
	return f
}

// defaultField backs the package-level functions. The seed is fixed so the
// force field is identical across runs and across processes.
var defaultField = NewField(0x5eed)

// Gradient returns coherent noise at p, approximately in [-1, 1].
func Gradient(p mgl32.Vec3) float32 { return defaultField.Gradient(p) }

// Curl returns the normalized curl-style vector derived from Gradient at p.
func Curl(p mgl32.Vec3) mgl32.Vec3 { return defaultField.Curl(p) }

// Gradient returns coherent noise at p, approximately in [-1, 1].
func (f *Field) Gradient(p mgl32.Vec3) float32 {
	return float32(f.noise3(float64(p.X()), float64(p.Y()), float64(p.Z())))
}

// Curl derives a divergence-free direction from the scalar field by central
// differences along the three axes. The partial differences are combined
// into (dy-dz, dz-dx, dx-dy) and normalized. Continuous in p and does not
// allocate.
func (f *Field) Curl(p mgl32.Vec3) mgl32.Vec3 {
	x, y, z := float64(p.X()), float64(p.Y()), float64(p.Z())
	const e = curlEpsilon

	dx := f.noise3(x+e, y, z) - f.noise3(x-e, y, z)
	dy := f.noise3(x, y+e, z) - f.noise3(x, y-e, z)
	dz := f.noise3(x, y, z+e) - f.noise3(x, y, z-e)

	cx := dy - dz
	cy := dz - dx
	cz := dx - dy

	len2 := cx*cx + cy*cy + cz*cz
	if len2 < 1e-12 {
		// Degenerate point of the scalar field; any unit vector keeps the
		// result bounded and the motion coherent.
		return mgl32.Vec3{0, 1, 0}
	}
	inv := 1.0 / math.Sqrt(len2)
	return mgl32.Vec3{float32(cx * inv), float32(cy * inv), float32(cz * inv)}
}

func (f *Field) noise3(x, y, z float64) float64 {
	X := int(math.Floor(x)) & 255
	Y := int(math.Floor(y)) & 255
	Z := int(math.Floor(z)) & 255

	x -= math.Floor(x)
	y -= math.Floor(y)
	z -= math.Floor(z)

	u := fade(x)
	v := fade(y)
	w := fade(z)

	A := f.perm[X] + Y
	AA := f.perm[A] + Z
	AB := f.perm[A+1] + Z
	B := f.perm[X+1] + Y
	BA := f.perm[B] + Z
	BB := f.perm[B+1] + Z

	return lerp(w, lerp(v, lerp(u, grad(f.perm[AA], x, y, z),
		grad(f.perm[BA], x-1, y, z)),
		lerp(u, grad(f.perm[AB], x, y-1, z),
			grad(f.perm[BB], x-1, y-1, z))),
		lerp(v, lerp(u, grad(f.perm[AA+1], x, y, z-1),
			grad(f.perm[BA+1], x-1, y, z-1)),
			lerp(u, grad(f.perm[AB+1], x, y-1, z-1),
				grad(f.perm[BB+1], x-1, y-1, z-1))))
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad(hash int, x, y, z float64) float64 {
	h := hash & 15
	u := x
	if h >= 8 {
		u = y
	}
	v := y
	if h >= 4 {
		if h == 12 || h == 14 {
			v = x
		} else {
			v = z
		}
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v
}
