package morphcloud

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/morphcloud/morphcloud/core"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Params is the host-tunable parameter snapshot. The host may replace it at
// any time; the bridge reads one consistent copy per frame. Values pass
// through Sanitized before they reach a dispatch, so NaN or out-of-range
// entries degrade to zero effect instead of corrupting the uniforms.
type Params struct {
	Gravity            float32 `yaml:"gravity"`
	TurbulenceScale    float32 `yaml:"turbulence_scale"`
	AttractionStrength float32 `yaml:"attraction_strength"`
	RespawnRate        float32 `yaml:"respawn_rate"`

	// MorphDuration is the default transition time, seconds.
	MorphDuration float32 `yaml:"morph_duration"`

	ParticlesEnabled bool `yaml:"particles_enabled"`

	Pointer PointerParams `yaml:"pointer"`
	Fibers  FiberParams   `yaml:"fibers"`
}

// PointerParams shape the pointer interaction force.
type PointerParams struct {
	Radius    float32 `yaml:"radius"`
	Strength  float32 `yaml:"strength"`
	Influence float32 `yaml:"influence"`
	Mode      string  `yaml:"mode"` // "attract" or "repel"
}

// FiberParams shape the elastic connection network.
type FiberParams struct {
	Enabled            bool    `yaml:"enabled"`
	ConnectDistance    float32 `yaml:"connect_distance"`
	SpringStrength     float32 `yaml:"spring_strength"`
	SpringDamping      float32 `yaml:"spring_damping"`
	MaxStretchDistance float32 `yaml:"max_stretch_distance"`
}

// DefaultParams returns the embedded defaults.
func DefaultParams() Params {
	var p Params
	// The embedded file is validated by tests; a decode failure here is a
	// build defect, not a runtime condition.
	if err := yaml.Unmarshal(defaultsYAML, &p); err != nil {
		panic(fmt.Sprintf("embedded defaults.yaml: %v", err))
	}
	return p
}

// LoadParams reads a YAML parameter file over the embedded defaults, so a
// partial file only overrides what it names.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse params %s: %w", path, err)
	}
	return p, nil
}

// PointerMode maps the configured mode string onto the uniform encoding.
// Unknown strings fall back to attract.
func (p *PointerParams) PointerMode() core.PointerMode {
	if p.Mode == "repel" {
		return core.PointerRepel
	}
	return core.PointerAttract
}

// Sanitized returns a copy with NaN and out-of-range values degraded to
// zero effect.
func (p Params) Sanitized() Params {
	p.Gravity = finiteOrZero(p.Gravity)
	p.TurbulenceScale = finiteOrZero(p.TurbulenceScale)
	p.AttractionStrength = finiteOrZero(p.AttractionStrength)
	p.RespawnRate = nonNegative(p.RespawnRate)
	p.MorphDuration = nonNegative(p.MorphDuration)
	p.Pointer.Radius = nonNegative(p.Pointer.Radius)
	p.Pointer.Strength = finiteOrZero(p.Pointer.Strength)
	p.Pointer.Influence = nonNegative(p.Pointer.Influence)
	p.Fibers.ConnectDistance = nonNegative(p.Fibers.ConnectDistance)
	p.Fibers.SpringStrength = finiteOrZero(p.Fibers.SpringStrength)
	p.Fibers.SpringDamping = finiteOrZero(p.Fibers.SpringDamping)
	p.Fibers.MaxStretchDistance = nonNegative(p.Fibers.MaxStretchDistance)
	return p
}

// ClampParticleCount bounds a requested capacity to the supported range.
func ClampParticleCount(n int) int {
	if n < core.MinParticles {
		return core.MinParticles
	}
	if n > core.MaxParticles {
		return core.MaxParticles
	}
	return n
}

func finiteOrZero(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func nonNegative(v float32) float32 {
	v = finiteOrZero(v)
	if v < 0 {
		return 0
	}
	return v
}
