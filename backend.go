package morphcloud

import (
	"errors"

	"github.com/morphcloud/morphcloud/core"
	"github.com/morphcloud/morphcloud/gpu"
)

// ErrTornDown is returned by operations on a closed Simulation.
var ErrTornDown = errors.New("simulation torn down")

// BackendKind identifies the negotiated execution backend.
type BackendKind int

const (
	// BackendGPU runs both stages as compute passes on a WebGPU device.
	BackendGPU BackendKind = iota
	// BackendCPUFallback runs the reduced pointer-and-tween path on the
	// CPU mirror. Turbulence, gravity and the fiber network require the
	// parallel backend and are inactive in this mode.
	BackendCPUFallback
)

func (k BackendKind) String() string {
	switch k {
	case BackendGPU:
		return "gpu"
	case BackendCPUFallback:
		return "cpu-fallback"
	}
	return "unknown"
}

// Backend is the explicit capability-negotiation result. It is threaded
// through the simulation rather than read from any ambient state; the GPU
// handle is nil exactly when Kind is BackendCPUFallback.
type Backend struct {
	Kind BackendKind
	GPU  *gpu.Simulator
}

// NegotiateBackend tries to bring up the compute backend for the given
// stores. Failure is not fatal: it degrades to the CPU fallback and logs
// the reason.
func NegotiateBackend(opts gpu.Options, particles *core.ParticleStore, fibers *core.FiberStore, log Logger) Backend {
	sim, err := gpu.New(opts, particles, fibers)
	if err != nil {
		log.Warnf("compute backend unavailable, using CPU fallback: %v", err)
		return Backend{Kind: BackendCPUFallback}
	}
	log.Infof("compute backend ready: %d particles, %d fibers", particles.Count(), fibers.Count())
	return Backend{Kind: BackendGPU, GPU: sim}
}

// Release frees backend resources. Safe to call on a fallback backend.
func (b *Backend) Release() {
	if b.GPU != nil {
		b.GPU.Release()
		b.GPU = nil
	}
}
