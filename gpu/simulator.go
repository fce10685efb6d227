// Package gpu runs the particle and fiber stages as WebGPU compute passes
// and mirrors results back to the CPU through an asynchronous staging copy.
package gpu

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/morphcloud/morphcloud/core"
	"github.com/morphcloud/morphcloud/shaders"
)

const workgroupSize = 64

// Options configure device acquisition.
type Options struct {
	// HighPerformance prefers a discrete adapter when more than one exists.
	HighPerformance bool
}

// Simulator owns the compute device and all simulation-side GPU resources.
// One Simulator serves one particle/fiber store pair; capacity changes mean
// releasing it and building a new one.
type Simulator struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	particleBuf *wgpu.Buffer
	fiberBuf    *wgpu.Buffer
	targetBuf   *wgpu.Buffer
	accumBuf    *wgpu.Buffer
	simUB       *wgpu.Buffer
	fiberUB     *wgpu.Buffer
	staging     *wgpu.Buffer

	simPipeline     *wgpu.ComputePipeline
	forcePipeline   *wgpu.ComputePipeline
	resolvePipeline *wgpu.ComputePipeline

	simBindGroup   *wgpu.BindGroup
	fiberBindGroup *wgpu.BindGroup

	particleCount int
	fiberCount    int

	// Readback slot state machine, see readback.go.
	stateMu sync.Mutex
	rbState readbackState
}

// New acquires an adapter and device and builds pipelines and buffers for
// the given stores. It returns an error when no compute backend is
// available; callers fall back to the CPU path in that case.
func New(opts Options, particles *core.ParticleStore, fibers *core.FiberStore) (s *Simulator, err error) {
	// Adapter acquisition panics inside the bindings on some broken
	// driver stacks; surface that as a negotiation failure instead.
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("compute backend unavailable: %v", r)
		}
	}()

	s = &Simulator{
		particleCount: particles.Count(),
		fiberCount:    fibers.Count(),
	}

	s.instance = wgpu.CreateInstance(nil)
	power := wgpu.PowerPreferenceLowPower
	if opts.HighPerformance {
		power = wgpu.PowerPreferenceHighPerformance
	}
	s.adapter, err = s.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: power,
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	s.device, err = s.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "morphcloud device",
	})
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	s.queue = s.device.GetQueue()

	if err := s.createPipelines(); err != nil {
		s.Release()
		return nil, err
	}
	if err := s.createBuffers(particles, fibers); err != nil {
		s.Release()
		return nil, err
	}
	if err := s.createBindGroups(); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *Simulator) createPipelines() error {
	simModule, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SimulateShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SimulateWGSL},
	})
	if err != nil {
		return fmt.Errorf("create simulate shader module: %w", err)
	}
	defer simModule.Release()

	fiberModule, err := s.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "FibersShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FibersWGSL},
	})
	if err != nil {
		return fmt.Errorf("create fibers shader module: %w", err)
	}
	defer fiberModule.Release()

	s.simPipeline, err = s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "SimulatePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     simModule,
			EntryPoint: "simulate",
		},
	})
	if err != nil {
		return fmt.Errorf("create simulate pipeline: %w", err)
	}
	s.forcePipeline, err = s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "FiberForcePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     fiberModule,
			EntryPoint: "fiber_force",
		},
	})
	if err != nil {
		return fmt.Errorf("create fiber force pipeline: %w", err)
	}
	s.resolvePipeline, err = s.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "FiberResolvePipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     fiberModule,
			EntryPoint: "fiber_resolve",
		},
	})
	if err != nil {
		return fmt.Errorf("create fiber resolve pipeline: %w", err)
	}
	return nil
}

func (s *Simulator) createBuffers(particles *core.ParticleStore, fibers *core.FiberStore) error {
	var err error

	particleData := particles.EncodeParticles()
	s.particleBuf, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ParticleStore",
		Size:  uint64(len(particleData)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create particle buffer: %w", err)
	}
	s.queue.WriteBuffer(s.particleBuf, 0, particleData)

	fiberData := fibers.EncodeFibers()
	if len(fiberData) == 0 {
		fiberData = make([]byte, core.FiberStride) // non-zero size for binding
	}
	s.fiberBuf, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "FiberStore",
		Size:  uint64(len(fiberData)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create fiber buffer: %w", err)
	}
	s.queue.WriteBuffer(s.fiberBuf, 0, fiberData)

	s.targetBuf, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "MorphTargets",
		Size:  uint64(s.particleCount * core.TargetStride),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create target buffer: %w", err)
	}

	s.accumBuf, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "FiberForceAccum",
		Size:  uint64(s.particleCount * core.AccumStride),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create accumulator buffer: %w", err)
	}
	s.queue.WriteBuffer(s.accumBuf, 0, make([]byte, s.particleCount*core.AccumStride))

	s.simUB, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "SimUniforms",
		Size:  core.SimUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create sim uniform buffer: %w", err)
	}
	s.fiberUB, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "FiberUniforms",
		Size:  core.FiberUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create fiber uniform buffer: %w", err)
	}

	s.staging, err = s.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ReadbackStaging",
		Size:  s.stagingSize(),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	return nil
}

func (s *Simulator) createBindGroups() error {
	var err error
	s.simBindGroup, err = s.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "SimulateBindGroup",
		Layout: s.simPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: s.simUB, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: s.particleBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: s.targetBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create simulate bind group: %w", err)
	}

	// fiber_force and fiber_resolve share one module and one layout.
	s.fiberBindGroup, err = s.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "FiberBindGroup",
		Layout: s.forcePipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: s.fiberUB, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: s.particleBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: s.fiberBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: s.accumBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("create fiber bind group: %w", err)
	}
	return nil
}

// UploadTargets writes a morph-target array. Arrays shorter than the
// particle count are valid; the caller reflects the effective length in
// SimUniforms.TargetCount so uncovered indices stay anchored.
func (s *Simulator) UploadTargets(points []mgl32.Vec3) {
	if len(points) > s.particleCount {
		points = points[:s.particleCount]
	}
	if len(points) == 0 {
		return
	}
	s.queue.WriteBuffer(s.targetBuf, 0, core.EncodeTargets(points))
}

func (s *Simulator) stagingSize() uint64 {
	fiberBytes := s.fiberCount * core.FiberStride
	if fiberBytes == 0 {
		fiberBytes = core.FiberStride
	}
	return uint64(s.particleCount*core.ParticleStride + fiberBytes)
}

func workgroupCount(items int) uint32 {
	if items <= 0 {
		return 0
	}
	return uint32((items + workgroupSize - 1) / workgroupSize)
}

// Release frees all GPU resources. Safe on a partially constructed
// simulator.
func (s *Simulator) Release() {
	for _, b := range []*wgpu.Buffer{s.particleBuf, s.fiberBuf, s.targetBuf, s.accumBuf, s.simUB, s.fiberUB, s.staging} {
		if b != nil {
			b.Release()
		}
	}
	if s.device != nil {
		s.device.Release()
		s.device = nil
	}
	if s.adapter != nil {
		s.adapter.Release()
		s.adapter = nil
	}
	if s.instance != nil {
		s.instance.Release()
		s.instance = nil
	}
}
