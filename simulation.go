// Package morphcloud is the host-facing facade over a GPU-resident morphing
// point-cloud simulation. The host drives it once per frame with Step, feeds
// it pointer input and morph targets, and reads positions and colors back
// for rendering. When no compute backend can be negotiated the facade
// degrades to a reduced CPU path instead of failing.
package morphcloud

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/morphcloud/morphcloud/core"
	"github.com/morphcloud/morphcloud/gpu"
)

// MorphId identifies one morph transition. Each SetMorphTargets call mints a
// fresh id so hosts can correlate completion queries with the request that
// produced them.
type MorphId = uuid.UUID

// Config describes one simulation instance. Zero values are usable: count
// and fiber capacity get defaults, a nil Logger becomes a nop logger.
type Config struct {
	// ParticleCount is clamped to [MinParticles, MaxParticles].
	ParticleCount int

	// MaxFibers caps the connection network built at seed time.
	MaxFibers int

	Params Params
	Logger Logger

	// ForceCPU skips backend negotiation entirely. Used by hosts that know
	// no adapter exists, and by tests.
	ForceCPU bool

	// HighPerformance prefers a discrete adapter during negotiation.
	HighPerformance bool
}

// Simulation owns the particle and fiber stores, the negotiated backend and
// the per-frame sync bridge. All methods are safe for concurrent use; the
// host typically calls Step from one goroutine and the setters from an
// input-event goroutine.
type Simulation struct {
	mu  sync.Mutex
	log Logger

	cfg    Config
	params Params

	store   *core.ParticleStore
	fibers  *core.FiberStore
	backend Backend

	fallback *CpuFallback

	pointer       mgl32.Vec2
	time          float32
	fibersEnabled bool

	morphID       MorphId
	morphElapsed  float32
	morphDuration float32
	morphActive   bool
	targetCount   uint32

	// pendingCount holds a deferred SetParticleCount request until the next
	// Reinitialize.
	pendingCount int

	segScratch []core.FiberSegment
	perf       *PerfCollector

	closed bool
}

// New builds the stores, seeds the fiber network and negotiates a backend.
// It fails only on impossible configuration; an unavailable GPU is not an
// error, it selects the CPU fallback.
func New(cfg Config) (*Simulation, error) {
	if cfg.Logger == nil {
		cfg.Logger = NewNopLogger()
	}
	if cfg.ParticleCount == 0 {
		cfg.ParticleCount = 5000
	}
	if cfg.MaxFibers == 0 {
		cfg.MaxFibers = cfg.ParticleCount / 2
	}
	if cfg.MaxFibers < 0 {
		return nil, fmt.Errorf("negative fiber capacity %d", cfg.MaxFibers)
	}

	s := &Simulation{
		log:    cfg.Logger,
		cfg:    cfg,
		params: cfg.Params.Sanitized(),
	}
	if err := s.initLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// initLocked (re)builds stores and backend from cfg. Callers hold s.mu or
// own s exclusively.
func (s *Simulation) initLocked() error {
	count := ClampParticleCount(s.cfg.ParticleCount)
	if count != s.cfg.ParticleCount {
		s.log.Infof("particle count %d clamped to %d", s.cfg.ParticleCount, count)
		s.cfg.ParticleCount = count
	}

	s.store = core.NewParticleStore(count)
	s.fibers = core.BuildFiberStore(s.store, s.cfg.MaxFibers, s.params.Fibers.ConnectDistance)
	s.fibersEnabled = s.params.Fibers.Enabled

	if s.cfg.ForceCPU {
		s.backend = Backend{Kind: BackendCPUFallback}
		s.log.Infof("compute backend disabled by configuration, using CPU fallback")
	} else {
		s.backend = NegotiateBackend(gpu.Options{HighPerformance: s.cfg.HighPerformance}, s.store, s.fibers, s.log)
	}
	if s.backend.Kind == BackendCPUFallback {
		s.fallback = NewCpuFallback(count)
	} else {
		s.fallback = nil
	}

	s.time = 0
	s.morphActive = false
	s.morphElapsed = 0
	s.morphDuration = 0
	s.targetCount = 0
	s.pendingCount = 0
	return nil
}

// Backend reports the negotiated execution backend.
func (s *Simulation) Backend() BackendKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Kind
}

// SetCollector installs an optional frame-time collector. A nil collector
// removes it; nothing is measured when none is installed.
func (s *Simulation) SetCollector(p *PerfCollector) {
	s.mu.Lock()
	s.perf = p
	s.mu.Unlock()
}

// SetPointer updates the host pointer position in simulation space.
func (s *Simulation) SetPointer(x, y float32) {
	s.mu.Lock()
	s.pointer = mgl32.Vec2{x, y}
	s.mu.Unlock()
}

// SetParams replaces the parameter snapshot. The new values take effect on
// the next Step; out-of-range entries are degraded to zero effect.
func (s *Simulation) SetParams(p Params) {
	s.mu.Lock()
	s.params = p.Sanitized()
	s.fibersEnabled = s.params.Fibers.Enabled
	s.mu.Unlock()
}

// Params returns the current sanitized parameter snapshot.
func (s *Simulation) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// SetFibersEnabled stops or resumes the fiber stage starting with the next
// frame. The fiber store itself is untouched, so re-enabling resumes from
// the last state rather than rebuilding.
func (s *Simulation) SetFibersEnabled(enabled bool) {
	s.mu.Lock()
	s.fibersEnabled = enabled
	s.params.Fibers.Enabled = enabled
	s.mu.Unlock()
}

// SetParticleCount records a new capacity. It is deliberately deferred:
// buffers are never resized in place, the change applies at the next
// Reinitialize as a full drop-and-reseed.
func (s *Simulation) SetParticleCount(n int) {
	s.mu.Lock()
	s.pendingCount = ClampParticleCount(n)
	s.mu.Unlock()
}

// Reinitialize drops all simulation state and reseeds from scratch,
// applying any pending particle-count change. GPU resources are released
// and renegotiated.
func (s *Simulation) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrTornDown
	}
	if s.pendingCount != 0 {
		s.cfg.ParticleCount = s.pendingCount
	}
	s.backend.Release()
	return s.initLocked()
}

// SetMorphTargets begins a transition of the cloud toward points. Arrays
// shorter than the particle count are valid; uncovered particles stay
// attracted to their anchors. A non-positive duration falls back to the
// configured default. A new call replaces any transition in flight.
func (s *Simulation) SetMorphTargets(points []mgl32.Vec3, duration float32) MorphId {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return MorphId{}
	}

	if duration <= 0 {
		duration = s.params.MorphDuration
	}
	if len(points) > s.store.Count() {
		points = points[:s.store.Count()]
	}

	id := uuid.New()
	s.morphID = id
	s.morphElapsed = 0
	s.morphDuration = duration
	s.morphActive = true
	s.targetCount = uint32(len(points))

	switch s.backend.Kind {
	case BackendGPU:
		s.backend.GPU.UploadTargets(points)
	case BackendCPUFallback:
		dest := make([]float32, len(points)*3)
		for i, p := range points {
			dest[i*3+0] = p.X()
			dest[i*3+1] = p.Y()
			dest[i*3+2] = p.Z()
		}
		s.fallback.StartMorph(s.store.Positions(), dest, duration)
	}
	s.log.Debugf("morph %s: %d targets over %.2fs", id, len(points), duration)
	return id
}

// Morphing reports whether a transition is still in progress, and the id of
// the most recent one.
func (s *Simulation) Morphing() (MorphId, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend.Kind == BackendCPUFallback {
		return s.morphID, s.fallback.Morphing()
	}
	return s.morphID, s.morphActive
}

// Step advances the simulation by dt seconds. On the GPU backend this packs
// uniforms, submits both compute stages and resolves any completed readback;
// on the CPU fallback it runs the reduced pointer-and-tween path. Parameter
// problems degrade to zero effect and are never returned as errors; only a
// torn-down simulation or a failed submission reports one.
func (s *Simulation) Step(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrTornDown
	}
	if !s.params.ParticlesEnabled {
		return nil
	}

	s.time += dt
	if s.morphActive {
		s.morphElapsed += dt
		if s.morphElapsed >= s.morphDuration {
			s.morphActive = false
		}
	}

	if s.backend.Kind == BackendCPUFallback {
		s.perf.startPhase(PhaseFallback)
		s.fallback.Step(dt, s.store, s.pointer, &s.params)
		s.perf.endPhase()
		return nil
	}
	return s.stepGPULocked(dt)
}

func (s *Simulation) stepGPULocked(dt float32) error {
	s.perf.startPhase(PhaseUniforms)
	su := &core.SimUniforms{
		Time:               s.time,
		DeltaTime:          dt,
		ParticleCount:      uint32(s.store.Count()),
		Gravity:            s.params.Gravity,
		TurbulenceScale:    s.params.TurbulenceScale,
		AttractionStrength: s.params.AttractionStrength,
		MorphProgress:      s.morphProgressLocked(),
		RespawnRate:        s.params.RespawnRate,
		Pointer:            s.pointer,
		PointerRadius:      s.params.Pointer.Radius,
		PointerStrength:    s.params.Pointer.Strength,
		PointerInfluence:   s.params.Pointer.Influence,
		PointerMode:        s.params.Pointer.PointerMode(),
		TargetCount:        s.targetCount,
	}
	fu := &core.FiberUniforms{
		MaxStretchDistance: s.params.Fibers.MaxStretchDistance,
		SpringStrength:     s.params.Fibers.SpringStrength,
		SpringDamping:      s.params.Fibers.SpringDamping,
		DeltaTime:          dt,
		FiberCount:         uint32(s.fibers.Count()),
	}
	s.perf.endPhase()

	// The CPU mirror only needs refreshing while a transition is visibly
	// moving things; steady-state frames skip the copy entirely.
	wantReadback := s.morphActive

	s.perf.startPhase(PhaseDispatch)
	err := s.backend.GPU.Frame(su, fu, s.fibersEnabled, wantReadback)
	s.perf.endPhase()
	if err != nil {
		return fmt.Errorf("frame submit: %w", err)
	}

	s.perf.startPhase(PhaseReadback)
	s.backend.GPU.ResolveReadback(func(particleBytes, fiberBytes []byte) {
		if err := s.store.DecodeMirror(particleBytes); err != nil {
			s.log.Warnf("particle readback dropped: %v", err)
		}
		if fiberBytes != nil {
			if err := s.fibers.DecodeFiberState(fiberBytes); err != nil {
				s.log.Warnf("fiber readback dropped: %v", err)
			}
		}
	})
	s.perf.endPhase()
	return nil
}

// morphProgressLocked returns the eased blend factor for the current
// transition. After completion it stays pinned at 1 so the cloud remains at
// its targets until the next transition.
func (s *Simulation) morphProgressLocked() float32 {
	if s.targetCount == 0 {
		return 0
	}
	if !s.morphActive || s.morphDuration <= 0 {
		return 1
	}
	return core.EaseInOut(s.morphElapsed / s.morphDuration)
}

// Positions returns the flat xyz mirror consumed by the renderer. The slice
// is reused across frames.
func (s *Simulation) Positions() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Positions()
}

// Colors returns the flat rgb mirror consumed by the renderer.
func (s *Simulation) Colors() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Colors()
}

// ParticleCount returns the current seeded capacity.
func (s *Simulation) ParticleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Count()
}

// FiberSegments returns endpoint indices and strengths for the fibers still
// active, for connection-line rendering. The returned slice is reused
// across calls.
func (s *Simulation) FiberSegments() []core.FiberSegment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segScratch = s.fibers.ActiveSegments(s.segScratch[:0])
	return s.segScratch
}

// Close releases the backend. Further Steps return ErrTornDown; Close is
// idempotent.
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.backend.Release()
	return nil
}
