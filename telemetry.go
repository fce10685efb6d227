package morphcloud

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Phase names for the per-frame timing breakdown.
const (
	PhaseUniforms = "uniforms"
	PhaseDispatch = "dispatch"
	PhaseReadback = "readback"
	PhaseFallback = "fallback"
)

// PerfCollector records per-phase frame timings over a rolling window. It is
// optional: the simulation only measures when one is installed, and every
// method is safe on a nil receiver so the hot path carries no branches of
// its own.
//
// The collector is driven from the Step goroutine only; it is not safe for
// concurrent use.
type PerfCollector struct {
	windowSize int

	// Per-phase rolling windows of durations in milliseconds.
	windows map[string][]float64
	next    map[string]int

	phase      string
	phaseStart time.Time
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 120
	}
	return &PerfCollector{
		windowSize: windowSize,
		windows:    make(map[string][]float64),
		next:       make(map[string]int),
	}
}

// Observe records one duration for a phase.
func (p *PerfCollector) Observe(phase string, d time.Duration) {
	if p == nil {
		return
	}
	w := p.windows[phase]
	if w == nil {
		w = make([]float64, 0, p.windowSize)
	}
	ms := float64(d) / float64(time.Millisecond)
	if len(w) < p.windowSize {
		w = append(w, ms)
	} else {
		w[p.next[phase]] = ms
	}
	p.next[phase] = (p.next[phase] + 1) % p.windowSize
	p.windows[phase] = w
}

func (p *PerfCollector) startPhase(phase string) {
	if p == nil {
		return
	}
	p.phase = phase
	p.phaseStart = time.Now()
}

func (p *PerfCollector) endPhase() {
	if p == nil || p.phase == "" {
		return
	}
	p.Observe(p.phase, time.Since(p.phaseStart))
	p.phase = ""
}

// PhaseStats summarizes one phase over the current window, milliseconds.
type PhaseStats struct {
	Samples int
	Mean    float64
	P50     float64
	P95     float64
	StdDev  float64
}

// FrameStats is a snapshot of all phases seen so far.
type FrameStats struct {
	Phases map[string]PhaseStats
}

// Stats computes per-phase summaries over the rolling window.
func (p *PerfCollector) Stats() FrameStats {
	fs := FrameStats{Phases: make(map[string]PhaseStats)}
	if p == nil {
		return fs
	}
	for phase, w := range p.windows {
		if len(w) == 0 {
			continue
		}
		sorted := make([]float64, len(w))
		copy(sorted, w)
		sort.Float64s(sorted)
		fs.Phases[phase] = PhaseStats{
			Samples: len(w),
			Mean:    stat.Mean(sorted, nil),
			P50:     stat.Quantile(0.5, stat.Empirical, sorted, nil),
			P95:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
			StdDev:  stat.StdDev(sorted, nil),
		}
	}
	return fs
}

// String renders the snapshot one phase per line, stable order.
func (s FrameStats) String() string {
	phases := make([]string, 0, len(s.Phases))
	for phase := range s.Phases {
		phases = append(phases, phase)
	}
	sort.Strings(phases)

	var b strings.Builder
	for _, phase := range phases {
		st := s.Phases[phase]
		fmt.Fprintf(&b, "%-9s n=%-4d mean=%.3fms p50=%.3fms p95=%.3fms sd=%.3fms\n",
			phase, st.Samples, st.Mean, st.P50, st.P95, st.StdDev)
	}
	return b.String()
}
