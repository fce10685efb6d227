package morphcloud

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPerfCollectorWindowRolls(t *testing.T) {
	p := NewPerfCollector(4)
	for i := 0; i < 10; i++ {
		p.Observe(PhaseDispatch, time.Millisecond)
	}
	st := p.Stats().Phases[PhaseDispatch]
	assert.Equal(t, 4, st.Samples)
	assert.InDelta(t, 1.0, st.Mean, 1e-9)
}

func TestPerfCollectorQuantiles(t *testing.T) {
	p := NewPerfCollector(10)
	for _, ms := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 100} {
		p.Observe(PhaseReadback, time.Duration(ms)*time.Millisecond)
	}
	st := p.Stats().Phases[PhaseReadback]
	assert.InDelta(t, 14.5, st.Mean, 1e-9)
	assert.Less(t, st.P50, st.P95)
	assert.LessOrEqual(t, st.P95, 100.0)
}

func TestPerfCollectorNilSafe(t *testing.T) {
	var p *PerfCollector
	p.Observe(PhaseUniforms, time.Millisecond)
	p.startPhase(PhaseUniforms)
	p.endPhase()
	assert.Empty(t, p.Stats().Phases)
}

func TestFrameStatsStringListsPhases(t *testing.T) {
	p := NewPerfCollector(8)
	p.Observe(PhaseUniforms, time.Millisecond)
	p.Observe(PhaseDispatch, 2*time.Millisecond)
	out := p.Stats().String()
	assert.True(t, strings.Contains(out, PhaseUniforms))
	assert.True(t, strings.Contains(out, PhaseDispatch))
}
