// Package main runs the morphing point-cloud simulation headless on the CPU
// reference path for a fixed number of frames, with a scripted pointer orbit
// and one morph transition, and prints per-phase timing statistics. Useful
// for profiling the simulation semantics without a GPU or a renderer.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/morphcloud/morphcloud"
	"github.com/morphcloud/morphcloud/core"
)

func main() {
	configPath := flag.String("config", "", "params YAML file (empty = embedded defaults)")
	particles := flag.Int("particles", 5000, "particle count")
	fibers := flag.Int("fibers", 2500, "fiber capacity")
	frames := flag.Int("frames", 600, "frames to simulate")
	dt := flag.Float64("dt", 1.0/60.0, "fixed timestep, seconds")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := morphcloud.NewDefaultLogger("cloudbench", *debug)

	params := morphcloud.DefaultParams()
	if *configPath != "" {
		var err error
		params, err = morphcloud.LoadParams(*configPath)
		if err != nil {
			log.Errorf("%v", err)
			os.Exit(1)
		}
	}
	params = params.Sanitized()

	count := morphcloud.ClampParticleCount(*particles)
	store := core.NewParticleStore(count)
	fiberStore := core.BuildFiberStore(store, *fibers, params.Fibers.ConnectDistance)
	ref := core.NewReference(store, fiberStore)

	log.Infof("seeded %d particles, %d fibers", store.Count(), fiberStore.Count())

	// Morph target: a ring in the xz plane, started a third of the way in.
	ring := make([]mgl32.Vec3, count)
	for i := range ring {
		a := float64(i) / float64(count) * 2 * math.Pi
		ring[i] = mgl32.Vec3{float32(math.Cos(a)) * 4, 0, float32(math.Sin(a)) * 4}
	}
	ref.Targets = ring
	morphStart := *frames / 3

	perf := morphcloud.NewPerfCollector(*frames)
	step := float32(*dt)
	var simTime, morphElapsed float32

	for frame := 0; frame < *frames; frame++ {
		simTime += step

		// Pointer orbits the origin just inside the spawn radius.
		angle := float64(simTime) * 0.8
		px := float32(math.Cos(angle)) * 3
		py := float32(math.Sin(angle)) * 3

		progress := float32(0)
		if frame >= morphStart {
			morphElapsed += step
			p := float32(1)
			if params.MorphDuration > 0 {
				p = morphElapsed / params.MorphDuration
				if p > 1 {
					p = 1
				}
			}
			progress = core.EaseInOut(p)
		}

		su := &core.SimUniforms{
			Time:               simTime,
			DeltaTime:          step,
			ParticleCount:      uint32(store.Count()),
			Gravity:            params.Gravity,
			TurbulenceScale:    params.TurbulenceScale,
			AttractionStrength: params.AttractionStrength,
			MorphProgress:      progress,
			RespawnRate:        params.RespawnRate,
			Pointer:            mgl32.Vec2{px, py},
			PointerRadius:      params.Pointer.Radius,
			PointerStrength:    params.Pointer.Strength,
			PointerInfluence:   params.Pointer.Influence,
			PointerMode:        params.Pointer.PointerMode(),
			TargetCount:        uint32(len(ring)),
		}
		fu := &core.FiberUniforms{
			MaxStretchDistance: params.Fibers.MaxStretchDistance,
			SpringStrength:     params.Fibers.SpringStrength,
			SpringDamping:      params.Fibers.SpringDamping,
			DeltaTime:          step,
			FiberCount:         uint32(fiberStore.Count()),
		}

		start := time.Now()
		ref.Frame(su, fu, params.Fibers.Enabled)
		perf.Observe("frame", time.Since(start))
	}

	active := fiberStore.ActiveSegments(nil)
	log.Infof("finished %d frames of %.1fs sim time, %d/%d fibers still active",
		*frames, simTime, len(active), fiberStore.Count())

	fmt.Print(perf.Stats())
}
