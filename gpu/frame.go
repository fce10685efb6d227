package gpu

import (
	"fmt"

	"github.com/morphcloud/morphcloud/core"
)

// Frame submits one simulation frame: uniform upload, the simulate pass,
// then (when fibers are enabled) the fiber force and resolve passes in the
// same submission, so the fiber stage always observes this frame's
// post-simulate state. When wantReadback is set and the readback slot is
// idle, a copy of the particle and fiber buffers into the staging area is
// appended to the submission; a busy slot drops the request.
func (s *Simulator) Frame(su *core.SimUniforms, fu *core.FiberUniforms, fibersEnabled, wantReadback bool) error {
	s.queue.WriteBuffer(s.simUB, 0, core.PackSimUniforms(su))
	s.queue.WriteBuffer(s.fiberUB, 0, core.PackFiberUniforms(fu))

	encoder, err := s.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(s.simPipeline)
	pass.SetBindGroup(0, s.simBindGroup, nil)
	pass.DispatchWorkgroups(workgroupCount(s.particleCount), 1, 1)

	if fibersEnabled && s.fiberCount > 0 {
		pass.SetPipeline(s.forcePipeline)
		pass.SetBindGroup(0, s.fiberBindGroup, nil)
		pass.DispatchWorkgroups(workgroupCount(s.fiberCount), 1, 1)

		pass.SetPipeline(s.resolvePipeline)
		pass.SetBindGroup(0, s.fiberBindGroup, nil)
		pass.DispatchWorkgroups(workgroupCount(s.particleCount), 1, 1)
	}
	pass.End()

	copied := false
	if wantReadback {
		copied = s.encodeReadbackCopy(encoder)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		// The copy never reached the queue; free the slot so a later
		// frame can request a fresh one.
		if copied {
			s.releaseReadbackSlot()
		}
		return fmt.Errorf("finish command encoder: %w", err)
	}
	s.queue.Submit(cmd)
	return nil
}
