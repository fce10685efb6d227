package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/morphcloud/morphcloud/core"
)

// readbackState is the single-slot in-flight request machine. Exactly one
// copy+map can be outstanding; new requests while the slot is busy are
// dropped by Frame, never queued.
type readbackState int

const (
	readbackIdle readbackState = iota
	readbackCopied
	readbackMapping
	readbackMapped
)

// tryAcquireReadbackSlot claims the single readback slot, flipping it from
// idle to copied. It returns false while a previous copy, map or mapped
// result is still outstanding; the caller drops the request in that case.
func (s *Simulator) tryAcquireReadbackSlot() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.rbState != readbackIdle {
		return false
	}
	s.rbState = readbackCopied
	return true
}

// releaseReadbackSlot returns the slot to idle. Used when a submission
// carrying the copy fails, so a later frame retries instead of mapping
// staging bytes that were never written.
func (s *Simulator) releaseReadbackSlot() {
	s.stateMu.Lock()
	s.rbState = readbackIdle
	s.stateMu.Unlock()
}

// encodeReadbackCopy appends the buffer-to-staging copies to the current
// submission, but only when the slot is idle. Reports whether the copy was
// encoded.
func (s *Simulator) encodeReadbackCopy(encoder *wgpu.CommandEncoder) bool {
	if !s.tryAcquireReadbackSlot() {
		return false
	}

	particleBytes := uint64(s.particleCount * core.ParticleStride)
	encoder.CopyBufferToBuffer(s.particleBuf, 0, s.staging, 0, particleBytes)
	if s.fiberCount > 0 {
		encoder.CopyBufferToBuffer(s.fiberBuf, 0, s.staging, particleBytes, uint64(s.fiberCount*core.FiberStride))
	}
	return true
}

// ResolveReadback advances the readback machine by one step and, when a
// mapped result is available, hands the particle and fiber bytes to apply.
// It never blocks: a copy that has not completed yet simply stays pending
// until a later frame. apply runs while the staging buffer is mapped and
// must not retain the slices.
func (s *Simulator) ResolveReadback(apply func(particleBytes, fiberBytes []byte)) {
	s.stateMu.Lock()
	startMap := s.rbState == readbackCopied
	if startMap {
		s.rbState = readbackMapping
	}
	s.stateMu.Unlock()

	// MapAsync runs outside the lock: the bindings may fire the callback
	// inline on validation failure, and the callback takes stateMu.
	if startMap {
		s.staging.MapAsync(wgpu.MapModeRead, 0, s.staging.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
			s.stateMu.Lock()
			defer s.stateMu.Unlock()
			if status == wgpu.BufferMapAsyncStatusSuccess {
				s.rbState = readbackMapped
			} else {
				// Failed map: drop the request, the next frame may retry.
				s.rbState = readbackIdle
			}
		})
	}

	// Pump the device so pending map callbacks can fire without stalling.
	s.device.Poll(false, nil)

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.rbState != readbackMapped {
		return
	}

	data := s.staging.GetMappedRange(0, uint(s.staging.GetSize()))
	particleBytes := s.particleCount * core.ParticleStride
	if apply != nil && len(data) >= particleBytes {
		var fiberBytes []byte
		if s.fiberCount > 0 && len(data) >= particleBytes+s.fiberCount*core.FiberStride {
			fiberBytes = data[particleBytes : particleBytes+s.fiberCount*core.FiberStride]
		}
		apply(data[:particleBytes], fiberBytes)
	}
	s.staging.Unmap()
	s.rbState = readbackIdle
}

// ReadbackPending reports whether a copy or map is currently in flight.
func (s *Simulator) ReadbackPending() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.rbState != readbackIdle
}
