package core

// EaseInOut is the quadratic ease curve used for morph tweens:
// 2p^2 below the midpoint, 1-(-2p+2)^2/2 above it. e(0)=0, e(0.5)=0.5,
// e(1)=1, monotonically increasing on [0,1].
func EaseInOut(p float32) float32 {
	if p < 0.5 {
		return 2 * p * p
	}
	q := -2*p + 2
	return 1 - q*q/2
}

// Tween interpolates a flat coordinate array from a captured start state
// toward a destination over a fixed duration. Starting a new tween on the
// same array is done by simply replacing the Tween: last writer wins, there
// is no queue.
type Tween struct {
	start    []float32
	dest     []float32
	duration float32
	elapsed  float32
}

// StartTween snapshots the current coordinates and begins easing them
// toward dest. dest may be shorter than current; uncovered coordinates are
// left untouched by Advance. A non-positive duration completes immediately.
func StartTween(current, dest []float32, duration float32) *Tween {
	n := len(dest)
	if n > len(current) {
		n = len(current)
	}
	start := make([]float32, n)
	copy(start, current[:n])
	return &Tween{start: start, dest: dest[:n], duration: duration}
}

// Progress returns the clamped linear progress in [0,1].
func (t *Tween) Progress() float32 {
	if t.duration <= 0 {
		return 1
	}
	p := t.elapsed / t.duration
	if p > 1 {
		return 1
	}
	return p
}

// Done reports whether the tween has reached its destination.
func (t *Tween) Done() bool { return t.Progress() >= 1 }

// Advance steps the tween by dt and writes the eased coordinates into out.
// At progress 1 the destination is reproduced exactly.
func (t *Tween) Advance(dt float32, out []float32) {
	t.elapsed += dt
	e := EaseInOut(t.Progress())
	n := len(t.start)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = t.start[i] + (t.dest[i]-t.start[i])*e
	}
}
