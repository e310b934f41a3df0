// Package delay implements the uniform time-discipline primitive used by
// every periodic behavior in the simulation: produce, expand, claim, fire,
// income, deprecate, and travel all gate themselves through a Gate.
package delay

// Gate accumulates elapsed time and fires once the accumulator crosses a
// threshold, carrying a running lifetime total for statistics timestamps.
type Gate struct {
	threshold float64
	counter   float64
	total     float64
}

// New creates a Gate with the given threshold in seconds.
func New(threshold float64) *Gate {
	return &Gate{threshold: threshold}
}

// Advance adds dt to the counter. If the counter reaches the threshold, the
// counter is folded into the lifetime total, reset to zero, and Advance
// returns true; otherwise it returns false.
func (g *Gate) Advance(dt float64) bool {
	g.counter += dt
	if g.counter >= g.threshold {
		g.total += g.counter
		g.counter = 0
		return true
	}
	return false
}

// Reset folds the current counter into the lifetime total and zeroes it,
// without firing.
func (g *Gate) Reset() {
	g.total += g.counter
	g.counter = 0
}

// SetThreshold updates the threshold in place without resetting the
// counter.
func (g *Gate) SetThreshold(t float64) {
	g.threshold = t
}

// TotalElapsed returns the lifetime total, for statistics timestamps.
func (g *Gate) TotalElapsed() float64 {
	return g.total
}
