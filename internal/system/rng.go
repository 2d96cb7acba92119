package system

import "math"

// noiseCounter is a counter-based random stream: every draw is a pure
// function of (seed, counter, particle id, component). Workers holding the
// same seed and counter see identical noise without sharing generator
// state, and a replayed run reproduces its trajectory exactly.
type noiseCounter struct {
	seed    uint64
	counter uint64
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// uniform returns a draw in (0, 1), never exactly zero so it is safe to
// pass to math.Log.
func (n *noiseCounter) uniform(id int, component uint64) float64 {
	h := splitmix64(n.seed ^ splitmix64(n.counter) ^ splitmix64(uint64(id)*8+component))
	return (float64(h>>11) + 0.5) / (1 << 53)
}

// gaussian draws a unit normal via Box-Muller from two decorrelated
// uniform draws.
func (n *noiseCounter) gaussian(id int, component uint64) float64 {
	u1 := n.uniform(id, 2*component)
	u2 := n.uniform(id, 2*component+1)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

func (n *noiseCounter) advance() { n.counter++ }
