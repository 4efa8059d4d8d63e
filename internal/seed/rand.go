package seed

// rand32 is a mulberry32 generator. It is kept instead of math/rand so the
// demo dataset stays identical for a given seed across Go releases.
type rand32 struct {
	state uint32
}

func newRand(seed uint32) *rand32 {
	return &rand32{state: seed}
}

// float returns a uniform value in [0, 1).
func (r *rand32) float() float64 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296
}

// intn returns a uniform int in [0, n).
func (r *rand32) intn(n int) int {
	return int(r.float() * float64(n))
}
