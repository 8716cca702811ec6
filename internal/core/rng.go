package core

import "math/rand"

// newSeededRNG returns a per-call-owned generator seeded from the
// request's configuration. No process-wide RNG is used anywhere in this
// package — test reproducibility (spec.md §5's determinism law) requires
// a fresh, seed-derived stream per orchestration call.
func newSeededRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
