package randutil

import (
	rand "math/rand/v2"
	"time"
)

const goldenRatio64 = 0x9e3779b97f4a7c15

// New returns a *rand.Rand seeded deterministically from seed. All shuffle
// call sites derive their PCG state here so a test that fixes the seed gets
// a reproducible card sequence.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// ForHand seeds a generator from the wall clock mixed with the hand id, the
// per-hand randomisation the dealer uses between hands.
func ForHand(handID int64) *rand.Rand {
	return New(time.Now().UnixNano() ^ int64(mix(uint64(handID))))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
