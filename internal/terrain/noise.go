package terrain

import (
	"fmt"
	"hash/fnv"
	"math"
)

func latticeHash(seed int64, x, z int) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%d:%d", seed, x, z)))
	return h.Sum64()
}

// latticeValue maps a lattice point to [0,1].
func latticeValue(seed int64, x, z int) float64 {
	return float64(latticeHash(seed, x, z)&0xfffffff) / float64(0xfffffff)
}

func smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// valueNoise2D samples smooth value noise in [0,1] at a continuous lattice position.
func valueNoise2D(seed int64, x, z float64) float64 {
	x0 := int(math.Floor(x))
	z0 := int(math.Floor(z))
	tx := smoothstep(x - float64(x0))
	tz := smoothstep(z - float64(z0))

	n00 := latticeValue(seed, x0, z0)
	n10 := latticeValue(seed, x0+1, z0)
	n01 := latticeValue(seed, x0, z0+1)
	n11 := latticeValue(seed, x0+1, z0+1)

	nx0 := n00 + (n10-n00)*tx
	nx1 := n01 + (n11-n01)*tx
	return nx0 + (nx1-nx0)*tz
}
