package workload

import "math/rand"

// GenerateStream produces a synthetic integer stream of length spec.Count,
// uniform over [0, spec.UniverseHi), seeded deterministically from
// spec.Seed. Grounded on the teacher's ListGen/AVLTreeHTGen random-load
// generators (gen.go), adapted from key/value command pairs to bare
// integer keys.
func GenerateStream(spec *Spec) []uint64 {
	r := rand.New(rand.NewSource(spec.Seed))
	stream := make([]uint64, spec.Count)
	for i := range stream {
		stream[i] = uint64(r.Int63n(int64(spec.UniverseHi)))
	}
	return stream
}

// Partition splits stream across ranks ranks as evenly as possible, the
// local analogue of the external distributor's MPI_Scatterv (spec.md §1
// treats that substrate as out of scope; this is a plain in-memory
// stand-in for it).
func Partition(stream []uint64, ranks int) [][]uint64 {
	if ranks < 1 {
		panic("workload: ranks must be at least 1")
	}
	out := make([][]uint64, ranks)
	base := len(stream) / ranks
	rem := len(stream) % ranks
	pos := 0
	for r := 0; r < ranks; r++ {
		n := base
		if r < rem {
			n++
		}
		out[r] = stream[pos : pos+n]
		pos += n
	}
	return out
}
