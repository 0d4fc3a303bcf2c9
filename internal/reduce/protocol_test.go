package reduce

import (
	"sync"
	"testing"

	"qdigest/internal/digest"
	"qdigest/internal/transport"
)

// runReduce builds one digest per rank from keys[rank], runs TreeReduce
// concurrently across all ranks, and returns the tree belonging to
// whichever rank ended up holding the globally merged result (identified
// by Total() equalling the full key count, as only the fully-merged
// digest can reach that total).
func runReduce(t *testing.T, k uint64, universeHi uint64, keys [][]uint64) *digest.Tree {
	t.Helper()
	p := len(keys)
	comms := transport.NewLocal(p)
	trees := make([]*digest.Tree, p)
	errs := make([]error, p)

	var wantTotal uint64
	for _, ks := range keys {
		wantTotal += uint64(len(ks))
	}

	var wg sync.WaitGroup
	wg.Add(p)
	for r := 0; r < p; r++ {
		r := r
		tr := digest.New(k, universeHi)
		for _, key := range keys[r] {
			tr.Insert(key, 1, true)
		}
		trees[r] = tr
		go func() {
			defer wg.Done()
			errs[r] = TreeReduce(trees[r], comms[r])
		}()
	}
	wg.Wait()

	for r, err := range errs {
		if err != nil {
			t.Log("rank", r, "returned error:", err.Error())
			t.FailNow()
		}
	}

	for _, tr := range trees {
		if tr.Total() == wantTotal {
			return tr
		}
	}
	t.Log("no rank produced a digest with the full total", wantTotal)
	t.FailNow()
	return nil
}

// Scenario 4 from spec.md §8: reduction across 3 ranks, one orphan pair.
func TestTreeReduceThreeRanksOneOrphanPair(t *testing.T) {
	keys := [][]uint64{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
	}
	merged := runReduce(t, 5, 0, keys)

	if got := merged.Percentile(0.0); got > 0 {
		t.Log("percentile(0.0) =", got, "expected <= 0")
		t.FailNow()
	}
	if got := merged.Percentile(1.0); got != 8 {
		t.Log("percentile(1.0) =", got, "expected 8")
		t.FailNow()
	}
	mid := merged.Percentile(0.5)
	if mid != 3 && mid != 4 && mid != 5 {
		t.Log("percentile(0.5) =", mid, "expected one of {3,4,5}")
		t.FailNow()
	}
}

// Scenario 5 from spec.md §8: reduction across 4 ranks, no orphans.
func TestTreeReduceFourRanksNoOrphans(t *testing.T) {
	keys := make([][]uint64, 4)
	for r := 0; r < 4; r++ {
		ks := make([]uint64, 250)
		for i := range ks {
			ks[i] = uint64(r*250 + i)
		}
		keys[r] = ks
	}
	merged := runReduce(t, 20, 0, keys)

	const trueMedian = 499
	const bound = 1000 / 20
	got := merged.Percentile(0.5)
	diff := int64(got) - trueMedian
	if diff < 0 {
		diff = -diff
	}
	if diff > bound {
		t.Log("percentile(0.5) =", got, "too far from true median", trueMedian, "(bound", bound, ")")
		t.FailNow()
	}
}

func TestTreeReduceSingleRank(t *testing.T) {
	keys := [][]uint64{{1, 2, 3, 4, 5}}
	merged := runReduce(t, 5, 0, keys)
	if merged.Total() != 5 {
		t.Log("total =", merged.Total(), "expected 5")
		t.FailNow()
	}
}

// Scenario 6 from spec.md §8: pure power-of-two vs. orphan equivalence.
func TestTreeReducePowerOfTwoVsOrphanEquivalence(t *testing.T) {
	base := [][]uint64{
		{0, 1, 2, 3},
		{4, 5, 6, 7},
		{8, 9, 10, 11},
		{12, 13, 14, 15},
		{16, 17, 18, 19},
		{20, 21, 22, 23},
		{24, 25, 26, 27},
	}
	with8 := append(append([][]uint64{}, base...), []uint64{})

	m7 := runReduce(t, 5, 0, base)
	m8 := runReduce(t, 5, 0, with8)

	for i := 0; i <= 10; i++ {
		p := float64(i) / 10.0
		a, b := m7.Percentile(p), m8.Percentile(p)
		diff := int64(a) - int64(b)
		if diff < 0 {
			diff = -diff
		}
		if diff > int64(27/5) {
			t.Log("percentile disagreement at p=", p, ":", a, "vs", b)
			t.FailNow()
		}
	}
}
