package workload

import (
	"fmt"
	"time"

	"qdigest/internal/digest"
	"qdigest/internal/reduce"
	"qdigest/internal/transport"
)

// Result reports the outcome of a single Spec iteration, echoing the
// teacher's TestCase.run()/output() reporting role (main.go, sim/exp.go)
// without its file-dumping side effects.
type Result struct {
	Name       string
	Iteration  int
	NumCmds    int
	Duration   time.Duration
	P50, P90, P99 uint64
}

// Run executes spec.Iterations independent rounds: generate a stream,
// partition it across spec.Ranks simulated ranks, build one local digest
// per rank, reduce them over a transport.Local communicator, and report
// percentiles from the surviving rank's merged digest.
func Run(spec *Spec) ([]Result, error) {
	results := make([]Result, 0, spec.Iterations)
	for i := 0; i < spec.Iterations; i++ {
		start := time.Now()

		stream := GenerateStream(spec)
		shares := Partition(stream, spec.Ranks)

		final, err := runOnce(spec, shares)
		if err != nil {
			return results, fmt.Errorf("workload %s iteration %d: %w", spec.Name, i, err)
		}

		results = append(results, Result{
			Name:      spec.Name,
			Iteration: i,
			NumCmds:   len(stream),
			Duration:  time.Since(start),
			P50:       final.Percentile(0.5),
			P90:       final.Percentile(0.9),
			P99:       final.Percentile(0.99),
		})
	}
	return results, nil
}

// runOnce builds spec.Ranks local digests, reduces them over a fresh
// transport.Local communicator, and returns the digest holding the
// globally merged result (rank 0 of whatever sub-communicator Stage
// 1/2 of the reduction protocol left standing).
func runOnce(spec *Spec, shares [][]uint64) (*digest.Tree, error) {
	comms := transport.NewLocal(spec.Ranks)
	trees := make([]*digest.Tree, spec.Ranks)
	errs := make([]error, spec.Ranks)

	done := make(chan int, spec.Ranks)
	for r := 0; r < spec.Ranks; r++ {
		r := r
		t := digest.New(spec.K, spec.UniverseHi)
		for _, key := range shares[r] {
			t.Insert(key, 1, true)
		}
		trees[r] = t

		go func() {
			errs[r] = reduce.TreeReduce(trees[r], comms[r])
			done <- r
		}()
	}
	for i := 0; i < spec.Ranks; i++ {
		<-done
	}
	for r, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", r, err)
		}
	}

	// Whichever rank ended up as rank 0 of the final compact
	// communicator holds the merged digest (the others hold undefined
	// partial state or were trimmed as orphan senders, per
	// reduce.TreeReduce's contract); find it by population, since the
	// globally merged digest is the only one whose total equals the
	// full stream length.
	var merged *digest.Tree
	for _, t := range trees {
		if t.Total() == sumLens(shares) {
			merged = t
			break
		}
	}
	if merged == nil {
		return nil, fmt.Errorf("workload: no rank produced the globally merged digest")
	}
	return merged, nil
}

func sumLens(shares [][]uint64) uint64 {
	var n uint64
	for _, s := range shares {
		n += uint64(len(s))
	}
	return n
}
