// Package gpu provides a batched nearest-neighbor distance computation used
// by the AI planner, combat resolver, and social graph (§4.6/§4.7/§4.11)
// once the candidate count crosses each subsystem's GPU threshold. No GPU
// binding exists in this environment, so Available always reports false
// and the batch path runs as goroutine-sharded CPU work behind the same
// interface a real binding would expose — callers never branch on which
// path actually ran, only on candidate count.
package gpu

import (
	"runtime"
	"sync"
)

// Point is a minimal 2D position, independent of state.Point so this
// package stays free of a dependency on the world state model.
type Point struct{ X, Y float64 }

// Pair is one query/candidate index pair to compute a squared distance
// for.
type Pair struct {
	QueryIndex     int
	CandidateIndex int
}

// Result is the squared distance for one input pair, at the same index in
// the output slice as the pair in the input slice.
type Result struct {
	DistanceSq float64
}

// Available reports whether a real GPU compute path is present. Always
// false here; kept so call sites read the same whether or not a binding
// is ever added.
func Available() bool {
	return false
}

// ComputeDistancesBatch computes the squared distance for every pair in
// pairs, given the two position slices the pair indices reference. Results
// are order-preserving: out[i] corresponds to pairs[i]. Below minParallel
// pairs the batch runs on the calling goroutine; at or above it, work is
// sharded across GOMAXPROCS goroutines with no behavioral difference in
// output, only in which goroutine computed which entry.
func ComputeDistancesBatch(queries, candidates []Point, pairs []Pair, minParallel int) []Result {
	out := make([]Result, len(pairs))
	if len(pairs) < minParallel {
		computeRange(queries, candidates, pairs, out, 0, len(pairs))
		return out
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(pairs) {
		workers = len(pairs)
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(pairs) + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if lo >= len(pairs) {
			break
		}
		if hi > len(pairs) {
			hi = len(pairs)
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			computeRange(queries, candidates, pairs, out, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return out
}

func computeRange(queries, candidates []Point, pairs []Pair, out []Result, lo, hi int) {
	for i := lo; i < hi; i++ {
		p := pairs[i]
		q := queries[p.QueryIndex]
		c := candidates[p.CandidateIndex]
		dx := q.X - c.X
		dy := q.Y - c.Y
		out[i] = Result{DistanceSq: dx*dx + dy*dy}
	}
}
