// Package flatsched implements the non-hierarchical static distribution
// strategies that spec.md §1 names as siblings living "alongside" the
// hierarchical core: the public worksharing entry points, the
// static/dynamic/guided schedulers, are all out of the core's scope, but a
// flat baseline is useful for comparison and for the nested/single-thread
// fallback (spec §4.6) where a second hierarchical loop has no business
// spinning up its own group ring.
//
// RoundRobinRange and ChunkedRange are adapted from the teacher's
// RoundRobinStrategy/ChunkedStrategy job-distribution code, retargeted from
// []Job[T] onto plain integer ranges: there are no jobs or channels here,
// only a [start,end) interval to slice up.
package flatsched

import "github.com/go-foundations/hiersched"

// Chunk is one worker's slice of a flat distribution.
type Chunk[T hiersched.Int] struct {
	Worker int
	Start  T
	End    T
}

// RoundRobinRange assigns iterations to workers one at a time in rotation,
// mirroring RoundRobinStrategy's channel-per-worker distribution but over an
// integer range instead of a job slice: iteration i (measured in grain-sized
// steps from start) goes to worker i%numWorkers. The result is every
// worker's interleaved set of single-grain chunks rather than one
// contiguous slice per worker, useful when work item cost is uniform and
// cache locality of the backing store is not a concern.
func RoundRobinRange[T hiersched.Int](numWorkers int, start, end, incr, grain T) []Chunk[T] {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	var chunks []Chunk[T]
	worker := 0
	for s := start; directionLess(s, end, incr); s += grain {
		e := s + grain
		if directionPast(e, end, incr) {
			e = end
		}
		chunks = append(chunks, Chunk[T]{Worker: worker % numWorkers, Start: s, End: e})
		worker++
	}
	return chunks
}

// ChunkedRange divides [start,end) into numWorkers contiguous, near-equal
// slices the way ChunkedStrategy divides a job slice: chunkSize = len /
// numWorkers, with the first `remainder` workers absorbing one extra
// iteration each. This is exactly the built-in balanced partitioner (spec
// §4.5) applied once across a flat worker set instead of a group hierarchy;
// runtime.FlatFor runs a loop through it. runtime.Team.ParallelFor does not
// use it: a single-group team still goes through the hierarchical dispatcher.
func ChunkedRange[T hiersched.Int](numWorkers int, start, end T) []Chunk[T] {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	chunks := make([]Chunk[T], 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		s, e := hiersched.BalancedPartition[T](numWorkers, i, start, end)
		chunks = append(chunks, Chunk[T]{Worker: i, Start: s, End: e})
	}
	return chunks
}

func directionLess[T hiersched.Int](a, b, incr T) bool {
	if incr > 0 {
		return a < b
	}
	return a > b
}

func directionPast[T hiersched.Int](v, end, incr T) bool {
	if incr > 0 {
		return v > end
	}
	return v < end
}
