// Package runtime is the thin host harness spec.md §1 treats as an external
// collaborator: team creation, thread pool lifetime, global barriers, and
// the public worksharing entry point. It exists so hiersched's core is
// reachable and testable end-to-end — it is not a general-purpose
// OpenMP-style runtime, just enough surface to drive ParallelFor.
//
// Grounded on the teacher's workerpool.WorkerPool: a builder-style Config
// plus a Run-like entry point, fmt.Errorf sentinel-shaped errors, and
// goroutines-per-worker fan-out, here replaced with errgroup and retargeted
// from job slices onto the (start,end,incr,grain) iteration contract.
package runtime

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/go-foundations/hiersched"
	"github.com/go-foundations/hiersched/flatsched"
)

// Config holds the team-wide geometry and scheduling knobs, mirroring the
// teacher's workerpool.Config/DefaultConfig builder idiom.
type Config struct {
	// NumGroups is the number of thread groups (outer hierarchy level).
	NumGroups int
	// GroupSize is the number of worker threads per group (inner level).
	GroupSize int
	// MaxGroupSize and CPUNodeSize feed the locality-aware steal policy
	// (spec §4.3 Pass 3b). When zero, MaxGroupSize defaults to GroupSize and
	// CPUNodeSize defaults to MaxGroupSize.
	MaxGroupSize int
	CPUNodeSize  int
	// Debug enables structured zap trace logging of every work-share
	// transition.
	Debug bool
	// Logger is used for debug tracing when Debug is true; a no-op logger
	// is created when nil.
	Logger *zap.Logger
}

// DefaultConfig returns a single-group, single-worker-per-group team —
// the smallest legal geometry — matching the teacher's "sensible defaults"
// idiom for a type the caller will usually override before use.
func DefaultConfig() Config {
	return Config{
		NumGroups: 1,
		GroupSize: 1,
	}
}

// Team owns the team geometry and the scheduling Config, and tracks the
// current parallel nesting level so a second hierarchical loop entered from
// inside a worker's processor correctly takes the single-thread fallback
// (spec §4.6). The group table, the pool barrier and the worker goroutines
// are created afresh for each hierarchical ParallelFor call and are not
// kept between calls.
type Team[T hiersched.Int] struct {
	numGroups  int
	groupSize  int
	numThreads int

	cfg    *hiersched.Config[T]
	logger *zap.Logger

	nestLevel atomic.Int32
}

// NewTeam validates the geometry in cfg and constructs a Team ready to run
// ParallelFor loops. Returns an error in the teacher's fmt.Errorf idiom on
// invalid geometry rather than panicking.
func NewTeam[T hiersched.Int](cfg Config) (*Team[T], error) {
	if cfg.NumGroups <= 0 {
		return nil, fmt.Errorf("runtime: NumGroups must be positive, got %d", cfg.NumGroups)
	}
	if cfg.GroupSize <= 0 {
		return nil, fmt.Errorf("runtime: GroupSize must be positive, got %d", cfg.GroupSize)
	}

	maxGroupSize := cfg.MaxGroupSize
	if maxGroupSize <= 0 {
		maxGroupSize = cfg.GroupSize
	}
	cpuNodeSize := cfg.CPUNodeSize
	if cpuNodeSize <= 0 {
		cpuNodeSize = maxGroupSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := hiersched.NewConfig[T](maxGroupSize, cpuNodeSize)
	hc.Debug.Store(cfg.Debug)
	hc.WithLogger(logger)

	return &Team[T]{
		numGroups:  cfg.NumGroups,
		groupSize:  cfg.GroupSize,
		numThreads: cfg.NumGroups * cfg.GroupSize,
		cfg:        hc,
		logger:     logger,
	}, nil
}

// Config returns the team's hiersched.Config so callers can toggle knobs
// (stealing, scores, locality, custom partitioner, callbacks) between loops
// per spec §6/§9 — mutation must happen between ParallelFor calls, never
// concurrently with one.
func (t *Team[T]) Config() *hiersched.Config[T] {
	return t.cfg
}

// NumThreads returns the total worker count (NumGroups * GroupSize).
func (t *Team[T]) NumThreads() int {
	return t.numThreads
}

// Processor is invoked once per chunk a worker acquires. workerID is a flat
// 0..NumThreads-1 index; chunk is the [Start,End) sub-range to process.
type Processor[T hiersched.Int] func(workerID int, chunk hiersched.Range[T])

// ParallelFor is the public worksharing entry point (spec §4.8): it spawns
// t.NumThreads() worker goroutines, has each pull chunks from the
// hierarchical dispatcher until it reports done, and invokes processor on
// every chunk. If the team is already inside a ParallelFor (nested call) or
// has only one thread, it takes the single-thread fallback of spec §4.6
// instead of standing up the full hierarchy.
func (t *Team[T]) ParallelFor(ctx context.Context, start, end, incr, grain T, processor Processor[T]) error {
	if incr == 0 {
		return fmt.Errorf("runtime: incr must be non-zero")
	}

	level := t.nestLevel.Add(1)
	defer t.nestLevel.Add(-1)

	if hiersched.ShouldFallBack(int(level), t.numThreads) {
		return t.runSingleThread(start, end, incr, processor)
	}

	return t.runHierarchical(ctx, start, end, incr, grain, processor)
}

func (t *Team[T]) runSingleThread(start, end, incr T, processor Processor[T]) error {
	d := hiersched.NewSingleThreadDispatcher[T](start, end, incr)
	ts := &hiersched.ThreadState[T]{}
	if chunk, ok := d.Next(ts, true); ok {
		processor(0, chunk)
	}
	return nil
}

func (t *Team[T]) runHierarchical(ctx context.Context, start, end, incr, grain T, processor Processor[T]) error {
	table := make(hiersched.GroupTable[T], t.numGroups)
	for g := 0; g < t.numGroups; g++ {
		table[g] = hiersched.NewGroupState[T](g, t.groupSize, t.numGroups, g*t.groupSize)
	}

	barrier := hiersched.NewBarrier(t.numThreads)
	dispatcher := hiersched.NewDispatcher[T](table, barrier, t.cfg, start, end, incr, grain)

	g, gctx := errgroup.WithContext(ctx)
	for groupID := 0; groupID < t.numGroups; groupID++ {
		for pos := 0; pos < t.groupSize; pos++ {
			workerID := groupID*t.groupSize + pos
			groupID, pos := groupID, pos
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				ts := &hiersched.ThreadState[T]{GroupID: groupID, PositionInGroup: pos}
				for {
					chunk, ok := dispatcher.Next(ts)
					if !ok {
						return nil
					}
					processor(workerID, chunk)
				}
			})
		}
	}

	return g.Wait()
}

// FlatFor runs [start,end) across a flat set of workers with no groups and
// no stealing, using flatsched.ChunkedRange — the cheap equivalent of the
// degrade-to-static path, used as a baseline for benchmarking hierarchical
// stealing throughput. ParallelFor does not call it. Chunks are processed
// one after another on the calling goroutine.
func FlatFor[T hiersched.Int](numWorkers int, start, end T, processor Processor[T]) {
	for _, c := range flatsched.ChunkedRange[T](numWorkers, start, end) {
		if c.Start == c.End {
			continue
		}
		processor(c.Worker, hiersched.Range[T]{Start: c.Start, End: c.End, OwnerGroup: 0})
	}
}
