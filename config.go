package hiersched

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// PartitionerFunc is the host-injectable replacement for the built-in
// balanced partitioner (the "custom_loop_partitioner" knob).
type PartitionerFunc[T Int] func(start, end T) (localStart, localEnd T)

// AfterStealGroupFunc is invoked once by the installing master after all
// workers of the previous ring slot have drained, with the range just
// published into the new slot.
type AfterStealGroupFunc[T Int] func(ownerGroup int, start, end T)

// AfterStealThreadFunc is invoked by every worker the moment it crosses into
// a newly installed work share.
type AfterStealThreadFunc[T Int] func(ownerGroup int, start, end T)

// Config holds the process-wide, host-mutable scheduling knobs described in
// spec §6. Fields are read with relaxed atomic loads by every worker at loop
// entry; mutation is permitted only by the team master between loops, which
// the surrounding team barrier serializes against concurrent readers.
//
// The two callback hooks are staged: setting them takes effect on the
// *next* loop, not the current one, via the "next*" fields below — this
// mirrors gomp_use_after_stealing_group_fun vs ..._next_loop in
// iter_hierarchical.h and preserves the barrier-delimited safe point the
// original relies on. The custom partitioner and the static-degrade flag are
// one-shot instead: consumed on first use at the next loop's group-master
// partition step and cleared immediately after, exactly as
// gomp_use_custom_loop_partitioner is cleared by the team master right after
// the barrier that follows its one use.
type Config[T Int] struct {
	// HierarchicalStealing is the master toggle for the stealing path; when
	// false, Steal always returns (Range{}, false).
	HierarchicalStealing atomic.Bool

	// HierarchicalStatic arms a one-shot degrade-to-static partition on the
	// next loop entry; cleared automatically after that loop consumes it.
	HierarchicalStatic atomic.Bool

	// StealingScores enables quantized scoring + descending score sort
	// (Pass 3a/4 of StealPolicy) instead of the plain keep-above-half filter.
	StealingScores atomic.Bool

	// StealingCPUNodeLocality enables the locality bump/filter (Pass 3b).
	StealingCPUNodeLocality atomic.Bool

	// MaxGroupSize and CPUNodeSize are immutable after pool creation; used by
	// the locality pass to map a group id to a CPU node.
	MaxGroupSize int
	CPUNodeSize  int

	// Debug gates structured trace logging of every work-share transition.
	Debug atomic.Bool

	logger *zap.SugaredLogger

	partitioner         atomic.Value // PartitionerFunc[T]
	customPartitionerOn atomic.Bool

	afterStealGroup   atomic.Value // AfterStealGroupFunc[T]
	afterStealGroupOn atomic.Bool

	afterStealThread   atomic.Value // AfterStealThreadFunc[T]
	afterStealThreadOn atomic.Bool

	// staging — copied into the active fields above exactly once, after the
	// second barrier crossing of the next loop, by the team master.
	nextAfterStealGroup    atomic.Value
	nextAfterStealGroupOn  atomic.Bool
	nextAfterStealThread   atomic.Value
	nextAfterStealThreadOn atomic.Bool
}

// NewConfig returns a Config with the scored, locality-aware stealing policy
// enabled, matching the canonical mode chosen in spec §9.
func NewConfig[T Int](maxGroupSize, cpuNodeSize int) *Config[T] {
	c := &Config[T]{
		MaxGroupSize: maxGroupSize,
		CPUNodeSize:  cpuNodeSize,
	}
	c.HierarchicalStealing.Store(true)
	c.StealingScores.Store(true)
	c.StealingCPUNodeLocality.Store(true)
	return c
}

// WithLogger attaches a zap logger used for debug tracing; pass nil to
// disable tracing entirely regardless of the Debug flag.
func (c *Config[T]) WithLogger(l *zap.Logger) *Config[T] {
	c.logger = nil
	if l != nil {
		c.logger = l.Sugar()
	}
	return c
}

func (c *Config[T]) trace(event string, keysAndValues ...interface{}) {
	if c.logger == nil || !c.Debug.Load() {
		return
	}
	c.logger.Debugw(event, keysAndValues...)
}

// SetCustomPartitioner arms a one-shot replacement for the built-in balanced
// partitioner: the next loop's group master will call fn instead of
// BalancedPartition, then the flag clears itself automatically.
func (c *Config[T]) SetCustomPartitioner(fn PartitionerFunc[T]) {
	c.partitioner.Store(fn)
	c.customPartitionerOn.Store(true)
}

// SetAfterStealGroupFuncNextLoop stages a group-level after-steal callback
// to take effect starting with the next loop.
func (c *Config[T]) SetAfterStealGroupFuncNextLoop(fn AfterStealGroupFunc[T]) {
	c.nextAfterStealGroup.Store(fn)
	c.nextAfterStealGroupOn.Store(true)
}

// SetAfterStealThreadFuncNextLoop stages a per-worker after-steal callback
// to take effect starting with the next loop.
func (c *Config[T]) SetAfterStealThreadFuncNextLoop(fn AfterStealThreadFunc[T]) {
	c.nextAfterStealThread.Store(fn)
	c.nextAfterStealThreadOn.Store(true)
}

// armNextLoop copies every staged hook into the active slot. Called exactly
// once by the team master, after the second barrier crossing of a loop (so
// every group master has already installed its first work share) and before
// the third — never while any worker might still be consulting the active
// hooks for the previous loop.
func (c *Config[T]) armNextLoop() {
	if c.nextAfterStealGroupOn.Load() {
		c.afterStealGroup.Store(c.nextAfterStealGroup.Load())
		c.afterStealGroupOn.Store(true)
		c.nextAfterStealGroupOn.Store(false)
	} else {
		c.afterStealGroupOn.Store(false)
	}

	if c.nextAfterStealThreadOn.Load() {
		c.afterStealThread.Store(c.nextAfterStealThread.Load())
		c.afterStealThreadOn.Store(true)
		c.nextAfterStealThreadOn.Store(false)
	} else {
		c.afterStealThreadOn.Store(false)
	}
}

func (c *Config[T]) runAfterStealGroup(ownerGroup int, start, end T) {
	if !c.afterStealGroupOn.Load() {
		return
	}
	if fn, ok := c.afterStealGroup.Load().(AfterStealGroupFunc[T]); ok && fn != nil {
		fn(ownerGroup, start, end)
	}
}

func (c *Config[T]) runAfterStealThread(ownerGroup int, start, end T) {
	if !c.afterStealThreadOn.Load() {
		return
	}
	if fn, ok := c.afterStealThread.Load().(AfterStealThreadFunc[T]); ok && fn != nil {
		fn(ownerGroup, start, end)
	}
}

// consumePartitioner reads and clears the one-shot custom partitioner; ok is
// false if none is armed, in which case the caller falls back to
// BalancedPartition.
func (c *Config[T]) consumePartitioner(start, end T) (localStart, localEnd T, ok bool) {
	if !c.customPartitionerOn.Load() {
		return 0, 0, false
	}
	fn, _ := c.partitioner.Load().(PartitionerFunc[T])
	c.customPartitionerOn.Store(false)
	if fn == nil {
		return 0, 0, false
	}
	s, e := fn(start, end)
	return s, e, true
}
