package hiersched

import "go.uber.org/atomic"

// ringFactor is the multiplier applied to GroupSize to size a group's WS
// ring (spec §3: "N = 8 * group_size").
const ringFactor = 8

// GroupState is a group's ring of work-share slots plus its immutable
// geometry. Only the group master writes Current; every thread reads it.
// Every GroupState of a loop must exist before any of its workers starts;
// package runtime allocates a fresh set at the start of each hierarchical
// ParallelFor call and drops it when the call returns.
type GroupState[T Int] struct {
	GroupID      int
	GroupSize    int
	NumGroups    int
	MasterThread int

	ring []WorkShare[T]

	// Current is the index of the active slot, or -1 ("loop done for this
	// group").
	Current atomic.Int32
}

// NewGroupState allocates a group's ring, sized 8*groupSize per spec §3.
func NewGroupState[T Int](groupID, groupSize, numGroups, masterThread int) *GroupState[T] {
	g := &GroupState[T]{
		GroupID:      groupID,
		GroupSize:    groupSize,
		NumGroups:    numGroups,
		MasterThread: masterThread,
		ring:         make([]WorkShare[T], ringFactor*groupSize),
	}
	g.Current.Store(-1)
	return g
}

// RingSize returns the number of slots in the group's ring.
func (g *GroupState[T]) RingSize() int {
	return len(g.ring)
}

// Slot returns a pointer to ring slot i (index is taken modulo RingSize by
// the caller where needed; out-of-range i is a programming error).
func (g *GroupState[T]) Slot(i int) *WorkShare[T] {
	return &g.ring[i]
}

// CurrentSlot returns the slot at the current index, or nil if the group's
// loop is done (Current == -1).
func (g *GroupState[T]) CurrentSlot() *WorkShare[T] {
	n := g.Current.Load()
	if n < 0 {
		return nil
	}
	return &g.ring[n]
}

// markDone publishes the -1 sentinel: no more work for this group.
func (g *GroupState[T]) markDone() {
	g.Current.Store(-1)
}
