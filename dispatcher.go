package hiersched

// STEAL_THRESHOLD coefficient: the master starts prefetching a steal once
// the chunk it just grabbed is within stealThresholdCoef*groupSize grains of
// ws.End (spec §4.2).
const stealThresholdCoef = 2

// Dispatcher implements the per-loop intra-group chunk dispatch state
// machine described in spec §4.2: first-entry initialization, steady-state
// chunk grabs, and the MASTER_NEXT/SLAVE_NEXT work-share transitions.
// One Dispatcher is created per loop and shared read-only by every worker;
// the only per-worker mutable state lives in each worker's ThreadState.
type Dispatcher[T Int] struct {
	table   GroupTable[T]
	barrier *Barrier
	cfg     *Config[T]
	policy  StealPolicy[T]

	start T
	end   T
	incr  T
	grain T

	// teamMasterGroup identifies the group whose master is the single worker
	// responsible for arming staged config hooks once per loop (the "team
	// master" of spec §6/§9 — here always the master of group 0, since this
	// port does not model nested teams).
	teamMasterGroup int
}

// NewDispatcher creates the dispatcher for one loop over [start,end) with
// the given signed stride and per-grab grain (grain must carry incr's sign).
func NewDispatcher[T Int](table GroupTable[T], barrier *Barrier, cfg *Config[T], start, end, incr, grain T) *Dispatcher[T] {
	return &Dispatcher[T]{
		table:   table,
		barrier: barrier,
		cfg:     cfg,
		policy:  SelectStealPolicy(cfg),
		start:   start,
		end:     end,
		incr:    incr,
		grain:   grain,
	}
}

// Next acquires the calling worker's next chunk. Call repeatedly with the
// same ThreadState until ok is false, meaning there is no more work for this
// worker's group.
func (d *Dispatcher[T]) Next(ts *ThreadState[T]) (chunk Range[T], ok bool) {
	if ts.staticDone {
		return Range[T]{}, false
	}

	group := d.table.Group(ts.GroupID)

	if ts.gws == nil {
		if done := d.firstEntry(ts, group); done {
			return Range[T]{}, false
		}
		if ts.staticDone {
			return d.staticChunk(ts)
		}
	}

	for {
		gws := ts.gws
		chunkStart := gws.fetchAddStart(d.grain)
		chunkEnd := chunkStart + d.grain

		if ts.IsMaster() {
			stealThreshold := T(stealThresholdCoef*group.GroupSize) * d.grain
			nearExhaustion := pastEnd(chunkEnd+stealThreshold, gws.End(), d.incr)
			if nearExhaustion {
				if ts.gwsNext == ts.gws {
					if r, stole := d.policy.Steal(group.GroupID, d.table, d.incr, d.cfg); stole {
						ts.gwsNext = install(group, r.OwnerGroup, r.Start, r.End, d.cfg)
					} else {
						// Steal() already exhausted every candidate and retry
						// round internally (spec §4.3); nothing more will turn
						// up this wave, so gwsNext becomes the explicit
						// "no successor" sentinel masterNext checks for, rather
						// than staying equal to gws (which means "not yet
						// attempted").
						ts.gwsNext = nil
					}
				}
				if pastEnd(chunkEnd, gws.End(), d.incr) {
					if atOrPastEnd(chunkStart, gws.End(), d.incr) {
						if more := d.masterNext(ts, group); !more {
							return Range[T]{}, false
						}
						continue
					}
					chunkEnd = gws.End()
				}
			}
		} else {
			if pastEnd(chunkEnd, gws.End(), d.incr) {
				if atOrPastEnd(chunkStart, gws.End(), d.incr) {
					more := d.slaveNext(ts, group)
					if !more {
						return Range[T]{}, false
					}
					continue
				}
				chunkEnd = gws.End()
			}
		}

		return Range[T]{Start: chunkStart, End: chunkEnd, OwnerGroup: gws.OwnerGroup()}, true
	}
}

// firstEntry runs the synchronize-then-partition-or-wait subroutine once per
// worker per loop (spec §4.2 "First-entry subroutine"). Returns done==true
// only in the degenerate case where a slave finds the group's loop already
// over before it ever got a work share.
func (d *Dispatcher[T]) firstEntry(ts *ThreadState[T], group *GroupState[T]) (done bool) {
	d.barrier.Wait()

	if ts.IsMaster() {
		var s, e T
		if cs, ce, customOK := d.cfg.consumePartitioner(d.start, d.end); customOK {
			s, e = cs, ce
		} else {
			s, e = BalancedPartition[T](group.NumGroups, group.GroupID, d.start, d.end)
		}
		ws := install(group, group.GroupID, s, e, d.cfg)
		ts.gws = ws
		ts.gwsNext = ws

		d.barrier.Wait()

		if ts.GroupID == d.teamMasterGroup {
			d.cfg.armNextLoop()
		}

		d.barrier.Wait()
	} else {
		d.barrier.Wait()
		d.barrier.Wait()

		ws := getNextGWS(group, nil)
		if ws == nil {
			return true
		}
		ts.gws = ws
		ts.gwsNext = ws
	}

	if d.cfg.HierarchicalStatic.Load() {
		chunkStart, chunkEnd := BalancedPartition(group.GroupSize, ts.PositionInGroup, ts.gws.Start(), ts.gws.End())
		d.barrier.Wait()
		if ts.IsMaster() {
			ts.gws.start.Store(int64(ts.gws.End()))
		}
		d.barrier.Wait()
		ts.staticDone = true
		ts.staticStart, ts.staticEnd, ts.staticOwner = chunkStart, chunkEnd, ts.gws.OwnerGroup()
		if ts.GroupID == d.teamMasterGroup && ts.IsMaster() {
			d.cfg.HierarchicalStatic.Store(false)
		}
		d.barrier.Wait()
	}
	return false
}

// staticChunk returns the single chunk computed by the degrade-to-static
// path in firstEntry; every subsequent call for this worker returns done.
func (d *Dispatcher[T]) staticChunk(ts *ThreadState[T]) (Range[T], bool) {
	return Range[T]{Start: ts.staticStart, End: ts.staticEnd, OwnerGroup: ts.staticOwner}, true
}

// masterNext implements the MASTER_NEXT transition: claim the exhausted
// slot, either finish the group's loop (gwsNext == nil) or switch to the
// prefetched successor and invoke the per-worker callback. Mutates ts in
// place; the returned bool reports whether there is more work.
func (d *Dispatcher[T]) masterNext(ts *ThreadState[T], group *GroupState[T]) bool {
	ts.gws.claim()
	d.cfg.trace("master_next.claim", "group", group.GroupID)

	if ts.gwsNext == nil {
		group.markDone()
		ts.gws = nil
		ts.gwsNext = nil
		return false
	}

	ts.gws = ts.gwsNext
	d.cfg.runAfterStealThread(ts.gws.OwnerGroup(), ts.gws.Start(), ts.gws.End())
	return true
}

// slaveNext implements the SLAVE_NEXT transition: claim the exhausted slot
// (if not already claimed by the master), then fetch the group's next slot.
func (d *Dispatcher[T]) slaveNext(ts *ThreadState[T], group *GroupState[T]) bool {
	if ts.gws.StatusValue() != StatusClaimed {
		ts.gws.claim()
	}
	next := getNextGWS(group, ts.gws)
	if next == nil {
		ts.gws = nil
		ts.gwsNext = nil
		return false
	}
	ts.gws = next
	d.cfg.runAfterStealThread(next.OwnerGroup(), next.Start(), next.End())
	return true
}

// getNextGWS exits gwsPrev (if any), then busy-spins reading
// GroupState.Current until it changes to a slot this worker can Enter, or
// until the group publishes -1 ("loop over"). Grounded on gomp_get_next_gws.
func getNextGWS[T Int](group *GroupState[T], gwsPrev *WorkShare[T]) *WorkShare[T] {
	if gwsPrev != nil {
		gwsPrev.Exit()
	}
	for {
		n := group.Current.Load()
		if n < 0 {
			return nil
		}
		candidate := group.Slot(int(n))
		if candidate.Enter() {
			return candidate
		}
	}
}
