package hiersched

// install publishes payload (a stolen range or the initial partition) into
// the next free slot of group's ring, following the sequence in spec §4.4:
// select a free slot, publish the index, lock it against thieves, drive its
// workers_sem guard negative to block premature entry, write the range,
// optionally wait out the previous slot's stragglers and invoke the
// group-level callback, then release the guard/lock/status in the order
// that guarantees a reader observing READY also observes a consistent
// start/end/owner_group.
//
// Grounded on gomp_set_next_gws in iter_hierarchical.h.
func install[T Int](group *GroupState[T], ownerGroup int, start, end T, cfg *Config[T]) *WorkShare[T] {
	ringSize := group.RingSize()
	cur := int(group.Current.Load())

	var prevSlot *WorkShare[T]
	if cur >= 0 {
		prevSlot = group.Slot(cur)
	}

	// Scan forward from (current+1) looking for a slot no longer referenced
	// by any worker of a prior wave. The ring is sized 8*group_size, which
	// bounds this scan: some slot must eventually be free because no more
	// than group_size workers can be draining any one slot at a time.
	n := cur
	var next *WorkShare[T]
	for {
		n = (n + 1) % ringSize
		next = group.Slot(n)
		if next.workersSem.Load() == 0 {
			break
		}
	}

	cfg.trace("install.select_slot", "group", group.GroupID, "slot", n)

	// A never-used slot is zero-valued (READY); mark it CLAIMED before its
	// index becomes visible.
	next.claim()

	// Publish the index first: slaves about to exit the old slot and look
	// for the next one must find n immediately, even though n's status is
	// still CLAIMED so no premature entry happens.
	group.Current.Store(int32(n))

	for !next.TryLockSteal() {
		// spin: thieves must observe this slot as locked throughout install
	}

	for {
		if next.workersSem.CAS(0, int32(-group.GroupSize)) {
			break
		}
		// spin until the previous occupant's +1s have all drained to 0
	}

	next.start.Store(int64(start))
	next.end.Store(int64(end))
	next.ownerGroup.Store(int32(ownerGroup))

	if cfg.afterStealGroupOn.Load() {
		if prevSlot != nil {
			for prevSlot.workersSem.Load() > 0 {
				// spin: wait for all prior workers to exit the previous slot
			}
		}
		cfg.runAfterStealGroup(ownerGroup, start, end)
	}

	next.workersSem.Store(0)
	next.UnlockSteal()
	next.status.Store(int32(StatusReady))

	cfg.trace("install.published", "group", group.GroupID, "slot", n, "start", start, "end", end, "owner", ownerGroup)

	return next
}
