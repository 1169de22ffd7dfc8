package hiersched

import "go.uber.org/atomic"

// Status is the lifecycle state of a WorkShare slot.
type Status int32

const (
	// StatusReady means the slot may be entered by any worker, owner or
	// thief.
	StatusReady Status = iota
	// StatusClaimed means the slot is being installed, or has been drained —
	// no worker may enter it. The READY -> CLAIMED transition happens
	// exactly once per wave (depletion).
	StatusClaimed
)

const cacheLineSize = 64

// pad is cache-line filler inserted between hot fields so that start,
// workersSem, and steal_lock do not share a line under concurrent access
// from owner and thief goroutines (spec §3).
type pad [cacheLineSize]byte

// WorkShare is one independent, schedulable [Start,End) range, logically
// owned by some group. It occupies its own cache line as a struct; Start,
// WorkersSem, and StealLock additionally sit on distinct lines from each
// other to isolate false sharing between the owner group's chunk grabbers
// and a thief's locked measure-then-advance.
type WorkShare[T Int] struct {
	status     atomic.Int32 // Status
	ownerGroup atomic.Int32

	_     pad
	start atomic.Int64 // mutable, advanced by grabbers and thieves

	_   pad
	end atomic.Int64 // immutable after publication

	_          pad
	workersSem atomic.Int32 // signed reference count, see Enter/Exit

	_         pad
	stealLock atomic.Int32 // 0|1, exclusive over Start/End mutation by thieves
}

// Enter attempts to claim a +1 reference on ws. It fails (returns false)
// if the slot is CLAIMED, or if installation is in progress (workersSem is
// being held at -GroupSize to block entry). On success the caller owns a
// +1 that must be matched by exactly one Exit.
func (ws *WorkShare[T]) Enter() bool {
	if Status(ws.status.Load()) == StatusClaimed {
		return false
	}
	// The value before the add was negative exactly when the result is <= 0.
	if ws.workersSem.Add(1) <= 0 {
		// Raced against installation: back out the increment we just made
		// and reject entry. A single relaxed add races cleanly against the
		// large negative guard used during install.
		ws.workersSem.Sub(1)
		return false
	}
	return true
}

// Exit releases the +1 reference taken by a successful Enter. Must be
// paired with every successful Enter exactly once.
func (ws *WorkShare[T]) Exit() {
	ws.workersSem.Sub(1)
}

// TryLockSteal attempts to acquire the exclusive steal lock without
// blocking. Returns true on success.
func (ws *WorkShare[T]) TryLockSteal() bool {
	return ws.stealLock.CAS(0, 1)
}

// UnlockSteal releases the steal lock.
func (ws *WorkShare[T]) UnlockSteal() {
	ws.stealLock.Store(0)
}

// Start returns the current mutable start of the range.
func (ws *WorkShare[T]) Start() T {
	return T(ws.start.Load())
}

// End returns the immutable-after-publication end of the range.
func (ws *WorkShare[T]) End() T {
	return T(ws.end.Load())
}

// OwnerGroup returns the group that originally partitioned the range now
// occupying this slot.
func (ws *WorkShare[T]) OwnerGroup() int {
	return int(ws.ownerGroup.Load())
}

// StatusValue returns the current lifecycle status.
func (ws *WorkShare[T]) StatusValue() Status {
	return Status(ws.status.Load())
}

// fetchAddStart atomically advances Start by delta and returns the prior
// value, exactly like a relaxed fetch_add — used both by chunk grabbers
// (delta == grain) and by thieves (delta == half the remaining work, taken
// under the steal lock).
func (ws *WorkShare[T]) fetchAddStart(delta T) T {
	prior := ws.start.Add(int64(delta)) - int64(delta)
	return T(prior)
}

// claim performs the READY -> CLAIMED transition. Idempotent in the sense
// that calling it on an already-CLAIMED slot is a harmless no-op; the
// seq-cst store still happens so no concurrent entrant ever mistakes the
// slot for enterable after this returns.
func (ws *WorkShare[T]) claim() {
	ws.status.Store(int32(StatusClaimed))
}
