package hiersched

import "sort"

// candidate is an ephemeral stealing candidate, allocated per steal attempt
// on the caller's stack (conceptually — Go will heap-allocate the backing
// slice, but no candidate ever escapes the call that produced it).
type candidate[T Int] struct {
	ws    *WorkShare[T]
	work  T
	score int64
}

// StealPolicy discovers a victim among the other groups in table and
// attempts to take roughly half of its remaining work. A single call
// represents one attempt per overshoot event; implementations may retry
// internally across rounds of the candidate pass until they succeed or
// every candidate is exhausted (spec §4.3).
type StealPolicy[T Int] interface {
	Name() string
	Steal(myGroup int, table GroupTable[T], incr T, cfg *Config[T]) (Range[T], bool)
}

// SelectStealPolicy returns the canonical scored/sorted policy when
// cfg.StealingScores is enabled, or the plain half-max filter otherwise —
// the two variant policies documented in spec §4.3/§9, chosen the same way
// the teacher's StrategyFactory picks a DistributionStrategy implementation
// from a config enum.
func SelectStealPolicy[T Int](cfg *Config[T]) StealPolicy[T] {
	if cfg.StealingScores.Load() {
		return ScoredStealPolicy[T]{}
	}
	return PlainStealPolicy[T]{}
}

// validCandidates runs Pass 1 (Validity): every other group whose Current is
// non-negative and whose current slot is READY is a candidate.
func validCandidates[T Int](myGroup int, table GroupTable[T]) []candidate[T] {
	cands := make([]candidate[T], 0, len(table))
	for i, g := range table {
		if i == myGroup || g == nil {
			continue
		}
		n := g.Current.Load()
		if n < 0 {
			continue
		}
		ws := g.Slot(int(n))
		if ws.StatusValue() == StatusReady {
			cands = append(cands, candidate[T]{ws: ws})
		}
	}
	return cands
}

// measureWork runs Pass 2 (Work measurement): compute work for each
// candidate, drop zero-work candidates, and report the max. ok is false if
// no candidate has positive work.
func measureWork[T Int](cands []candidate[T], incr T) (alive []candidate[T], max T, ok bool) {
	alive = cands[:0]
	for _, c := range cands {
		s := c.ws.Start()
		e := c.ws.End()
		w := iterCount(s, e, incr)
		if w <= 0 {
			continue
		}
		c.work = w
		alive = append(alive, c)
		if w > max {
			max = w
		}
	}
	return alive, max, max > 0
}

func cpuNode(groupID, maxGroupSize, cpuNodeSize int) int {
	if cpuNodeSize <= 0 {
		return groupID
	}
	return (groupID * maxGroupSize) / cpuNodeSize
}

// msbExp returns the bit index of the most significant set bit of x, or -1
// if x == 0 (spec §9 Open Questions — this sentinel must be preserved;
// callers must guard with max > 0 before calling it).
func msbExp[T Int](x T) int {
	if x == 0 {
		return -1
	}
	bits := 0
	for x != 0 {
		x >>= 1
		bits++
	}
	return bits - 1
}

// quantaExp is the quantization exponent Q = 64 buckets (spec §4.3 Pass 3a).
const quantaExp = 6

// quantize scores each candidate's work relative to max into 2^quantaExp
// buckets (gomp_stealing_policy_pass_quantize_work).
func quantize[T Int](cands []candidate[T], max T) {
	quantaCeil := T(1) << quantaExp
	if max < quantaCeil {
		for i := range cands {
			cands[i].score = int64(cands[i].work)
		}
		return
	}
	div := max >> quantaExp
	divExp := msbExp(div)
	if max>>T(divExp) >= quantaCeil {
		divExp++
	}
	for i := range cands {
		cands[i].score = int64(cands[i].work >> T(divExp))
	}
}

// localityBump adds +1 to the score of every candidate sharing myGroup's CPU
// node (spec §4.3 Pass 3b, scored mode variant).
func localityBump[T Int](cands []candidate[T], myGroup int, cfg *Config[T]) {
	myNode := cpuNode(myGroup, cfg.MaxGroupSize, cfg.CPUNodeSize)
	for i := range cands {
		if cpuNode(cands[i].ws.OwnerGroup(), cfg.MaxGroupSize, cfg.CPUNodeSize) == myNode {
			cands[i].score++
		}
	}
}

// localityFilter keeps only candidates sharing myGroup's CPU node, falling
// back to the full set if none remain (spec §4.3 Pass 3b, unsorted variant).
func localityFilter[T Int](cands []candidate[T], myGroup int, cfg *Config[T]) []candidate[T] {
	myNode := cpuNode(myGroup, cfg.MaxGroupSize, cfg.CPUNodeSize)
	filtered := make([]candidate[T], 0, len(cands))
	for _, c := range cands {
		if cpuNode(c.ws.OwnerGroup(), cfg.MaxGroupSize, cfg.CPUNodeSize) == myNode {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return cands
	}
	return filtered
}

// sortByScoreDesc sorts candidates descending by score. The original uses a
// counting sort over [0, score_ceil] for O(N) behavior on small N with
// bounded scores; Go's sort.SliceStable is equivalent in effect (N here is at
// most num_groups-1, never large enough for counting sort to matter) and
// avoids hand-rolling a second sorting algorithm for a handful of elements.
func sortByScoreDesc[T Int](cands []candidate[T]) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})
}

// extractHalf performs the actual half-work extraction once the caller has
// already decided (under the steal lock, with a freshly re-read w) that the
// steal should proceed. Returns the stolen range and false if w had already
// dropped to zero or below by the time of extraction.
func extractHalf[T Int](ws *WorkShare[T], e, w, incr T) (Range[T], bool) {
	wSteal := w / 2
	if wSteal <= 0 {
		return Range[T]{}, false
	}
	if incr < 0 {
		wSteal = -wSteal
	}
	stolenStart := ws.fetchAddStart(wSteal)
	stolenEnd := stolenStart + wSteal
	if pastEnd(stolenEnd, e, incr) {
		stolenEnd = e
	}
	return Range[T]{Start: stolenStart, End: stolenEnd, OwnerGroup: ws.OwnerGroup()}, true
}

// ScoredStealPolicy is the canonical policy (spec §9): quantized scoring,
// optional locality bump, counting-sort-equivalent descending sort, then
// selection with an anti-cascade check against neighboring scores.
// Grounded on stealing_policy_scores.h.
type ScoredStealPolicy[T Int] struct{}

func (ScoredStealPolicy[T]) Name() string { return "scored" }

func (ScoredStealPolicy[T]) Steal(myGroup int, table GroupTable[T], incr T, cfg *Config[T]) (Range[T], bool) {
	if !cfg.HierarchicalStealing.Load() {
		return Range[T]{}, false
	}

	for {
		cands := validCandidates(myGroup, table)
		if len(cands) == 0 {
			return Range[T]{}, false
		}
		cands, max, ok := measureWork(cands, incr)
		if !ok {
			return Range[T]{}, false
		}

		quantize(cands, max)
		if cfg.StealingCPUNodeLocality.Load() {
			localityBump(cands, myGroup, cfg)
		}
		sortByScoreDesc(cands)

		for i, c := range cands {
			ws := c.ws
			if !ws.TryLockSteal() {
				continue
			}
			s := ws.Start()
			e := ws.End()
			w := iterCount(s, e, incr)

			// Anti-cascade: someone stole from this candidate between our
			// measurement and acquiring the lock. Compared against the raw
			// measured work, not the quantized score bucket.
			if w < c.work/2 && (i >= len(cands)-1 || w < cands[i+1].work) {
				ws.UnlockSteal()
				continue
			}
			r, ok := extractHalf(ws, e, w, incr)
			ws.UnlockSteal()
			if !ok {
				continue
			}
			return r, true
		}
		// Every candidate lost its lock race or failed anti-cascade; retry
		// the whole pass. The loop ends only when Pass 1 or Pass 2 finds
		// nothing, or a steal succeeds.
	}
}

// PlainStealPolicy is the unsorted alternative: keep only candidates with
// more than half the max observed work, preferring the max-work candidate
// first, no explicit scoring or sort. Grounded on stealing_policy.h.
type PlainStealPolicy[T Int] struct{}

func (PlainStealPolicy[T]) Name() string { return "plain" }

func (PlainStealPolicy[T]) Steal(myGroup int, table GroupTable[T], incr T, cfg *Config[T]) (Range[T], bool) {
	if !cfg.HierarchicalStealing.Load() {
		return Range[T]{}, false
	}

	for {
		cands := validCandidates(myGroup, table)
		if len(cands) == 0 {
			return Range[T]{}, false
		}
		if cfg.StealingCPUNodeLocality.Load() {
			cands = localityFilter(cands, myGroup, cfg)
		}
		cands, max, ok := measureWork(cands, incr)
		if !ok {
			return Range[T]{}, false
		}
		// Swap the max-work candidate to position 0, then keep only those
		// with more than half the max.
		maxPos := 0
		for i, c := range cands {
			if c.work == max {
				maxPos = i
				break
			}
		}
		cands[0], cands[maxPos] = cands[maxPos], cands[0]
		filtered := cands[:1]
		for _, c := range cands[1:] {
			if c.work > max/2 {
				filtered = append(filtered, c)
			}
		}
		cands = filtered

		for _, c := range cands {
			ws := c.ws
			if !ws.TryLockSteal() {
				continue
			}
			s := ws.Start()
			e := ws.End()
			w := iterCount(s, e, incr)
			if w < max/2 {
				ws.UnlockSteal()
				continue
			}
			r, ok := extractHalf(ws, e, w, incr)
			ws.UnlockSteal()
			if !ok {
				continue
			}
			return r, true
		}
	}
}
