package hiersched

// BalancedPartition computes the [localStart,localEnd) slice of [start,end)
// owned by worker workerPos out of numWorkers, tiling the parent interval
// exactly and preserving its direction for any signed stride (spec §4.5,
// gomp_initialize_group_work in iter_hierarchical.h).
//
// len = end-start is divided as evenly as possible; the first |rem| workers
// (in the direction of rem's sign) receive one extra iteration each.
func BalancedPartition[T Int](numWorkers, workerPos int, start, end T) (localStart, localEnd T) {
	length := end - start
	per := length / T(numWorkers)
	rem := length - per*T(numWorkers)

	if rem != 0 {
		s := T(sign(rem))
		if T(workerPos) < s*rem {
			per += s
			rem = 0
		}
	}

	localStart = start + per*T(workerPos) + rem
	localEnd = localStart + per
	return localStart, localEnd
}
