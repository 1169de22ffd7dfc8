package hiersched

// Int is the set of signed integer types an iteration space may be expressed
// over. The original C implementation carries two parallel copies of every
// function (one for `long`, one for `unsigned long long`, selected by the
// HIER_ULL preprocessor symbol); a single generic type parameter collapses
// that duplication to one implementation. Only signed types are offered:
// incr must carry a sign (forward or backward iteration).
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Range is a half-open iteration interval [Start, End) whose direction is
// given by sign(End - Start). It is returned by Dispatcher.Next and by a
// successful steal.
type Range[T Int] struct {
	Start      T
	End        T
	OwnerGroup int
}

func sign[T Int](v T) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// iterCount returns the number of iterations remaining in [start,end) given
// the direction of incr, saturating to 0 if the range has already been
// emptied or overshot (gomp_group_work_share_iter_count in iter_hierarchical.h).
func iterCount[T Int](start, end, incr T) T {
	var work T
	if incr > 0 {
		work = end - start
	} else {
		work = start - end
	}
	if work < 0 {
		return 0
	}
	return work
}

// pastEnd reports whether chunkEnd has crossed end in the direction of incr.
func pastEnd[T Int](chunkEnd, end, incr T) bool {
	if incr > 0 {
		return chunkEnd > end
	}
	return chunkEnd < end
}

// atOrPastEnd reports whether chunkStart has reached or crossed end in the
// direction of incr.
func atOrPastEnd[T Int](chunkStart, end, incr T) bool {
	if incr > 0 {
		return chunkStart >= end
	}
	return chunkStart <= end
}
