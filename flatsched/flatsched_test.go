package flatsched

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FlatSchedTestSuite struct {
	suite.Suite
}

func TestFlatSchedTestSuite(t *testing.T) {
	suite.Run(t, new(FlatSchedTestSuite))
}

func (ts *FlatSchedTestSuite) TestChunkedRangeExactTiling() {
	chunks := ChunkedRange[int](4, 0, 100)
	ts.Len(chunks, 4)

	prevEnd := 0
	for _, c := range chunks {
		ts.Equal(prevEnd, c.Start)
		prevEnd = c.End
	}
	ts.Equal(100, prevEnd)
}

func (ts *FlatSchedTestSuite) TestChunkedRangeSingleWorker() {
	chunks := ChunkedRange[int](1, 5, 42)
	ts.Len(chunks, 1)
	ts.Equal(5, chunks[0].Start)
	ts.Equal(42, chunks[0].End)
}

func (ts *FlatSchedTestSuite) TestRoundRobinRangeCoversWholeRange() {
	chunks := RoundRobinRange[int](3, 0, 10, 1, 1)
	covered := make(map[int]bool)
	for _, c := range chunks {
		for i := c.Start; i < c.End; i++ {
			covered[i] = true
		}
	}
	ts.Len(covered, 10)
}

func (ts *FlatSchedTestSuite) TestRoundRobinRangeDistributesAcrossWorkers() {
	chunks := RoundRobinRange[int](2, 0, 4, 1, 1)
	ts.Len(chunks, 4)
	seen := map[int]bool{}
	for _, c := range chunks {
		seen[c.Worker] = true
	}
	ts.True(seen[0])
	ts.True(seen[1])
}

func (ts *FlatSchedTestSuite) TestReverseDirection() {
	chunks := ChunkedRange[int](2, 100, 0)
	for _, c := range chunks {
		ts.True(c.Start >= c.End)
	}
}

func (ts *FlatSchedTestSuite) TestZeroWorkersCoercedToOne() {
	chunks := ChunkedRange[int](0, 0, 10)
	ts.Len(chunks, 1)
}
