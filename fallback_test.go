package hiersched

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type FallbackTestSuite struct {
	suite.Suite
}

func TestFallbackTestSuite(t *testing.T) {
	suite.Run(t, new(FallbackTestSuite))
}

func (ts *FallbackTestSuite) TestShouldFallBackOnNestedOrSingleThread() {
	ts.True(ShouldFallBack(2, 8), "nested hierarchical loop must fall back")
	ts.True(ShouldFallBack(1, 1), "a one-thread team must fall back")
	ts.False(ShouldFallBack(1, 8))
}

func (ts *FallbackTestSuite) TestMasterGetsWholeRangeOnce() {
	d := NewSingleThreadDispatcher[int](0, 10, 1)
	ts.NotNil(d)
	master := &ThreadState[int]{}

	r, ok := d.Next(master, true)
	ts.True(ok)
	ts.Equal(0, r.Start)
	ts.Equal(10, r.End)

	_, ok = d.Next(master, true)
	ts.False(ok, "a second call for the master must report done")
}

func (ts *FallbackTestSuite) TestNonMasterAlwaysDone() {
	d := NewSingleThreadDispatcher[int](0, 10, 1)
	slave := &ThreadState[int]{}

	_, ok := d.Next(slave, false)
	ts.False(ok)
}
