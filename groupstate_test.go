package hiersched

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type GroupStateTestSuite struct {
	suite.Suite
}

func TestGroupStateTestSuite(t *testing.T) {
	suite.Run(t, new(GroupStateTestSuite))
}

func (ts *GroupStateTestSuite) TestRingSizedEightTimesGroupSize() {
	g := NewGroupState[int](0, 4, 2, 0)
	ts.Equal(32, g.RingSize())
}

func (ts *GroupStateTestSuite) TestNewGroupStateStartsDone() {
	g := NewGroupState[int](0, 4, 2, 0)
	ts.Equal(int32(-1), g.Current.Load())
	ts.Nil(g.CurrentSlot())
}

func (ts *GroupStateTestSuite) TestCurrentSlotAfterPublish() {
	g := NewGroupState[int](0, 4, 2, 0)
	g.Current.Store(3)
	ts.Same(g.Slot(3), g.CurrentSlot())
}

func (ts *GroupStateTestSuite) TestMarkDonePublishesSentinel() {
	g := NewGroupState[int](0, 2, 2, 0)
	g.Current.Store(5)
	g.markDone()
	ts.Equal(int32(-1), g.Current.Load())
}

func (ts *GroupStateTestSuite) TestGroupTableOutOfRange() {
	table := GroupTable[int]{NewGroupState[int](0, 2, 1, 0)}
	ts.Nil(table.Group(-1))
	ts.Nil(table.Group(1))
	ts.NotNil(table.Group(0))
}
