package hiersched

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (ts *ConfigTestSuite) TestNewConfigDefaultsToScoredLocalityAwareStealing() {
	cfg := NewConfig[int](4, 4)
	ts.True(cfg.HierarchicalStealing.Load())
	ts.True(cfg.StealingScores.Load())
	ts.True(cfg.StealingCPUNodeLocality.Load())
	ts.False(cfg.HierarchicalStatic.Load())
}

func (ts *ConfigTestSuite) TestCustomPartitionerIsOneShot() {
	cfg := NewConfig[int](2, 2)
	calls := 0
	cfg.SetCustomPartitioner(func(start, end int) (int, int) {
		calls++
		return start + 1, end - 1
	})

	s, e, ok := cfg.consumePartitioner(0, 10)
	ts.True(ok)
	ts.Equal(1, s)
	ts.Equal(9, e)
	ts.Equal(1, calls)

	_, _, ok = cfg.consumePartitioner(0, 10)
	ts.False(ok, "the custom partitioner must clear itself after one use")
	ts.Equal(1, calls)
}

func (ts *ConfigTestSuite) TestAfterStealHooksStagedUntilArmed() {
	cfg := NewConfig[int](2, 2)
	var invoked bool
	cfg.SetAfterStealThreadFuncNextLoop(func(ownerGroup int, start, end int) {
		invoked = true
	})

	// Not yet armed: the active hook must not fire.
	cfg.runAfterStealThread(0, 0, 1)
	ts.False(invoked)

	cfg.armNextLoop()
	cfg.runAfterStealThread(0, 0, 1)
	ts.True(invoked)
}

func (ts *ConfigTestSuite) TestArmNextLoopClearsHookWhenNoneStaged() {
	cfg := NewConfig[int](2, 2)
	cfg.SetAfterStealGroupFuncNextLoop(func(int, int, int) {})
	cfg.armNextLoop()
	ts.True(cfg.afterStealGroupOn.Load())

	// A second loop with nothing newly staged must clear the active hook
	// rather than leave the previous loop's callback armed forever.
	cfg.armNextLoop()
	ts.False(cfg.afterStealGroupOn.Load())
}

func (ts *ConfigTestSuite) TestTraceNoopWithoutLoggerOrDebug() {
	cfg := NewConfig[int](2, 2)
	// Must not panic even with no logger attached and Debug off.
	cfg.trace("event", "k", "v")
	cfg.Debug.Store(true)
	cfg.trace("event", "k", "v")
}
