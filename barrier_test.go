package hiersched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarrierTestSuite struct {
	suite.Suite
}

func TestBarrierTestSuite(t *testing.T) {
	suite.Run(t, new(BarrierTestSuite))
}

func (ts *BarrierTestSuite) TestReleasesAllPartiesTogether() {
	const n = 8
	b := NewBarrier(n)

	var arrived int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.Wait()
			atomic.AddInt32(&arrived, 1)
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		ts.Fail("barrier did not release all parties")
	}
	ts.Equal(int32(n), atomic.LoadInt32(&arrived))
}

func (ts *BarrierTestSuite) TestReusableAcrossGenerations() {
	const n = 4
	b := NewBarrier(n)

	for gen := 0; gen < 3; gen++ {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				b.Wait()
			}()
		}
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			ts.FailNow("barrier generation did not complete", "generation %d", gen)
		}
	}
}

func (ts *BarrierTestSuite) TestSinglePartyNeverBlocks() {
	b := NewBarrier(1)
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		ts.Fail("single-party barrier must not block")
	}
}

func (ts *BarrierTestSuite) TestZeroOrNegativeCoercedToOne() {
	b := NewBarrier(0)
	ts.Equal(1, b.Parties())
	ts.Equal(1, NewBarrier(-3).Parties())
}
