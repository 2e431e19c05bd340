package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
	breaker *Breaker
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) SetupTest() {
	s.breaker = New("registry", WithFailureThreshold(3), WithSuccessThreshold(2))
}

func (s *BreakerSuite) fail(n int) (bool, StateChange) {
	var useFallback bool
	var change StateChange
	for range n {
		useFallback, change = s.breaker.RecordFailure()
	}
	return useFallback, change
}

func (s *BreakerSuite) TestStartsClosed() {
	s.Equal("registry", s.breaker.Name())
	s.Equal(StateClosed, s.breaker.State())
	s.Equal("closed", s.breaker.State().String())
	s.False(s.breaker.IsOpen())
}

func (s *BreakerSuite) TestOpensOnThreshold() {
	useFallback, change := s.fail(2)
	s.False(useFallback)
	s.False(change.Opened)

	useFallback, change = s.fail(1)
	s.True(useFallback)
	s.True(change.Opened)
	s.True(s.breaker.IsOpen())

	useFallback, change = s.fail(1)
	s.True(useFallback, "further failures keep the fallback")
	s.False(change.Opened, "already open")
}

func (s *BreakerSuite) TestClosesAfterConsecutiveSuccesses() {
	s.fail(3)

	usePrimary, change := s.breaker.RecordSuccess()
	s.False(usePrimary)
	s.False(change.Closed)

	usePrimary, change = s.breaker.RecordSuccess()
	s.True(usePrimary)
	s.True(change.Closed)
	s.Equal(StateClosed, s.breaker.State())
}

func (s *BreakerSuite) TestInterleavedOutcomesResetCounters() {
	s.Run("success clears the failure streak", func() {
		s.fail(2)
		s.breaker.RecordSuccess()
		s.fail(2)
		s.False(s.breaker.IsOpen())
	})

	s.Run("failure clears the success streak", func() {
		s.breaker.Reset()
		s.fail(3)
		s.breaker.RecordSuccess()
		s.fail(1)
		usePrimary, _ := s.breaker.RecordSuccess()
		s.False(usePrimary, "needs two successes in a row")
		s.True(s.breaker.IsOpen())
	})
}

func (s *BreakerSuite) TestReset() {
	s.fail(3)
	s.breaker.Reset()
	s.False(s.breaker.IsOpen())
	useFallback, _ := s.fail(2)
	s.False(useFallback, "counters were cleared")
}

func (s *BreakerSuite) TestDefaults() {
	b := New("defaults", WithFailureThreshold(0), WithSuccessThreshold(-1))
	for range 4 {
		b.RecordFailure()
	}
	s.False(b.IsOpen())
	b.RecordFailure()
	s.True(b.IsOpen())
	usePrimary, _ := b.RecordSuccess()
	s.True(usePrimary)
}
