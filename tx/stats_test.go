package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatistics_UpdateAccumulatesAggregates(t *testing.T) {
	s := newStatistics(true)
	s.update(10, true)
	s.update(30, true)
	s.update(5, false)

	snap := s.snapshot()
	assert.Equal(t, int64(3), snap.Total)
	assert.Equal(t, int64(2), snap.Succeeded)
	assert.Equal(t, int64(1), snap.Failed)
	assert.Equal(t, int64(5), snap.MinDurationMs)
	assert.Equal(t, int64(30), snap.MaxDurationMs)
	assert.InDelta(t, 15.0, snap.AvgDurationMs, 0.001)
}

func TestStatistics_DisabledSkipsUpdates(t *testing.T) {
	s := newStatistics(false)
	s.update(10, true)

	snap := s.snapshot()
	assert.Equal(t, int64(0), snap.Total)
}

func TestStatistics_DurationFloorsAtOneMillisecond(t *testing.T) {
	s := newStatistics(true)
	s.update(0, true)

	snap := s.snapshot()
	assert.Equal(t, int64(1), snap.MinDurationMs)
	assert.Equal(t, int64(1), snap.MaxDurationMs)
}

func TestStatistics_Reset(t *testing.T) {
	s := newStatistics(true)
	s.update(10, true)
	s.reset()

	snap := s.snapshot()
	assert.Equal(t, int64(0), snap.Total)
	assert.Equal(t, int64(0), snap.MaxDurationMs)
}
