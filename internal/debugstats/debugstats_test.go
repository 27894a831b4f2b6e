package debugstats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersIncrementIndependently(t *testing.T) {
	var c Counters
	c.TransactionSubmitted()
	c.TransactionSubmitted()
	c.TransactionCompleted()
	c.TransactionCancelled()
	c.TransactionFailed()
	c.EventEmitted()
	c.EventEmitted()
	c.EventEmitted()

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.TransactionsSubmitted)
	assert.Equal(t, int64(1), snap.TransactionsCompleted)
	assert.Equal(t, int64(1), snap.TransactionsCancelled)
	assert.Equal(t, int64(1), snap.TransactionsFailed)
	assert.Equal(t, int64(3), snap.EventsEmitted)
}

func TestObserveBusQueueDepthTracksHighWaterMark(t *testing.T) {
	var c Counters
	c.ObserveBusQueueDepth(3)
	c.ObserveBusQueueDepth(1)
	c.ObserveBusQueueDepth(7)
	c.ObserveBusQueueDepth(5)

	assert.Equal(t, int64(7), c.Snapshot().BusQueueDepthHighWater)
}

func TestZeroValueCountersIsReadyToUse(t *testing.T) {
	var c Counters
	assert.Equal(t, Snapshot{}, c.Snapshot())
}
