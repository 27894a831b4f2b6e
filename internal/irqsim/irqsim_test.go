package irqsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFireDeliversEventOnChannel(t *testing.T) {
	s := NewSource(nil)
	defer s.Close()

	s.Fire(3, true)

	select {
	case ev := <-s.Events():
		assert.Equal(t, uint32(3), ev.Line)
		assert.True(t, ev.RisingEdge)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestStartPeriodicFiresRepeatedly(t *testing.T) {
	s := NewSource(nil)
	defer s.Close()

	s.StartPeriodic(1, 5*time.Millisecond)

	var count int
	deadline := time.After(time.Second)
	for count < 3 {
		select {
		case ev := <-s.Events():
			require.Equal(t, uint32(1), ev.Line)
			count++
		case <-deadline:
			t.Fatal("fewer than 3 periodic events arrived within timeout")
		}
	}
}

func TestCloseStopsDeliveryAndClosesChannel(t *testing.T) {
	s := NewSource(nil)
	s.Close()

	_, ok := <-s.Events()
	assert.False(t, ok, "the events channel must be closed after Close")
}
