package trigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbalden/google-modules-lwis/fence"
)

func TestConditionValidateRejectsTooManyNodes(t *testing.T) {
	c := &Condition{Nodes: make([]Node, NMax+1)}
	require.Error(t, c.Validate())

	c = &Condition{Nodes: make([]Node, NMax)}
	require.NoError(t, c.Validate())
}

func TestParseNoneResolvesImmediatelyReady(t *testing.T) {
	e := NewEngine("c1")
	var got *Result
	_, err := e.Parse(1, &Condition{Operator: NONE}, fence.NewRegistry(nil), func(r Result) {
		got = &r
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, Ready, got.Outcome)
}

func TestParseORResolvesOnFirstEventMatch(t *testing.T) {
	e := NewEngine("c1")
	cond := &Condition{
		Operator: OR,
		Nodes: []Node{
			{Kind: EventNode, EventID: 10},
			{Kind: EventNode, EventID: 20},
		},
	}
	var got *Result
	_, err := e.Parse(1, cond, fence.NewRegistry(nil), func(r Result) { got = &r })
	require.NoError(t, err)
	assert.Nil(t, got, "OR with no fired nodes must remain pending")

	e.HandleEvent(10, 0)
	require.NotNil(t, got)
	assert.Equal(t, Ready, got.Outcome)
}

func TestParseANDRequiresAllEvents(t *testing.T) {
	e := NewEngine("c1")
	cond := &Condition{
		Operator: AND,
		Nodes: []Node{
			{Kind: EventNode, EventID: 10},
			{Kind: EventNode, EventID: 20},
		},
	}
	var got *Result
	_, err := e.Parse(1, cond, fence.NewRegistry(nil), func(r Result) { got = &r })
	require.NoError(t, err)

	e.HandleEvent(10, 0)
	assert.Nil(t, got, "AND must wait for every node")

	e.HandleEvent(20, 0)
	require.NotNil(t, got)
	assert.Equal(t, Ready, got.Outcome)
}

func TestParseANDCancelsImmediatelyOnFenceError(t *testing.T) {
	reg := fence.NewRegistry(nil)
	f := reg.Create()
	e := NewEngine("c1")
	cond := &Condition{
		Operator: AND,
		Nodes: []Node{
			{Kind: FenceNode, FenceFD: f.FD},
			{Kind: EventNode, EventID: 10},
		},
	}
	var got *Result
	_, err := e.Parse(1, cond, reg, func(r Result) { got = &r })
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, f.Signal(5))
	require.NotNil(t, got)
	assert.Equal(t, Cancel, got.Outcome)
	assert.Equal(t, int32(5), got.Status)
}

func TestParseORCancelsOnlyWhenEveryFenceErrors(t *testing.T) {
	reg := fence.NewRegistry(nil)
	f1 := reg.Create()
	f2 := reg.Create()
	e := NewEngine("c1")
	cond := &Condition{
		Operator: OR,
		Nodes: []Node{
			{Kind: FenceNode, FenceFD: f1.FD},
			{Kind: FenceNode, FenceFD: f2.FD},
		},
	}
	var got *Result
	_, err := e.Parse(1, cond, reg, func(r Result) { got = &r })
	require.NoError(t, err)

	require.NoError(t, f1.Signal(1))
	assert.Nil(t, got, "OR must not resolve until every branch has reached a terminal state")

	require.NoError(t, f2.Signal(2))
	require.NotNil(t, got)
	assert.Equal(t, Cancel, got.Outcome)
}

func TestParseFencePlaceholderCreatesNewFence(t *testing.T) {
	reg := fence.NewRegistry(nil)
	e := NewEngine("c1")
	cond := &Condition{
		Operator: AND,
		Nodes:    []Node{{Kind: FencePlaceholderNode}},
	}
	fds, err := e.Parse(1, cond, reg, func(Result) {})
	require.NoError(t, err)
	require.Len(t, fds, 1)

	_, err = reg.Lookup(fds[0])
	require.NoError(t, err)
}

func TestParseUnknownFenceFDReturnsError(t *testing.T) {
	reg := fence.NewRegistry(nil)
	e := NewEngine("c1")
	cond := &Condition{
		Operator: AND,
		Nodes:    []Node{{Kind: FenceNode, FenceFD: 999}},
	}
	_, err := e.Parse(1, cond, reg, func(Result) {})
	require.Error(t, err)
}

func TestCancelRemovesWeakRecordAndFenceRegistration(t *testing.T) {
	reg := fence.NewRegistry(nil)
	f := reg.Create()
	e := NewEngine("c1")
	cond := &Condition{
		Operator: AND,
		Nodes: []Node{
			{Kind: EventNode, EventID: 10},
			{Kind: FenceNode, FenceFD: f.FD},
		},
	}
	fired := false
	_, err := e.Parse(1, cond, reg, func(Result) { fired = true })
	require.NoError(t, err)

	e.Cancel(1, reg)

	e.HandleEvent(10, 0)
	require.NoError(t, f.Signal(0))
	assert.False(t, fired, "a cancelled transaction's waiter must never resolve")
}

func TestRouterFansEventOutToEveryRegisteredEngine(t *testing.T) {
	r := NewRouter()
	e1 := NewEngine("c1")
	e2 := NewEngine("c2")
	r.Register("c1", e1)
	r.Register("c2", e2)

	var got1, got2 *Result
	_, err := e1.Parse(1, &Condition{Operator: OR, Nodes: []Node{{Kind: EventNode, EventID: 3}}}, fence.NewRegistry(nil), func(r Result) { got1 = &r })
	require.NoError(t, err)
	_, err = e2.Parse(1, &Condition{Operator: OR, Nodes: []Node{{Kind: EventNode, EventID: 3}}}, fence.NewRegistry(nil), func(r Result) { got2 = &r })
	require.NoError(t, err)

	r.EventFired(3, 0)
	assert.NotNil(t, got1)
	assert.NotNil(t, got2)

	r.Unregister("c1")
	got1 = nil
	_, err = e1.Parse(2, &Condition{Operator: OR, Nodes: []Node{{Kind: EventNode, EventID: 3}}}, fence.NewRegistry(nil), func(r Result) { got1 = &r })
	require.NoError(t, err)
	r.EventFired(3, 0)
	assert.Nil(t, got1, "an unregistered engine must no longer receive the router's fan-out")
}
