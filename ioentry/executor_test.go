package ioentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tbalden/google-modules-lwis/registerio"
)

func TestExecuteReadWriteModify(t *testing.T) {
	ctx := context.Background()
	backend := registerio.NewMMIOBackend()
	x := NewExecutor(nil)

	entries := []*Entry{
		{Tag: Write, Offset: 0x4, Value: 0x0f},
		{Tag: Modify, Offset: 0x4, Mask: 0xff, Value: 0xf0},
		{Tag: Read, Offset: 0x4},
	}
	require.NoError(t, x.Execute(ctx, backend, entries, ExecuteOptions{}))
	assert.Equal(t, uint64(0xf0), entries[2].Value)
}

func TestExecuteReadAssertFailure(t *testing.T) {
	ctx := context.Background()
	backend := registerio.NewMMIOBackend()
	x := NewExecutor(nil)
	require.NoError(t, backend.Write(ctx, 0, 4, 0x5))

	entries := []*Entry{{Tag: ReadAssert, Offset: 0, Mask: 0xff, Expected: 0x6}}
	err := x.Execute(ctx, backend, entries, ExecuteOptions{})
	require.Error(t, err)
}

func TestExecuteStopsOnFirstErrorKeepingPartialEffects(t *testing.T) {
	ctx := context.Background()
	backend := registerio.NewMMIOBackend()
	x := NewExecutor(nil)

	entries := []*Entry{
		{Tag: Write, Offset: 0, Value: 0x1},
		{Tag: ReadAssert, Offset: 0, Mask: 0xff, Expected: 0x2},
		{Tag: Write, Offset: 4, Value: 0x99},
	}
	err := x.Execute(ctx, backend, entries, ExecuteOptions{})
	require.Error(t, err)

	v, _ := backend.Read(ctx, 0, 4)
	assert.Equal(t, uint64(0x1), v, "the first write's side effect must remain")
	v, _ = backend.Read(ctx, 4, 4)
	assert.Equal(t, uint64(0), v, "the entry after the failure must not have run")
}

func TestExecuteCancelledBetweenEntries(t *testing.T) {
	ctx := context.Background()
	backend := registerio.NewMMIOBackend()
	x := NewExecutor(nil)

	var n int
	cancelled := func() bool {
		n++
		return n > 1
	}
	entries := []*Entry{
		{Tag: Write, Offset: 0, Value: 1},
		{Tag: Write, Offset: 4, Value: 2},
	}
	err := x.Execute(ctx, backend, entries, ExecuteOptions{IsCancelled: cancelled})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestExecutePollTimesOut(t *testing.T) {
	ctx := context.Background()
	backend := registerio.NewMMIOBackend()
	x := NewExecutor(nil)

	entries := []*Entry{{Tag: Poll, Offset: 0, Mask: 0xff, Expected: 0x42, Timeout: 5 * time.Millisecond}}
	err := x.Execute(ctx, backend, entries, ExecuteOptions{})
	require.Error(t, err)
}

func TestExecuteNilBackendRejected(t *testing.T) {
	x := NewExecutor(nil)
	err := x.Execute(context.Background(), nil, nil, ExecuteOptions{})
	require.Error(t, err)
}

func TestExecuteSurfacesBackendErrorAndStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := registerio.NewMockBackend(ctrl)
	x := NewExecutor(nil)

	boom := errors.New("bus fault")
	backend.EXPECT().Barrier(gomock.Any(), false, true).Return(nil)
	backend.EXPECT().Write(gomock.Any(), uint64(0), 4, uint64(1)).Return(boom)

	entries := []*Entry{
		{Tag: Write, Offset: 0, Value: 1},
		{Tag: Write, Offset: 4, Value: 2}, // must not run once the first write fails
	}
	err := x.Execute(context.Background(), backend, entries, ExecuteOptions{})
	require.ErrorIs(t, err, boom)
}

func TestCheckAllocSizeOverflow(t *testing.T) {
	_, ok := CheckAllocSize(-1, 4)
	assert.False(t, ok)

	n, ok := CheckAllocSize(0, 4)
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	_, ok = CheckAllocSize(1<<40, 1<<40)
	assert.False(t, ok)
}
