package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbalden/google-modules-lwis/command"
	"github.com/tbalden/google-modules-lwis/internal/runtimeconfig"
	"github.com/tbalden/google-modules-lwis/registerio"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	r := New(nil)
	cfg := &runtimeconfig.Config{Devices: []runtimeconfig.DeviceConfig{
		{ID: "dev0", Name: "Dev 0", Kind: "mmio"},
		{ID: "dev1", Name: "Dev 1", Kind: "i2c", BusID: "bus0"},
		{ID: "dev2", Name: "Dev 2", Kind: "i2c", BusID: "bus0"},
	}}
	backends := map[string]registerio.Backend{
		"dev0": registerio.NewMMIOBackend(),
		"dev1": registerio.NewMMIOBackend(),
		"dev2": registerio.NewMMIOBackend(),
	}
	require.NoError(t, r.LoadConfig(cfg, backends))
	return r
}

func TestLoadConfigRegistersEveryDevice(t *testing.T) {
	r := newTestRuntime(t)
	for _, id := range []string{"dev0", "dev1", "dev2"} {
		_, ok := r.Device(id)
		assert.True(t, ok, "device %s must be registered", id)
	}
	_, ok := r.Device("missing")
	assert.False(t, ok)
}

func TestLoadConfigRejectsInvalidTopology(t *testing.T) {
	r := New(nil)
	cfg := &runtimeconfig.Config{Devices: []runtimeconfig.DeviceConfig{
		{ID: "dup", Name: "A", Kind: "mmio"},
		{ID: "dup", Name: "B", Kind: "mmio"},
	}}
	err := r.LoadConfig(cfg, nil)
	require.Error(t, err)
}

func TestOpenClientSessionWiresAFullClientStack(t *testing.T) {
	r := newTestRuntime(t)
	sess, err := r.OpenClientSession("dev0", "c1")
	require.NoError(t, err)
	require.NotNil(t, sess.Scheduler)
	require.NotNil(t, sess.Dispatcher)

	body := &command.EchoBody{Msg: []byte("ping")}
	require.NoError(t, sess.Dispatcher.Dispatch(context.Background(), command.NewPacket(command.CmdEcho, body)))
	assert.Equal(t, []byte("ping"), body.Out)

	r.CloseClientSession("dev0", sess)
}

func TestOpenClientSessionUnknownDeviceIsNotFound(t *testing.T) {
	r := newTestRuntime(t)
	_, err := r.OpenClientSession("missing", "c1")
	require.Error(t, err)
}

func TestSharedBusClientsRouteThroughTheSameBusManager(t *testing.T) {
	r := newTestRuntime(t)
	sess1, err := r.OpenClientSession("dev1", "c1")
	require.NoError(t, err)
	sess2, err := r.OpenClientSession("dev2", "c2")
	require.NoError(t, err)

	dev1, _ := r.Device("dev1")
	dev2, _ := r.Device("dev2")
	assert.Same(t, dev1.BusManager(), dev2.BusManager(), "devices sharing a bus id must share one manager")

	r.CloseClientSession("dev1", sess1)
	r.CloseClientSession("dev2", sess2)
}

func TestRuntimeCloseTearsDownEveryDeviceConcurrently(t *testing.T) {
	r := newTestRuntime(t)
	require.NoError(t, r.Close(context.Background()))
}
