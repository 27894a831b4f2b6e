// Package dpm stands in for the external dynamic-power-management
// collaborator spec §1 excludes from scope: clock/QoS settings live
// outside this runtime, so the real implementation would forward these
// calls to whatever power-management daemon owns them.
package dpm

import (
	"sync"

	"github.com/tbalden/google-modules-lwis/errcode"
)

// ClockSetting is one clock-rate request, per the DpmClkUpdate/
// DpmGetClock command bodies in spec §6.
type ClockSetting struct {
	DeviceID string
	ClockID  string
	RateHz   uint64
}

// QosRequest is one bandwidth/latency QoS ask, per DpmQosUpdate.
type QosRequest struct {
	DeviceID  string
	Bandwidth uint64
	LatencyNS uint64
}

// Controller is the external DPM collaborator's interface.
type Controller interface {
	ClkUpdate(settings []ClockSetting) error
	QosUpdate(reqs []QosRequest) error
	GetClock(deviceID string) (ClockSetting, error)
}

type fakeController struct {
	mu     sync.Mutex
	clocks map[string]ClockSetting
}

// NewFakeController returns a Controller that just remembers the last
// clock setting per device, sufficient to exercise the command
// dispatcher without a real power-management daemon.
func NewFakeController() Controller {
	return &fakeController{clocks: make(map[string]ClockSetting)}
}

func (c *fakeController) ClkUpdate(settings []ClockSetting) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range settings {
		c.clocks[s.DeviceID] = s
	}
	return nil
}

func (c *fakeController) QosUpdate(reqs []QosRequest) error {
	return nil
}

func (c *fakeController) GetClock(deviceID string) (ClockSetting, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.clocks[deviceID]
	if !ok {
		return ClockSetting{}, errcode.New("dpm.GetClock", errcode.NotFound)
	}
	return s, nil
}
