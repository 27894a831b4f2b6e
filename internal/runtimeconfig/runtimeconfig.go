// Package runtimeconfig describes the static device topology this
// runtime is started with: the device-tree-equivalent input spec §1
// treats as an external collaborator. Raw attribute maps are decoded
// into typed structs with github.com/go-viper/mapstructure/v2,
// following viamrobotics-rdk/resource's TransformAttributeMap pattern,
// and every level exposes a teacher-style Validate(path string) error.
package runtimeconfig

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"github.com/tbalden/google-modules-lwis/device"
)

// AttributeMap is a raw, loosely-typed bag of config values, mirroring
// the teacher's utils.AttributeMap.
type AttributeMap map[string]interface{}

// DeviceConfig is one device's static topology entry.
type DeviceConfig struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     string       `json:"kind"` // one of mmio|i2c|spi|dpm|test|top
	BusID    string       `json:"bus_id,omitempty"`
	Address  uint16       `json:"address,omitempty"`
	Priority int          `json:"priority,omitempty"`
	Attrs    AttributeMap `json:"attributes,omitempty"`
}

// Validate checks one device entry, in the teacher's path-qualified
// per-field style.
func (c *DeviceConfig) Validate(path string) error {
	if c.ID == "" {
		return errors.Errorf("%s: id is required", path)
	}
	if c.Name == "" {
		return errors.Errorf("%s.name: name is required", path)
	}
	switch c.Kind {
	case "mmio", "i2c", "spi", "dpm", "test", "top":
	default:
		return errors.Errorf("%s.kind: unknown device kind %q", path, c.Kind)
	}
	if c.Kind == "i2c" && c.BusID == "" {
		return errors.Errorf("%s.bus_id: required for i2c devices", path)
	}
	return nil
}

// ParseKind maps a config-file kind string onto device.Kind.
func (c *DeviceConfig) ParseKind() (device.Kind, error) {
	switch c.Kind {
	case "mmio":
		return device.MMIO, nil
	case "i2c":
		return device.I2C, nil
	case "spi":
		return device.SPI, nil
	case "dpm":
		return device.DPM, nil
	case "test":
		return device.TEST, nil
	case "top":
		return device.TOP, nil
	default:
		return 0, errors.Errorf("unknown device kind %q", c.Kind)
	}
}

// Config is the full runtime topology: every device this process
// manages.
type Config struct {
	Devices []DeviceConfig `json:"devices"`
}

// Validate checks every device entry and rejects duplicate ids.
func (c *Config) Validate(path string) error {
	seen := make(map[string]bool, len(c.Devices))
	for i := range c.Devices {
		d := &c.Devices[i]
		fieldPath := fmt.Sprintf("%s.devices.%d", path, i)
		if err := d.Validate(fieldPath); err != nil {
			return err
		}
		if seen[d.ID] {
			return errors.Errorf("%s: duplicate device id %q", fieldPath, d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}

// DecodeConfig decodes a raw attribute map into a typed Config,
// following viamrobotics-rdk/resource.TransformAttributeMap's use of
// mapstructure with the "json" tag so the same struct tags serve both
// JSON config files and attribute-map decoding.
func DecodeConfig(attrs AttributeMap) (*Config, error) {
	var out Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &out,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(attrs)); err != nil {
		return nil, err
	}
	return &out, nil
}
