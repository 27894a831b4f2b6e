package cli

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/tbalden/google-modules-lwis/internal/runtimeconfig"
)

// loadConfig reads path as JSON into an attribute map and decodes it
// into a typed runtimeconfig.Config, following the same
// attribute-map-then-mapstructure path the command packets would use
// for any other dynamically-shaped input.
func loadConfig(path string) (*runtimeconfig.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var attrs runtimeconfig.AttributeMap
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, errors.Wrap(err, "parse config json")
	}
	cfg, err := runtimeconfig.DecodeConfig(attrs)
	if err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate("config"); err != nil {
		return nil, err
	}
	return cfg, nil
}
