// Package config loads the flat, file-based runtime configuration:
// network authority addresses, wire protocol bind addresses, governor
// constants, actor geometry, and the optional datastore sinks.
package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level on-disk configuration shape, decoded from a
// TOML file.
type Config struct {
	Network struct {
		Interface     string `toml:"interface"`
		SourceAddress uint8  `toml:"source_address"`
		// EngineVendor selects which EMS driver variant talks to the
		// engine controller: "bosch" for BoschEMS, anything else for
		// the default EMS.
		EngineVendor string `toml:"engine_vendor"`
	} `toml:"network"`

	Wire struct {
		Bind     string `toml:"bind"`
		Socket   string `toml:"socket"`
		HTTPBind string `toml:"http_bind"`
	} `toml:"wire"`

	Governor struct {
		IdleRPM  uint16 `toml:"idle_rpm"`
		RatedRPM uint16 `toml:"rated_rpm"`
	} `toml:"governor"`

	Actor struct {
		BoomLength float64 `toml:"boom_length"`
		ArmLength  float64 `toml:"arm_length"`
	} `toml:"actor"`

	GNSS struct {
		Device string `toml:"device"`
		Baud   int    `toml:"baud"`
	} `toml:"gnss"`

	Capture struct {
		Enabled  bool   `toml:"enabled"`
		Filename string `toml:"filename"`
	} `toml:"capture"`

	Datastore struct {
		SQLite struct {
			Path string `toml:"path"`
		} `toml:"sqlite"`
		InfluxDB struct {
			URL    string `toml:"url"`
			Org    string `toml:"org"`
			Bucket string `toml:"bucket"`
			Token  string `toml:"token"`
		} `toml:"influxdb"`
	} `toml:"datastore"`

	RuntimeDir string `toml:"runtime_dir"`
}

// LoadConfig reads and decodes a TOML configuration file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", filename, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", filename, err)
	}
	return &cfg, nil
}

// SessionDir returns a fresh, uniquely-named subdirectory of
// RuntimeDir for this run's capture/log output.
func (c *Config) SessionDir() string {
	return c.RuntimeDir + "/" + uuid.NewString()
}
