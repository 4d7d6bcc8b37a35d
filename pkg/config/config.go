// Package config loads and persists the bridge configuration.
//
// The configuration lives in a YAML file next to the executable. On first run
// the file does not exist yet; Load then writes one populated with defaults so
// the user has something concrete to edit, and returns those defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/Landixus/potato/internal/mapping"
)

// DefaultFileName is the config file created next to the executable.
const DefaultFileName = "potato.yaml"

// Duration is a time.Duration that reads and writes as "10s" style YAML
// strings instead of raw nanosecond integers.
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config holds everything the bridge needs to run.
type Config struct {
	// DeviceNames are case-insensitive substrings matched against
	// advertised device names during discovery.
	DeviceNames []string `yaml:"device_names"`

	// FTP is the rider's functional threshold power in watts. Power output
	// at or above FTP maps to a fully pulled trigger.
	FTP float64 `yaml:"ftp" default:"250"`

	// Threshold is the minimum power in watts that registers at all.
	// Below it the trigger stays released (or the button stays up).
	Threshold float64 `yaml:"threshold" default:"10"`

	// Mode selects how power maps onto the controller: "trigger" for the
	// proportional analog axis, "button" for an on/off press.
	Mode string `yaml:"mode" default:"trigger"`

	// DisableDpad turns off the keyboard arrow-key passthrough.
	DisableDpad bool `yaml:"disable_dpad"`

	// KeyboardDevice is an explicit evdev device path. Empty means
	// auto-detect the first device with arrow keys.
	KeyboardDevice string `yaml:"keyboard_device"`

	ScanTimeout    Duration `yaml:"scan_timeout"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	// Slice and duration fields are set here; struct tags only cover
	// scalars.
	cfg.DeviceNames = []string{"KICKR", "WAHOO"}
	cfg.ScanTimeout = Duration(10 * time.Second)
	cfg.ConnectTimeout = Duration(30 * time.Second)
	return cfg
}

// DefaultPath returns the config file location next to the running
// executable, falling back to the working directory.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName)
}

// Load reads the config file at path. If the file does not exist it is
// created with defaults and those defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if saveErr := cfg.Save(path); saveErr != nil {
			return nil, fmt.Errorf("failed to create default config %s: %w", path, saveErr)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	if _, err := mapping.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Mode == string(mapping.ModeTrigger) && c.FTP <= 0 {
		return fmt.Errorf("ftp must be positive, got %g", c.FTP)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative, got %g", c.Threshold)
	}
	if len(c.DeviceNames) == 0 {
		return fmt.Errorf("device_names must not be empty")
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan_timeout must be positive, got %s", c.ScanTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	return nil
}

// MappingMode returns the parsed mapping mode. Call Validate first.
func (c *Config) MappingMode() mapping.Mode {
	mode, err := mapping.ParseMode(c.Mode)
	if err != nil {
		return mapping.ModeTrigger
	}
	return mode
}
