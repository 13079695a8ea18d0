// Package config loads and validates the towerd configuration file.
package config

import (
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/towerlink/tower.go/pkg/tower"
)

// Config is the top-level towerd configuration.
type Config struct {
	Serial    SerialConfig    `yaml:"serial"`
	Listen    string          `yaml:"listen"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Tower     TowerConfig     `yaml:"tower"`
	Flash     FlashConfig     `yaml:"flash"`
	Analog    AnalogConfig    `yaml:"analog"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
}

// SerialConfig selects the serial port. When Device is empty the
// daemon serves the TCP listener instead.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// MQTTConfig enables the telemetry bridge when Broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// TowerConfig carries identity and protocol settings.
type TowerConfig struct {
	// Number seeds the persisted tower number. 0 derives one from the
	// machine identity.
	Number uint16 `yaml:"number"`
	Mode   uint16 `yaml:"mode"`
	// Policy is "on-change" or "always".
	Policy string `yaml:"policy"`
}

// FlashConfig selects the non-volatile backing file. An empty File
// keeps the settings in memory only.
type FlashConfig struct {
	File string `yaml:"file"`
}

// AnalogConfig configures the periodic sampling threads.
type AnalogConfig struct {
	Channels   int `yaml:"channels"`
	IntervalMs int `yaml:"interval_ms"`
}

// HeartbeatConfig is reserved for tuning; currently empty on purpose.
type HeartbeatConfig struct{}

// Defaults applied by Normalize.
const (
	DefaultBaud       = 115200
	DefaultListen     = ":9870"
	DefaultTopic      = "tower"
	DefaultIntervalMs = 10
)

// Load reads and parses the file at path. A missing path yields the
// zero config, normalized.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %v", path, err)
		}
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.Serial.Baud == 0 {
		c.Serial.Baud = DefaultBaud
	}
	if c.Serial.Device == "" && c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = DefaultTopic
	}
	if c.Tower.Policy == "" {
		c.Tower.Policy = tower.PolicyOnChange.String()
	}
	if c.Analog.IntervalMs == 0 {
		c.Analog.IntervalMs = DefaultIntervalMs
	}
}

// Validate rejects configurations the daemon cannot run.
func (c *Config) Validate() error {
	if c.Serial.Baud < 0 {
		return fmt.Errorf("config: negative baud rate %d", c.Serial.Baud)
	}
	if _, err := tower.ParsePolicy(c.Tower.Policy); err != nil {
		return err
	}
	if c.Analog.Channels < 0 {
		return fmt.Errorf("config: negative analog channel count %d", c.Analog.Channels)
	}
	if c.Analog.IntervalMs < 1 {
		return fmt.Errorf("config: analog interval must be at least 1ms, got %d", c.Analog.IntervalMs)
	}
	return nil
}

// Policy returns the parsed transmit policy. Call after Validate.
func (c *Config) Policy() tower.TransmitPolicy {
	p, _ := tower.ParsePolicy(c.Tower.Policy)
	return p
}

// SampleInterval returns the analog interval as a duration.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Analog.IntervalMs) * time.Millisecond
}
