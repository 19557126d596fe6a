// Package config loads the YAML settings that sit alongside the
// decode pipeline's CLI flags: broker credentials, listen addresses,
// and other values too sensitive or too verbose for a flag (spec.md
// §6's ambient configuration surface).
//
// Grounded on config.go's struct-of-structs + yaml.v3 pattern: one
// exported struct per concern, yaml tags on every field, a single
// entry point (Load).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root of the YAML configuration tree.
type Config struct {
	Decoder    DecoderConfig    `yaml:"decoder"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	MapFeed    MapFeedConfig    `yaml:"mapfeed"`
	Recording  RecordingConfig  `yaml:"recording"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DecoderConfig carries settings that apply to the decode core itself
// rather than to any one ambient sink.
type DecoderConfig struct {
	StationID    string `yaml:"station_id"`     // tag attached to ACARS JSON records as source.station_id
	Strict       bool   `yaml:"strict"`         // suppress ACARS records with parity/CRC errors from JSON output
	Diagnostic   bool   `yaml:"diagnostic"`     // suppress RAW/IDA stdout lines, keep sinks fed
	ACARSOnly    bool   `yaml:"acars_only"`     // parsed but not read by the CLI; RAW suppression follows -acars/-acars-json
}

// PrometheusConfig controls the /metrics HTTP listener.
type PrometheusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // e.g. ":9100"
}

// MQTTConfig mirrors MQTTConfig's broker settings, trimmed to what the
// decode pipeline's sink actually uses.
type MQTTConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Broker   string        `yaml:"broker"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Topic    string        `yaml:"topic"`
	TLS      MQTTTLSConfig `yaml:"tls"`
}

// MQTTTLSConfig mirrors MQTTTLSConfig.
type MQTTTLSConfig struct {
	Enabled    bool   `yaml:"enabled"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// MapFeedConfig controls the WebSocket map broadcast hub.
type MapFeedConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Listen     string `yaml:"listen"`
	BufferSize int    `yaml:"buffer_size"`
}

// RecordingConfig controls zstd session recording of the RAW/IDA line
// stream.
type RecordingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig mirrors LoggingConfig.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &cfg, nil
}
