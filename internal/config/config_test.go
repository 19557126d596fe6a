package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParsesNestedStructure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
decoder:
  station_id: KA9Q-1
  strict: true
prometheus:
  enabled: true
  listen: ":9100"
mqtt:
  enabled: true
  broker: "tcp://broker.example.com:1883"
  tls:
    enabled: true
    ca_cert: /etc/ca.pem
recording:
  enabled: true
  path: /var/log/iridium.zst
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "KA9Q-1", cfg.Decoder.StationID)
	assert.True(t, cfg.Decoder.Strict)
	assert.Equal(t, ":9100", cfg.Prometheus.Listen)
	assert.Equal(t, "tcp://broker.example.com:1883", cfg.MQTT.Broker)
	assert.True(t, cfg.MQTT.TLS.Enabled)
	assert.Equal(t, "/var/log/iridium.zst", cfg.Recording.Path)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)
}
