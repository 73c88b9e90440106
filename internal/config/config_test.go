package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "current driver", cfg.DriverID)
	assert.Equal(t, 10*time.Second, cfg.LocationTimeout)
	assert.True(t, cfg.DevicePermissionGranted)
	assert.Equal(t, "driver-notifications", cfg.KafkaTopic)
}

func TestLoadServerConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("DEVICE_LAT", "10")
	t.Setenv("DEVICE_LON", "20")
	t.Setenv("DEVICE_PERMISSION_GRANTED", "false")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOCATION_TIMEOUT", "3s")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 10.0, cfg.DeviceLat)
	assert.Equal(t, 20.0, cfg.DeviceLon)
	assert.False(t, cfg.DevicePermissionGranted)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.LocationTimeout)
}

func TestLoadServerConfigCollectsErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("HTTP_READ_TIMEOUT", "soon")
	t.Setenv("DEVICE_LAT", "91")
	t.Setenv("ENRICH_CONCURRENCY", "0")

	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_READ_TIMEOUT")
	assert.Contains(t, err.Error(), "DEVICE_LAT")
	assert.Contains(t, err.Error(), "ENRICH_CONCURRENCY")
}

func TestLoadServerConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "driver.yaml")
	body := "http_addr: \":9090\"\ndriver_id: driver-7\nosrm_endpoint: http://osrm:5000\nlocation_timeout: 2s\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HTTP_ADDR", ":7070")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "driver-7", cfg.DriverID)
	assert.Equal(t, "http://osrm:5000", cfg.OSRMEndpoint)
	assert.Equal(t, 2*time.Second, cfg.LocationTimeout)
}

func TestLoadServerConfigMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := LoadServerConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}
