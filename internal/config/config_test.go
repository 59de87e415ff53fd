package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "address": "127.0.0.1:9000" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, "127.0.0.1:9000", viper.GetString("server.address"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./logs", viper.GetString("logsDir"))
	assert.Equal(t, ":8080", viper.GetString("server.address"))
	assert.Equal(t, "https://api.tarkov.dev/graphql", viper.GetString("api.url"))
	assert.Equal(t, "https://assets.tarkov.dev", viper.GetString("assets.origin"))
	assert.Equal(t, "https://tarkov.dev", viper.GetString("site.origin"))
	assert.Equal(t, true, viper.GetBool("overlays.showAnnotations"))
	assert.Equal(t, false, viper.GetBool("overlays.markersVisible"))
	assert.Len(t, viper.GetStringSlice("cache.languages"), 13)
	assert.Contains(t, viper.GetStringSlice("cache.languages"), "zh")
	assert.NotContains(t, viper.GetStringSlice("cache.languages"), "en")
	assert.Equal(t, "file", viper.GetString("storage.type"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "tarkovdev", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "site", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestGetters(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	viper.Set("testInt", 42)
	viper.Set("testBool", true)
	viper.Set("testDuration", "90s")
	viper.Set("testSlice", []string{"a", "b"})

	assert.Equal(t, "testValue", GetString("testKey"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, true, GetBool("testBool"))
	assert.Equal(t, 90*time.Second, GetDuration("testDuration"))
	assert.Equal(t, []string{"a", "b"}, GetStringSlice("testSlice"))
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "file", cfg.Type)
	assert.Equal(t, "./public/data", cfg.File.Dir)
	assert.False(t, cfg.File.Compress)
	assert.Equal(t, "", cfg.SQLite.Path)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
	assert.Equal(t, "", cfg.Mirror.URL)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"file": { "dir": "/tmp/out", "compress": true },
			"sqlite": { "path": "/tmp/snapshots.db", "dumpInterval": "10m" },
			"mirror": { "url": "ws://mirror:8080/ingest", "secret": "s3cret" }
		}
	}`)))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.File.Dir)
	assert.True(t, sc.File.Compress)
	assert.Equal(t, "/tmp/snapshots.db", sc.SQLite.Path)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, MirrorConfig{URL: "ws://mirror:8080/ingest", Secret: "s3cret"}, sc.Mirror)
}

func TestGetDatabaseConfig_DSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"db": {"host": "db", "password": "secret"}}`)))

	dc := GetDatabaseConfig()
	assert.Equal(t, "host=db port=5432 user=postgres password=secret dbname=tarkovdev sslmode=disable", dc.DSN())
}

func TestGetAPIConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"api": {"timeout": "5s"}}`)))

	ac := GetAPIConfig()
	assert.Equal(t, "https://api.tarkov.dev/graphql", ac.URL)
	assert.Equal(t, 5*time.Second, ac.Timeout)
}

func TestGetSiteAndOverlayConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"site": { "publicUrl": "/static" },
		"overlays": { "showAnnotations": false, "markersVisible": true },
		"data": { "mapsFile": "maps.json", "annotationsFile": "annotations.json" }
	}`)))

	assert.Equal(t, SiteConfig{Origin: "https://tarkov.dev", PublicURL: "/static"}, GetSiteConfig())
	assert.Equal(t, OverlayConfig{ShowAnnotations: false, MarkersVisible: true}, GetOverlayConfig())
	assert.Equal(t, DataConfig{MapsFile: "maps.json", AnnotationsFile: "annotations.json"}, GetDataConfig())
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "tarkov-dev", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, time.Minute, cfg.MetricInterval)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"metricInterval": "10s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, 10*time.Second, oc.MetricInterval)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{"influx": {"enabled": true, "host": "metrics.internal", "protocol": "https"}}`)))

	cfg := GetInfluxConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "https://metrics.internal:8086", cfg.URL())
	assert.Equal(t, "tarkov-dev", cfg.Org)
	assert.Equal(t, "site", cfg.Bucket)
}
