package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/config"
)

// nothing listens on port 1
var unreachable = config.InfluxConfig{
	Enabled:  true,
	Protocol: "http",
	Host:     "127.0.0.1",
	Port:     "1",
	Org:      "tarkov-dev",
	Bucket:   "site",
}

func readBackup(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "influx.gz"))
	require.Error(t, m.Connect(context.Background(), config.InfluxConfig{}))
	assert.False(t, m.Online())
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "tarkov_dev.influx.lp.gz")
	m := NewManager(zerolog.Nop(), backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx, unreachable))
	assert.False(t, m.Online())

	m.RecordCacheRun(ctx, "items", 4200, 1500*time.Millisecond, nil)
	m.RecordCacheRun(ctx, "barters", 0, time.Second, errors.New("api down"))
	m.RecordMapView(ctx, "customs", "interactive", "ws")
	require.NoError(t, m.Close())

	lines := readBackup(t, backup)
	assert.Contains(t, lines, "cache_run,dataset=items,status=ok duration_ms=1500i,records=4200i")
	assert.Contains(t, lines, "cache_run,dataset=barters,status=error")
	assert.Contains(t, lines, "map_view,map=customs,source=ws,state=interactive count=1i")
}

func TestConnect_BackupPathRequired(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	err := m.Connect(context.Background(), unreachable)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup path")
}

func TestWritePoint_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	p := write.NewPointWithMeasurement(MeasurementCacheRun).AddField("records", 1)
	require.ErrorIs(t, m.WritePoint(p), errNotConnected)
}

func TestClose_StopsWrites(t *testing.T) {
	m := NewManager(zerolog.Nop(), filepath.Join(t.TempDir(), "influx.gz"))
	require.NoError(t, m.Connect(context.Background(), unreachable))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	p := write.NewPointWithMeasurement(MeasurementMapView).AddField("count", 1)
	require.ErrorIs(t, m.WritePoint(p), errNotConnected)
}
