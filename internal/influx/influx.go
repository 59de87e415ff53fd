// Package influx records cache runs and map views as InfluxDB points. When the server
// cannot be reached the points go to a gzip-compressed line protocol file so they can be
// imported later.
package influx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/tarkov-dev/site/internal/config"
)

const (
	MeasurementCacheRun = "cache_run"
	MeasurementMapView  = "map_view"
)

const retention = 90 * 24 * time.Hour

var errNotConnected = errors.New("influx not connected")

// sink receives points. apiSink and backupSink are the two implementations.
type sink interface {
	write(*write.Point) error
	close() error
}

// Manager writes points to the configured bucket, or to the backup file when InfluxDB is
// unreachable.
type Manager struct {
	log        zerolog.Logger
	backupPath string

	mu     sync.Mutex
	sink   sink
	online bool
}

func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{log: log, backupPath: backupPath}
}

// Connect pings the server and prepares the org and bucket. A disabled config is an
// error; an unreachable server switches the manager to the backup file.
func (m *Manager) Connect(ctx context.Context, cfg config.InfluxConfig) error {
	if !cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	client := influxdb2.NewClientWithOptions(cfg.URL(), cfg.Token,
		influxdb2.DefaultOptions().SetBatchSize(500).SetFlushInterval(1000))

	if running, err := client.Ping(ctx); err != nil || !running {
		client.Close()
		m.log.Warn().Err(err).Str("backupPath", m.backupPath).Msg("InfluxDB unreachable, writing points to backup file")
		backup, err := openBackup(m.backupPath)
		if err != nil {
			return err
		}
		m.set(backup, false)
		return nil
	}

	if err := ensureBucket(ctx, client, cfg.Org, cfg.Bucket, m.log); err != nil {
		client.Close()
		return err
	}
	m.set(newAPISink(client, cfg.Org, cfg.Bucket, m.log), true)
	m.log.Info().Str("url", cfg.URL()).Str("bucket", cfg.Bucket).Msg("InfluxDB connected")
	return nil
}

func (m *Manager) set(s sink, online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink, m.online = s, online
}

// Online reports whether points go to the server rather than the backup file.
func (m *Manager) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func ensureBucket(ctx context.Context, client influxdb2.Client, orgName, bucket string, log zerolog.Logger) error {
	orgs := client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, orgName)
	if err != nil {
		log.Info().Str("org", orgName).Msg("Creating InfluxDB organization")
		if org, err = orgs.CreateOrganizationWithName(ctx, orgName); err != nil {
			return fmt.Errorf("create organization %s: %w", orgName, err)
		}
	}

	buckets := client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, bucket); err == nil {
		return nil
	}
	log.Info().Str("bucket", bucket).Dur("retention", retention).Msg("Creating InfluxDB bucket")
	expire := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
		Type:         &expire,
		EverySeconds: int64(retention / time.Second),
	})
	if err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// WritePoint hands the point to the current sink.
func (m *Manager) WritePoint(p *write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil {
		return errNotConnected
	}
	return m.sink.write(p)
}

// RecordCacheRun writes one point per cached dataset.
func (m *Manager) RecordCacheRun(_ context.Context, dataset string, records int, took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p := write.NewPoint(MeasurementCacheRun,
		map[string]string{"dataset": dataset, "status": status},
		map[string]any{"records": records, "duration_ms": took.Milliseconds()},
		time.Now())
	if werr := m.WritePoint(p); werr != nil {
		m.log.Warn().Err(werr).Str("dataset", dataset).Msg("Failed to record cache run")
	}
}

// RecordMapView writes one point per rendered map view.
func (m *Manager) RecordMapView(_ context.Context, mapID, state, source string) {
	p := write.NewPoint(MeasurementMapView,
		map[string]string{"map": mapID, "state": state, "source": source},
		map[string]any{"count": 1},
		time.Now())
	if err := m.WritePoint(p); err != nil {
		m.log.Warn().Err(err).Str("map", mapID).Msg("Failed to record map view")
	}
}

// Close flushes pending points and releases the sink. Later writes fail.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sink == nil {
		return nil
	}
	err := m.sink.close()
	m.sink, m.online = nil, false
	return err
}
