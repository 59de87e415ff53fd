package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarkov-dev/site/internal/config"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.LoggerProvider())
	assert.NotNil(t, p.Meter("test"))
	assert.NoError(t, p.Flush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EnabledWithoutOutputs(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "svc", BatchTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log writer or endpoint")
}

func TestNew_EnabledWithWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, ServiceName: "svc", BatchTimeout: time.Second, LogWriter: &buf})
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.NotNil(t, p.LoggerProvider())
	assert.NotNil(t, p.meterProvider)

	counter, err := p.Meter("test").Int64Counter("test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Flush(context.Background()))
	assert.Contains(t, buf.String(), "test.events")
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_EndpointOnlyHasNoMeterProvider(t *testing.T) {
	p, err := New(Config{Enabled: true, ServiceName: "svc", BatchTimeout: time.Second, Endpoint: "localhost:4318", Insecure: true})
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	assert.NotNil(t, p.LoggerProvider())
	assert.Nil(t, p.meterProvider)
	assert.NotNil(t, p.Meter("test"))
}

func TestFromConfig(t *testing.T) {
	var buf bytes.Buffer
	cfg := FromConfig(config.OTelConfig{
		Enabled:        true,
		ServiceName:    "tarkov-dev",
		BatchTimeout:   5 * time.Second,
		MetricInterval: 30 * time.Second,
		Endpoint:       "localhost:4318",
		Insecure:       true,
	}, &buf)

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "tarkov-dev", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 30*time.Second, cfg.MetricInterval)
	assert.Equal(t, "localhost:4318", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Same(t, &buf, cfg.LogWriter)
}
