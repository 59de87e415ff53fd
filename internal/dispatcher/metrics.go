package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tarkov-dev/site/internal/dispatcher"

// instruments are taken from the global meter provider, which is a no-op until the OTel
// provider installs its own.
type instruments struct {
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
	queueSize metric.Int64ObservableGauge
}

func newInstruments() (*instruments, error) {
	m := otel.Meter(instrumentationName)
	var (
		ins instruments
		err error
	)
	if ins.processed, err = m.Int64Counter("dispatcher.events.processed",
		metric.WithDescription("Events handled by a queue worker")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if ins.dropped, err = m.Int64Counter("dispatcher.events.dropped",
		metric.WithDescription("Events rejected because the queue was full")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if ins.failed, err = m.Int64Counter("dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error")); err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}
	if ins.duration, err = m.Float64Histogram("dispatcher.event.duration",
		metric.WithDescription("Handler run time"), metric.WithUnit("ms")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	if ins.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Events waiting in a queue")); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	return &ins, nil
}

// observeQueues reports the depth of every queue on each collection.
func (ins *instruments) observeQueues(depths func() map[string]int) (metric.Registration, error) {
	return otel.Meter(instrumentationName).RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			for cmd, n := range depths() {
				o.ObserveInt64(ins.queueSize, int64(n), metric.WithAttributes(commandAttr(cmd)))
			}
			return nil
		},
		ins.queueSize,
	)
}

func commandAttr(command string) attribute.KeyValue {
	return attribute.String("command", command)
}
