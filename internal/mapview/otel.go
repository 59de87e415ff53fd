package mapview

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tarkov-dev/site/internal/mapview"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
