package telemetry

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// DefaultServiceName is reported when no service name is configured
const DefaultServiceName = "woowms-sync"

// shutdownTimeout bounds each provider's final flush
const shutdownTimeout = 10 * time.Second

// Collector describes the OTLP gRPC collector every signal exports to and
// the service identity attached to exported data.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

func (c Collector) resource() (*resource.Resource, error) {
	name := c.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	return res, nil
}
