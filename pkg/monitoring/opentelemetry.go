package monitoring

import (
	"context"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

type Monitoring interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

type openTelemetry struct {
	serviceName string
	environment string
	projectID   string
	provider    *sdktrace.TracerProvider
}

func NewOpenTelemetry(serviceName, environment, projectID string) Monitoring {
	return &openTelemetry{
		serviceName: serviceName,
		environment: environment,
		projectID:   projectID,
	}
}

// Start installs the global tracer provider. Without a GCP project the
// provider still samples so local spans propagate, it just exports nowhere.
func (o *openTelemetry) Start(ctx context.Context) {
	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(o.serviceName),
			attribute.String("environment", o.environment),
		),
	)

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if o.projectID != "" {
		exporter, err := texporter.New(texporter.WithProjectID(o.projectID))
		if err == nil {
			opts = append(opts, sdktrace.WithBatcher(exporter))
		}
	}

	o.provider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(o.provider)
}

func (o *openTelemetry) Stop(ctx context.Context) {
	if o.provider == nil {
		return
	}

	_ = o.provider.Shutdown(ctx)
}
