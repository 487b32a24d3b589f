package tracing

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/johsantss21/Thays-admin/pkg/config"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "thays-api", config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTextMapPropagator() == nil {
		t.Fatalf("expected propagator to be installed")
	}
}
