package observe

import (
	"context"
	"errors"
	"testing"
)

func validConfig() Config {
	return Config{
		ServiceName: "pipecache-test",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, ErrMissingServiceName},
		{"unknown tracing exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }, ErrInvalidTracingExporter},
		{"unknown metrics exporter", func(c *Config) { c.Metrics.Exporter = "statsd" }, ErrInvalidMetricsExporter},
		{"sample pct above range", func(c *Config) { c.Tracing.SamplePct = 1.5 }, ErrInvalidSamplePct},
		{"sample pct below range", func(c *Config) { c.Tracing.SamplePct = -0.1 }, ErrInvalidSamplePct},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"disabled tracing not checked", func(c *Config) {
			c.Tracing = TracingConfig{Enabled: false, Exporter: "zipkin", SamplePct: 7}
		}, nil},
		{"disabled metrics not checked", func(c *Config) {
			c.Metrics = MetricsConfig{Enabled: false, Exporter: "statsd"}
		}, nil},
		{"empty log level allowed", func(c *Config) { c.Logging.Level = "" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_InvalidConfig(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Fatalf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_Enabled(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Exporter = "none"
	cfg.Metrics.Exporter = "none"

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	}()

	ctx, span := obs.Tracer().Start(context.Background(), "check")
	if !span.SpanContext().IsValid() {
		t.Error("enabled tracing should produce recording spans")
	}
	span.End()

	counter, err := obs.Meter().Int64Counter("check")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(ctx, 1)

	if _, ok := obs.Logger().(*jsonLogger); !ok {
		t.Errorf("Logger() = %T, want *jsonLogger", obs.Logger())
	}
}

func TestNewObserver_SamplingBounds(t *testing.T) {
	for _, pct := range []float64{0, 0.5, 1} {
		cfg := validConfig()
		cfg.Tracing.Exporter = "none"
		cfg.Tracing.SamplePct = pct
		cfg.Metrics.Enabled = false

		obs, err := NewObserver(context.Background(), cfg)
		if err != nil {
			t.Fatalf("NewObserver(%v) error = %v", pct, err)
		}
		_, span := obs.Tracer().Start(context.Background(), "check")
		sampled := span.SpanContext().IsSampled()
		span.End()

		if pct == 0 && sampled {
			t.Error("0.0 sampling should drop every span")
		}
		if pct == 1 && !sampled {
			t.Error("1.0 sampling should keep every span")
		}
		_ = obs.Shutdown(context.Background())
	}
}

func TestNewObserver_ExporterError(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_JAEGER_ENDPOINT", "")

	cfg := validConfig()
	cfg.Tracing.Exporter = "jaeger"

	if _, err := NewObserver(context.Background(), cfg); err == nil {
		t.Fatal("expected error when the jaeger endpoint is not configured")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.Exporter = "none"
	cfg.Metrics.Exporter = "none"

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Fatalf("first Shutdown() error = %v", err)
	}
	_ = obs.Shutdown(context.Background())
}
