package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newRecordingMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// findMetric finds a metric by name in ResourceMetrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	m := findMetric(rm, name)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s is %T, want Sum[int64]", name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewMetrics_NilMeter(t *testing.T) {
	if _, err := NewMetrics(nil); !errors.Is(err, ErrNilMeter) {
		t.Fatalf("NewMetrics(nil) error = %v, want ErrNilMeter", err)
	}
}

func TestMetrics_RecordLookup(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	meta := SiteMeta{Handler: "users.get"}
	ctx := context.Background()

	m.RecordLookup(ctx, meta, true)
	m.RecordLookup(ctx, meta, true)
	m.RecordLookup(ctx, meta, false)

	rm := collect(t, reader)
	if got := counterValue(t, rm, "cache.lookup.total"); got != 3 {
		t.Errorf("cache.lookup.total = %d, want 3", got)
	}
	if got := counterValue(t, rm, "cache.lookup.hits"); got != 2 {
		t.Errorf("cache.lookup.hits = %d, want 2", got)
	}
	if got := counterValue(t, rm, "cache.lookup.misses"); got != 1 {
		t.Errorf("cache.lookup.misses = %d, want 1", got)
	}
}

func TestMetrics_LookupAttributes(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	m.RecordLookup(context.Background(), SiteMeta{Handler: "users.get", Profile: "fast"}, true)

	rm := collect(t, reader)
	sum := findMetric(rm, "cache.lookup.hits").Data.(metricdata.Sum[int64])
	if len(sum.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(sum.DataPoints))
	}
	set := sum.DataPoints[0].Attributes
	if v, ok := set.Value(attribute.Key("cache.site")); !ok || v.AsString() != "users.get" {
		t.Errorf("cache.site = %v", v)
	}
	if v, ok := set.Value(attribute.Key("cache.profile")); !ok || v.AsString() != "fast" {
		t.Errorf("cache.profile = %v", v)
	}
}

func TestMetrics_RecordHandler(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	meta := SiteMeta{Handler: "users.get"}
	ctx := context.Background()

	m.RecordHandler(ctx, meta, 25*time.Millisecond, nil)
	m.RecordHandler(ctx, meta, 75*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := counterValue(t, rm, "cache.handler.errors"); got != 1 {
		t.Errorf("cache.handler.errors = %d, want 1", got)
	}

	hist := findMetric(rm, "cache.handler.duration_ms")
	if hist == nil {
		t.Fatal("cache.handler.duration_ms not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("duration is %T, want Histogram[float64]", hist.Data)
	}
	var count uint64
	var total float64
	for _, dp := range data.DataPoints {
		count += dp.Count
		total += dp.Sum
	}
	if count != 2 || total != 100 {
		t.Errorf("histogram count=%d sum=%v, want 2 and 100", count, total)
	}
}

func TestMetrics_RecordStoreError(t *testing.T) {
	m, reader := newRecordingMetrics(t)
	m.RecordStoreError(context.Background(), SiteMeta{Handler: "users.get"})

	if got := counterValue(t, collect(t, reader), "cache.store.errors"); got != 1 {
		t.Errorf("cache.store.errors = %d, want 1", got)
	}
}
