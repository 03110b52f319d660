package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/erp/allocation/internal/domain/shared"
	"github.com/erp/allocation/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testScenario = `
[[batches]]
reference = "batch-002"
sku = "SMALL-TABLE"
qty = 20
eta = "2026-10-15"

[[batches]]
reference = "batch-001"
sku = "SMALL-TABLE"
qty = 10

[[lines]]
order_id = "order-001"
sku = "SMALL-TABLE"
qty = 5

[[lines]]
order_id = "order-002"
sku = "LARGE-TABLE"
qty = 10

[[lines]]
order_id = "order-003"
sku = "SMALL-TABLE"
qty = 8
`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.toml")
	require.NoError(t, os.WriteFile(path, []byte(testScenario), 0o600))
	return path
}

func TestRun(t *testing.T) {
	var out bytes.Buffer
	cfg := config.AllocationConfig{ScenarioPath: writeScenario(t)}

	report, err := run(context.Background(), cfg, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Equal(t, runReport{Allocated: 2, Failed: 1}, report)
	assert.Equal(t, `order-001 SMALL-TABLE x5 -> batch-001
order-002 LARGE-TABLE x10 -> OUT OF STOCK
order-003 SMALL-TABLE x8 -> batch-002

batch-002 SMALL-TABLE 12/20 available (eta 2026-10-15)
batch-001 SMALL-TABLE 5/10 available (in stock)
`, out.String())
}

func TestRun_StopOnOutOfStock(t *testing.T) {
	var out bytes.Buffer
	cfg := config.AllocationConfig{ScenarioPath: writeScenario(t), StopOnOutOfStock: true}

	report, err := run(context.Background(), cfg, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Equal(t, runReport{Allocated: 1, Failed: 1, Skipped: 1}, report)
	assert.NotContains(t, out.String(), "order-003")
	assert.Contains(t, out.String(), "batch-002 SMALL-TABLE 20/20 available")
}

func TestRun_MissingScenario(t *testing.T) {
	cfg := config.AllocationConfig{ScenarioPath: filepath.Join(t.TempDir(), "missing.toml")}

	_, err := run(context.Background(), cfg, zap.NewNop(), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestRun_PrintMetrics(t *testing.T) {
	var out bytes.Buffer
	cfg := config.AllocationConfig{ScenarioPath: writeScenario(t), PrintMetrics: true}

	_, err := run(context.Background(), cfg, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), `batch-001 SMALL-TABLE 5/10 available (in stock)

allocation_batch_available_quantity{batch_ref=batch-001,sku=SMALL-TABLE} 5
allocation_batch_available_quantity{batch_ref=batch-002,sku=SMALL-TABLE} 12
allocation_quantity_total{sku=SMALL-TABLE} 13
allocation_requests_total{result=allocated,sku=SMALL-TABLE} 2
allocation_requests_total{result=out_of_stock,sku=LARGE-TABLE} 1
`)
}

func TestRun_LogsAndTracesThroughContext(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config.AllocationConfig{ScenarioPath: writeScenario(t)}

	_, err := run(context.Background(), cfg, zap.New(core), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 2, logs.FilterMessage("allocation succeeded").Len())
	assert.Equal(t, 1, logs.FilterMessage("allocation failed: out of stock").Len())
	complete := logs.FilterMessage("scenario complete").All()
	require.Len(t, complete, 1)
	assert.NotEmpty(t, complete[0].ContextMap()["trace_id"])

	var runSpan sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == "allocate.run" {
			runSpan = s
		}
	}
	require.NotNil(t, runSpan)
	assert.Equal(t, codes.Ok, runSpan.Status().Code)
	attrs := map[string]int64{}
	for _, kv := range runSpan.Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInt64()
	}
	assert.Equal(t, int64(2), attrs["allocated"])
	assert.Equal(t, int64(1), attrs["failed"])
	assert.Len(t, sr.Ended(), 4)
}
