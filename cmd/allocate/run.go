package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	appalloc "github.com/erp/allocation/internal/application/allocation"
	"github.com/erp/allocation/internal/domain/allocation"
	"github.com/erp/allocation/internal/infrastructure/config"
	"github.com/erp/allocation/internal/infrastructure/logger"
	"github.com/erp/allocation/internal/infrastructure/scenario"
	"github.com/erp/allocation/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// runReport counts the outcome of a scenario run
type runReport struct {
	Allocated int
	Failed    int
	Skipped   int
}

// run allocates every line of the configured scenario in file order and
// writes one result line per order line, then a summary per batch.
func run(ctx context.Context, cfg config.AllocationConfig, log *zap.Logger, out io.Writer) (report runReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "allocate.run",
		telemetry.WithAttribute(telemetry.SpanAttrScenario, cfg.ScenarioPath),
	)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()
	ctx = logger.WithContext(ctx, log)

	sc, err := scenario.LoadFile(cfg.ScenarioPath)
	if err != nil {
		return report, err
	}

	var (
		meter  metric.Meter
		reader *sdkmetric.ManualReader
	)
	if cfg.PrintMetrics {
		reader = sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()
		meter = mp.Meter(telemetry.MeterName)
	} else {
		meter = otel.GetMeterProvider().Meter(telemetry.MeterName)
	}
	metrics, err := telemetry.NewAllocationMetrics(meter)
	if err != nil {
		return report, err
	}

	batches := sc.Batches()
	lines := sc.Lines()
	svc := appalloc.NewAllocationService(nil, appalloc.WithMetrics(metrics))

	for i, line := range lines {
		result, err := svc.Allocate(ctx, line, batches)
		if err != nil {
			var oos *allocation.OutOfStockError
			if !errors.As(err, &oos) {
				return report, err
			}
			report.Failed++
			fmt.Fprintf(out, "%s %s x%d -> OUT OF STOCK\n", line.OrderID, line.SKU, line.Qty)
			if cfg.StopOnOutOfStock {
				report.Skipped = len(lines) - i - 1
				break
			}
			continue
		}
		report.Allocated++
		fmt.Fprintf(out, "%s %s x%d -> %s\n", line.OrderID, line.SKU, line.Qty, result.BatchReference)
	}

	fmt.Fprintln(out)
	for _, b := range batches {
		eta := "in stock"
		if b.ETA != nil {
			eta = "eta " + b.ETA.Format(scenario.DateLayout)
		}
		fmt.Fprintf(out, "%s %s %d/%d available (%s)\n",
			b.Reference, b.SKU, b.AvailableQuantity(), b.PurchasedQuantity(), eta)
	}

	if reader != nil {
		if err := writeMetrics(ctx, out, reader); err != nil {
			return report, err
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrAllocated, report.Allocated,
		telemetry.SpanAttrFailed, report.Failed,
		telemetry.SpanAttrSkipped, report.Skipped,
	)
	telemetry.SetOK(span)
	logger.L(ctx).Info("scenario complete",
		zap.String("scenario", cfg.ScenarioPath),
		zap.Int("allocated", report.Allocated),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// writeMetrics prints every collected integer data point as
// name{key=value,...} value, sorted.
func writeMetrics(ctx context.Context, out io.Writer, reader *sdkmetric.ManualReader) error {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	var rows []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			}
			for _, dp := range points {
				rows = append(rows, fmt.Sprintf("%s{%s} %d", m.Name, formatAttributes(dp.Attributes), dp.Value))
			}
		}
	}
	slices.Sort(rows)

	fmt.Fprintln(out)
	for _, row := range rows {
		fmt.Fprintln(out, row)
	}
	return nil
}

func formatAttributes(set attribute.Set) string {
	parts := make([]string, 0, set.Len())
	for _, kv := range set.ToSlice() {
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	return strings.Join(parts, ",")
}
