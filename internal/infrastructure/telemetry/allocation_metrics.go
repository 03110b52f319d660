package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Allocation outcomes used as the result attribute.
const (
	ResultAllocated  = "allocated"
	ResultOutOfStock = "out_of_stock"
)

// Metric attribute keys
const (
	MetricAttrSKU      = attribute.Key("sku")
	MetricAttrResult   = attribute.Key("result")
	MetricAttrBatchRef = attribute.Key("batch_ref")
)

// AllocationMetrics tracks allocation outcomes and the remaining quantity of
// batches touched by allocation.
type AllocationMetrics struct {
	allocationsTotal   *Counter
	allocatedQuantity  *Counter
	deallocationsTotal *Counter
	batchAvailable     *Gauge
}

// NewAllocationMetrics creates the allocation instruments on the given meter.
func NewAllocationMetrics(meter metric.Meter) (*AllocationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	am := &AllocationMetrics{}

	var err error
	am.allocationsTotal, err = NewCounter(
		meter,
		"allocation_requests_total",
		"Total number of allocation attempts by result",
		"{requests}",
	)
	if err != nil {
		return nil, err
	}

	am.allocatedQuantity, err = NewCounter(
		meter,
		"allocation_quantity_total",
		"Total units committed to batches",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	am.deallocationsTotal, err = NewCounter(
		meter,
		"allocation_deallocations_total",
		"Total number of lines released from batches",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	am.batchAvailable, err = NewGauge(
		meter,
		"allocation_batch_available_quantity",
		"Available quantity of a batch after its last change",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	return am, nil
}

// RecordAllocated records a successful allocation and the chosen batch's
// remaining quantity.
func (am *AllocationMetrics) RecordAllocated(ctx context.Context, sku, batchRef string, qty, availableAfter int) {
	am.allocationsTotal.Inc(ctx,
		MetricAttrSKU.String(sku),
		MetricAttrResult.String(ResultAllocated),
	)
	am.allocatedQuantity.Add(ctx, int64(qty), MetricAttrSKU.String(sku))
	am.RecordBatchAvailable(ctx, sku, batchRef, availableAfter)
}

// RecordOutOfStock records an allocation that no batch could take.
func (am *AllocationMetrics) RecordOutOfStock(ctx context.Context, sku string) {
	am.allocationsTotal.Inc(ctx,
		MetricAttrSKU.String(sku),
		MetricAttrResult.String(ResultOutOfStock),
	)
}

// RecordDeallocated records a released line and the batch's new remaining quantity.
func (am *AllocationMetrics) RecordDeallocated(ctx context.Context, sku, batchRef string, availableAfter int) {
	am.deallocationsTotal.Inc(ctx, MetricAttrSKU.String(sku))
	am.RecordBatchAvailable(ctx, sku, batchRef, availableAfter)
}

// RecordBatchAvailable sets the available quantity gauge for one batch.
func (am *AllocationMetrics) RecordBatchAvailable(ctx context.Context, sku, batchRef string, available int) {
	am.batchAvailable.Record(ctx, int64(available),
		MetricAttrSKU.String(sku),
		MetricAttrBatchRef.String(batchRef),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewAllocationMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
