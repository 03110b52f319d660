// Package allocation is the application layer over the allocation domain: it
// runs the allocation rule with logging, tracing and a result DTO.
package allocation

import (
	"context"
	"errors"

	"github.com/erp/allocation/internal/domain/allocation"
	"github.com/erp/allocation/internal/infrastructure/logger"
	"github.com/erp/allocation/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const serviceName = "allocation"

// AllocationService allocates order lines against caller-owned batches.
// It holds no batch state; callers serialize access to the batches they pass.
type AllocationService struct {
	logger  *zap.Logger
	metrics *telemetry.AllocationMetrics
}

// ServiceOption configures an AllocationService
type ServiceOption func(*AllocationService)

// WithMetrics records allocation outcomes on the given metrics.
func WithMetrics(m *telemetry.AllocationMetrics) ServiceOption {
	return func(s *AllocationService) {
		s.metrics = m
	}
}

// NewAllocationService creates a new allocation service. With a nil logger
// the service logs through the logger carried in each call's context.
func NewAllocationService(log *zap.Logger, opts ...ServiceOption) *AllocationService {
	s := &AllocationService{logger: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allocate commits the line to the preferred batch that can take it.
// On failure it returns the domain *allocation.OutOfStockError unchanged.
func (s *AllocationService) Allocate(
	ctx context.Context,
	line allocation.OrderLine,
	batches []*allocation.Batch,
) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "allocate",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, line.OrderID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, line.SKU),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, line.Qty),
		telemetry.WithAttribute(telemetry.SpanAttrBatchCount, len(batches)),
	)
	defer span.End()

	correlationID := uuid.New()
	ctx = logger.WithCorrelationID(ctx, correlationID.String())
	log := s.log(ctx)

	batch, err := allocation.AllocateBatch(line, batches)
	if err != nil {
		telemetry.RecordError(span, err)
		var oos *allocation.OutOfStockError
		if errors.As(err, &oos) {
			if s.metrics != nil {
				s.metrics.RecordOutOfStock(ctx, oos.SKU)
			}
			log.Warn("allocation failed: out of stock",
				zap.String("order_id", line.OrderID),
				zap.String("sku", oos.SKU),
				zap.Int("qty", line.Qty),
				zap.Int("batch_count", len(batches)),
			)
		} else {
			log.Error("allocation failed", zap.Error(err))
		}
		return nil, err
	}

	ref := batch.Reference
	available := batch.AvailableQuantity()

	if s.metrics != nil {
		s.metrics.RecordAllocated(ctx, line.SKU, ref, line.Qty, available)
	}
	telemetry.AddEvent(span, "batch_allocated",
		telemetry.SpanAttrBatchReference, ref,
		telemetry.SpanAttrAvailableAfter, available,
	)
	telemetry.SetOK(span)
	log.Info("allocation succeeded",
		zap.String("order_id", line.OrderID),
		zap.String("sku", line.SKU),
		zap.Int("qty", line.Qty),
		zap.String("batch_reference", ref),
		zap.Int("available_after", available),
	)

	return &AllocationResult{
		CorrelationID:  correlationID,
		TraceID:        telemetry.GetTraceID(ctx),
		OrderID:        line.OrderID,
		SKU:            line.SKU,
		Quantity:       line.Qty,
		BatchReference: ref,
		AvailableAfter: available,
	}, nil
}

// Deallocate releases the line from whichever batch holds it and returns that
// batch's reference, or false if no batch holds it.
func (s *AllocationService) Deallocate(
	ctx context.Context,
	line allocation.OrderLine,
	batches []*allocation.Batch,
) (string, bool) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, "deallocate",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, line.OrderID),
		telemetry.WithAttribute(telemetry.SpanAttrSKU, line.SKU),
	)
	defer span.End()

	batch, ok := allocation.DeallocateBatch(line, batches)
	log := s.log(ctx)
	if !ok {
		log.Debug("deallocation skipped: line not allocated",
			zap.String("order_id", line.OrderID),
			zap.String("sku", line.SKU),
		)
		return "", false
	}

	ref := batch.Reference
	telemetry.SetAttribute(span, telemetry.SpanAttrBatchReference, ref)
	if s.metrics != nil {
		s.metrics.RecordDeallocated(ctx, line.SKU, ref, batch.AvailableQuantity())
	}
	log.Info("line deallocated",
		zap.String("order_id", line.OrderID),
		zap.String("sku", line.SKU),
		zap.Int("qty", line.Qty),
		zap.String("batch_reference", ref),
	)
	return ref, true
}

func (s *AllocationService) log(ctx context.Context) *logger.ContextLogger {
	if s.logger == nil {
		return logger.L(ctx)
	}
	return logger.WithLogger(ctx, s.logger)
}
