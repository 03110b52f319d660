package allocation

import "github.com/google/uuid"

// AllocationResult describes a committed allocation
type AllocationResult struct {
	// CorrelationID identifies this allocation call in logs and traces
	CorrelationID uuid.UUID `json:"correlation_id"`
	// TraceID is the trace of the allocate span, empty when tracing is off
	TraceID string `json:"trace_id,omitempty"`

	OrderID  string `json:"order_id"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`

	// BatchReference is the batch the line was committed to
	BatchReference string `json:"batch_reference"`

	// AvailableAfter is the batch's available quantity after the allocation
	AvailableAfter int `json:"available_after"`
}
