package allocation

import (
	"cmp"
	"slices"
	"time"
)

// Batch is a lot of stock for one SKU. ETA is nil when the stock is already
// on hand. Allocated lines are tracked as a set, so the available quantity is
// always derived from them and never stored.
type Batch struct {
	Reference string
	SKU       string
	ETA       *time.Time

	purchasedQuantity int
	allocations       map[OrderLine]struct{}
}

// NewBatch creates a batch with no allocations. qty is taken as given.
func NewBatch(ref, sku string, qty int, eta *time.Time) *Batch {
	return &Batch{
		Reference:         ref,
		SKU:               sku,
		ETA:               eta,
		purchasedQuantity: qty,
		allocations:       make(map[OrderLine]struct{}),
	}
}

// PurchasedQuantity returns the quantity the batch was bought with
func (b *Batch) PurchasedQuantity() int {
	return b.purchasedQuantity
}

// AllocatedQuantity returns the sum of quantities of all allocated lines
func (b *Batch) AllocatedQuantity() int {
	total := 0
	for line := range b.allocations {
		total += line.Qty
	}
	return total
}

// AvailableQuantity returns the purchased quantity minus everything allocated
func (b *Batch) AvailableQuantity() int {
	return b.purchasedQuantity - b.AllocatedQuantity()
}

// InStock returns true if the batch has no ETA
func (b *Batch) InStock() bool {
	return b.ETA == nil
}

// CanAllocate returns true if the line is for this batch's SKU and fits in
// the available quantity.
func (b *Batch) CanAllocate(line OrderLine) bool {
	return line.SKU == b.SKU && line.Qty <= b.AvailableQuantity()
}

// Allocate commits the line against the batch. It does nothing if the line
// cannot be allocated or is already allocated here.
func (b *Batch) Allocate(line OrderLine) {
	if !b.CanAllocate(line) {
		return
	}
	if b.allocations == nil {
		b.allocations = make(map[OrderLine]struct{})
	}
	b.allocations[line] = struct{}{}
}

// Deallocate releases the line if it is allocated to this batch
func (b *Batch) Deallocate(line OrderLine) {
	delete(b.allocations, line)
}

// IsAllocated returns true if the line is currently allocated to this batch
func (b *Batch) IsAllocated(line OrderLine) bool {
	_, ok := b.allocations[line]
	return ok
}

// Allocations returns a copy of the allocated lines ordered by order ID, SKU
// and quantity.
func (b *Batch) Allocations() []OrderLine {
	lines := make([]OrderLine, 0, len(b.allocations))
	for line := range b.allocations {
		lines = append(lines, line)
	}
	slices.SortFunc(lines, func(x, y OrderLine) int {
		return cmp.Or(
			cmp.Compare(x.OrderID, y.OrderID),
			cmp.Compare(x.SKU, y.SKU),
			cmp.Compare(x.Qty, y.Qty),
		)
	})
	return lines
}
