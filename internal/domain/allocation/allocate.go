package allocation

import (
	"fmt"
	"slices"

	"github.com/erp/allocation/internal/domain/shared"
)

// OutOfStockError is returned by Allocate when no batch can take the line
type OutOfStockError struct {
	SKU string
}

// Error implements the error interface
func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("Out of stock for sku %s", e.SKU)
}

// Unwrap lets errors.Is match shared.ErrOutOfStock
func (e *OutOfStockError) Unwrap() error {
	return shared.ErrOutOfStock
}

// Allocate commits the line to the most preferred batch that can take it and
// returns that batch's reference. Batches are ranked with ComparePreference and
// the first one that can allocate the line wins; later batches are not
// considered. When none can, no batch is touched and an *OutOfStockError is
// returned.
//
// The batches slice itself is not reordered. Nil entries are skipped.
func Allocate(line OrderLine, batches []*Batch) (string, error) {
	b, err := AllocateBatch(line, batches)
	if err != nil {
		return "", err
	}
	return b.Reference, nil
}

// AllocateBatch is Allocate returning the chosen batch itself
func AllocateBatch(line OrderLine, batches []*Batch) (*Batch, error) {
	ranked := make([]*Batch, 0, len(batches))
	for _, b := range batches {
		if b != nil {
			ranked = append(ranked, b)
		}
	}
	slices.SortStableFunc(ranked, ComparePreference)

	for _, b := range ranked {
		if b.CanAllocate(line) {
			b.Allocate(line)
			return b, nil
		}
	}
	return nil, &OutOfStockError{SKU: line.SKU}
}

// Deallocate releases the line from the batch holding it and returns that
// batch's reference. It returns false if no batch holds the line.
func Deallocate(line OrderLine, batches []*Batch) (string, bool) {
	b, ok := DeallocateBatch(line, batches)
	if !ok {
		return "", false
	}
	return b.Reference, true
}

// DeallocateBatch is Deallocate returning the batch that held the line
func DeallocateBatch(line OrderLine, batches []*Batch) (*Batch, bool) {
	for _, b := range batches {
		if b != nil && b.IsAllocated(line) {
			b.Deallocate(line)
			return b, true
		}
	}
	return nil, false
}
