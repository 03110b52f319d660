package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func today() *time.Time {
	d := time.Now().Truncate(24 * time.Hour)
	return &d
}

func daysFromToday(n int) *time.Time {
	d := today().AddDate(0, 0, n)
	return &d
}

func TestBatch_NewBatch(t *testing.T) {
	eta := today()
	batch := NewBatch("batch-001", "SMALL-TABLE", 20, eta)

	assert.Equal(t, "batch-001", batch.Reference)
	assert.Equal(t, "SMALL-TABLE", batch.SKU)
	assert.Equal(t, eta, batch.ETA)
	assert.Equal(t, 20, batch.PurchasedQuantity())
	assert.Equal(t, 20, batch.AvailableQuantity())
	assert.Zero(t, batch.AllocatedQuantity())
	assert.Empty(t, batch.Allocations())
	assert.False(t, batch.InStock())
}

func TestBatch_Allocate(t *testing.T) {
	tests := []struct {
		name          string
		line          OrderLine
		wantAvailable int
		wantAllocated bool
	}{
		{
			name:          "reduces the available quantity",
			line:          NewOrderLine("order-ref", "SMALL-TABLE", 2),
			wantAvailable: 18,
			wantAllocated: true,
		},
		{
			name:          "different sku does not change available quantity",
			line:          NewOrderLine("order-ref", "LARGE-TABLE", 2),
			wantAvailable: 20,
		},
		{
			name:          "quantity greater than available does not change available quantity",
			line:          NewOrderLine("order-ref", "SMALL-TABLE", 25),
			wantAvailable: 20,
		},
		{
			name:          "zero quantity does not change available quantity",
			line:          NewOrderLine("order-ref", "SMALL-TABLE", 0),
			wantAvailable: 20,
			wantAllocated: true,
		},
		{
			name:          "exact quantity exhausts the batch",
			line:          NewOrderLine("order-ref", "SMALL-TABLE", 20),
			wantAvailable: 0,
			wantAllocated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := NewBatch("batch-001", "SMALL-TABLE", 20, today())

			batch.Allocate(tt.line)

			assert.Equal(t, tt.wantAvailable, batch.AvailableQuantity())
			assert.Equal(t, tt.wantAllocated, batch.IsAllocated(tt.line))
		})
	}
}

func TestBatch_Allocate_IsIdempotent(t *testing.T) {
	batch := NewBatch("batch-001", "SMALL-TABLE", 20, today())
	line := NewOrderLine("order-ref", "SMALL-TABLE", 2)

	batch.Allocate(line)
	batch.Allocate(line)

	assert.Equal(t, 18, batch.AvailableQuantity())
	assert.Len(t, batch.Allocations(), 1)
}

func TestBatch_Allocate_DistinctLinesWithSameQuantity(t *testing.T) {
	batch := NewBatch("batch-001", "SMALL-TABLE", 20, nil)

	batch.Allocate(NewOrderLine("order-1", "SMALL-TABLE", 2))
	batch.Allocate(NewOrderLine("order-2", "SMALL-TABLE", 2))

	assert.Equal(t, 16, batch.AvailableQuantity())
	assert.Equal(t, 4, batch.AllocatedQuantity())
}

func TestBatch_CanAllocate(t *testing.T) {
	batch := NewBatch("batch-001", "SMALL-TABLE", 20, nil)

	t.Run("matching sku within available quantity", func(t *testing.T) {
		assert.True(t, batch.CanAllocate(NewOrderLine("o", "SMALL-TABLE", 20)))
	})

	t.Run("matching sku above available quantity", func(t *testing.T) {
		assert.False(t, batch.CanAllocate(NewOrderLine("o", "SMALL-TABLE", 21)))
	})

	t.Run("mismatched sku", func(t *testing.T) {
		assert.False(t, batch.CanAllocate(NewOrderLine("o", "LARGE-TABLE", 1)))
	})

	t.Run("reflects allocations already made", func(t *testing.T) {
		b := NewBatch("batch-002", "SMALL-TABLE", 20, nil)
		b.Allocate(NewOrderLine("first", "SMALL-TABLE", 15))

		assert.True(t, b.CanAllocate(NewOrderLine("second", "SMALL-TABLE", 5)))
		assert.False(t, b.CanAllocate(NewOrderLine("second", "SMALL-TABLE", 6)))
	})
}

func TestBatch_Deallocate(t *testing.T) {
	t.Run("restores available quantity", func(t *testing.T) {
		batch := NewBatch("batch-001", "SMALL-TABLE", 20, nil)
		line := NewOrderLine("order-ref", "SMALL-TABLE", 2)

		batch.Allocate(line)
		batch.Deallocate(line)

		assert.Equal(t, 20, batch.AvailableQuantity())
		assert.False(t, batch.IsAllocated(line))
	})

	t.Run("ignores lines that were never allocated", func(t *testing.T) {
		batch := NewBatch("batch-001", "SMALL-TABLE", 20, nil)
		batch.Allocate(NewOrderLine("kept", "SMALL-TABLE", 5))

		batch.Deallocate(NewOrderLine("unknown", "SMALL-TABLE", 5))

		assert.Equal(t, 15, batch.AvailableQuantity())
	})
}

func TestBatch_ZeroValue(t *testing.T) {
	var batch Batch
	batch.SKU = "LAMP"
	line := NewOrderLine("order-ref", "LAMP", 0)

	assert.NotPanics(t, func() {
		batch.Deallocate(line)
		batch.Allocate(line)
	})
	assert.True(t, batch.IsAllocated(line))
	assert.Zero(t, batch.AvailableQuantity())
}

func TestBatch_NegativeQuantityLine(t *testing.T) {
	batch := NewBatch("batch-001", "SMALL-TABLE", 10, nil)

	batch.Allocate(NewOrderLine("refund", "SMALL-TABLE", -3))

	// Unchecked input: the batch ends up with more than it was bought with.
	assert.Equal(t, 13, batch.AvailableQuantity())
}

func TestBatch_Allocations_AreSortedCopies(t *testing.T) {
	batch := NewBatch("batch-001", "SMALL-TABLE", 20, nil)
	batch.Allocate(NewOrderLine("order-b", "SMALL-TABLE", 1))
	batch.Allocate(NewOrderLine("order-a", "SMALL-TABLE", 2))

	lines := batch.Allocations()
	assert.Equal(t, []OrderLine{
		{OrderID: "order-a", SKU: "SMALL-TABLE", Qty: 2},
		{OrderID: "order-b", SKU: "SMALL-TABLE", Qty: 1},
	}, lines)

	lines[0].Qty = 99
	assert.Equal(t, 17, batch.AvailableQuantity())
}

func TestComparePreference(t *testing.T) {
	inStock := NewBatch("in-stock", "SKU", 1, nil)
	alsoInStock := NewBatch("also-in-stock", "SKU", 1, nil)
	tomorrow := NewBatch("tomorrow", "SKU", 1, daysFromToday(1))
	later := NewBatch("later", "SKU", 1, daysFromToday(10))

	assert.Negative(t, ComparePreference(inStock, tomorrow))
	assert.Positive(t, ComparePreference(tomorrow, inStock))
	assert.Negative(t, ComparePreference(tomorrow, later))
	assert.Positive(t, ComparePreference(later, tomorrow))
	assert.Zero(t, ComparePreference(inStock, alsoInStock))
	assert.Zero(t, ComparePreference(later, NewBatch("same-day", "SKU", 1, daysFromToday(10))))
}
