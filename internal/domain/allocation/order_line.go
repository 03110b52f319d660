// Package allocation holds the batch allocation rule: which stock batch an
// order line is committed against, and how batches are ranked for that choice.
package allocation

// OrderLine is a request for a quantity of a SKU on behalf of an order.
// It is a comparable value: two lines with the same OrderID, SKU and Qty are
// the same line, which is what gives batch allocations their set semantics.
type OrderLine struct {
	OrderID string
	SKU     string
	Qty     int
}

// NewOrderLine creates an order line. Quantities are not range-checked; a zero
// line allocates without effect and a negative one adds back to the batch.
func NewOrderLine(orderID, sku string, qty int) OrderLine {
	return OrderLine{
		OrderID: orderID,
		SKU:     sku,
		Qty:     qty,
	}
}
