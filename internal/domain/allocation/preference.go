package allocation

// ComparePreference ranks batches for allocation and is meant for
// slices.SortStableFunc. Batches already in stock come before batches with an
// ETA, and batches with an ETA are ordered soonest first. Two in-stock batches
// compare equal so a stable sort keeps their input order.
//
// This is a ranking only. Two batches that compare equal are not the same batch.
func ComparePreference(a, b *Batch) int {
	switch {
	case a.ETA == nil && b.ETA == nil:
		return 0
	case a.ETA == nil:
		return -1
	case b.ETA == nil:
		return 1
	default:
		return a.ETA.Compare(*b.ETA)
	}
}
