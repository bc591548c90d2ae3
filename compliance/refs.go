package compliance

// =============================================================================
// REFERENCE NUMBER ALLOCATOR
// =============================================================================

// NextRef returns max(checkRef)+1 over existing, or 1 for an empty store.
func NextRef(existing []ComplianceCheck) int {
	highest := 0
	for _, c := range existing {
		if c.CheckRef > highest {
			highest = c.CheckRef
		}
	}
	return highest + 1
}

// RefAllocator hands out consecutive refs seeded once from a snapshot.
// Checks accepted during a batch are not part of the snapshot, so the base
// must not be recomputed mid-batch.
type RefAllocator struct {
	next int
}

func NewRefAllocator(existing []ComplianceCheck) *RefAllocator {
	return &RefAllocator{next: NextRef(existing)}
}

// Next returns the next ref and advances the counter.
func (a *RefAllocator) Next() int {
	ref := a.next
	a.next++
	return ref
}

