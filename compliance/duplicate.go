package compliance

// =============================================================================
// DUPLICATE DETECTOR
// =============================================================================

// DuplicateKey identifies equivalent checks. String fields compare exactly.
type DuplicateKey struct {
	BusinessArea string
	Action       string
	MonthNumber  int
	Year         int
}

// Exists reports whether any check in existing matches all four key fields.
func Exists(existing []ComplianceCheck, businessArea, action string, monthNumber, year int) bool {
	for _, c := range existing {
		if c.BusinessArea == businessArea && c.Action == action &&
			c.MonthNumber == monthNumber && c.Year == year {
			return true
		}
	}
	return false
}

// DuplicateIndex is a set of duplicate keys. The generator seeds it with the
// existing checks and grows it with every accepted candidate so a batch never
// collides with the store or with itself.
type DuplicateIndex struct {
	keys map[DuplicateKey]struct{}
}

func NewDuplicateIndex(existing []ComplianceCheck) *DuplicateIndex {
	idx := &DuplicateIndex{keys: make(map[DuplicateKey]struct{}, len(existing))}
	for _, c := range existing {
		idx.Add(c.Key())
	}
	return idx
}

func (idx *DuplicateIndex) Contains(k DuplicateKey) bool {
	_, ok := idx.keys[k]
	return ok
}

func (idx *DuplicateIndex) Add(k DuplicateKey) {
	idx.keys[k] = struct{}{}
}

