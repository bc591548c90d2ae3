/*
generator.go - Template-driven check generation

PURPOSE:
  Turns check templates into concrete compliance checks for one target month
  or for every month of a year.

ALGORITHM (per target month, per template in order):
  1. Skip the template unless IsDue(frequency, startDate, year, month)
  2. Build the duplicate key (businessArea, description, month, year)
  3. If the key is in the store snapshot or already accepted in this batch,
     count a skip
  4. Otherwise accept the candidate with the next ref from the allocator

GUARANTEES:
  - Inputs are never mutated
  - Refs in one batch are consecutive and start at max(existing)+1
  - Generating twice with the first batch fed back creates nothing
  - Empty templates, assignees or business areas fail before any ref is used

SEE ALSO:
  - frequency.go: IsDue
  - duplicate.go: DuplicateIndex
  - refs.go:      RefAllocator
*/
package compliance

import (
	"fmt"
	"time"
)

// Inputs is the snapshot generation works on.
type Inputs struct {
	Templates     []CheckTemplate
	Existing      []ComplianceCheck
	Assignees     []Assignee
	BusinessAreas []BusinessArea
}

// Result is one generation batch.
type Result struct {
	Created []ComplianceCheck `json:"created"`
	Skipped int               `json:"skipped"`
}

// CountByMonth tallies created checks per month number.
func (r Result) CountByMonth() map[int]int {
	counts := make(map[int]int)
	for _, c := range r.Created {
		counts[c.MonthNumber]++
	}
	return counts
}

// Summary is the operator-facing sentence for a batch.
func (r Result) Summary() string {
	return fmt.Sprintf("Generated %d checks (%d duplicates skipped)", len(r.Created), r.Skipped)
}

func (in Inputs) validate() error {
	switch {
	case len(in.Templates) == 0:
		return &PreconditionError{Missing: "templates"}
	case len(in.Assignees) == 0:
		return &PreconditionError{Missing: "assignees"}
	case len(in.BusinessAreas) == 0:
		return &PreconditionError{Missing: "business areas"}
	}
	return nil
}

// GenerateForPeriod generates the checks due in (year, month).
func GenerateForPeriod(in Inputs, year int, month time.Month) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	p := Period{Year: year, Month: month}
	if !p.Valid() {
		return Result{}, fmt.Errorf("%w: %d-%d", ErrInvalidPeriod, year, int(month))
	}

	b := newBatch(in)
	b.generate(in.Templates, p)
	return b.result, nil
}

// GenerateForYear generates the checks due in every month of year, sharing
// one ref sequence across all twelve months.
func GenerateForYear(in Inputs, year int) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}
	if year <= 0 {
		return Result{}, fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}

	b := newBatch(in)
	for m := time.January; m <= time.December; m++ {
		b.generate(in.Templates, Period{Year: year, Month: m})
	}
	return b.result, nil
}

// batch carries the running state of one generation call.
type batch struct {
	seen     *DuplicateIndex
	refs     *RefAllocator
	fallback string
	result   Result
}

func newBatch(in Inputs) *batch {
	return &batch{
		seen:     NewDuplicateIndex(in.Existing),
		refs:     NewRefAllocator(in.Existing),
		fallback: in.Assignees[0].Name,
		result:   Result{Created: []ComplianceCheck{}},
	}
}

func (b *batch) generate(templates []CheckTemplate, p Period) {
	for _, t := range templates {
		if !IsDue(t.Frequency, t.StartDate, p.Year, p.Month) {
			continue
		}

		key := DuplicateKey{
			BusinessArea: t.BusinessArea,
			Action:       t.Description,
			MonthNumber:  int(p.Month),
			Year:         p.Year,
		}
		if b.seen.Contains(key) {
			b.result.Skipped++
			continue
		}

		b.seen.Add(key)
		b.result.Created = append(b.result.Created, b.checkFromTemplate(t, p))
	}
}

func (b *batch) checkFromTemplate(t CheckTemplate, p Period) ComplianceCheck {
	responsibility := t.Responsibility
	if responsibility == "" {
		responsibility = b.fallback
	}
	return ComplianceCheck{
		CheckRef:       b.refs.Next(),
		Action:         t.Description,
		BusinessArea:   t.BusinessArea,
		Frequency:      t.Frequency,
		Responsibility: responsibility,
		Records:        t.Records,
		Priority:       t.Regulations,
		Year:           p.Year,
		Month:          p.MonthName(),
		MonthNumber:    int(p.Month),
		DueDate:        p.End(),
		Status:         StatusPending,
		Files:          []FileDescriptor{},
		TemplateID:     t.ID,
	}
}
