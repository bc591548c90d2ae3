package compliance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Filter selects checks for listing and summaries. Zero fields match all.
type Filter struct {
	Year         int
	MonthNumber  int
	BusinessArea string
	Status       Status
}

func (f Filter) Match(c ComplianceCheck) bool {
	if f.Year != 0 && c.Year != f.Year {
		return false
	}
	if f.MonthNumber != 0 && c.MonthNumber != f.MonthNumber {
		return false
	}
	if f.BusinessArea != "" && c.BusinessArea != f.BusinessArea {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	return true
}

// Apply returns the checks matching f, preserving order.
func (f Filter) Apply(checks []ComplianceCheck) []ComplianceCheck {
	out := make([]ComplianceCheck, 0, len(checks))
	for _, c := range checks {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// AreaSummary is the per business area breakdown.
type AreaSummary struct {
	BusinessArea string `json:"businessArea"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Overdue      int    `json:"overdue"`
}

type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"byStatus"`
	ByArea   []AreaSummary  `json:"byArea"`

	// CompletionRate is the completed share in percent, one decimal place.
	CompletionRate decimal.Decimal `json:"completionRate"`
}

// Summarize aggregates the checks matching f.
func Summarize(checks []ComplianceCheck, f Filter) Summary {
	s := Summary{ByStatus: make(map[Status]int), CompletionRate: decimal.Zero}
	areas := make(map[string]*AreaSummary)

	for _, c := range checks {
		if !f.Match(c) {
			continue
		}
		s.Total++
		s.ByStatus[c.Status]++

		a, ok := areas[c.BusinessArea]
		if !ok {
			a = &AreaSummary{BusinessArea: c.BusinessArea}
			areas[c.BusinessArea] = a
		}
		a.Total++
		switch c.Status {
		case StatusCompleted:
			a.Completed++
		case StatusOverdue:
			a.Overdue++
		}
	}

	for _, a := range areas {
		s.ByArea = append(s.ByArea, *a)
	}
	sort.Slice(s.ByArea, func(i, j int) bool { return s.ByArea[i].BusinessArea < s.ByArea[j].BusinessArea })

	if s.Total > 0 {
		s.CompletionRate = decimal.NewFromInt(int64(s.ByStatus[StatusCompleted])).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(s.Total))).
			Round(1)
	}
	return s
}
