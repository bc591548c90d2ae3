/*
Package compliance provides the recurring compliance-check engine.

PURPOSE:
  This package owns the compliance tracker's domain model and the logic that
  turns check templates into concrete, dated compliance checks. Everything
  here is pure: the generator reads a snapshot of templates, existing checks
  and reference data and returns a new batch. Persistence and locking live
  in the Service and in the Store implementations.

KEY CONCEPTS IN THIS FILE (types.go):
  - CheckTemplate:   A recurring obligation with a frequency and a start date
  - ComplianceCheck: One dated instance of an obligation, tracked to completion
  - Assignee:        Person a check can be assigned to
  - BusinessArea:    Organisational area a check belongs to

DESIGN PRINCIPLES:
  1. Purity: Generation never mutates its inputs, callers own the append
  2. Idempotence: Re-running generation for a period yields nothing new
  3. Stable refs: checkRef values are allocated from one running counter

USAGE:
  result, err := compliance.GenerateForPeriod(compliance.Inputs{
      Templates:     templates,
      Existing:      checks,
      Assignees:     assignees,
      BusinessAreas: areas,
  }, 2025, time.March)

SEE ALSO:
  - frequency.go: Frequency rule evaluator
  - generator.go: Batch generation for a period or a year
  - service.go:   Store-backed, serialized generation
*/
package compliance

import "time"

// =============================================================================
// FREQUENCY
// =============================================================================

// Frequency is the recurrence class of a template.
type Frequency string

const (
	FrequencyMonthly     Frequency = "Monthly"
	FrequencyQuarterly   Frequency = "Quarterly"
	FrequencyAnnually    Frequency = "Annually"
	FrequencyWeekly      Frequency = "Weekly"
	FrequencyDaily       Frequency = "Daily"
	FrequencyEventDriven Frequency = "Event-driven"
)

// Frequencies lists every known frequency in display order.
var Frequencies = []Frequency{
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnually,
	FrequencyWeekly,
	FrequencyDaily,
	FrequencyEventDriven,
}

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	for _, known := range Frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// =============================================================================
// STATUS & RECORD TYPE
// =============================================================================

type Status string

const (
	StatusPending    Status = "pending"
	StatusCompleted  Status = "completed"
	StatusOverdue    Status = "overdue"
	StatusDueSoon    Status = "due_soon"
	StatusMonitoring Status = "monitoring"
)

var Statuses = []Status{StatusPending, StatusCompleted, StatusOverdue, StatusDueSoon, StatusMonitoring}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// RecordType classifies the evidence a check produces.
type RecordType string

const (
	RecordDocument   RecordType = "Document"
	RecordReview     RecordType = "Review"
	RecordDataReview RecordType = "Data Review"
	RecordReport     RecordType = "Report"
)

var RecordTypes = []RecordType{RecordDocument, RecordReview, RecordDataReview, RecordReport}

func (r RecordType) Valid() bool {
	for _, known := range RecordTypes {
		if r == known {
			return true
		}
	}
	return false
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

type Assignee struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

type BusinessArea struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// =============================================================================
// CHECK TEMPLATE
// =============================================================================

// CheckTemplate defines a recurring obligation.
type CheckTemplate struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BusinessArea string     `json:"businessArea"`
	Description  string     `json:"description"`
	Regulations  string     `json:"regulations"`
	Frequency    Frequency  `json:"frequency"`
	StartDate    Date       `json:"startDate"`
	Records      RecordType `json:"records"`

	// Responsibility is optional; generation falls back to the first assignee.
	Responsibility string `json:"responsibility,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// =============================================================================
// COMPLIANCE CHECK
// =============================================================================

// FileDescriptor describes one uploaded evidence file.
type FileDescriptor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	URL        string    `json:"url,omitempty"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ComplianceCheck is one concrete, dated obligation instance.
type ComplianceCheck struct {
	CheckRef       int        `json:"checkRef"`
	Action         string     `json:"action"`
	BusinessArea   string     `json:"businessArea"`
	Frequency      Frequency  `json:"frequency"`
	Responsibility string     `json:"responsibility"`
	Records        RecordType `json:"records"`

	// Priority carries the template's regulations tag for generated checks.
	Priority string `json:"priority"`

	Year        int    `json:"year"`
	Month       string `json:"month"`
	MonthNumber int    `json:"monthNumber"`
	DueDate     Date   `json:"dueDate"`
	Status      Status `json:"status"`

	Comments      string           `json:"comments"`
	Files         []FileDescriptor `json:"files"`
	UploadDate    *Date            `json:"uploadDate,omitempty"`
	UploadedBy    string           `json:"uploadedBy,omitempty"`
	CompletedDate *Date            `json:"completedDate,omitempty"`
	TemplateID    string           `json:"templateId,omitempty"`
}

// Period returns the check's target period.
func (c ComplianceCheck) Period() Period {
	return Period{Year: c.Year, Month: time.Month(c.MonthNumber)}
}

// Key returns the duplicate key of the check.
func (c ComplianceCheck) Key() DuplicateKey {
	return DuplicateKey{
		BusinessArea: c.BusinessArea,
		Action:       c.Action,
		MonthNumber:  c.MonthNumber,
		Year:         c.Year,
	}
}
