/*
store.go - Persistence interface for checks, templates and reference data

PURPOSE:
  Defines the boundary between the compliance engine and durable storage.
  The generator itself never touches a Store; the Service loads a snapshot,
  runs the generator and appends the batch.

ATOMIC BATCHES:
  AppendChecks() is all-or-nothing. A generation batch for a whole year is
  either fully written or not written at all, and a batch that would reuse
  an existing checkRef is rejected with ErrDuplicateCheckRef.

ORDERING:
  ListChecks returns checks ordered by checkRef, ListTemplates by creation
  order, reference data by name.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:      SQLite
  - compliance/store/memory.go:  In-memory for testing
*/
package compliance

import "context"

// CheckStore persists compliance checks.
type CheckStore interface {
	ListChecks(ctx context.Context) ([]ComplianceCheck, error)

	// GetCheck returns ErrCheckNotFound when ref does not exist.
	GetCheck(ctx context.Context, ref int) (ComplianceCheck, error)

	// AppendChecks writes every check or none.
	AppendChecks(ctx context.Context, checks []ComplianceCheck) error

	// UpdateCheck replaces the check with the same ref.
	UpdateCheck(ctx context.Context, c ComplianceCheck) error

	DeleteCheck(ctx context.Context, ref int) error
}

// TemplateStore persists check templates.
type TemplateStore interface {
	ListTemplates(ctx context.Context) ([]CheckTemplate, error)
	GetTemplate(ctx context.Context, id string) (CheckTemplate, error)

	// SaveTemplate inserts or replaces by ID.
	SaveTemplate(ctx context.Context, t CheckTemplate) error
	DeleteTemplate(ctx context.Context, id string) error
}

// ReferenceStore persists assignees and business areas, keyed by name.
type ReferenceStore interface {
	ListAssignees(ctx context.Context) ([]Assignee, error)
	SaveAssignee(ctx context.Context, a Assignee) error
	DeleteAssignee(ctx context.Context, name string) error

	ListBusinessAreas(ctx context.Context) ([]BusinessArea, error)
	SaveBusinessArea(ctx context.Context, b BusinessArea) error
	DeleteBusinessArea(ctx context.Context, name string) error
}

// Store is everything the Service needs.
type Store interface {
	CheckStore
	TemplateStore
	ReferenceStore
}
