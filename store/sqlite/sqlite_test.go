package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-tracker/compliance"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleCheck(ref int) compliance.ComplianceCheck {
	return compliance.ComplianceCheck{
		CheckRef:       ref,
		Action:         "Reconcile accounts",
		BusinessArea:   "Finance",
		Frequency:      compliance.FrequencyMonthly,
		Responsibility: "Alice",
		Records:        compliance.RecordDocument,
		Priority:       "FCA",
		Year:           2025,
		Month:          "march",
		MonthNumber:    3,
		DueDate:        compliance.MustParseDate("2025-03-31"),
		Status:         compliance.StatusPending,
		Files:          []compliance.FileDescriptor{},
		TemplateID:     "t1",
	}
}

// =============================================================================
// CHECKS
// =============================================================================

func TestStore_CheckRoundTrip_AllFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	uploaded := compliance.MustParseDate("2025-03-19")
	completed := compliance.MustParseDate("2025-03-20")
	c := sampleCheck(7)
	c.Status = compliance.StatusCompleted
	c.Comments = "Signed off"
	c.Files = []compliance.FileDescriptor{{
		ID: "f1", Name: "evidence.pdf", Path: "uploads/2025/evidence.pdf", URL: "https://files.example/f1",
		Size: 2048, UploadedBy: "Alice", UploadedAt: time.Date(2025, 3, 19, 14, 5, 0, 0, time.UTC),
	}}
	c.UploadDate = &uploaded
	c.UploadedBy = "Alice"
	c.CompletedDate = &completed

	require.NoError(t, s.AppendChecks(ctx, []compliance.ComplianceCheck{c}))

	got, err := s.GetCheck(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestStore_AppendChecks_RefConflictWritesNothing(t *testing.T) {
	// GIVEN: A stored check with ref 2
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendChecks(ctx, []compliance.ComplianceCheck{sampleCheck(2)}))

	// WHEN: A batch of 1, 2, 3 is appended
	err := s.AppendChecks(ctx, []compliance.ComplianceCheck{sampleCheck(1), sampleCheck(2), sampleCheck(3)})

	// THEN: The batch is rejected as a whole
	assert.ErrorIs(t, err, compliance.ErrDuplicateCheckRef)
	var conflict *compliance.RefConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 2, conflict.CheckRef)

	checks, err := s.ListChecks(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, 2, checks[0].CheckRef)
}

func TestStore_AppendChecks_OtherConstraintIsNotRefConflict(t *testing.T) {
	// GIVEN: A check whose month number breaks the column constraint
	s := newTestStore(t)
	c := sampleCheck(1)
	c.MonthNumber = 13

	// WHEN
	err := s.AppendChecks(context.Background(), []compliance.ComplianceCheck{c})

	// THEN: The insert fails, but not as a duplicate ref
	require.Error(t, err)
	assert.NotErrorIs(t, err, compliance.ErrDuplicateCheckRef)
	var conflict *compliance.RefConflictError
	assert.False(t, errors.As(err, &conflict))
}

func TestStore_ListChecks_OrderedByRef(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendChecks(ctx, []compliance.ComplianceCheck{sampleCheck(5), sampleCheck(1), sampleCheck(3)}))

	checks, err := s.ListChecks(ctx)
	require.NoError(t, err)

	refs := make([]int, len(checks))
	for i, c := range checks {
		refs[i] = c.CheckRef
	}
	assert.Equal(t, []int{1, 3, 5}, refs)
}

func TestStore_UpdateAndDeleteCheck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.AppendChecks(ctx, []compliance.ComplianceCheck{sampleCheck(1)}))

	c := sampleCheck(1)
	c.Status = compliance.StatusOverdue
	c.Comments = "chased"
	require.NoError(t, s.UpdateCheck(ctx, c))

	got, err := s.GetCheck(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusOverdue, got.Status)
	assert.Equal(t, "chased", got.Comments)
	assert.Nil(t, got.CompletedDate)

	require.NoError(t, s.DeleteCheck(ctx, 1))
	_, err = s.GetCheck(ctx, 1)
	assert.ErrorIs(t, err, compliance.ErrCheckNotFound)

	assert.ErrorIs(t, s.UpdateCheck(ctx, sampleCheck(9)), compliance.ErrCheckNotFound)
	assert.ErrorIs(t, s.DeleteCheck(ctx, 9), compliance.ErrCheckNotFound)
}

// =============================================================================
// TEMPLATES
// =============================================================================

func TestStore_Templates_UpsertKeepsOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, id := range []string{"b", "a", "c"} {
		require.NoError(t, s.SaveTemplate(ctx, compliance.CheckTemplate{
			ID: id, Name: "Template " + id, BusinessArea: "Finance", Description: "d",
			Frequency: compliance.FrequencyQuarterly, StartDate: compliance.MustParseDate("2025-01-15"),
			Records: compliance.RecordReview, CreatedAt: created,
		}))
	}

	// Updating "b" must not move it to the end
	require.NoError(t, s.SaveTemplate(ctx, compliance.CheckTemplate{
		ID: "b", Name: "Renamed", BusinessArea: "IT", Description: "d2",
		Frequency: compliance.FrequencyMonthly, Records: compliance.RecordDocument, Responsibility: "Bob",
	}))

	templates, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 3)
	assert.Equal(t, []string{"b", "a", "c"}, []string{templates[0].ID, templates[1].ID, templates[2].ID})

	b := templates[0]
	assert.Equal(t, "Renamed", b.Name)
	assert.Equal(t, "Bob", b.Responsibility)
	assert.True(t, b.StartDate.IsZero())
	assert.Equal(t, created, b.CreatedAt)

	a, err := s.GetTemplate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", a.StartDate.String())

	require.NoError(t, s.DeleteTemplate(ctx, "a"))
	_, err = s.GetTemplate(ctx, "a")
	assert.ErrorIs(t, err, compliance.ErrTemplateNotFound)
	assert.ErrorIs(t, s.DeleteTemplate(ctx, "a"), compliance.ErrTemplateNotFound)
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func TestStore_ReferenceData(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveAssignee(ctx, compliance.Assignee{Name: "Zoe"}))
	require.NoError(t, s.SaveAssignee(ctx, compliance.Assignee{Name: "Alice", Email: "a@example.com"}))
	require.NoError(t, s.SaveAssignee(ctx, compliance.Assignee{Name: "Alice", Department: "Risk"}))
	require.NoError(t, s.SaveBusinessArea(ctx, compliance.BusinessArea{Name: "Finance", Owner: "Zoe"}))

	assignees, err := s.ListAssignees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []compliance.Assignee{
		{Name: "Alice", Department: "Risk"},
		{Name: "Zoe"},
	}, assignees)

	areas, err := s.ListBusinessAreas(ctx)
	require.NoError(t, err)
	assert.Equal(t, []compliance.BusinessArea{{Name: "Finance", Owner: "Zoe"}}, areas)

	require.NoError(t, s.DeleteAssignee(ctx, "Zoe"))
	assert.ErrorIs(t, s.DeleteAssignee(ctx, "Zoe"), compliance.ErrAssigneeNotFound)
	assert.ErrorIs(t, s.DeleteBusinessArea(ctx, "IT"), compliance.ErrBusinessAreaNotFound)
}

// =============================================================================
// SERVICE INTEGRATION
// =============================================================================

func TestStore_ServiceGeneration_Persists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveAssignee(ctx, compliance.Assignee{Name: "Alice"}))
	require.NoError(t, s.SaveBusinessArea(ctx, compliance.BusinessArea{Name: "Finance"}))
	require.NoError(t, s.SaveTemplate(ctx, compliance.CheckTemplate{
		ID: "t1", Name: "Annual attestation", BusinessArea: "Finance", Description: "d",
		Frequency: compliance.FrequencyAnnually, StartDate: compliance.MustParseDate("2024-06-01"),
		Records: compliance.RecordReport,
	}))

	svc := compliance.NewService(s, nil)
	first, err := svc.GenerateForYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := svc.GenerateForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Equal(t, 1, second.Skipped)

	stored, err := s.GetCheck(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "june", stored.Month)
	assert.Equal(t, "2025-06-30", stored.DueDate.String())
	assert.Equal(t, "Alice", stored.Responsibility)
}
