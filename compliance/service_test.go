package compliance_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-tracker/compliance"
	"github.com/warp/compliance-tracker/compliance/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type observed struct {
	kind    string
	created int
	skipped int
	err     error
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (o *recordingObserver) ObserveGeneration(kind string, created, skipped int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{kind, created, skipped, err})
}

func newTestService(t *testing.T) (*compliance.Service, *store.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	require.NoError(t, mem.SaveAssignee(ctx, compliance.Assignee{Name: "Alice"}))
	require.NoError(t, mem.SaveAssignee(ctx, compliance.Assignee{Name: "Bob"}))
	require.NoError(t, mem.SaveBusinessArea(ctx, compliance.BusinessArea{Name: "Finance"}))
	require.NoError(t, mem.SaveTemplate(ctx, compliance.CheckTemplate{
		ID: "t-monthly", Name: "Reconcile accounts", BusinessArea: "Finance", Description: "Reconcile ledger accounts",
		Frequency: compliance.FrequencyMonthly, StartDate: compliance.MustParseDate("2025-01-01"),
		Records: compliance.RecordDocument, Regulations: "FCA",
	}))
	require.NoError(t, mem.SaveTemplate(ctx, compliance.CheckTemplate{
		ID: "t-quarterly", Name: "Risk review", BusinessArea: "Finance", Description: "Review the risk register",
		Frequency: compliance.FrequencyQuarterly, StartDate: compliance.MustParseDate("2025-01-01"),
		Records: compliance.RecordReview, Responsibility: "Bob",
	}))

	logger, _ := test.NewNullLogger()
	svc := compliance.NewService(mem, logrus.NewEntry(logger))
	svc.Now = func() time.Time { return time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC) }
	return svc, mem
}

// =============================================================================
// GENERATION
// =============================================================================

func TestService_GenerateForPeriod_PersistsBatch(t *testing.T) {
	// GIVEN: Two templates due in January
	svc, mem := newTestService(t)
	obs := &recordingObserver{}
	svc.Observer = obs
	ctx := context.Background()

	// WHEN: January is generated twice
	first, err := svc.GenerateForPeriod(ctx, 2025, time.January)
	require.NoError(t, err)
	second, err := svc.GenerateForPeriod(ctx, 2025, time.January)
	require.NoError(t, err)

	// THEN: The first run persists both, the second skips both
	assert.Len(t, first.Created, 2)
	assert.Empty(t, second.Created)
	assert.Equal(t, 2, second.Skipped)

	stored, err := mem.ListChecks(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].CheckRef)
	assert.Equal(t, "Alice", stored[0].Responsibility)
	assert.Equal(t, "Bob", stored[1].Responsibility)

	require.Len(t, obs.calls, 2)
	assert.Equal(t, observed{"period", 2, 0, nil}, obs.calls[0])
	assert.Equal(t, observed{"period", 0, 2, nil}, obs.calls[1])
}

func TestService_GenerateForYear_ThenPeriodIsNoop(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()

	year, err := svc.GenerateForYear(ctx, 2025)
	require.NoError(t, err)
	assert.Len(t, year.Created, 16) // 12 monthly + 4 quarterly

	again, err := svc.GenerateForPeriod(ctx, 2025, time.April)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Equal(t, 2, again.Skipped)

	stored, err := mem.ListChecks(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 16)
	for i, c := range stored {
		assert.Equal(t, i+1, c.CheckRef)
	}
}

func TestService_ConcurrentGeneration_Serialized(t *testing.T) {
	// GIVEN: Several administrators generating the same year at once
	svc, mem := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	created := make([]int, 8)
	for i := range created {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.GenerateForYear(ctx, 2025)
			assert.NoError(t, err)
			created[i] = len(r.Created)
		}(i)
	}
	wg.Wait()

	// THEN: Exactly one run created the checks, refs stay unique
	total := 0
	for _, n := range created {
		total += n
	}
	assert.Equal(t, 16, total)

	stored, err := mem.ListChecks(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 16)
}

func TestService_Precondition_LeavesStoreUntouched(t *testing.T) {
	svc, mem := newTestService(t)
	obs := &recordingObserver{}
	svc.Observer = obs
	ctx := context.Background()
	require.NoError(t, mem.DeleteBusinessArea(ctx, "Finance"))

	_, err := svc.GenerateForPeriod(ctx, 2025, time.January)

	var pe *compliance.PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "business areas", pe.Missing)

	stored, err := mem.ListChecks(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	require.Len(t, obs.calls, 1)
	assert.ErrorIs(t, obs.calls[0].err, compliance.ErrPrecondition)
}

type failingAppendStore struct {
	*store.Memory
}

func (failingAppendStore) AppendChecks(context.Context, []compliance.ComplianceCheck) error {
	return errors.New("disk full")
}

func TestService_AppendFailure_ReturnsError(t *testing.T) {
	svc, mem := newTestService(t)
	svc.Store = failingAppendStore{mem}

	result, err := svc.GenerateForPeriod(context.Background(), 2025, time.January)

	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, result.Created)
}

// =============================================================================
// CHECK LIFECYCLE
// =============================================================================

func TestService_CreateCheck_AllocatesNextRef(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.GenerateForPeriod(ctx, 2025, time.January)
	require.NoError(t, err)

	c, err := svc.CreateCheck(ctx, compliance.ComplianceCheck{
		Action: "Ad-hoc review", BusinessArea: "Finance", Year: 2025, Month: "February",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, c.CheckRef)
	assert.Equal(t, 2, c.MonthNumber)
	assert.Equal(t, "february", c.Month)
	assert.Equal(t, "2025-02-28", c.DueDate.String())
	assert.Equal(t, compliance.StatusPending, c.Status)
	assert.NotNil(t, c.Files)
}

func TestService_CreateCheck_MonthMismatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateCheck(context.Background(), compliance.ComplianceCheck{
		Action: "x", BusinessArea: "Finance", Year: 2025, Month: "march", MonthNumber: 4,
	})

	assert.ErrorIs(t, err, compliance.ErrInvalidPeriod)
}

func TestService_SetStatus_AndAttachFile(t *testing.T) {
	svc, mem := newTestService(t)
	ctx := context.Background()
	_, err := svc.GenerateForPeriod(ctx, 2025, time.March)
	require.NoError(t, err)

	done, err := svc.SetStatus(ctx, 1, compliance.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedDate)
	assert.Equal(t, "2025-03-25", done.CompletedDate.String())

	withFile, err := svc.AttachFile(ctx, 1, compliance.FileDescriptor{ID: "f1", Name: "evidence.pdf", UploadedBy: "Alice"})
	require.NoError(t, err)
	require.Len(t, withFile.Files, 1)
	assert.Equal(t, "Alice", withFile.UploadedBy)
	assert.Equal(t, "2025-03-25", withFile.UploadDate.String())

	stored, err := mem.GetCheck(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusCompleted, stored.Status)
	assert.Len(t, stored.Files, 1)

	_, err = svc.SetStatus(ctx, 99, compliance.StatusCompleted)
	assert.ErrorIs(t, err, compliance.ErrCheckNotFound)

	_, err = svc.SetStatus(ctx, 1, "archived")
	assert.ErrorIs(t, err, compliance.ErrInvalidStatus)
}

func TestService_UpdateCheck_KeepsFilesAndAppliesStatus(t *testing.T) {
	// GIVEN: A completed check with an attached file
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.GenerateForPeriod(ctx, 2025, time.March)
	require.NoError(t, err)
	_, err = svc.AttachFile(ctx, 1, compliance.FileDescriptor{ID: "f1", UploadedBy: "Alice"})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, 1, compliance.StatusCompleted)
	require.NoError(t, err)

	// WHEN: The check is edited back to pending without any files in the edit
	edited, err := svc.UpdateCheck(ctx, 1, compliance.ComplianceCheck{
		Action: "Reconcile ledger accounts", BusinessArea: "Finance",
		Frequency: compliance.FrequencyMonthly, Responsibility: "Bob",
		Year: 2025, MonthNumber: 3, Status: compliance.StatusPending, Comments: "reopened",
	})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusPending, edited.Status)
	assert.Nil(t, edited.CompletedDate)
	assert.Len(t, edited.Files, 1)
	assert.Equal(t, "Bob", edited.Responsibility)
	assert.Equal(t, "2025-03-31", edited.DueDate.String())

	// An empty status keeps the stored one
	kept, err := svc.UpdateCheck(ctx, 1, compliance.ComplianceCheck{
		Action: "Reconcile ledger accounts", BusinessArea: "Finance", Year: 2025, MonthNumber: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, compliance.StatusPending, kept.Status)

	_, err = svc.UpdateCheck(ctx, 1, compliance.ComplianceCheck{Year: 2025, MonthNumber: 3, Status: "archived"})
	assert.ErrorIs(t, err, compliance.ErrInvalidStatus)
	_, err = svc.UpdateCheck(ctx, 42, compliance.ComplianceCheck{Year: 2025, MonthNumber: 3})
	assert.ErrorIs(t, err, compliance.ErrCheckNotFound)
}

func TestService_RefreshStatuses(t *testing.T) {
	// GIVEN: Today is 2025-03-25 and Jan-Apr have been generated
	svc, mem := newTestService(t)
	ctx := context.Background()
	for m := time.January; m <= time.April; m++ {
		_, err := svc.GenerateForPeriod(ctx, 2025, m)
		require.NoError(t, err)
	}
	_, err := svc.SetStatus(ctx, 1, compliance.StatusCompleted)
	require.NoError(t, err)

	// WHEN
	changed, err := svc.RefreshStatuses(ctx)
	require.NoError(t, err)

	// THEN: January (open part) and February are overdue, March is due soon
	stored, err := mem.ListChecks(ctx)
	require.NoError(t, err)
	byMonth := map[int][]compliance.Status{}
	for _, c := range stored {
		byMonth[c.MonthNumber] = append(byMonth[c.MonthNumber], c.Status)
	}
	assert.Equal(t, []compliance.Status{compliance.StatusCompleted, compliance.StatusOverdue}, byMonth[1])
	assert.Equal(t, []compliance.Status{compliance.StatusOverdue}, byMonth[2])
	assert.Equal(t, []compliance.Status{compliance.StatusDueSoon}, byMonth[3])
	assert.Equal(t, []compliance.Status{compliance.StatusPending, compliance.StatusPending}, byMonth[4])
	assert.Equal(t, 3, changed)

	// A second refresh changes nothing
	changed, err = svc.RefreshStatuses(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestService_ListChecksAndSummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.GenerateForYear(ctx, 2025)
	require.NoError(t, err)

	april, err := svc.ListChecks(ctx, compliance.Filter{Year: 2025, MonthNumber: 4})
	require.NoError(t, err)
	assert.Len(t, april, 2)

	summary, err := svc.Summary(ctx, compliance.Filter{Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 16, summary.Total)
	assert.Equal(t, 16, summary.ByStatus[compliance.StatusPending])
	assert.True(t, summary.CompletionRate.IsZero())
}
