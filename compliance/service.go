/*
service.go - Store-backed, serialized access to the compliance engine

PURPOSE:
  The generator is a pure function over a snapshot. The Service is the host
  side of that contract: it takes one lock per mutating operation, loads a
  consistent snapshot from the Store, runs the generator and appends the
  batch atomically. Two administrators generating at the same time are
  serialized here, so the second run sees the first run's checks and skips
  them as duplicates.

USAGE:
  svc := compliance.NewService(store, logger.WithField("component", "service"))
  result, err := svc.GenerateForPeriod(ctx, 2025, time.March)

SEE ALSO:
  - generator.go: Pure generation
  - store.go:     Store interfaces
*/
package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Observer receives generation outcomes, e.g. for metrics.
type Observer interface {
	ObserveGeneration(kind string, created, skipped int, err error)
}

type Service struct {
	Store       Store
	Observer    Observer
	DueSoonDays int
	Now         func() time.Time

	log *logrus.Entry
	mu  sync.Mutex
}

func NewService(store Store, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		Store:       store,
		DueSoonDays: DefaultDueSoonDays,
		Now:         time.Now,
		log:         log,
	}
}

func (s *Service) today() Date { return DateOf(s.Now()) }

// snapshot loads everything the generator reads. Callers hold s.mu.
func (s *Service) snapshot(ctx context.Context) (Inputs, error) {
	var in Inputs
	var err error
	if in.Templates, err = s.Store.ListTemplates(ctx); err != nil {
		return in, fmt.Errorf("load templates: %w", err)
	}
	if in.Existing, err = s.Store.ListChecks(ctx); err != nil {
		return in, fmt.Errorf("load checks: %w", err)
	}
	if in.Assignees, err = s.Store.ListAssignees(ctx); err != nil {
		return in, fmt.Errorf("load assignees: %w", err)
	}
	if in.BusinessAreas, err = s.Store.ListBusinessAreas(ctx); err != nil {
		return in, fmt.Errorf("load business areas: %w", err)
	}
	return in, nil
}

// =============================================================================
// GENERATION
// =============================================================================

func (s *Service) GenerateForPeriod(ctx context.Context, year int, month time.Month) (Result, error) {
	scope := Period{Year: year, Month: month}.String()
	return s.generate(ctx, "period", scope, func(in Inputs) (Result, error) {
		return GenerateForPeriod(in, year, month)
	})
}

func (s *Service) GenerateForYear(ctx context.Context, year int) (Result, error) {
	scope := fmt.Sprintf("%04d", year)
	return s.generate(ctx, "year", scope, func(in Inputs) (Result, error) {
		return GenerateForYear(in, year)
	})
}

func (s *Service) generate(ctx context.Context, kind, scope string, run func(Inputs) (Result, error)) (result Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if s.Observer != nil {
			s.Observer.ObserveGeneration(kind, len(result.Created), result.Skipped, err)
		}
	}()

	in, err := s.snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	result, err = run(in)
	if err != nil {
		s.log.WithError(err).WithField("scope", scope).Warn("generation rejected")
		return Result{}, err
	}
	if len(result.Created) > 0 {
		if err = s.Store.AppendChecks(ctx, result.Created); err != nil {
			return Result{}, fmt.Errorf("append generated checks: %w", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"scope":   scope,
		"created": len(result.Created),
		"skipped": result.Skipped,
	}).Info("checks generated")
	return result, nil
}

// =============================================================================
// CHECKS
// =============================================================================

func (s *Service) ListChecks(ctx context.Context, f Filter) ([]ComplianceCheck, error) {
	checks, err := s.Store.ListChecks(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(checks), nil
}

// CreateCheck stores an ad-hoc check under the next free ref.
func (s *Service) CreateCheck(ctx context.Context, c ComplianceCheck) (ComplianceCheck, error) {
	if err := normalizeCheck(&c); err != nil {
		return ComplianceCheck{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Store.ListChecks(ctx)
	if err != nil {
		return ComplianceCheck{}, err
	}
	c.CheckRef = NextRef(existing)
	if err := s.Store.AppendChecks(ctx, []ComplianceCheck{c}); err != nil {
		return ComplianceCheck{}, err
	}
	s.log.WithField("checkRef", c.CheckRef).Info("check created")
	return c, nil
}

// UpdateCheck applies the editable fields of edit to the stored check ref.
// Files and upload details stay as stored. A changed status goes through
// ApplyStatus; an empty status keeps the current one.
func (s *Service) UpdateCheck(ctx context.Context, ref int, edit ComplianceCheck) (ComplianceCheck, error) {
	return s.mutate(ctx, ref, func(c *ComplianceCheck) error {
		c.Action = edit.Action
		c.BusinessArea = edit.BusinessArea
		c.Frequency = edit.Frequency
		c.Responsibility = edit.Responsibility
		c.Records = edit.Records
		c.Priority = edit.Priority
		c.Year = edit.Year
		c.Month = edit.Month
		c.MonthNumber = edit.MonthNumber
		c.DueDate = edit.DueDate
		c.Comments = edit.Comments
		c.TemplateID = edit.TemplateID

		if edit.Status != "" && edit.Status != c.Status {
			if err := ApplyStatus(c, edit.Status, s.today()); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidStatus, edit.Status)
			}
		}
		return normalizeCheck(c)
	})
}

func (s *Service) DeleteCheck(ctx context.Context, ref int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.DeleteCheck(ctx, ref); err != nil {
		return err
	}
	s.log.WithField("checkRef", ref).Info("check deleted")
	return nil
}

// SetStatus applies a status transition to a stored check.
func (s *Service) SetStatus(ctx context.Context, ref int, status Status) (ComplianceCheck, error) {
	return s.mutate(ctx, ref, func(c *ComplianceCheck) error {
		return ApplyStatus(c, status, s.today())
	})
}

// AttachFile records an uploaded evidence file on a check.
func (s *Service) AttachFile(ctx context.Context, ref int, f FileDescriptor) (ComplianceCheck, error) {
	return s.mutate(ctx, ref, func(c *ComplianceCheck) error {
		if f.UploadedAt.IsZero() {
			f.UploadedAt = s.Now().UTC()
		}
		c.Files = append(c.Files, f)
		uploaded := DateOf(f.UploadedAt)
		c.UploadDate = &uploaded
		c.UploadedBy = f.UploadedBy
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, ref int, fn func(*ComplianceCheck) error) (ComplianceCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Store.GetCheck(ctx, ref)
	if err != nil {
		return ComplianceCheck{}, err
	}
	if err := fn(&c); err != nil {
		return ComplianceCheck{}, err
	}
	if err := s.Store.UpdateCheck(ctx, c); err != nil {
		return ComplianceCheck{}, err
	}
	return c, nil
}

// RefreshStatuses moves open checks to overdue/due_soon/pending as of today
// and returns how many changed.
func (s *Service) RefreshStatuses(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	checks, err := s.Store.ListChecks(ctx)
	if err != nil {
		return 0, err
	}
	changed := RefreshStatuses(checks, s.today(), s.DueSoonDays)
	for _, c := range changed {
		if err := s.Store.UpdateCheck(ctx, c); err != nil {
			return 0, fmt.Errorf("update check %d: %w", c.CheckRef, err)
		}
	}
	if len(changed) > 0 {
		s.log.WithField("changed", len(changed)).Info("statuses refreshed")
	}
	return len(changed), nil
}

func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	checks, err := s.Store.ListChecks(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(checks, f), nil
}

// normalizeCheck fills derived fields of a manually entered check.
func normalizeCheck(c *ComplianceCheck) error {
	p := Period{Year: c.Year, Month: time.Month(c.MonthNumber)}
	if c.MonthNumber == 0 && c.Month != "" {
		if m, ok := ParseMonthName(c.Month); ok {
			p.Month = m
		}
	}
	if !p.Valid() {
		return fmt.Errorf("%w: year %d month %q/%d", ErrInvalidPeriod, c.Year, c.Month, c.MonthNumber)
	}
	if c.Month != "" {
		if m, ok := ParseMonthName(c.Month); !ok || m != p.Month {
			return fmt.Errorf("%w: month %q does not match month number %d", ErrInvalidPeriod, c.Month, int(p.Month))
		}
	}
	c.MonthNumber = int(p.Month)
	c.Month = p.MonthName()

	if c.DueDate.IsZero() {
		c.DueDate = p.End()
	}
	if c.Status == "" {
		c.Status = StatusPending
	}
	if !c.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, c.Status)
	}
	if c.Files == nil {
		c.Files = []FileDescriptor{}
	}
	return nil
}
