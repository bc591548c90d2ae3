/*
Package sqlite provides a SQLite-backed implementation of compliance.Store.

PURPOSE:
  Durable storage for compliance checks, check templates, assignees and
  business areas. Every field of a check or template round-trips: dates are
  stored as YYYY-MM-DD text, uploaded-file descriptors as a JSON column.

KEY TABLES:
  checks:          One row per compliance check, keyed by check_ref
  templates:       Check templates, listed in insertion (rowid) order
  assignees:       Reference data keyed by name
  business_areas:  Reference data keyed by name

INDEXES:
  - idx_checks_duplicate_key: (business_area, action, month_number, year),
    the generator's duplicate key
  - idx_checks_period: listing by year/month

ATOMIC BATCHES:
  AppendChecks writes a whole generation batch in one SQL transaction. A
  primary key violation on check_ref rolls back the batch and surfaces as
  compliance.ErrDuplicateCheckRef.

CONCURRENCY:
  Uses sync.RWMutex plus a single open connection, so ":memory:" databases
  are shared by every query.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := compliance.NewService(store, logger)
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/compliance-tracker/compliance"
)

// Store implements compliance.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ compliance.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		check_ref INTEGER PRIMARY KEY,
		action TEXT NOT NULL,
		business_area TEXT NOT NULL,
		frequency TEXT NOT NULL,
		responsibility TEXT NOT NULL DEFAULT '',
		records TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT '',
		year INTEGER NOT NULL,
		month TEXT NOT NULL,
		month_number INTEGER NOT NULL CHECK (month_number BETWEEN 1 AND 12),
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		comments TEXT NOT NULL DEFAULT '',
		files_json TEXT NOT NULL DEFAULT '[]',
		upload_date TEXT,
		uploaded_by TEXT NOT NULL DEFAULT '',
		completed_date TEXT,
		template_id TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_checks_duplicate_key
		ON checks(business_area, action, month_number, year);
	CREATE INDEX IF NOT EXISTS idx_checks_period
		ON checks(year, month_number);
	CREATE INDEX IF NOT EXISTS idx_checks_status
		ON checks(status);

	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		business_area TEXT NOT NULL,
		description TEXT NOT NULL,
		regulations TEXT NOT NULL DEFAULT '',
		frequency TEXT NOT NULL,
		start_date TEXT,
		records TEXT NOT NULL DEFAULT '',
		responsibility TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assignees (
		name TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS business_areas (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL DEFAULT ''
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CHECK STORE
// =============================================================================

const checkColumns = `check_ref, action, business_area, frequency, responsibility, records,
	priority, year, month, month_number, due_date, status, comments, files_json,
	upload_date, uploaded_by, completed_date, template_id`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendChecks inserts a batch atomically.
func (s *Store) AppendChecks(ctx context.Context, checks []compliance.ComplianceCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range checks {
		if err := s.insertCheck(ctx, tx, c); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) insertCheck(ctx context.Context, db execer, c compliance.ComplianceCheck) error {
	args, err := checkArgs(c)
	if err != nil {
		return err
	}
	query := `INSERT INTO checks (` + checkColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		if isRefConflict(err) {
			return &compliance.RefConflictError{CheckRef: c.CheckRef}
		}
		return fmt.Errorf("failed to insert check %d: %w", c.CheckRef, err)
	}
	return nil
}

func checkArgs(c compliance.ComplianceCheck) ([]any, error) {
	files := c.Files
	if files == nil {
		files = []compliance.FileDescriptor{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, fmt.Errorf("failed to encode files: %w", err)
	}
	return []any{
		c.CheckRef,
		c.Action,
		c.BusinessArea,
		string(c.Frequency),
		c.Responsibility,
		string(c.Records),
		c.Priority,
		c.Year,
		c.Month,
		c.MonthNumber,
		c.DueDate.String(),
		string(c.Status),
		c.Comments,
		string(filesJSON),
		nullDate(c.UploadDate),
		c.UploadedBy,
		nullDate(c.CompletedDate),
		c.TemplateID,
	}, nil
}

func (s *Store) ListChecks(ctx context.Context) ([]compliance.ComplianceCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+checkColumns+` FROM checks ORDER BY check_ref ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query checks: %w", err)
	}
	defer rows.Close()

	checks := []compliance.ComplianceCheck{}
	for rows.Next() {
		c, err := scanCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

func (s *Store) GetCheck(ctx context.Context, ref int) (compliance.ComplianceCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+checkColumns+` FROM checks WHERE check_ref = ?`, ref)
	c, err := scanCheck(row)
	if errors.Is(err, sql.ErrNoRows) {
		return compliance.ComplianceCheck{}, compliance.ErrCheckNotFound
	}
	return c, err
}

func (s *Store) UpdateCheck(ctx context.Context, c compliance.ComplianceCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	args, err := checkArgs(c)
	if err != nil {
		return err
	}
	// check_ref moves to the WHERE clause
	args = append(args[1:], c.CheckRef)

	res, err := s.db.ExecContext(ctx, `
		UPDATE checks SET
			action = ?, business_area = ?, frequency = ?, responsibility = ?, records = ?,
			priority = ?, year = ?, month = ?, month_number = ?, due_date = ?, status = ?,
			comments = ?, files_json = ?, upload_date = ?, uploaded_by = ?,
			completed_date = ?, template_id = ?
		WHERE check_ref = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update check %d: %w", c.CheckRef, err)
	}
	return requireAffected(res, compliance.ErrCheckNotFound)
}

func (s *Store) DeleteCheck(ctx context.Context, ref int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM checks WHERE check_ref = ?`, ref)
	if err != nil {
		return fmt.Errorf("failed to delete check %d: %w", ref, err)
	}
	return requireAffected(res, compliance.ErrCheckNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheck(row scanner) (compliance.ComplianceCheck, error) {
	var (
		c                          compliance.ComplianceCheck
		frequency, records, status string
		dueDate, filesJSON         string
		uploadDate, completedDate  sql.NullString
	)
	err := row.Scan(
		&c.CheckRef, &c.Action, &c.BusinessArea, &frequency, &c.Responsibility, &records,
		&c.Priority, &c.Year, &c.Month, &c.MonthNumber, &dueDate, &status, &c.Comments,
		&filesJSON, &uploadDate, &c.UploadedBy, &completedDate, &c.TemplateID,
	)
	if err != nil {
		return c, err
	}

	c.Frequency = compliance.Frequency(frequency)
	c.Records = compliance.RecordType(records)
	c.Status = compliance.Status(status)
	if c.DueDate, err = compliance.ParseDate(dueDate); err != nil {
		return c, err
	}
	if err := json.Unmarshal([]byte(filesJSON), &c.Files); err != nil {
		return c, fmt.Errorf("failed to decode files of check %d: %w", c.CheckRef, err)
	}
	if c.Files == nil {
		c.Files = []compliance.FileDescriptor{}
	}
	if c.UploadDate, err = parseNullDate(uploadDate); err != nil {
		return c, err
	}
	if c.CompletedDate, err = parseNullDate(completedDate); err != nil {
		return c, err
	}
	return c, nil
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

const templateColumns = `id, name, business_area, description, regulations, frequency,
	start_date, records, responsibility, created_at`

func (s *Store) ListTemplates(ctx context.Context) ([]compliance.CheckTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	templates := []compliance.CheckTemplate{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) GetTemplate(ctx context.Context, id string) (compliance.CheckTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return compliance.CheckTemplate{}, compliance.ErrTemplateNotFound
	}
	return t, err
}

// SaveTemplate upserts by id. An update keeps the row's position.
func (s *Store) SaveTemplate(ctx context.Context, t compliance.CheckTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	startDate := t.StartDate
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			business_area = excluded.business_area,
			description = excluded.description,
			regulations = excluded.regulations,
			frequency = excluded.frequency,
			start_date = excluded.start_date,
			records = excluded.records,
			responsibility = excluded.responsibility`,
		t.ID, t.Name, t.BusinessArea, t.Description, t.Regulations, string(t.Frequency),
		nullDate(&startDate), string(t.Records), t.Responsibility,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template %s: %w", id, err)
	}
	return requireAffected(res, compliance.ErrTemplateNotFound)
}

func scanTemplate(row scanner) (compliance.CheckTemplate, error) {
	var (
		t                  compliance.CheckTemplate
		frequency, records string
		startDate          sql.NullString
		createdAt          string
	)
	err := row.Scan(&t.ID, &t.Name, &t.BusinessArea, &t.Description, &t.Regulations,
		&frequency, &startDate, &records, &t.Responsibility, &createdAt)
	if err != nil {
		return t, err
	}
	t.Frequency = compliance.Frequency(frequency)
	t.Records = compliance.RecordType(records)
	if startDate.Valid {
		if t.StartDate, err = compliance.ParseDate(startDate.String); err != nil {
			return t, err
		}
	}
	if t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return t, fmt.Errorf("invalid created_at for template %s: %w", t.ID, err)
	}
	return t, nil
}

// =============================================================================
// REFERENCE STORE
// =============================================================================

func (s *Store) ListAssignees(ctx context.Context) ([]compliance.Assignee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, email, department FROM assignees ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignees: %w", err)
	}
	defer rows.Close()

	assignees := []compliance.Assignee{}
	for rows.Next() {
		var a compliance.Assignee
		if err := rows.Scan(&a.Name, &a.Email, &a.Department); err != nil {
			return nil, err
		}
		assignees = append(assignees, a)
	}
	return assignees, rows.Err()
}

func (s *Store) SaveAssignee(ctx context.Context, a compliance.Assignee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assignees (name, email, department) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET email = excluded.email, department = excluded.department`,
		a.Name, a.Email, a.Department)
	if err != nil {
		return fmt.Errorf("failed to save assignee %s: %w", a.Name, err)
	}
	return nil
}

func (s *Store) DeleteAssignee(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM assignees WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete assignee %s: %w", name, err)
	}
	return requireAffected(res, compliance.ErrAssigneeNotFound)
}

func (s *Store) ListBusinessAreas(ctx context.Context) ([]compliance.BusinessArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, description, owner FROM business_areas ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query business areas: %w", err)
	}
	defer rows.Close()

	areas := []compliance.BusinessArea{}
	for rows.Next() {
		var b compliance.BusinessArea
		if err := rows.Scan(&b.Name, &b.Description, &b.Owner); err != nil {
			return nil, err
		}
		areas = append(areas, b)
	}
	return areas, rows.Err()
}

func (s *Store) SaveBusinessArea(ctx context.Context, b compliance.BusinessArea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_areas (name, description, owner) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET description = excluded.description, owner = excluded.owner`,
		b.Name, b.Description, b.Owner)
	if err != nil {
		return fmt.Errorf("failed to save business area %s: %w", b.Name, err)
	}
	return nil
}

func (s *Store) DeleteBusinessArea(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM business_areas WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete business area %s: %w", name, err)
	}
	return requireAffected(res, compliance.ErrBusinessAreaNotFound)
}

// =============================================================================
// HELPERS
// =============================================================================

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullDate(d *compliance.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (*compliance.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := compliance.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// isRefConflict reports a check_ref primary key clash. Other constraint
// failures (month range, NOT NULL) are plain insert errors.
func isRefConflict(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
