/*
Package mirror syncs a directory of JSON check files with a flat array.

PURPOSE:
  Checks can be kept as one file per check in a directory tree, which is
  easy to review and diff, while the dashboard consumes a single flat JSON
  array. Collect walks the tree into the array, Explode goes the other way.

LAYOUT:
  <root>/<year>/<month>/<checkRef>.json

  Collect accepts any layout: every *.json file under root is read, and a
  file may hold one check object or an array of checks.

INVARIANTS:
  - The flat array is ordered by checkRef
  - A checkRef appearing twice is an error naming both files
*/
package mirror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/compliance"
)

// DuplicateRefError reports a checkRef found in two files.
type DuplicateRefError struct {
	CheckRef int
	First    string
	Second   string
}

func (e *DuplicateRefError) Error() string {
	return fmt.Sprintf("check ref %d appears in %s and %s", e.CheckRef, e.First, e.Second)
}

func (e *DuplicateRefError) Unwrap() error { return compliance.ErrDuplicateCheckRef }

// Syncer runs mirror operations with logging.
type Syncer struct {
	log *logrus.Entry
}

func New(log *logrus.Entry) *Syncer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Syncer{log: log}
}

// Collect reads every *.json file under root into one list sorted by ref.
func (s *Syncer) Collect(root string) ([]compliance.ComplianceCheck, error) {
	seen := make(map[int]string)
	checks := []compliance.ComplianceCheck{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		found, err := readChecks(path)
		if err != nil {
			return err
		}
		for _, c := range found {
			if first, dup := seen[c.CheckRef]; dup {
				return &DuplicateRefError{CheckRef: c.CheckRef, First: first, Second: path}
			}
			seen[c.CheckRef] = path
			checks = append(checks, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(checks, func(i, j int) bool { return checks[i].CheckRef < checks[j].CheckRef })
	s.log.WithFields(logrus.Fields{"root": root, "checks": len(checks)}).Info("collected checks")
	return checks, nil
}

func readChecks(path string) ([]compliance.ComplianceCheck, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var list []compliance.ComplianceCheck
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return list, nil
	}
	var one compliance.ComplianceCheck
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []compliance.ComplianceCheck{one}, nil
}

// WriteFlat writes checks as one indented JSON array.
func (s *Syncer) WriteFlat(path string, checks []compliance.ComplianceCheck) error {
	if checks == nil {
		checks = []compliance.ComplianceCheck{}
	}
	if err := writeJSONFile(path, checks); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"path": path, "checks": len(checks)}).Info("wrote flat array")
	return nil
}

// ReadFlat reads an array written by WriteFlat.
func ReadFlat(path string) ([]compliance.ComplianceCheck, error) {
	return readChecks(path)
}

// Explode writes one file per check under root. A check without a valid
// year and month number fails the whole call before anything is written.
func (s *Syncer) Explode(root string, checks []compliance.ComplianceCheck) error {
	for _, c := range checks {
		if !c.Period().Valid() {
			return fmt.Errorf("check %d: %w", c.CheckRef, compliance.ErrInvalidPeriod)
		}
	}
	for _, c := range checks {
		if err := writeJSONFile(FilePath(root, c), c); err != nil {
			return err
		}
	}
	s.log.WithFields(logrus.Fields{"root": root, "checks": len(checks)}).Info("exploded checks")
	return nil
}

// FilePath is where Explode places a check. The month directory comes from
// MonthNumber; the free-text Month field never reaches the path.
func FilePath(root string, c compliance.ComplianceCheck) string {
	p := c.Period()
	return filepath.Join(root, strconv.Itoa(p.Year), p.MonthName(), strconv.Itoa(c.CheckRef)+".json")
}

func writeJSONFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
