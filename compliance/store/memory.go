// Package store provides in-memory compliance.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/compliance-tracker/compliance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	checks    map[int]compliance.ComplianceCheck
	templates []compliance.CheckTemplate
	assignees map[string]compliance.Assignee
	areas     map[string]compliance.BusinessArea
}

func NewMemory() *Memory {
	return &Memory{
		checks:    make(map[int]compliance.ComplianceCheck),
		assignees: make(map[string]compliance.Assignee),
		areas:     make(map[string]compliance.BusinessArea),
	}
}

// =============================================================================
// CHECKS
// =============================================================================

func (m *Memory) ListChecks(_ context.Context) ([]compliance.ComplianceCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compliance.ComplianceCheck, 0, len(m.checks))
	for _, c := range m.checks {
		result = append(result, cloneCheck(c))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CheckRef < result[j].CheckRef })
	return result, nil
}

func (m *Memory) GetCheck(_ context.Context, ref int) (compliance.ComplianceCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.checks[ref]
	if !ok {
		return compliance.ComplianceCheck{}, compliance.ErrCheckNotFound
	}
	return cloneCheck(c), nil
}

// AppendChecks adds a batch atomically.
func (m *Memory) AppendChecks(_ context.Context, checks []compliance.ComplianceCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check every ref first so a conflict writes nothing
	batch := make(map[int]bool, len(checks))
	for _, c := range checks {
		if _, exists := m.checks[c.CheckRef]; exists || batch[c.CheckRef] {
			return &compliance.RefConflictError{CheckRef: c.CheckRef}
		}
		batch[c.CheckRef] = true
	}

	for _, c := range checks {
		m.checks[c.CheckRef] = cloneCheck(c)
	}
	return nil
}

func (m *Memory) UpdateCheck(_ context.Context, c compliance.ComplianceCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.checks[c.CheckRef]; !ok {
		return compliance.ErrCheckNotFound
	}
	m.checks[c.CheckRef] = cloneCheck(c)
	return nil
}

func (m *Memory) DeleteCheck(_ context.Context, ref int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.checks[ref]; !ok {
		return compliance.ErrCheckNotFound
	}
	delete(m.checks, ref)
	return nil
}

func cloneCheck(c compliance.ComplianceCheck) compliance.ComplianceCheck {
	c.Files = append([]compliance.FileDescriptor{}, c.Files...)
	if c.UploadDate != nil {
		d := *c.UploadDate
		c.UploadDate = &d
	}
	if c.CompletedDate != nil {
		d := *c.CompletedDate
		c.CompletedDate = &d
	}
	return c
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (m *Memory) ListTemplates(_ context.Context) ([]compliance.CheckTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]compliance.CheckTemplate{}, m.templates...), nil
}

func (m *Memory) GetTemplate(_ context.Context, id string) (compliance.CheckTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return compliance.CheckTemplate{}, compliance.ErrTemplateNotFound
}

// SaveTemplate replaces in place to keep creation order stable.
func (m *Memory) SaveTemplate(_ context.Context, t compliance.CheckTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.templates {
		if m.templates[i].ID == t.ID {
			m.templates[i] = t
			return nil
		}
	}
	m.templates = append(m.templates, t)
	return nil
}

func (m *Memory) DeleteTemplate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.templates {
		if m.templates[i].ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return compliance.ErrTemplateNotFound
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (m *Memory) ListAssignees(_ context.Context) ([]compliance.Assignee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compliance.Assignee, 0, len(m.assignees))
	for _, a := range m.assignees {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveAssignee(_ context.Context, a compliance.Assignee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignees[a.Name] = a
	return nil
}

func (m *Memory) DeleteAssignee(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.assignees[name]; !ok {
		return compliance.ErrAssigneeNotFound
	}
	delete(m.assignees, name)
	return nil
}

func (m *Memory) ListBusinessAreas(_ context.Context) ([]compliance.BusinessArea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compliance.BusinessArea, 0, len(m.areas))
	for _, b := range m.areas {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveBusinessArea(_ context.Context, b compliance.BusinessArea) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas[b.Name] = b
	return nil
}

func (m *Memory) DeleteBusinessArea(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.areas[name]; !ok {
		return compliance.ErrBusinessAreaNotFound
	}
	delete(m.areas, name)
	return nil
}
