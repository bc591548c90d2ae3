package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/compliance-tracker/compliance"
)

func TestMemory_AppendChecks_Atomic(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendChecks(ctx, []compliance.ComplianceCheck{{CheckRef: 2}}))

	err := m.AppendChecks(ctx, []compliance.ComplianceCheck{{CheckRef: 3}, {CheckRef: 2}})
	assert.ErrorIs(t, err, compliance.ErrDuplicateCheckRef)

	// Refs repeated inside one batch are rejected too
	err = m.AppendChecks(ctx, []compliance.ComplianceCheck{{CheckRef: 4}, {CheckRef: 4}})
	assert.ErrorIs(t, err, compliance.ErrDuplicateCheckRef)

	checks, err := m.ListChecks(ctx)
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.Equal(t, 2, checks[0].CheckRef)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AppendChecks(ctx, []compliance.ComplianceCheck{{
		CheckRef: 1,
		Files:    []compliance.FileDescriptor{{ID: "f1"}},
	}}))

	got, err := m.GetCheck(ctx, 1)
	require.NoError(t, err)
	got.Files[0].ID = "changed"
	got.Status = compliance.StatusCompleted

	again, err := m.GetCheck(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "f1", again.Files[0].ID)
	assert.Empty(t, again.Status)
}

func TestMemory_Templates_CreationOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, m.SaveTemplate(ctx, compliance.CheckTemplate{ID: id}))
	}
	require.NoError(t, m.SaveTemplate(ctx, compliance.CheckTemplate{ID: "c", Name: "updated"}))
	require.NoError(t, m.DeleteTemplate(ctx, "a"))

	templates, err := m.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "c", templates[0].ID)
	assert.Equal(t, "updated", templates[0].Name)
	assert.Equal(t, "b", templates[1].ID)

	_, err = m.GetTemplate(ctx, "a")
	assert.ErrorIs(t, err, compliance.ErrTemplateNotFound)
}

func TestMemory_NotFound(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.GetCheck(ctx, 1)
	assert.ErrorIs(t, err, compliance.ErrCheckNotFound)
	assert.ErrorIs(t, m.UpdateCheck(ctx, compliance.ComplianceCheck{CheckRef: 1}), compliance.ErrCheckNotFound)
	assert.ErrorIs(t, m.DeleteCheck(ctx, 1), compliance.ErrCheckNotFound)
	assert.ErrorIs(t, m.DeleteAssignee(ctx, "x"), compliance.ErrAssigneeNotFound)
	assert.ErrorIs(t, m.DeleteBusinessArea(ctx, "x"), compliance.ErrBusinessAreaNotFound)
}
