/*
scenarios.go - Seed data sets for demos and first-run setup

AVAILABLE SCENARIOS:
  reference-data:  Assignees and business areas only
  starter:         Reference data plus a set of templates covering every
                   frequency, ready for generation

HOW SCENARIOS WORK:
  Records are built through the factory, exactly as admin payloads are, and
  saved with upsert semantics. Loading a scenario twice is harmless.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenarioId": "starter"}
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/compliance-tracker/factory"
)

var scenarios = []ScenarioDTO{
	{
		ID:          "reference-data",
		Name:        "Reference Data",
		Description: "Assignees and business areas",
	},
	{
		ID:          "starter",
		Name:        "Starter Templates",
		Description: "Reference data plus monthly, quarterly, annual and event-driven templates",
	},
}

var seedAssignees = []factory.AssigneeJSON{
	{Name: "Compliance Officer", Email: "compliance@example.com", Department: "Compliance"},
	{Name: "Finance Lead", Email: "finance@example.com", Department: "Finance"},
	{Name: "IT Manager", Email: "it@example.com", Department: "IT"},
}

var seedAreas = []factory.BusinessAreaJSON{
	{Name: "Finance", Owner: "Finance Lead"},
	{Name: "Data Protection", Owner: "Compliance Officer"},
	{Name: "Information Security", Owner: "IT Manager"},
}

// Ids are fixed so reloading updates instead of duplicating.
var seedTemplates = []factory.TemplateJSON{
	{
		ID: "b7d0a1f2-0000-4000-8000-000000000001", Name: "AML alert review",
		BusinessArea: "Finance", Description: "Review and close AML monitoring alerts",
		Regulations: "MLR 2017", Frequency: "Monthly", StartDate: "2025-01-01",
		Records: "Review", Responsibility: "Finance Lead",
	},
	{
		ID: "b7d0a1f2-0000-4000-8000-000000000002", Name: "Access recertification",
		BusinessArea: "Information Security", Description: "Recertify privileged system access",
		Regulations: "ISO 27001 A.9", Frequency: "Quarterly", StartDate: "2025-01-01",
		Records: "Data Review",
	},
	{
		ID: "b7d0a1f2-0000-4000-8000-000000000003", Name: "Record of processing",
		BusinessArea: "Data Protection", Description: "Update the record of processing activities",
		Regulations: "GDPR Art. 30", Frequency: "Annually", StartDate: "2025-04-01",
		Records: "Document", Responsibility: "Compliance Officer",
	},
	{
		ID: "b7d0a1f2-0000-4000-8000-000000000004", Name: "Breach notification",
		BusinessArea: "Data Protection", Description: "Notify the regulator of a personal data breach",
		Regulations: "GDPR Art. 33", Frequency: "Event-driven", StartDate: "2025-01-01",
		Records: "Report",
	},
}

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "reference-data":
		err = h.loadReferenceData(ctx)
	case "starter":
		if err = h.loadReferenceData(ctx); err == nil {
			err = h.loadStarterTemplates(ctx)
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		h.fail(w, "Failed to load scenario", err)
		return
	}

	h.log.WithField("scenario", req.ScenarioID).Info("scenario loaded")
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

func (h *Handler) loadReferenceData(ctx context.Context) error {
	store := h.Service.Store
	for _, aj := range seedAssignees {
		a, err := h.Factory.Assignee(aj)
		if err != nil {
			return err
		}
		if err := store.SaveAssignee(ctx, a); err != nil {
			return err
		}
	}
	for _, bj := range seedAreas {
		b, err := h.Factory.BusinessArea(bj)
		if err != nil {
			return err
		}
		if err := store.SaveBusinessArea(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadStarterTemplates(ctx context.Context) error {
	for _, tj := range seedTemplates {
		t, err := h.Factory.Template(tj)
		if err != nil {
			return fmt.Errorf("seed template %q: %w", tj.Name, err)
		}
		if err := h.Service.Store.SaveTemplate(ctx, t); err != nil {
			return err
		}
	}
	return nil
}
