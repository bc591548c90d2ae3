/*
handlers.go - HTTP API handlers for the compliance tracker

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP request/response
  and JSON serialization, and delegates to compliance.Service.

ENDPOINTS:
  Checks:
    GET    /api/checks                 List checks (year, month, businessArea, status filters)
    POST   /api/checks                 Create an ad-hoc check
    GET    /api/checks/{ref}           Get one check
    PUT    /api/checks/{ref}           Replace a check
    DELETE /api/checks/{ref}           Delete a check
    POST   /api/checks/{ref}/status    Status transition
    POST   /api/checks/{ref}/files     Record an uploaded file

  Templates:
    GET/POST         /api/templates
    GET/PUT/DELETE   /api/templates/{id}

  Reference data:
    GET/POST /api/assignees,      DELETE /api/assignees/{name}
    GET/POST /api/business-areas, DELETE /api/business-areas/{name}

  Generation:
    POST   /api/generate/period        {"year":2025,"month":3}
    POST   /api/generate/year          {"year":2025,"confirm":true}
    POST   /api/statuses/refresh
    GET    /api/summary

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, empty generation inputs, invalid periods
  - 404: Check/template/reference record not found
  - 409: checkRef conflict
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/compliance-tracker/compliance"
	"github.com/warp/compliance-tracker/factory"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *compliance.Service
	Factory *factory.Factory

	log *logrus.Entry
}

func NewHandler(svc *compliance.Service, log *logrus.Entry) *Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handler{
		Service: svc,
		Factory: factory.New(),
		log:     log,
	}
}

// =============================================================================
// CHECK HANDLERS
// =============================================================================

func (h *Handler) ListChecks(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	checks, err := h.Service.ListChecks(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to list checks", err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

func (h *Handler) GetCheck(w http.ResponseWriter, r *http.Request) {
	ref, ok := checkRefParam(w, r)
	if !ok {
		return
	}
	c, err := h.Service.Store.GetCheck(r.Context(), ref)
	if err != nil {
		h.fail(w, "Failed to get check", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateCheck stores an ad-hoc check. The ref is allocated server side.
func (h *Handler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Factory.ParseCheck(body)
	if err != nil {
		h.fail(w, "Invalid check", err)
		return
	}
	created, err := h.Service.CreateCheck(r.Context(), c)
	if err != nil {
		h.fail(w, "Failed to create check", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateCheck edits a check. Files already attached are kept.
func (h *Handler) UpdateCheck(w http.ResponseWriter, r *http.Request) {
	ref, ok := checkRefParam(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	edit, err := h.Factory.ParseCheck(body)
	if err != nil {
		h.fail(w, "Invalid check", err)
		return
	}
	updated, err := h.Service.UpdateCheck(r.Context(), ref, edit)
	if err != nil {
		h.fail(w, "Failed to update check", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteCheck(w http.ResponseWriter, r *http.Request) {
	ref, ok := checkRefParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteCheck(r.Context(), ref); err != nil {
		h.fail(w, "Failed to delete check", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetCheckStatus(w http.ResponseWriter, r *http.Request) {
	ref, ok := checkRefParam(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	c, err := h.Service.SetStatus(r.Context(), ref, req.Status)
	if err != nil {
		h.fail(w, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// AttachFile records an uploaded evidence file. The upload itself happens
// against the file host; this endpoint stores the descriptor.
func (h *Handler) AttachFile(w http.ResponseWriter, r *http.Request) {
	ref, ok := checkRefParam(w, r)
	if !ok {
		return
	}
	var req factory.FileJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	fd, err := h.Factory.File(req)
	if err != nil {
		h.fail(w, "Invalid file", err)
		return
	}
	c, err := h.Service.AttachFile(r.Context(), ref, fd)
	if err != nil {
		h.fail(w, "Failed to attach file", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Service.Store.ListTemplates(r.Context())
	if err != nil {
		h.fail(w, "Failed to list templates", err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Failed to get template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	t, err := h.Factory.ParseTemplate(body)
	if err != nil {
		h.fail(w, "Invalid template", err)
		return
	}
	if err := h.Service.Store.SaveTemplate(r.Context(), t); err != nil {
		h.fail(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	current, err := h.Service.Store.GetTemplate(r.Context(), id)
	if err != nil {
		h.fail(w, "Failed to get template", err)
		return
	}

	var req factory.TemplateJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id
	t, err := h.Factory.Template(req)
	if err != nil {
		h.fail(w, "Invalid template", err)
		return
	}
	t.CreatedAt = current.CreatedAt
	if err := h.Service.Store.SaveTemplate(r.Context(), t); err != nil {
		h.fail(w, "Failed to save template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Failed to delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REFERENCE DATA HANDLERS
// =============================================================================

func (h *Handler) ListAssignees(w http.ResponseWriter, r *http.Request) {
	assignees, err := h.Service.Store.ListAssignees(r.Context())
	if err != nil {
		h.fail(w, "Failed to list assignees", err)
		return
	}
	writeJSON(w, http.StatusOK, assignees)
}

func (h *Handler) CreateAssignee(w http.ResponseWriter, r *http.Request) {
	var req factory.AssigneeJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Factory.Assignee(req)
	if err != nil {
		h.fail(w, "Invalid assignee", err)
		return
	}
	if err := h.Service.Store.SaveAssignee(r.Context(), a); err != nil {
		h.fail(w, "Failed to save assignee", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) DeleteAssignee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store.DeleteAssignee(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, "Failed to delete assignee", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBusinessAreas(w http.ResponseWriter, r *http.Request) {
	areas, err := h.Service.Store.ListBusinessAreas(r.Context())
	if err != nil {
		h.fail(w, "Failed to list business areas", err)
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

func (h *Handler) CreateBusinessArea(w http.ResponseWriter, r *http.Request) {
	var req factory.BusinessAreaJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	b, err := h.Factory.BusinessArea(req)
	if err != nil {
		h.fail(w, "Invalid business area", err)
		return
	}
	if err := h.Service.Store.SaveBusinessArea(r.Context(), b); err != nil {
		h.fail(w, "Failed to save business area", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) DeleteBusinessArea(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Store.DeleteBusinessArea(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, "Failed to delete business area", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GENERATION HANDLERS
// =============================================================================

func (h *Handler) GenerateForPeriod(w http.ResponseWriter, r *http.Request) {
	var req GeneratePeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	result, err := h.Service.GenerateForPeriod(r.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		h.fail(w, "Generation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newGenerateResponse(result, false))
}

func (h *Handler) GenerateForYear(w http.ResponseWriter, r *http.Request) {
	var req GenerateYearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Generating checks for every month of %d requires confirm=true", req.Year), nil)
		return
	}
	result, err := h.Service.GenerateForYear(r.Context(), req.Year)
	if err != nil {
		h.fail(w, "Generation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newGenerateResponse(result, true))
}

func (h *Handler) RefreshStatuses(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.RefreshStatuses(r.Context())
	if err != nil {
		h.fail(w, "Failed to refresh statuses", err)
		return
	}
	writeJSON(w, http.StatusOK, RefreshResponse{Changed: n})
}

func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}
	s, err := h.Service.Summary(r.Context(), f)
	if err != nil {
		h.fail(w, "Failed to summarize checks", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseFilter(r *http.Request) (compliance.Filter, error) {
	q := r.URL.Query()
	var f compliance.Filter
	var err error
	if v := q.Get("year"); v != "" {
		if f.Year, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("year: %w", err)
		}
	}
	if v := q.Get("month"); v != "" {
		if m, ok := compliance.ParseMonthName(v); ok {
			f.MonthNumber = int(m)
		} else if f.MonthNumber, err = strconv.Atoi(v); err != nil {
			return f, fmt.Errorf("month: %w", err)
		}
	}
	f.BusinessArea = q.Get("businessArea")
	f.Status = compliance.Status(q.Get("status"))
	if f.Status != "" && !f.Status.Valid() {
		return f, fmt.Errorf("%w: %q", compliance.ErrInvalidStatus, f.Status)
	}
	return f, nil
}

func checkRefParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	ref, err := strconv.Atoi(chi.URLParam(r, "ref"))
	if err != nil || ref <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid check ref", err)
		return 0, false
	}
	return ref, true
}

// fail maps domain errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	var pe *compliance.PreconditionError
	switch {
	case errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, pe.Error(), nil)
	case compliance.IsClientError(err):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   message,
			Details: err.Error(),
			Fields:  factory.FieldErrors(err),
		})
	case compliance.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case compliance.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
