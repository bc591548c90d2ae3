/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *Request:  Request body types from clients
  - *Response: Response wrappers
  Checks, templates and reference data travel as factory payloads on the way
  in and as compliance types on the way out; their JSON shape is the same.

VALIDATION:
  Payload validation lives in the factory package, not in DTOs.
*/
package api

import (
	"github.com/warp/compliance-tracker/compliance"
)

// GeneratePeriodRequest targets one month.
type GeneratePeriodRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// GenerateYearRequest targets every month of a year. Confirm must be true;
// year-wide generation can create hundreds of checks.
type GenerateYearRequest struct {
	Year    int  `json:"year"`
	Confirm bool `json:"confirm"`
}

// GenerateResponse reports a generation batch.
type GenerateResponse struct {
	Created      []compliance.ComplianceCheck `json:"created"`
	CreatedCount int                          `json:"createdCount"`
	Skipped      int                          `json:"skipped"`
	ByMonth      map[int]int                  `json:"byMonth,omitempty"`
	Message      string                       `json:"message"`
}

func newGenerateResponse(r compliance.Result, byMonth bool) GenerateResponse {
	resp := GenerateResponse{
		Created:      r.Created,
		CreatedCount: len(r.Created),
		Skipped:      r.Skipped,
		Message:      r.Summary(),
	}
	if resp.Created == nil {
		resp.Created = []compliance.ComplianceCheck{}
	}
	if byMonth {
		resp.ByMonth = r.CountByMonth()
	}
	return resp
}

// StatusRequest moves a check to a new status.
type StatusRequest struct {
	Status compliance.Status `json:"status"`
}

// RefreshResponse reports a status refresh.
type RefreshResponse struct {
	Changed int `json:"changed"`
}

// ScenarioDTO describes a seed data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
