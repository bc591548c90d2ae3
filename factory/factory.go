/*
Package factory converts admin JSON payloads into compliance records.

PURPOSE:
  The admin surface edits templates, ad-hoc checks and reference data as
  JSON. The factory validates those payloads (struct tags evaluated by
  go-playground/validator) and builds the compliance types, assigning ids
  where the payload leaves them empty.

JSON SCHEMA (template):
  {
    "name": "Monthly AML review",
    "businessArea": "Finance",
    "description": "Review AML alerts",
    "regulations": "MLR 2017",
    "frequency": "Monthly",
    "startDate": "2025-01-01",
    "records": "Review",
    "responsibility": "Alice"
  }

VALIDATION:
  Failures wrap compliance.ErrValidation. FieldErrors extracts a
  field -> rule map for API responses.

USAGE:
  f := factory.New()
  tmpl, err := f.ParseTemplate(body)
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/warp/compliance-tracker/compliance"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type TemplateJSON struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name" validate:"required"`
	BusinessArea   string `json:"businessArea" validate:"required"`
	Description    string `json:"description" validate:"required"`
	Regulations    string `json:"regulations"`
	Frequency      string `json:"frequency" validate:"required,frequency"`
	StartDate      string `json:"startDate" validate:"required,isodate"`
	Records        string `json:"records" validate:"omitempty,records"`
	Responsibility string `json:"responsibility,omitempty"`
}

// CheckJSON is an ad-hoc or edited compliance check. CheckRef is ignored on
// create; the service allocates it.
type CheckJSON struct {
	CheckRef       int    `json:"checkRef,omitempty" validate:"gte=0"`
	Action         string `json:"action" validate:"required"`
	BusinessArea   string `json:"businessArea" validate:"required"`
	Frequency      string `json:"frequency" validate:"required,frequency"`
	Responsibility string `json:"responsibility" validate:"required"`
	Records        string `json:"records" validate:"omitempty,records"`
	Priority       string `json:"priority"`
	Year           int    `json:"year" validate:"required,gte=1900,lte=9999"`
	Month          string `json:"month,omitempty"`
	MonthNumber    int    `json:"monthNumber" validate:"omitempty,gte=1,lte=12"`
	DueDate        string `json:"dueDate,omitempty" validate:"omitempty,isodate"`
	Status         string `json:"status,omitempty" validate:"omitempty,status"`
	Comments       string `json:"comments"`
	TemplateID     string `json:"templateId,omitempty"`
}

type FileJSON struct {
	Name       string `json:"name" validate:"required"`
	Path       string `json:"path" validate:"required"`
	URL        string `json:"url,omitempty" validate:"omitempty,url"`
	Size       int64  `json:"size" validate:"gte=0"`
	UploadedBy string `json:"uploadedBy" validate:"required"`
}

type AssigneeJSON struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Department string `json:"department,omitempty"`
}

type BusinessAreaJSON struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
}

// =============================================================================
// FACTORY
// =============================================================================

type Factory struct {
	validate *validator.Validate
	newID    func() string
	now      func() time.Time
}

func New() *Factory {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	mustRegister(v, "frequency", func(fl validator.FieldLevel) bool {
		return compliance.Frequency(fl.Field().String()).Valid()
	})
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return compliance.Status(fl.Field().String()).Valid()
	})
	mustRegister(v, "records", func(fl validator.FieldLevel) bool {
		return compliance.RecordType(fl.Field().String()).Valid()
	})
	mustRegister(v, "isodate", func(fl validator.FieldLevel) bool {
		_, err := compliance.ParseDate(fl.Field().String())
		return err == nil
	})

	return &Factory{
		validate: v,
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// jsonFieldName reports validation failures by JSON field name.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

func (f *Factory) check(v any) error {
	if err := f.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", compliance.ErrValidation, err)
	}
	return nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", compliance.ErrValidation, err)
	}
	return nil
}

// FieldErrors maps JSON field names to the failed rule. It returns nil when
// err carries no field-level validation errors.
func FieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// =============================================================================
// TEMPLATES
// =============================================================================

// ParseTemplate builds a new template from a request body. An id in the
// payload is ignored; the template always gets a fresh one.
func (f *Factory) ParseTemplate(data []byte) (compliance.CheckTemplate, error) {
	var tj TemplateJSON
	if err := decode(data, &tj); err != nil {
		return compliance.CheckTemplate{}, err
	}
	tj.ID = ""
	return f.Template(tj)
}

// Template validates tj and builds a template, assigning a new id when the
// payload has none.
func (f *Factory) Template(tj TemplateJSON) (compliance.CheckTemplate, error) {
	if err := f.check(tj); err != nil {
		return compliance.CheckTemplate{}, err
	}
	start, err := compliance.ParseDate(tj.StartDate)
	if err != nil {
		return compliance.CheckTemplate{}, fmt.Errorf("%w: %v", compliance.ErrValidation, err)
	}

	id := tj.ID
	if id == "" {
		id = f.newID()
	}
	records := compliance.RecordType(tj.Records)
	if records == "" {
		records = compliance.RecordDocument
	}
	return compliance.CheckTemplate{
		ID:             id,
		Name:           strings.TrimSpace(tj.Name),
		BusinessArea:   tj.BusinessArea,
		Description:    tj.Description,
		Regulations:    tj.Regulations,
		Frequency:      compliance.Frequency(tj.Frequency),
		StartDate:      start,
		Records:        records,
		Responsibility: tj.Responsibility,
		CreatedAt:      f.now().UTC(),
	}, nil
}

// =============================================================================
// CHECKS
// =============================================================================

func (f *Factory) ParseCheck(data []byte) (compliance.ComplianceCheck, error) {
	var cj CheckJSON
	if err := decode(data, &cj); err != nil {
		return compliance.ComplianceCheck{}, err
	}
	return f.Check(cj)
}

// Check validates cj. Month/monthNumber agreement, the due date default and
// the status default are applied by the service.
func (f *Factory) Check(cj CheckJSON) (compliance.ComplianceCheck, error) {
	if err := f.check(cj); err != nil {
		return compliance.ComplianceCheck{}, err
	}
	if cj.MonthNumber == 0 && cj.Month == "" {
		return compliance.ComplianceCheck{}, fmt.Errorf("%w: month or monthNumber is required", compliance.ErrValidation)
	}
	due, err := compliance.ParseDate(cj.DueDate)
	if err != nil {
		return compliance.ComplianceCheck{}, fmt.Errorf("%w: %v", compliance.ErrValidation, err)
	}
	return compliance.ComplianceCheck{
		CheckRef:       cj.CheckRef,
		Action:         cj.Action,
		BusinessArea:   cj.BusinessArea,
		Frequency:      compliance.Frequency(cj.Frequency),
		Responsibility: cj.Responsibility,
		Records:        compliance.RecordType(cj.Records),
		Priority:       cj.Priority,
		Year:           cj.Year,
		Month:          cj.Month,
		MonthNumber:    cj.MonthNumber,
		DueDate:        due,
		Status:         compliance.Status(cj.Status),
		Comments:       cj.Comments,
		Files:          []compliance.FileDescriptor{},
		TemplateID:     cj.TemplateID,
	}, nil
}

// File builds an uploaded-file descriptor with a fresh id.
func (f *Factory) File(fj FileJSON) (compliance.FileDescriptor, error) {
	if err := f.check(fj); err != nil {
		return compliance.FileDescriptor{}, err
	}
	return compliance.FileDescriptor{
		ID:         f.newID(),
		Name:       fj.Name,
		Path:       fj.Path,
		URL:        fj.URL,
		Size:       fj.Size,
		UploadedBy: fj.UploadedBy,
		UploadedAt: f.now().UTC(),
	}, nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (f *Factory) Assignee(aj AssigneeJSON) (compliance.Assignee, error) {
	aj.Name = strings.TrimSpace(aj.Name)
	if err := f.check(aj); err != nil {
		return compliance.Assignee{}, err
	}
	return compliance.Assignee{Name: aj.Name, Email: aj.Email, Department: aj.Department}, nil
}

func (f *Factory) BusinessArea(bj BusinessAreaJSON) (compliance.BusinessArea, error) {
	bj.Name = strings.TrimSpace(bj.Name)
	if err := f.check(bj); err != nil {
		return compliance.BusinessArea{}, err
	}
	return compliance.BusinessArea{Name: bj.Name, Description: bj.Description, Owner: bj.Owner}, nil
}
