package models

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/NotThatKindOfDrLiz/knowtation/internal/common"
)

// FieldError reports a single invalid field on a record.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ValidationErrors collects all field errors found on one record.
// It matches common.ErrValidation via errors.Is.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "invalid record: " + strings.Join(parts, "; ")
}

func (e ValidationErrors) Is(target error) bool {
	return target == common.ErrValidation
}

// doiPattern matches the modern DOI form ("10.<registrant>/<suffix>").
// Values are validated on input but always stored verbatim.
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// Validate checks the record's fields and returns a ValidationErrors with one
// entry per violation, or nil if the record is valid.
func (r *CitationRecord) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, FieldError{Field: "id", Reason: "must not be empty"})
	}
	if strings.TrimSpace(r.Title) == "" {
		errs = append(errs, FieldError{Field: "title", Reason: "must not be empty"})
	}
	for i, a := range r.Authors {
		if strings.TrimSpace(a) == "" {
			errs = append(errs, FieldError{
				Field:  fmt.Sprintf("authors[%d]", i),
				Reason: "must not be empty",
			})
		}
	}
	if r.Year < 0 {
		errs = append(errs, FieldError{Field: "year", Reason: "must not be negative"})
	}
	if r.DOI != "" && !doiPattern.MatchString(r.DOI) {
		errs = append(errs, FieldError{Field: "doi", Reason: "does not look like a DOI"})
	}
	if r.URL != "" {
		u, err := url.Parse(r.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, FieldError{Field: "url", Reason: "must be an absolute http(s) URL"})
		}
	}
	switch r.Visibility {
	case VisibilityPublic, VisibilityPrivate:
	default:
		errs = append(errs, FieldError{Field: "visibility", Reason: "must be public or private"})
	}
	if r.UpdatedAt < r.CreatedAt {
		errs = append(errs, FieldError{Field: "updated_at", Reason: "must not precede created_at"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
