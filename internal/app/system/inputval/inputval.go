// Package inputval provides form input validation using waffle/pantry/validate.
//
// Define an input struct with validate tags, populate it from form values,
// and call Validate to get user-friendly error messages:
//
//	input := inputval.CheckInInput{
//	    Name:     r.FormValue("name"),
//	    IDNumber: r.FormValue("id_number"),
//	    BadgeID:  r.FormValue("badge_id"),
//	    TimeIn:   r.FormValue("time_in"),
//	}
//	if res := inputval.Validate(input.Trimmed()); res.HasErrors() {
//	    renderWithError(w, r, res.First())
//	    return
//	}
package inputval

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/stratavisit/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the fields that failed, for highlighting inputs.
func (r *Result) Fields() map[string]bool {
	out := make(map[string]bool, len(r.Errors))
	for _, e := range r.Errors {
		out[e.Field] = true
	}
	return out
}

/*─────────────────────────────────────────────────────────────────────────────*
| Form inputs                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// CheckInInput is the check-in form. Purpose and guest count are optional.
type CheckInInput struct {
	Name     string `validate:"required" label:"Name"`
	IDNumber string `validate:"required" label:"ID number"`
	BadgeID  string `validate:"required" label:"Visitor badge"`
	TimeIn   string `validate:"required" label:"Time in"`
}

// Trimmed returns a copy with surrounding whitespace removed.
func (in CheckInInput) Trimmed() CheckInInput {
	return CheckInInput{
		Name:     strings.TrimSpace(in.Name),
		IDNumber: strings.TrimSpace(in.IDNumber),
		BadgeID:  strings.TrimSpace(in.BadgeID),
		TimeIn:   strings.TrimSpace(in.TimeIn),
	}
}

// CheckOutInput is the check-out form.
type CheckOutInput struct {
	VisitorID string `validate:"required" label:"Visitor"`
	TimeOut   string `validate:"required" label:"Time out"`
}

// Trimmed returns a copy with surrounding whitespace removed.
func (in CheckOutInput) Trimmed() CheckOutInput {
	return CheckOutInput{
		VisitorID: strings.TrimSpace(in.VisitorID),
		TimeOut:   strings.TrimSpace(in.TimeOut),
	}
}

// EditInput is the edit form for an existing row.
type EditInput struct {
	Name     string `validate:"required" label:"Name"`
	IDNumber string `validate:"required" label:"ID number"`
	BadgeID  string `validate:"required" label:"Visitor badge"`
	TimeIn   string `validate:"required" label:"Time in"`
	Status   string `validate:"required,visitstatus" label:"Status"`
}

// Trimmed returns a copy with surrounding whitespace removed and the status
// upper-cased.
func (in EditInput) Trimmed() EditInput {
	return EditInput{
		Name:     strings.TrimSpace(in.Name),
		IDNumber: strings.TrimSpace(in.IDNumber),
		BadgeID:  strings.TrimSpace(in.BadgeID),
		TimeIn:   strings.TrimSpace(in.TimeIn),
		Status:   strings.ToUpper(strings.TrimSpace(in.Status)),
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Validator                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		// visitstatus: IN or OUT
		customValidator.RegisterRuleFunc("visitstatus", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidStatus(s)
			}
			return false
		}, "visitstatus")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names.
//
// Custom rules registered here:
//   - visitstatus: field must be IN or OUT
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}
		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "visitstatus":
		vals := models.AllStatusValues()
		names := make([]string, len(vals))
		for i, v := range vals {
			names[i] = string(v)
		}
		return label + " must be one of: " + strings.Join(names, ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	default:
		return label + " is invalid."
	}
}

// IsValidStatus checks if s (case-insensitive) names a visitor status.
func IsValidStatus(s string) bool {
	return models.VisitorStatus(strings.ToUpper(strings.TrimSpace(s))).Valid()
}
