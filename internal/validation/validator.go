// Package validation turns raw user input into ledger entries.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/go-playground/validator/v10"
)

// EntryInput is an entry as typed into the web form, a JSON body or the CLI.
type EntryInput struct {
	Date        string `json:"date" validate:"omitempty,isodate"`
	Type        string `json:"type" validate:"omitempty,entrytype"`
	Amount      string `json:"amount" validate:"required,amount"`
	Category    string `json:"category" validate:"required,max=64"`
	Description string `json:"description" validate:"max=256"`
}

// Validator wraps the go-playground validator with the ledger rules.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the clock used to default an empty date.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(opts ...Option) *Validator {
	v := validator.New()

	_ = v.RegisterValidation("amount", validateAmount)
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("entrytype", validateEntryType)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	out := &Validator{validate: v, now: time.Now}
	for _, opt := range opts {
		opt(out)
	}
	return out
}

// Entry trims and validates in and converts it to a core.Entry. An empty
// date means today and an empty type means Expense. The returned error is a
// FieldErrors.
func (v *Validator) Entry(in EntryInput) (core.Entry, error) {
	in = in.trimmed()
	if err := v.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return core.Entry{}, fromValidationErrors(verrs)
		}
		return core.Entry{}, err
	}

	// The rules above already checked every field, so these cannot fail.
	date := core.DateOf(v.now())
	if in.Date != "" {
		date, _ = core.ParseDate(in.Date)
	}
	kind, _ := core.ParseKind(in.Type)
	amount, _ := core.ParseAmount(in.Amount)

	e := core.Entry{
		Date:        date,
		Kind:        kind,
		Amount:      amount,
		Category:    in.Category,
		Description: in.Description,
	}
	return e, nil
}

func (in EntryInput) trimmed() EntryInput {
	return EntryInput{
		Date:        strings.TrimSpace(in.Date),
		Type:        strings.TrimSpace(in.Type),
		Amount:      strings.TrimSpace(in.Amount),
		Category:    core.NormalizeNewlines(strings.TrimSpace(in.Category)),
		Description: core.NormalizeNewlines(strings.TrimSpace(in.Description)),
	}
}

func validateAmount(fl validator.FieldLevel) bool {
	_, err := core.ParseAmount(fl.Field().String())
	return err == nil
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := core.ParseDate(fl.Field().String())
	return err == nil
}

func validateEntryType(fl validator.FieldLevel) bool {
	_, err := core.ParseKind(fl.Field().String())
	return err == nil
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
	cause   error
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// FieldErrors lists every rejected field of one input. It matches
// core.ErrInvalidEntry and the detail error of each field with errors.Is.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	msgs := make([]string, len(fe))
	for i, e := range fe {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (fe FieldErrors) Unwrap() []error {
	out := []error{core.ErrInvalidEntry}
	for _, e := range fe {
		if e.cause != nil {
			out = append(out, e.cause)
		}
	}
	return out
}

// Messages maps field names to their messages, for rendering next to inputs.
func (fe FieldErrors) Messages() map[string]string {
	out := make(map[string]string, len(fe))
	for _, e := range fe {
		out[e.Field] = e.Message
	}
	return out
}

func fromValidationErrors(verrs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
			cause:   fieldCause(fe.Field(), fe.Tag()),
		})
	}
	return out
}

func fieldCause(field, tag string) error {
	switch field {
	case "amount":
		return core.ErrInvalidAmount
	case "category":
		if tag == "required" {
			return core.ErrEmptyCategory
		}
		return nil
	case "type":
		return core.ErrInvalidKind
	case "date":
		return core.ErrInvalidDate
	default:
		return nil
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "amount":
		return "must be a number greater than zero"
	case "isodate":
		return "must be a date in the form YYYY-MM-DD"
	case "entrytype":
		return "must be Income or Expense"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
