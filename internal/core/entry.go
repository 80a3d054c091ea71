package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

// DateLayout is the ISO-8601 calendar date layout used everywhere a date
// crosses a process boundary.
const DateLayout = "2006-01-02"

// MonthLayout keys monthly buckets ("2024-03").
const MonthLayout = "2006-01"

type (
	Kind string

	Date struct {
		time.Time
	}

	Entry struct {
		Date        Date
		Kind        Kind
		Amount      decimal.Decimal
		Category    string
		Description string // optional
	}
)

var (
	// ErrInvalidEntry is present in the chain of every error returned when an
	// entry is rejected by Ledger.Append.
	ErrInvalidEntry = errors.New("invalid entry")

	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidKind   = errors.New("invalid entry type")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidText   = errors.New("text contains a carriage return")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO-8601 calendar date ("2024-03-15").
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// MonthKey returns the year-month bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

// ParseKind accepts "Income" or "Expense" in any letter case. An empty string
// is an Expense, matching rows written before entries carried a type.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "expense":
		return Expense, nil
	case "income":
		return Income, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (k Kind) String() string {
	return string(k)
}

// Validate reports why an entry cannot be appended. Every non-nil result
// wraps ErrInvalidEntry together with the specific reason.
func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return invalid(err)
	}
	if !e.Kind.Valid() {
		return invalid(fmt.Errorf("%w: %q", ErrInvalidKind, e.Kind))
	}
	if !e.Amount.IsPositive() {
		return invalid(ErrInvalidAmount)
	}
	if strings.TrimSpace(e.Category) == "" {
		return invalid(ErrEmptyCategory)
	}
	// CSV readers fold CRLF inside quoted fields to LF, so a stored CR would
	// not survive a reload.
	if strings.ContainsRune(e.Category, '\r') || strings.ContainsRune(e.Description, '\r') {
		return invalid(ErrInvalidText)
	}
	return nil
}

// NormalizeNewlines rewrites CRLF and lone CR line breaks as LF.
func NormalizeNewlines(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

func (e Entry) IsExpense() bool { return e.Kind == Expense }

func (e Entry) IsIncome() bool { return e.Kind == Income }

// Equal compares field by field, treating amounts numerically.
func (e Entry) Equal(o Entry) bool {
	return e.Date.Equal(o.Date.Time) &&
		e.Kind == o.Kind &&
		e.Amount.Equal(o.Amount) &&
		e.Category == o.Category &&
		e.Description == o.Description
}

func invalid(reason error) error {
	return fmt.Errorf("%w: %w", ErrInvalidEntry, reason)
}
