package sheets

import (
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Column names of the tabular ledger format.
const (
	ColDate        = "Date"
	ColType        = "Type"
	ColAmount      = "Amount"
	ColCategory    = "Category"
	ColDescription = "Description"
)

// Header is the header row written by every tabular store.
var Header = []string{ColDate, ColType, ColAmount, ColCategory, ColDescription}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformedRow  = errors.New("malformed row")
)

// EncodeRecord converts an entry to a row matching Header. Amounts keep their
// full precision.
func EncodeRecord(e core.Entry) []string {
	return []string{
		e.Date.String(),
		e.Kind.String(),
		e.Amount.String(),
		e.Category,
		e.Description,
	}
}

// EncodeLedger returns the header followed by one row per entry.
func EncodeLedger(l core.Ledger) [][]string {
	rows := make([][]string, 0, l.Len()+1)
	rows = append(rows, append([]string(nil), Header...))
	for _, e := range l.Entries() {
		rows = append(rows, EncodeRecord(e))
	}
	return rows
}

// columns maps the header of a stored table to field positions.
type columns struct {
	date, kind, amount, category, description int
}

func parseHeader(header []string) (columns, error) {
	cols := columns{-1, -1, -1, -1, -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "date":
			cols.date = i
		case "type", "kind":
			cols.kind = i
		case "amount":
			cols.amount = i
		case "category":
			cols.category = i
		case "description":
			cols.description = i
		}
	}
	var missing []string
	if cols.date < 0 {
		missing = append(missing, ColDate)
	}
	if cols.amount < 0 {
		missing = append(missing, ColAmount)
	}
	if cols.category < 0 {
		missing = append(missing, ColCategory)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s; got headers=%v", ErrMissingColumn, strings.Join(missing, ","), header)
	}
	return cols, nil
}

// RowError names the record that failed to decode. Row is 1-based and counts
// the header.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }

// DecodeRecords parses a table whose first row is a header. Columns are found
// by name, so both the legacy layouts (no Type column, or no Description
// column) and the current one load. A missing or empty Type means Expense.
// An empty table, or one with only a header, is an empty ledger.
func DecodeRecords(rows [][]string) (core.Ledger, error) {
	if len(rows) == 0 {
		return core.Ledger{}, nil
	}
	cols, err := parseHeader(rows[0])
	if err != nil {
		return core.Ledger{}, err
	}
	entries := make([]core.Entry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		e, err := decodeRow(cols, row)
		if err != nil {
			// i+2: one for the header, one for 1-based numbering.
			return core.Ledger{}, &RowError{Row: i + 2, Err: err}
		}
		entries = append(entries, e)
	}
	return core.NewLedger(entries...), nil
}

func decodeRow(cols columns, row []string) (core.Entry, error) {
	date, err := core.ParseDate(field(row, cols.date))
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	kind, err := core.ParseKind(field(row, cols.kind))
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(field(row, cols.amount)))
	if err != nil {
		return core.Entry{}, fmt.Errorf("%w: amount %q", ErrMalformedRow, field(row, cols.amount))
	}
	e := core.Entry{
		Date:        date,
		Kind:        kind,
		Amount:      amount,
		Category:    field(row, cols.category),
		Description: field(row, cols.description),
	}
	if err := e.Validate(); err != nil {
		return core.Entry{}, fmt.Errorf("%w: %w", ErrMalformedRow, err)
	}
	return e, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
