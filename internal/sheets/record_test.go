package sheets

import (
	"testing"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLedgerWritesHeaderAndFullPrecision(t *testing.T) {
	l := core.NewLedger(core.Entry{
		Date:     core.NewDate(2024, 3, 1),
		Kind:     core.Income,
		Amount:   decimal.RequireFromString("1234.56789"),
		Category: "Salary",
	})
	rows := EncodeLedger(l)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2024-03-01", "Income", "1234.56789", "Salary", ""}, rows[1])
}

func TestDecodeRecordsLayouts(t *testing.T) {
	cases := []struct {
		name string
		rows [][]string
		want core.Entry
	}{
		{
			name: "current",
			rows: [][]string{Header, {"2024-01-05", "Income", "10.5", "Salary", "march pay"}},
			want: core.Entry{Date: core.NewDate(2024, 1, 5), Kind: core.Income, Amount: decimal.RequireFromString("10.5"), Category: "Salary", Description: "march pay"},
		},
		{
			name: "typed without description",
			rows: [][]string{{"Date", "Type", "Amount", "Category"}, {"2024-01-05", "Expense", "3", "Food"}},
			want: core.Entry{Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Amount: decimal.NewFromInt(3), Category: "Food"},
		},
		{
			name: "untyped with description",
			rows: [][]string{{"Date", "Amount", "Category", "Description"}, {"2024-01-05", "7.25", "Transport", "bus"}},
			want: core.Entry{Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Amount: decimal.RequireFromString("7.25"), Category: "Transport", Description: "bus"},
		},
		{
			name: "empty type cell and lower-case header",
			rows: [][]string{{"date", "type", "amount", "category"}, {"2024-01-05", "", "1", "Other"}},
			want: core.Entry{Date: core.NewDate(2024, 1, 5), Kind: core.Expense, Amount: decimal.NewFromInt(1), Category: "Other"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := DecodeRecords(tc.rows)
			require.NoError(t, err)
			require.Equal(t, 1, l.Len())
			assert.True(t, tc.want.Equal(l.At(0)), "got %+v", l.At(0))
		})
	}
}

func TestDecodeRecordsEmpty(t *testing.T) {
	l, err := DecodeRecords(nil)
	require.NoError(t, err)
	assert.True(t, l.IsEmpty())

	l, err = DecodeRecords([][]string{Header, {"", "", "", "", ""}})
	require.NoError(t, err)
	assert.True(t, l.IsEmpty())
}

func TestDecodeRecordsErrors(t *testing.T) {
	_, err := DecodeRecords([][]string{{"Date", "Type", "Category"}})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = DecodeRecords([][]string{Header, {"2024-01-01", "Expense", "abc", "Food", ""}})
	assert.ErrorIs(t, err, ErrMalformedRow)
	assert.Contains(t, err.Error(), "row 2")

	_, err = DecodeRecords([][]string{Header, {"01/01/2024", "Expense", "1", "Food", ""}})
	assert.ErrorIs(t, err, core.ErrInvalidDate)

	_, err = DecodeRecords([][]string{Header, {"2024-01-01", "Refund", "1", "Food", ""}})
	assert.ErrorIs(t, err, core.ErrInvalidKind)
}

func TestDecodeRecordsRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name   string
		row    []string
		reason error
	}{
		{"zero amount", []string{"2024-01-01", "Expense", "0", "Food", ""}, core.ErrInvalidAmount},
		{"negative amount", []string{"2024-01-01", "Income", "-5", "Salary", ""}, core.ErrInvalidAmount},
		{"blank category", []string{"2024-01-01", "Expense", "3", "  ", ""}, core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRecords([][]string{Header, EncodeRecord(validEntry()), tt.row})
			assert.ErrorIs(t, err, ErrMalformedRow)
			assert.ErrorIs(t, err, tt.reason)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, 3, rowErr.Row)
		})
	}
}

func validEntry() core.Entry {
	return core.Entry{
		Date:     core.NewDate(2024, 1, 1),
		Kind:     core.Expense,
		Amount:   decimal.NewFromInt(1),
		Category: "Food",
	}
}
