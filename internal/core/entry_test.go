package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"Income":   Income,
		"income":   Income,
		" INCOME ": Income,
		"Expense":  Expense,
		"expense":  Expense,
		"":         Expense,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseKind("Transfer")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2024, 3, 15), d)
	assert.Equal(t, "2024-03-15", d.String())
	assert.Equal(t, "2024-03", d.MonthKey())

	for _, bad := range []string{"", "15/03/2024", "2024-13-01", "2024-02-30"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, "input %q", bad)
	}
}

func TestEntryValidate(t *testing.T) {
	valid := Entry{
		Date:     NewDate(2024, 1, 5),
		Kind:     Expense,
		Amount:   decimal.NewFromInt(20),
		Category: "Food",
	}
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*Entry)
		reason error
	}{
		{"zero amount", func(e *Entry) { e.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(e *Entry) { e.Amount = decimal.NewFromInt(-3) }, ErrInvalidAmount},
		{"empty category", func(e *Entry) { e.Category = "" }, ErrEmptyCategory},
		{"blank category", func(e *Entry) { e.Category = "   " }, ErrEmptyCategory},
		{"unknown kind", func(e *Entry) { e.Kind = "Transfer" }, ErrInvalidKind},
		{"zero date", func(e *Entry) { e.Date = Date{} }, ErrInvalidDate},
		{"carriage return in category", func(e *Entry) { e.Category = "Food\r\nDrinks" }, ErrInvalidText},
		{"carriage return in description", func(e *Entry) { e.Description = "a\rb" }, ErrInvalidText},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := valid
			tc.mutate(&e)
			err := e.Validate()
			assert.ErrorIs(t, err, ErrInvalidEntry)
			assert.ErrorIs(t, err, tc.reason)
		})
	}
}

func TestEntryEqualComparesAmountsNumerically(t *testing.T) {
	a := Entry{Date: NewDate(2024, 1, 1), Kind: Income, Amount: decimal.RequireFromString("10.50"), Category: "Salary"}
	b := a
	b.Amount = decimal.RequireFromString("10.5")
	assert.True(t, a.Equal(b))

	b.Description = "bonus"
	assert.False(t, a.Equal(b))
}

func TestNormalizeNewlines(t *testing.T) {
	assert.Equal(t, "a\nb\nc", NormalizeNewlines("a\r\nb\rc"))
	assert.Equal(t, "plain\ntext", NormalizeNewlines("plain\ntext"))

	e := Entry{
		Date:        NewDate(2024, 3, 1),
		Kind:        Expense,
		Amount:      decimal.NewFromInt(1),
		Category:    NormalizeNewlines("Food\r\nDrinks"),
		Description: NormalizeNewlines("a\r\nb"),
	}
	assert.NoError(t, e.Validate())
}
