package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{"12.344", "12.34", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.004", "", false},
		{"abc", "", false},
		{"1e3", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, decimal.RequireFromString(tc.out).Equal(got), "%q: expected %s, got %s", tc.in, tc.out, got)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "12.30", FormatAmount(decimal.RequireFromString("12.3")))
	assert.Equal(t, "-5.00", FormatAmount(decimal.NewFromInt(-5)))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}

func TestParseGoal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"   ", "0"},
		{"1000", "1000"},
		{" 1000,5 ", "1000.5"},
		{"0", "0"},
		{"-250.75", "-250.75"},
		{"12.345", "12.345"},
	}
	for _, tc := range cases {
		got, err := ParseGoal(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "%q: expected %s, got %s", tc.in, tc.want, got)
	}
}

func TestParseGoalRejectsNonPlainNumbers(t *testing.T) {
	for _, in := range []string{
		"lots",
		"1e",
		"1e100000000",
		"1E5",
		"+5",
		"--5",
		"-",
		"1.2.3",
		"1 000",
		strings.Repeat("9", 25),
	} {
		_, err := ParseGoal(in)
		assert.ErrorIs(t, err, ErrInvalidGoal, "input %q", in)
	}
}

func TestParseAmountRejectsOverlongInput(t *testing.T) {
	_, err := ParseAmount(strings.Repeat("1", 25))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	got, err := ParseAmount(strings.Repeat("1", 24))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("1", 24), got.String())
}
