package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"1h 15m", 4500},
		{"1h 15m 30s", 4530},
		{"45m", 2700},
		{"30s", 30},
		{"15m 1h", 4500},
		{"2h30m", 9000},
		{"-", 0},
		{"", 0},
		{"garbage", 0},
		{"9999999999999999h", 0},
		{"99999999999999999999s", 0},
		{"2562047788015215h 59m", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseDuration(tc.in), "ParseDuration(%q)", tc.in)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "-", FormatDuration(0))
	assert.Equal(t, "45s", FormatDuration(45))
	assert.Equal(t, "2m 5s", FormatDuration(125))
	assert.Equal(t, "1h 0m 5s", FormatDuration(3605))
}

func TestDurationRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, 59, 60, 61, 3599, 3600, 4500, 86399, 90061, 360000} {
		assert.Equal(t, n, ParseDuration(FormatDuration(n)), "round trip %d", n)
	}
}

func TestParseDurationStrict(t *testing.T) {
	got, err := ParseDurationWith("1h 15m", Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(4500), got)

	got, err = ParseDurationWith("-", Strict)
	require.NoError(t, err)
	assert.Zero(t, got)

	for _, bad := range []string{"", "soon", "15m 1h", "1 hour"} {
		_, err := ParseDurationWith(bad, Strict)
		assert.ErrorIs(t, err, ErrMalformedField, bad)
	}

	for _, huge := range []string{"9999999999999999h", "99999999999999999999s"} {
		_, err := ParseDurationWith(huge, Strict)
		assert.ErrorIs(t, err, ErrMalformedField, huge)

		got, err := ParseDurationWith(huge, Lenient)
		require.NoError(t, err)
		assert.Zero(t, got, huge)
	}

	longest, err := ParseDurationWith("2562047788015215h 30m 7s", Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), longest)

	got, err = ParseDurationWith("soon", Lenient)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestExtractPayout(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$56.25", 56.25},
		{"$0.50", 0.5},
		{"paid $12.00 total", 12},
		{"-", 0},
		{"garbage", 0},
		{"$5", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractPayout(tc.in), "ExtractPayout(%q)", tc.in)
	}
	assert.Equal(t, 25.0, ExtractRate("$25.00/hr"))
}

func TestExtractAmountStrict(t *testing.T) {
	v, err := ExtractAmountWith("$25.00/hr", Strict)
	require.NoError(t, err)
	assert.Equal(t, 25.0, v)

	_, err = ExtractAmountWith("$5", Strict)
	var fe *FieldError
	assert.False(t, errors.As(err, &fe), "bare parser errors are not FieldErrors")
	assert.ErrorIs(t, err, ErrMalformedField)

	v, err = ExtractAmountWith("$5", Lenient)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$56.25", FormatMoney(56.25))
	assert.Equal(t, "$0.00", FormatMoney(0))
	assert.Equal(t, "$1234.50", FormatMoney(1234.5))
}

func TestParsePolicyFromString(t *testing.T) {
	p, err := ParsePolicyFromString("STRICT")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParsePolicyFromString("")
	require.NoError(t, err)
	assert.Equal(t, Lenient, p)

	_, err = ParsePolicyFromString("loose")
	assert.Error(t, err)
}
