package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		major float64
		want  int64
	}{
		{0, 0},
		{19.99, 1999},
		{50, 5000},
		{0.005, 1},
		{0.015, 2},
		{0.025, 3},
		{12.345, 1235},
		{-0.005, -1},
		{-19.99, -1999},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ToMinorUnits(tc.major), "major %v", tc.major)
	}
}

func TestMajorUnitsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 99, 100, 1999, 123456789} {
		assert.Equal(t, cents, ToMinorUnits(ToMajorUnits(cents)))
	}
}

func TestNewValidatesCurrency(t *testing.T) {
	m, err := New(1000, "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", m.Currency)

	_, err = New(1000, "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
	_, err = FromMajorUnits(10, "")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestFromMajorUnits(t *testing.T) {
	m, err := FromMajorUnits(12.34, "USD")
	require.NoError(t, err)
	assert.Equal(t, Must(1234, "USD"), m)
	assert.InDelta(t, 12.34, m.MajorUnits(), 1e-9)
}

func TestArithmetic(t *testing.T) {
	a := Must(1500, "EUR")
	b := Must(500, "EUR")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), sum.Amount)

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), diff.Amount)

	_, err = a.Add(Must(100, "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.True(t, a.IsPositive())
	assert.False(t, a.IsZero())
	assert.True(t, Money{Currency: "EUR"}.IsZero())
}
