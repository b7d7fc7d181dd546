package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFallbackSameCurrency(t *testing.T) {
	t.Parallel()

	got, ok := ConvertFallback(100, "NZD", "NZD")
	require.True(t, ok)
	assert.Equal(t, 100.0, got)
}

func TestConvertFallbackRoundTrip(t *testing.T) {
	t.Parallel()

	pairs := [][2]string{
		{"NZD", "USD"}, {"USD", "JPY"}, {"AUD", "EUR"}, {"GBP", "NZD"}, {"FJD", "SGD"},
	}

	for _, pair := range pairs {
		from, to := pair[0], pair[1]
		converted, ok := ConvertFallback(1000, from, to)
		require.True(t, ok, "%s->%s", from, to)

		back, ok := ConvertFallback(converted, to, from)
		require.True(t, ok, "%s->%s", to, from)

		// Round-trip within 1% of the original.
		assert.InEpsilon(t, 1000, back, 0.01, "%s->%s->%s", from, to, from)
	}
}

func TestConvertFallbackUnknownCurrency(t *testing.T) {
	t.Parallel()

	_, ok := ConvertFallback(100, "XYZ", "NZD")
	assert.False(t, ok)

	_, ok = ConvertFallback(100, "NZD", "XYZ")
	assert.False(t, ok)
}

func TestConvertFallbackDirection(t *testing.T) {
	t.Parallel()

	// USD is stronger than NZD, so USD->NZD must grow the amount.
	nzd, ok := ConvertFallback(100, "USD", "NZD")
	require.True(t, ok)
	assert.Greater(t, nzd, 100.0)
}

func TestFormatPrice(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NZ$1299.00", FormatPrice(1299, "NZD"))
	assert.Equal(t, "¥150000", FormatPrice(150000, "JPY"))
	assert.Equal(t, "FJD 450.50", FormatPrice(450.5, "FJD"))
}
