package gateway_test

import (
	"testing"

	"github.com/rs-labo46/ec-shop-api/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     int64
	}{
		{"25", "usd", 2500},
		{"19.99", "USD", 1999},
		{"10.005", "eur", 1001},
		{"1000", "jpy", 1000},
		{"1000", "JPY", 1000},
		{"999.5", "krw", 1000},
	}
	for _, tc := range cases {
		got, err := gateway.ToMinorUnits(decimal.RequireFromString(tc.amount), tc.currency)
		require.NoError(t, err, tc.currency)
		assert.Equal(t, tc.want, got, "%s %s", tc.amount, tc.currency)
	}
}

func TestMinorUnitExponent_Rejects(t *testing.T) {
	for _, c := range []string{"", "us", "usdx", "u$d", "kwd", "BHD"} {
		_, err := gateway.MinorUnitExponent(c)
		assert.Error(t, err, c)
	}
}
