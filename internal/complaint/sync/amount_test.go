package sync

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	wei := func(s string) *big.Int {
		v, _ := new(big.Int).SetString(s, 10)
		return v
	}
	tests := []struct {
		name     string
		value    *big.Int
		decimals int
		want     string
	}{
		{"one tenth", wei("100000000000000000"), 18, "0.1"},
		{"whole unit keeps a fractional digit", wei("1000000000000000000"), 18, "1.0"},
		{"smallest unit", wei("1"), 18, "0.000000000000000001"},
		{"mixed", wei("12345000000000000000"), 18, "12.345"},
		{"zero", wei("0"), 18, "0.0"},
		{"nil", nil, 18, "0.0"},
		{"six decimals", wei("2500000"), 6, "2.5"},
		{"no decimals", wei("42"), 0, "42.0"},
		{"negative", wei("-1500000000000000000"), 18, "-1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(tt.value, tt.decimals))
		})
	}
}

func TestTokenDecimals(t *testing.T) {
	usdc := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	d := TokenDecimals{usdc: 6}
	assert.Equal(t, 6, d.For(usdc))
	assert.Equal(t, NativeDecimals, d.For("0x0000000000000000000000000000000000000000"))

	var none TokenDecimals
	assert.Equal(t, NativeDecimals, none.For(usdc))
}
