package sync

import (
	"math/big"
	"strings"
)

// NativeDecimals is the fixed exponent of the native token and the default
// for tokens without a configured exponent.
const NativeDecimals = 18

// TokenDecimals maps a checksummed stake token address to its display
// exponent. The synchronizer and direct reads share one instance so both
// render the same amount the same way.
type TokenDecimals map[string]int

// For returns the exponent for token, NativeDecimals when unlisted.
func (d TokenDecimals) For(token string) int {
	if n, ok := d[token]; ok {
		return n
	}
	return NativeDecimals
}

// FormatAmount renders base units as a decimal string with the given
// exponent. Trailing zeros are trimmed but one fractional digit is always
// kept: 1e17 with 18 decimals is "0.1", 1e18 is "1.0".
func FormatAmount(v *big.Int, decimals int) string {
	if v == nil {
		return "0.0"
	}
	if decimals <= 0 {
		return v.String() + ".0"
	}

	neg := v.Sign() < 0
	digits := new(big.Int).Abs(v).String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-decimals]
	frac := strings.TrimRight(digits[len(digits)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}
	if neg {
		whole = "-" + whole
	}
	return whole + "." + frac
}
