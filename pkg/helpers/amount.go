// Package helpers provides small utility functions shared across the wallet packages.
package helpers

import (
	"fmt"
	"math/big"
)

// FormatSatoshis formats a satoshi amount as a decimal BSV string.
// FormatSatoshis(100000000) returns "1".
func FormatSatoshis(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	amountBig := new(big.Int).SetInt64(amount)
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)

	whole := new(big.Int).Div(amountBig, divisor)
	frac := new(big.Int).Mod(amountBig, divisor)

	sign := ""
	if neg {
		sign = "-"
	}

	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := fmt.Sprintf("%08d", frac)
	for len(fracStr) > 0 && fracStr[len(fracStr)-1] == '0' {
		fracStr = fracStr[:len(fracStr)-1]
	}

	return fmt.Sprintf("%s%s.%s", sign, whole.String(), fracStr)
}

// ParseBSV parses a decimal BSV string into satoshis.
func ParseBSV(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount string")
	}

	wholeStr, fracStr := s, ""
	for i, c := range s {
		if c == '.' {
			wholeStr = s[:i]
			fracStr = s[i+1:]
			break
		}
	}
	if wholeStr == "" {
		wholeStr = "0"
	}

	for _, c := range wholeStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character in amount: %c", c)
		}
	}
	for _, c := range fracStr {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid character in amount: %c", c)
		}
	}

	for len(fracStr) < 8 {
		fracStr += "0"
	}
	if len(fracStr) > 8 {
		fracStr = fracStr[:8]
	}

	combined := wholeStr + fracStr
	amount := new(big.Int)
	if _, ok := amount.SetString(combined, 10); !ok {
		return 0, fmt.Errorf("invalid amount: %s", s)
	}
	if !amount.IsInt64() {
		return 0, fmt.Errorf("amount overflow: %s", s)
	}

	return amount.Int64(), nil
}

// FeeForSize computes the fee, in satoshis, for a transaction of the given
// byte size at the given fee rate (satoshis per byte), rounding up.
func FeeForSize(sizeBytes int, satPerByte float64) int64 {
	fee := float64(sizeBytes) * satPerByte
	whole := int64(fee)
	if float64(whole) < fee {
		whole++
	}
	return whole
}
