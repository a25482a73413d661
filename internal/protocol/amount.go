// amount.go - Token amounts and fixed-point reserve ratios.

package protocol

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of both token amounts and ratios.
const Decimals = 18

var (
	// Scale is the fixed-point representation of 1.0 (10^18).
	Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)
	// Kappa is the minimum reserve ratio at which minting is permitted (100%).
	Kappa = new(big.Int).Set(Scale)
)

// ValidateAmount rejects nil, zero and negative amounts.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Clone copies v, mapping nil to zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// RatioFromPercent converts a whole percentage (100 == fully backed) into a
// scaled ratio.
func RatioFromPercent(percent int64) *big.Int {
	r := new(big.Int).Mul(big.NewInt(percent), Scale)
	return r.Quo(r, big.NewInt(100))
}

// ParseRatio reads a decimal ratio such as "0.85" or "1.1" into its scaled
// form. Precision beyond 18 places is truncated.
func ParseRatio(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse ratio %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse ratio %q: negative", s)
	}
	return d.Shift(Decimals).BigInt(), nil
}

// FormatRatio renders a scaled ratio as a plain decimal, e.g. "0.4".
func FormatRatio(r *big.Int) string {
	return decimal.NewFromBigInt(Clone(r), -Decimals).String()
}

// RatioPercent renders a scaled ratio as a percentage, e.g. "40".
func RatioPercent(r *big.Int) string {
	return decimal.NewFromBigInt(Clone(r), -Decimals+2).String()
}

// MeetsKappa reports whether r is at or above the minting threshold.
func MeetsKappa(r *big.Int) bool {
	return r != nil && r.Cmp(Kappa) >= 0
}
