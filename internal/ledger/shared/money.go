package shared

import "github.com/shopspring/decimal"

// Tolerance is the epsilon for comparing monetary amounts. Amounts are exact
// decimals, but legacy-entered data was recorded with float arithmetic, so a
// 0.01 currency-unit band is accepted when checking balance identities.
var Tolerance = decimal.NewFromInt(1).Shift(-2)

// WithinTolerance reports whether two amounts differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// IsZero reports whether an amount is zero within Tolerance.
func IsZero(v decimal.Decimal) bool {
	return v.Abs().LessThanOrEqual(Tolerance)
}
