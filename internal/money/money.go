// Package money provides the fixed-precision decimal helpers the book,
// order and engine packages build on. Floating point is unsuitable for
// the price/volume equality and sums the matching engine relies on, so
// every quantity is a shopspring/decimal value quantized to Precision.
package money

import "github.com/shopspring/decimal"

// DefaultPrecision is the number of fractional digits new books use
// unless Precision is changed before any order is constructed.
const DefaultPrecision int32 = 2

// Precision is the configured fractional precision. It is a package
// variable rather than a per-book field because a single process embeds
// one book per instrument and the original system configures it once at
// startup.
var Precision int32 = DefaultPrecision

// MinValue is the smallest valid price or quantity: 10^-Precision.
func MinValue() decimal.Decimal {
	return decimal.New(1, -Precision)
}

// MaxValue is the largest valid price or quantity: 10^11.
func MaxValue() decimal.Decimal {
	return decimal.New(100000000000, 0)
}

// Quantize rounds d to Precision fractional digits.
func Quantize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Precision)
}

// InRange reports whether d lies within [MinValue, MaxValue].
func InRange(d decimal.Decimal) bool {
	return !d.LessThan(MinValue()) && !d.GreaterThan(MaxValue())
}
