package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the fixed-point scale of wei-denominated contract values.
const EtherDecimals = 18

// SafeParse parses a string into a decimal, returning zero for invalid or empty input.
func SafeParse(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromWei converts an 18-decimal fixed-point integer into a decimal. Nil yields zero.
func FromWei(v *big.Int) decimal.Decimal {
	return FromUnits(v, EtherDecimals)
}

// FromUnits converts a token amount expressed in its smallest unit into a decimal.
func FromUnits(v *big.Int, decimals uint8) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

// ToWei converts a decimal into an 18-decimal fixed-point integer, truncating extra precision.
func ToWei(d decimal.Decimal) *big.Int {
	return d.Shift(EtherDecimals).Truncate(0).BigInt()
}
