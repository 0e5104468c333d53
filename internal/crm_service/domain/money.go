package domain

import (
	"math/big"
	"strconv"
)

// RoundMoney rounds to 2 decimal places, half away from zero, on the
// shortest decimal representation of v. 25.555 becomes 25.56 even though
// its binary value is slightly below the midpoint.
func RoundMoney(v float64) float64 {
	r, ok := decimalRat(v)
	if !ok {
		return v
	}
	return ratToMoney(r)
}

// AddMoney returns RoundMoney(a + b) with the sum taken in decimal.
func AddMoney(a, b float64) float64 {
	ra, okA := decimalRat(a)
	rb, okB := decimalRat(b)
	if !okA || !okB {
		return RoundMoney(a + b)
	}
	return ratToMoney(new(big.Rat).Add(ra, rb))
}

func decimalRat(v float64) (*big.Rat, bool) {
	return new(big.Rat).SetString(strconv.FormatFloat(v, 'f', -1, 64))
}

func ratToMoney(r *big.Rat) float64 {
	cents := new(big.Rat).Mul(r, big.NewRat(100, 1))
	half := big.NewRat(1, 2)
	if cents.Sign() < 0 {
		cents.Sub(cents, half)
	} else {
		cents.Add(cents, half)
	}
	// Quo truncates toward zero.
	whole := new(big.Int).Quo(cents.Num(), cents.Denom())
	f, _ := new(big.Rat).SetFrac(whole, big.NewInt(100)).Float64()
	return f
}
