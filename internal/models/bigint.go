package models

import (
	"fmt"
	"math/big"
)

// BigInt wraps big.Int so token amounts survive JSON round-trips through the
// plan store as decimal strings instead of losing precision as float64.
type BigInt struct {
	big.Int
}

// NewBigInt creates a BigInt from an int64
func NewBigInt(v int64) *BigInt {
	b := &BigInt{}
	b.SetInt64(v)
	return b
}

// NewBigIntFromString parses a decimal string into a BigInt
func NewBigIntFromString(s string) (*BigInt, error) {
	b := &BigInt{}
	if _, ok := b.SetString(s, 10); !ok {
		return nil, fmt.Errorf("invalid integer amount: %q", s)
	}
	return b, nil
}

// MarshalJSON encodes the amount as a decimal string
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted decimal strings and bare numbers
func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		b.SetInt64(0)
		return nil
	}
	if _, ok := b.SetString(s, 10); !ok {
		return fmt.Errorf("invalid integer amount: %q", s)
	}
	return nil
}

// Clone returns a deep copy
func (b *BigInt) Clone() *BigInt {
	if b == nil {
		return nil
	}
	c := &BigInt{}
	c.Set(&b.Int)
	return c
}

// Ratio a/b as a float64, 0 when either side is nil or b is zero.
// Precision loss is fine here; ratios only feed scoring heuristics.
func Ratio(a, b *BigInt) float64 {
	if a == nil || b == nil || b.Sign() == 0 {
		return 0
	}
	af, _ := new(big.Float).SetInt(&a.Int).Float64()
	bf, _ := new(big.Float).SetInt(&b.Int).Float64()
	if bf == 0 {
		return 0
	}
	return af / bf
}

// UsdFromTokenAmount converts a token amount to USD assuming the token is a
// dollar-pegged asset with the given decimals
func UsdFromTokenAmount(amount *BigInt, decimals int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(&amount.Int).Float64()
	for i := 0; i < decimals; i++ {
		f /= 10
	}
	return f
}

// TokenAmountFromUsd converts a USD value to token units assuming a
// dollar-pegged asset with the given decimals
func TokenAmountFromUsd(usd float64, decimals int) *BigInt {
	for i := 0; i < decimals; i++ {
		usd *= 10
	}
	if usd < 0 {
		usd = 0
	}
	out := &BigInt{}
	big.NewFloat(usd).Int(&out.Int)
	return out
}
