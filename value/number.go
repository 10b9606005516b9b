// SPDX-License-Identifier: Apache-2.0
package value

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// Number is an arbitrary-precision decimal: coeff * 10^exp. It is the sole
// numeric Value variant (spec.md §3 - "Number (arbitrary precision
// decimal)"). Equality between two Numbers ignores trailing-zero scale
// differences (1.50 == 1.5); ordering is numeric, not lexical.
type Number struct {
	coeff *big.Int
	exp   int32
}

// divisionScale bounds the number of fractional digits kept by Divide when
// the exact quotient is not a terminating decimal, mirroring fixed-scale
// decimal divide semantics (e.g. Java's BigDecimal.divide(scale, ROUND)).
const divisionScale = 34

var numberPattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// ParseNumber parses a decimal literal (no exponent notation; the compiler
// never needs to emit one).
func ParseNumber(s string) (*Number, error) {
	if !numberPattern.MatchString(s) {
		return nil, fmt.Errorf("invalid decimal literal %q", s)
	}
	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}
	intPart, fracPart, hasFrac := s, "", false
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart, hasFrac = s[:i], s[i+1:], true
	}
	digits := intPart
	exp := int32(0)
	if hasFrac {
		digits += fracPart
		exp = -int32(len(fracPart))
	}
	coeff, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal literal %q", s)
	}
	if neg {
		coeff.Neg(coeff)
	}
	return &Number{coeff: coeff, exp: exp}, nil
}

// NewNumberFromInt64 builds an integral Number.
func NewNumberFromInt64(i int64) *Number {
	return &Number{coeff: big.NewInt(i), exp: 0}
}

// MustParseNumber panics on invalid literals; meant for compile-time
// constants and tests, never for user input.
func MustParseNumber(s string) *Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n *Number) Kind() Kind { return KindNumber }

func (n *Number) String() string {
	digits := new(big.Int).Abs(n.coeff).String()
	sign := ""
	if n.coeff.Sign() < 0 {
		sign = "-"
	}
	if n.exp >= 0 {
		return sign + digits + strings.Repeat("0", int(n.exp))
	}
	point := -int(n.exp)
	for len(digits) <= point {
		digits = "0" + digits
	}
	whole, frac := digits[:len(digits)-point], digits[len(digits)-point:]
	if whole == "" {
		whole = "0"
	}
	return sign + whole + "." + frac
}

func (n *Number) Equal(o Value) bool {
	on, ok := o.(*Number)
	if !ok {
		return false
	}
	return n.Compare(on) == 0
}

func (n *Number) Clone() Value {
	return &Number{coeff: new(big.Int).Set(n.coeff), exp: n.exp}
}

func (n *Number) IsZero() bool { return n.coeff.Sign() == 0 }

// Int64 truncates n toward zero and returns it as an int64, reporting
// whether the value fits. Used by index expressions, which only ever
// index with integral Numbers.
func (n *Number) Int64() (int64, bool) {
	r := n.rat()
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsInt64() {
		return 0, false
	}
	return q.Int64(), true
}

// rat converts to an exact big.Rat for comparison and arithmetic.
func (n *Number) rat() *big.Rat {
	r := new(big.Rat).SetInt(n.coeff)
	if n.exp == 0 {
		return r
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(absInt32(n.exp))), nil)
	if n.exp > 0 {
		return r.Mul(r, new(big.Rat).SetInt(scale))
	}
	return r.Quo(r, new(big.Rat).SetInt(scale))
}

func fromRat(r *big.Rat, scale int32) *Number {
	mul := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil)
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt(mul))
	// round half-up away from zero
	num, den := scaled.Num(), scaled.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	rem.Abs(rem)
	twice := new(big.Int).Lsh(rem, 1)
	if twice.CmpAbs(den) >= 0 {
		if q.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	return &Number{coeff: q, exp: -scale}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Compare returns -1, 0, 1 as n is numerically less than, equal to, or
// greater than o, ignoring scale.
func (n *Number) Compare(o *Number) int {
	return n.rat().Cmp(o.rat())
}

func (n *Number) Add(o *Number) *Number {
	exp := minInt32(n.exp, o.exp)
	a := alignTo(n, exp)
	b := alignTo(o, exp)
	return &Number{coeff: new(big.Int).Add(a, b), exp: exp}
}

func (n *Number) Sub(o *Number) *Number {
	exp := minInt32(n.exp, o.exp)
	a := alignTo(n, exp)
	b := alignTo(o, exp)
	return &Number{coeff: new(big.Int).Sub(a, b), exp: exp}
}

func (n *Number) Mul(o *Number) *Number {
	return &Number{coeff: new(big.Int).Mul(n.coeff, o.coeff), exp: n.exp + o.exp}
}

// Divide returns an error for division by zero (spec.md §4.3 edge case
// policy); the caller turns that into a value.Error, never a panic.
func (n *Number) Divide(o *Number) (*Number, error) {
	if o.IsZero() {
		return nil, fmt.Errorf("division by zero")
	}
	scale := divisionScale
	if n.exp < 0 && int(-n.exp) > scale {
		scale = int(-n.exp)
	}
	if o.exp < 0 && int(-o.exp) > scale {
		scale = int(-o.exp)
	}
	return fromRat(new(big.Rat).Quo(n.rat(), o.rat()), int32(scale)), nil
}

func (n *Number) Neg() *Number {
	return &Number{coeff: new(big.Int).Neg(n.coeff), exp: n.exp}
}

func alignTo(n *Number, exp int32) *big.Int {
	if n.exp == exp {
		return n.coeff
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.exp-exp)), nil)
	return new(big.Int).Mul(n.coeff, scale)
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
