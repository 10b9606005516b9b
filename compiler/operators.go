// SPDX-License-Identifier: Apache-2.0
package compiler

import (
	"regexp"

	"github.com/sentrie-sh/saplpdp/value"
)

// applyUnary implements the single-operand operators named in ast.UnaryOp:
// "-" (numeric negation), "!" (logical not, operating on Truthy).
func applyUnary(op string, v value.Value) value.Value {
	if value.IsError(v) {
		return v
	}
	switch op {
	case "-":
		n, ok := v.(*value.Number)
		if !ok {
			return value.ErrIncompatibleTypes("-", v, v)
		}
		return n.Neg()
	case "!":
		return value.Bool(!value.Truthy(v))
	default:
		return value.NewError("unknown unary operator %q", op)
	}
}

// applyBinary implements every operator named in ast.BinaryOp's doc comment
// and the edge-case policy of spec.md §4.3. "|" is the error-recovery
// operator: it is handled specially by the compiler before reaching here,
// since it must NOT propagate an Error from its left operand.
func applyBinary(op string, a, b value.Value) value.Value {
	if op != "&&" && op != "||" {
		if value.IsError(a) {
			return a
		}
		if value.IsError(b) {
			return b
		}
	}

	switch op {
	case "+":
		return applyAdd(a, b)
	case "-":
		return arith(op, a, b, (*value.Number).Sub)
	case "*":
		return arith(op, a, b, (*value.Number).Mul)
	case "/":
		an, aok := a.(*value.Number)
		bn, bok := b.(*value.Number)
		if !aok || !bok {
			return value.ErrIncompatibleTypes(op, a, b)
		}
		q, err := an.Divide(bn)
		if err != nil {
			return value.ErrDivisionByZero()
		}
		return q
	case "%":
		return applyModulo(a, b)
	case "==":
		return value.Bool(a.Equal(b))
	case "!=":
		return value.Bool(!a.Equal(b))
	case "<", "<=", ">", ">=":
		return applyComparison(op, a, b)
	case "&&":
		if !value.Truthy(a) {
			return value.False
		}
		if value.IsError(b) {
			return b
		}
		return value.Bool(value.Truthy(b))
	case "||":
		if value.Truthy(a) {
			return value.True
		}
		if value.IsError(b) {
			return b
		}
		return value.Bool(value.Truthy(b))
	case "=~":
		return applyRegexMatch(a, b)
	default:
		return value.NewError("unknown binary operator %q", op)
	}
}

func applyAdd(a, b value.Value) value.Value {
	if at, aok := a.(value.Text); aok {
		if bt, bok := b.(value.Text); bok {
			return at + bt
		}
		return value.ErrIncompatibleTypes("+", a, b)
	}
	return arith("+", a, b, (*value.Number).Add)
}

func arith(op string, a, b value.Value, f func(*value.Number, *value.Number) *value.Number) value.Value {
	an, aok := a.(*value.Number)
	bn, bok := b.(*value.Number)
	if !aok || !bok {
		return value.ErrIncompatibleTypes(op, a, b)
	}
	return f(an, bn)
}

func applyModulo(a, b value.Value) value.Value {
	an, aok := a.(*value.Number)
	bn, bok := b.(*value.Number)
	if !aok || !bok {
		return value.ErrIncompatibleTypes("%", a, b)
	}
	if bn.IsZero() {
		return value.ErrDivisionByZero()
	}
	q, err := an.Divide(bn)
	if err != nil {
		return value.ErrDivisionByZero()
	}
	truncated := value.MustParseNumber(truncateToInteger(q))
	return an.Sub(truncated.Mul(bn))
}

// truncateToInteger drops everything at or after the decimal point,
// matching the truncating (not flooring) integer-division convention used
// to derive modulo from the Divide primitive.
func truncateToInteger(n *value.Number) string {
	s := n.String()
	for i, r := range s {
		if r == '.' {
			return s[:i]
		}
	}
	return s
}

func applyComparison(op string, a, b value.Value) value.Value {
	an, aok := a.(*value.Number)
	bn, bok := b.(*value.Number)
	if aok && bok {
		return value.Bool(compareNumbers(op, an.Compare(bn)))
	}
	at, aok := a.(value.Text)
	bt, bok := b.(value.Text)
	if aok && bok {
		return value.Bool(compareNumbers(op, compareStrings(string(at), string(bt))))
	}
	return value.ErrIncompatibleTypes(op, a, b)
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareNumbers(op string, cmp int) bool {
	switch op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

func applyRegexMatch(a, b value.Value) value.Value {
	subject, ok := a.(value.Text)
	if !ok {
		return value.ErrIncompatibleTypes("=~", a, b)
	}
	pattern, ok := b.(value.Text)
	if !ok {
		return value.ErrIncompatibleTypes("=~", a, b)
	}
	re, err := regexp.Compile(string(pattern))
	if err != nil {
		return value.NewError("invalid regular expression %q: %v", string(pattern), err)
	}
	return value.Bool(re.MatchString(string(subject)))
}
