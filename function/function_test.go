// SPDX-License-Identifier: Apache-2.0
package function_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/function"
	"github.com/sentrie-sh/saplpdp/value"
)

func TestUnknownFunctionIsAnErrorValueNotAPanic(t *testing.T) {
	b := function.New()
	result := b.Call("nope.nope", nil)
	require.True(t, value.IsError(result))
}

func TestExactArityPreferredOverVariadic(t *testing.T) {
	b := function.New()
	b.Register("concat", function.Signature{Arity: 1, Variadic: true}, func(args []value.Value) value.Value {
		return value.Text("variadic")
	})
	b.Register("concat", function.Signature{Arity: 2}, func(args []value.Value) value.Value {
		return value.Text("exact")
	})

	got := b.Call("concat", []value.Value{value.Text("a"), value.Text("b")})
	assert.Equal(t, value.Text("exact"), got)
}

func TestVariadicFallsBackWhenNoExactMatch(t *testing.T) {
	b := function.New()
	b.Register("sum", function.Signature{Arity: 1, Variadic: true}, func(args []value.Value) value.Value {
		total := value.Value(value.NewNumberFromInt64(0))
		for _, a := range args {
			total = total.(*value.Number).Add(a.(*value.Number))
		}
		return total
	})

	got := b.Call("sum", []value.Value{
		value.NewNumberFromInt64(1),
		value.NewNumberFromInt64(2),
		value.NewNumberFromInt64(3),
	})
	n, ok := got.(*value.Number)
	require.True(t, ok)
	assert.Zero(t, n.Compare(value.NewNumberFromInt64(6)))
}

func TestNoMatchingOverloadIsAnErrorValue(t *testing.T) {
	b := function.New()
	b.Register("pair", function.Signature{Arity: 2}, func(args []value.Value) value.Value {
		return value.True
	})
	got := b.Call("pair", []value.Value{value.True})
	assert.True(t, value.IsError(got))
}

func TestPanicInsideImplBecomesErrorValue(t *testing.T) {
	b := function.New()
	b.Register("boom", function.Signature{Arity: 0}, func(args []value.Value) value.Value {
		panic("kaboom")
	})
	got := b.Call("boom", nil)
	assert.True(t, value.IsError(got))
}

func TestMemoizationReturnsSameResult(t *testing.T) {
	calls := 0
	b := function.New(function.WithMemoization(1))
	b.Register("calls", function.Signature{Arity: 0}, func(args []value.Value) value.Value {
		calls++
		return value.NewNumberFromInt64(int64(calls))
	})

	first := b.Call("calls", nil)
	second := b.Call("calls", nil)
	assert.True(t, first.Equal(second))
}

func TestNamespace(t *testing.T) {
	assert.Equal(t, "strings", function.Namespace("strings.upper"))
	assert.Equal(t, "", function.Namespace("upper"))
}
