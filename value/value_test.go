// SPDX-License-Identifier: Apache-2.0
package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/value"
)

func TestNullAndUndefinedAreDistinct(t *testing.T) {
	assert.False(t, value.Null.Equal(value.Undefined))
	assert.False(t, value.Undefined.Equal(value.Null))
	assert.True(t, value.IsNull(value.Null))
	assert.False(t, value.IsUndefined(value.Null))
	assert.True(t, value.IsUndefined(value.Undefined))
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"true", value.True, true},
		{"false", value.False, false},
		{"null", value.Null, false},
		{"undefined", value.Undefined, false},
		{"zero number", value.NewNumberFromInt64(0), false},
		{"nonzero number", value.NewNumberFromInt64(1), true},
		{"empty text", value.Text(""), false},
		{"nonempty text", value.Text("x"), true},
		{"empty array", value.NewArray(), false},
		{"nonempty array", value.NewArray(value.True), true},
		{"empty object", value.NewObject(), false},
		{"error", value.NewError("boom"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, value.Truthy(c.v))
		})
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := value.NewObject()
	o.Set("b", value.Text("2"))
	o.Set("a", value.Text("1"))
	o.Set("b", value.Text("20"))
	require.Equal(t, []string{"b", "a"}, o.Keys())
	assert.Equal(t, value.Text("20"), o.Get("b"))
	assert.Equal(t, value.Undefined, o.Get("missing"))
}

func TestObjectWithSetDoesNotMutateOriginal(t *testing.T) {
	o := value.NewObject()
	o.Set("a", value.NewNumberFromInt64(1))
	o2 := o.WithSet("a", value.NewNumberFromInt64(2))
	assert.Equal(t, value.NewNumberFromInt64(1), o.Get("a"))
	assert.Equal(t, value.NewNumberFromInt64(2), o2.Get("a"))
}

func TestArrayOutOfRangeReadIsUndefinedWriteIsError(t *testing.T) {
	a := value.NewArray(value.True, value.False)
	assert.Equal(t, value.Undefined, a.At(5))
	assert.Equal(t, value.Undefined, a.At(-1))

	_, err := a.WithAt(5, value.True)
	assert.Error(t, err)

	updated, err := a.WithAt(0, value.False)
	require.NoError(t, err)
	assert.Equal(t, value.False, updated.At(0))
	assert.Equal(t, value.True, a.At(0), "original array must be unmodified")
}

func TestErrorEqualityIsByMessage(t *testing.T) {
	e1 := value.NewError("boom %d", 1)
	e2 := value.NewError("boom %d", 1)
	e3 := value.NewError("boom 2")
	assert.True(t, e1.Equal(e2))
	assert.False(t, e1.Equal(e3))
}
