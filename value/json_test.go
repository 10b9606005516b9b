// SPDX-License-Identifier: Apache-2.0
package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/value"
)

func roundTrip(t *testing.T, v value.Value) value.Value {
	t.Helper()
	data, err := value.MarshalJSON(v)
	require.NoError(t, err)
	out, err := value.UnmarshalJSON(data)
	require.NoError(t, err)
	return out
}

func TestValueRoundTrip(t *testing.T) {
	nested := value.NewObject()
	nested.Set("flag", value.True)
	nested.Set("name", value.Text("alice"))
	nested.Set("tags", value.NewArray(value.Text("a"), value.Text("b")))
	nested.Set("missing", value.Null)

	cases := []value.Value{
		value.Null,
		value.Undefined,
		value.True,
		value.False,
		value.NewError("something went wrong"),
		value.MustParseNumber("1.50"),
		value.MustParseNumber("-123.000001"),
		value.Text(""),
		value.Text("hello world"),
		value.NewArray(),
		value.NewArray(value.Null, value.Undefined, value.True, value.MustParseNumber("1")),
		value.NewObject(),
		nested,
	}

	for _, v := range cases {
		t.Run(v.Kind().String(), func(t *testing.T) {
			out := roundTrip(t, v)
			assert.True(t, v.Equal(out), "expected %s to round-trip, got %s", v, out)
		})
	}
}

func TestValueRoundTripPreservesObjectKeyOrder(t *testing.T) {
	o := value.NewObject()
	o.Set("z", value.NewNumberFromInt64(1))
	o.Set("a", value.NewNumberFromInt64(2))

	out := roundTrip(t, o)
	restored, ok := out.(*value.Object)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a"}, restored.Keys())
}
