// SPDX-License-Identifier: Apache-2.0
package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/value"
)

func TestNumberEqualityIgnoresScale(t *testing.T) {
	a := value.MustParseNumber("1.50")
	b := value.MustParseNumber("1.5")
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
}

func TestNumberArithmetic(t *testing.T) {
	a := value.MustParseNumber("2.5")
	b := value.MustParseNumber("0.5")

	assert.Equal(t, "3.0", a.Add(b).String())
	assert.Equal(t, "2.0", a.Sub(b).String())
	assert.Equal(t, "1.25", a.Mul(b).String())

	q, err := a.Divide(b)
	require.NoError(t, err)
	assert.Equal(t, 0, q.Compare(value.MustParseNumber("5")))
}

func TestNumberDivisionByZero(t *testing.T) {
	a := value.MustParseNumber("1")
	zero := value.MustParseNumber("0")
	_, err := a.Divide(zero)
	assert.Error(t, err)
}

func TestNumberStringRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "1", "-1", "1.5", "-1.50", "0.001", "100"} {
		n, err := value.ParseNumber(s)
		require.NoError(t, err)
		n2, err := value.ParseNumber(n.String())
		require.NoError(t, err)
		assert.Zero(t, n.Compare(n2))
	}
}

func TestNumberNeg(t *testing.T) {
	n := value.MustParseNumber("3.5")
	assert.Equal(t, 0, n.Neg().Compare(value.MustParseNumber("-3.5")))
}
