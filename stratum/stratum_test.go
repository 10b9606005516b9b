// SPDX-License-Identifier: Apache-2.0
package stratum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentrie-sh/saplpdp/stratum"
)

func TestMaxOf(t *testing.T) {
	assert.Equal(t, stratum.Value, stratum.MaxOf())
	assert.Equal(t, stratum.PureSub, stratum.MaxOf(stratum.Value, stratum.PureSub, stratum.PureNonSub))
	assert.Equal(t, stratum.Stream, stratum.MaxOf(stratum.PureSub, stratum.Stream, stratum.Value))
}

func TestClassifyAttributeReferenceIsAlwaysStream(t *testing.T) {
	got := stratum.Classify(false, true, stratum.Value)
	assert.Equal(t, stratum.Stream, got)
}

func TestClassifyPropagatesStream(t *testing.T) {
	got := stratum.Classify(false, false, stratum.Value, stratum.Stream)
	assert.Equal(t, stratum.Stream, got)
}

func TestClassifySubscriptionReadPromotesToAtLeastPureSub(t *testing.T) {
	got := stratum.Classify(true, false, stratum.Value)
	assert.Equal(t, stratum.PureSub, got)

	got = stratum.Classify(true, false, stratum.PureSub, stratum.PureNonSub)
	assert.Equal(t, stratum.PureSub, got)
}

func TestClassifyAllValueOperandsStayValue(t *testing.T) {
	got := stratum.Classify(false, false, stratum.Value, stratum.Value)
	assert.Equal(t, stratum.Value, got)
}

func TestClassifyNonSubPromotesWhenAnyOperandNonValue(t *testing.T) {
	got := stratum.Classify(false, false, stratum.Value, stratum.PureNonSub)
	assert.Equal(t, stratum.PureNonSub, got)
}

func TestStratumMonotonicity(t *testing.T) {
	operandSets := [][]stratum.Stratum{
		{stratum.Value, stratum.Value},
		{stratum.Value, stratum.PureNonSub},
		{stratum.PureNonSub, stratum.PureSub},
		{stratum.PureSub, stratum.Stream},
	}
	for _, ops := range operandSets {
		result := stratum.Classify(false, false, ops...)
		maxOperand := stratum.MaxOf(ops...)
		assert.GreaterOrEqual(t, int(result), int(maxOperand))
		hasStream := false
		for _, s := range ops {
			if s == stratum.Stream {
				hasStream = true
			}
		}
		if hasStream {
			assert.Equal(t, stratum.Stream, result)
		}
	}
}
