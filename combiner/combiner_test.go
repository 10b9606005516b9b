// SPDX-License-Identifier: Apache-2.0
package combiner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentrie-sh/saplpdp/combiner"
	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/value"
)

func TestCombinerPermitOverridesCriticalShortCircuit(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Indeterminate, Outcome: policy.OutcomeDeny},
		{Decision: policy.Permit},
		{Decision: policy.Deny},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Indeterminate, got.Decision)
}

func TestCombinerPermitOverridesMergesObligationsInEncounterOrder(t *testing.T) {
	a := value.Text("A")
	b := value.Text("B")
	votes := []policy.Vote{
		{Decision: policy.Permit, Obligations: []value.Value{a}},
		{Decision: policy.Permit, Obligations: []value.Value{b}},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Permit, got.Decision)
	assert.Equal(t, []value.Value{a, b}, got.Obligations)
}

func TestCombinerDenyOverridesIndeterminatePermitContradictsDeny(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Indeterminate, Outcome: policy.OutcomePermit},
		{Decision: policy.Deny},
	}
	got := combiner.Combine(policy.DenyOverrides, votes)
	assert.Equal(t, policy.Indeterminate, got.Decision)
}

func TestCombinerAllNotApplicableYieldsNotApplicable(t *testing.T) {
	votes := []policy.Vote{{Decision: policy.NotApplicable}, {Decision: policy.NotApplicable}}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.NotApplicable, got.Decision)
}

func TestCombinerPermitOverridesNonPriorityOverriddenByPriority(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Deny},
		{Decision: policy.Permit},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Permit, got.Decision)
}

func TestCombinerPermitOverridesNonCriticalIndeterminateOverriddenByConcrete(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Indeterminate, Outcome: policy.OutcomeNone},
		{Decision: policy.Permit},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Permit, got.Decision)
}

func TestCombinerPermitOverridesPriorityAlreadyWonSkipsNonPriority(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Permit, Obligations: []value.Value{value.Text("keep")}},
		{Decision: policy.Deny, Obligations: []value.Value{value.Text("dropped")}},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Permit, got.Decision)
	assert.Equal(t, []value.Value{value.Text("keep")}, got.Obligations)
}

func TestCombinerMixedOutcomeIsAlwaysCritical(t *testing.T) {
	votes := []policy.Vote{
		{Decision: policy.Indeterminate, Outcome: policy.OutcomeMixed},
		{Decision: policy.Permit},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Indeterminate, got.Decision)
}

func TestCombinerCriticalIndeterminateCarriesTriggeringError(t *testing.T) {
	triggering := value.NewError("attribute broker timed out")
	votes := []policy.Vote{
		{Decision: policy.Indeterminate, Outcome: policy.OutcomeDeny, Err: triggering},
		{Decision: policy.Permit},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, policy.Indeterminate, got.Decision)
	assert.Same(t, triggering, got.Err)
}

func TestCombinerLastTransformedResourceWins(t *testing.T) {
	r1 := value.Text("first")
	r2 := value.Text("second")
	votes := []policy.Vote{
		{Decision: policy.Permit, Resource: r1},
		{Decision: policy.Permit, Resource: r2},
	}
	got := combiner.Combine(policy.PermitOverrides, votes)
	assert.Equal(t, r2, got.Resource)
}
