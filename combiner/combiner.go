// SPDX-License-Identifier: Apache-2.0

// Package combiner implements the vote combiner (C8): the priority-based
// permit-overrides and deny-overrides algorithms that fold a slice of
// policy.Vote into a single decision (spec.md §4.8).
package combiner

import (
	"github.com/binaek/gocoll/collection"

	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/value"
)

// state accumulates the reduction described in spec.md §4.8.
type state struct {
	decision    policy.Decision
	outcome     policy.Outcome
	err         *value.Error
	obligations []policy.Vote // votes whose constraints are currently merged in
	critical    bool
}

// Combine folds votes under algorithm, implementing the per-bucket
// relevance table and critical short-circuit of spec.md §4.8.
func Combine(algorithm policy.Algorithm, votes []policy.Vote) policy.Vote {
	priority := policy.Permit
	nonPriority := policy.Deny
	if algorithm == policy.DenyOverrides {
		priority, nonPriority = policy.Deny, policy.Permit
	}

	st := state{decision: policy.NotApplicable}

	for _, v := range votes {
		if st.critical {
			break // already short-circuited; nothing can change the outcome
		}
		applyVote(&st, v, priority, nonPriority)
	}

	if st.critical {
		return policy.Vote{Decision: policy.Indeterminate, Outcome: st.outcome, Err: st.err}
	}
	return mergeConstraints(st)
}

func applyVote(st *state, v policy.Vote, priority, nonPriority policy.Decision) {
	switch v.Decision {
	case policy.NotApplicable:
		return // always included, never changes the accumulated decision

	case policy.Indeterminate:
		if isCritical(v.Outcome, priority) {
			st.critical = true
			st.outcome = v.Outcome
			st.err = v.Err
			return
		}
		if st.decision == policy.NotApplicable || st.decision == policy.Indeterminate {
			st.decision = policy.Indeterminate
			st.outcome = v.Outcome
			st.err = v.Err
		}
		return

	case priority:
		if st.decision != priority {
			st.decision = priority
			st.obligations = nil // discard constraints from a bucket priority now overrides
		}
		st.obligations = append(st.obligations, v)

	case nonPriority:
		if st.decision == priority {
			return // priority already won; nonPriority vote is irrelevant
		}
		if st.decision != nonPriority {
			st.decision = nonPriority
			st.obligations = nil
		}
		st.obligations = append(st.obligations, v)
	}
}

// isCritical classifies an INDETERMINATE vote per spec.md §4.8's footnote:
// critical if its outcome contradicts priority, or its outcome is mixed.
func isCritical(outcome policy.Outcome, priority policy.Decision) bool {
	if outcome == policy.OutcomeMixed {
		return true
	}
	wantsPermit := outcome == policy.OutcomePermit
	wantsDeny := outcome == policy.OutcomeDeny
	if priority == policy.Permit {
		return wantsDeny
	}
	return wantsPermit
}

// mergeConstraints concatenates every contributing vote's obligations and
// advice in encounter order. Per-vote constraint groups are gathered with
// collection.Map the way the teacher's api/net.go maps a slice of listen
// addresses, then flattened into the combined lists.
func mergeConstraints(st state) policy.Vote {
	out := policy.Vote{Decision: st.decision, Outcome: st.outcome, Err: st.err}
	if st.decision == policy.NotApplicable || len(st.obligations) == 0 {
		return out
	}

	contributing := collection.From(st.obligations...)

	obligationGroups := collection.Map(contributing, func(v policy.Vote) []value.Value {
		return v.Obligations
	}).Elements()
	adviceGroups := collection.Map(contributing, func(v policy.Vote) []value.Value {
		return v.Advice
	}).Elements()

	out.Obligations = flatten(obligationGroups)
	out.Advice = flatten(adviceGroups)

	for _, v := range st.obligations {
		if v.Resource != nil && !value.IsUndefined(v.Resource) {
			out.Resource = v.Resource
		}
	}
	return out
}

func flatten(groups [][]value.Value) []value.Value {
	var out []value.Value
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
