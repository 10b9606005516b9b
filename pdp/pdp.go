// SPDX-License-Identifier: Apache-2.0
//
// Copyright 2025 Binaek Sarkar
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pdp is the PDP façade (C9): it compiles a configuration's
// top-level documents into Voters, installs the evaluation context for a
// subscription, combines the top-level votes under the configuration's own
// combining algorithm, and streams AuthorizationDecision as any
// contributing stream re-emits.
package pdp

import (
	"context"

	"github.com/google/uuid"

	"github.com/sentrie-sh/saplpdp/combiner"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/dag"
	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/value"
	"github.com/sentrie-sh/saplpdp/xerr"
)

// Document is one top-level unit a configuration names: exactly one of
// Policy or Set is populated.
type Document struct {
	Policy *policy.Policy
	Set    *policy.PolicySet
}

// AuthorizationDecision is the PDP's output for one subscription (spec.md
// §6's wire shape, independent of JSON framing).
type AuthorizationDecision struct {
	Decision    policy.Decision
	Obligations []value.Value
	Advice      []value.Value
	Resource    value.Value
	Err         *value.Error // set only when Decision == Indeterminate
}

// PDP holds the compiled Voters for one configuration.
type PDP struct {
	algorithm policy.Algorithm
	voters    []policy.Voter
}

// New compiles every document (and, for documents that are policy sets,
// their nested members and referenced sets) against cc, under algorithm.
func New(cc *compiler.CompilationContext, algorithm policy.Algorithm, documents []Document) (*PDP, error) {
	sets := make([]*policy.PolicySet, 0, len(documents))
	for _, d := range documents {
		if d.Set != nil {
			sets = append(sets, d.Set)
		}
	}
	if err := policy.ValidateHierarchy(sets); err != nil {
		return nil, err
	}

	resolved := make(map[policy.SetRef]policy.Voter, len(sets))
	order, err := topoOrder(sets)
	if err != nil {
		return nil, err
	}
	for _, s := range order {
		v, err := policy.CompileSet(s, cc, resolved, combiner.Combine)
		if err != nil {
			return nil, err
		}
		resolved[s.Ref] = v
	}

	voters := make([]policy.Voter, 0, len(documents))
	for _, d := range documents {
		switch {
		case d.Policy != nil:
			v, err := d.Policy.Compile(cc)
			if err != nil {
				return nil, err
			}
			voters = append(voters, v)
		case d.Set != nil:
			v, ok := resolved[d.Set.Ref]
			if !ok {
				return nil, xerr.ErrCompilation("top-level set %q failed to compile", d.Set.Ref)
			}
			voters = append(voters, v)
		default:
			return nil, xerr.ErrValidation("document has neither a policy nor a policy set")
		}
	}

	return &PDP{algorithm: algorithm, voters: voters}, nil
}

// Decide evaluates every top-level voter once and combines the result.
// It is the single-shot convenience path; callers that need the reactive
// re-evaluation behavior described in spec.md §4.9 should use DecisionStream.
func (p *PDP) Decide(ctx compiler.EvaluationContext) AuthorizationDecision {
	votes := make([]policy.Vote, len(p.voters))
	for i, v := range p.voters {
		votes[i] = v.Vote(ctx)
	}
	return fromVote(combiner.Combine(p.algorithm, votes))
}

// DecisionStream emits an initial decision as soon as every non-stream
// voter has been evaluated, without waiting for the stream voters: one
// whose first vote has not arrived yet counts as a zero Vote
// (NOT_APPLICABLE). After that it emits a new decision every time a
// StreamVoter among them re-emits. With no stream voters the channel
// closes after the initial decision; otherwise it closes when goCtx is done.
func (p *PDP) DecisionStream(goCtx context.Context, ctx compiler.EvaluationContext) <-chan AuthorizationDecision {
	out := make(chan AuthorizationDecision, 1)

	current := make([]policy.Vote, len(p.voters))
	tick := make(chan int)

	streamCount := 0
	for i, v := range p.voters {
		if sv, ok := v.(policy.StreamVoter); ok {
			streamCount++
			i := i
			votes := sv.Votes(ctx)
			go func() {
				for vote := range votes {
					select {
					case <-goCtx.Done():
						return
					default:
					}
					current[i] = vote
					select {
					case tick <- i:
					case <-goCtx.Done():
						return
					}
				}
			}()
		} else {
			current[i] = v.Vote(ctx)
		}
	}

	go func() {
		defer close(out)
		emit := func() {
			select {
			case out <- fromVote(combiner.Combine(p.algorithm, current)):
			case <-goCtx.Done():
			}
		}
		emit() // initial decision once every PURE_* voter above has its Vote

		if streamCount == 0 {
			return
		}
		// Stream voters are long-lived PIP subscriptions; this only ever
		// winds down via cancellation, not by a stream voter's channel
		// closing on its own.
		for {
			select {
			case <-tick:
				emit()
			case <-goCtx.Done():
				return
			}
		}
	}()

	return out
}

func fromVote(v policy.Vote) AuthorizationDecision {
	return AuthorizationDecision{
		Decision:    v.Decision,
		Obligations: v.Obligations,
		Advice:      v.Advice,
		Resource:    v.Resource,
		Err:         v.Err,
	}
}

// topoOrder returns sets in an order where every set appears after the
// sets it references, so CompileSet can resolve nested SetRef members.
// ValidateHierarchy has already rejected cycles and dangling references by
// the time this runs, so the only remaining job is reversing dag.TopoSort's
// referencer-before-referenced order into referenced-first order.
func topoOrder(sets []*policy.PolicySet) ([]*policy.PolicySet, error) {
	byRef := make(map[policy.SetRef]*policy.PolicySet, len(sets))
	g := dag.New[policy.SetRef]()
	for _, s := range sets {
		byRef[s.Ref] = s
		g.AddNode(s.Ref)
	}
	for _, s := range sets {
		for _, m := range s.Members {
			if m.SetRef != "" {
				_ = g.AddEdge(s.Ref, m.SetRef)
			}
		}
	}
	sorted, err := g.TopoSort()
	if err != nil {
		return nil, xerr.ErrValidation("policy set hierarchy contains a cycle: %v", err)
	}
	order := make([]*policy.PolicySet, len(sorted))
	for i, ref := range sorted {
		order[len(sorted)-1-i] = byRef[ref]
	}
	return order, nil
}

// SubscriptionID generates a correlation id for multi-subscription
// decision streams (spec.md §6).
func SubscriptionID() string { return uuid.NewString() }
