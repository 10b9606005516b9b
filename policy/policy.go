// SPDX-License-Identifier: Apache-2.0

// Package policy implements the policy and policy-set compilers (C7):
// compiling a policy's target and body into a Voter, and composing child
// Voters under a policy set's declared combining algorithm.
package policy

import (
	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/trinary"
	"github.com/sentrie-sh/saplpdp/value"
)

// Decision is the concrete/indeterminate outcome a Vote carries.
type Decision int

const (
	NotApplicable Decision = iota
	Permit
	Deny
	Indeterminate
)

func (d Decision) String() string {
	switch d {
	case NotApplicable:
		return "NOT_APPLICABLE"
	case Permit:
		return "PERMIT"
	case Deny:
		return "DENY"
	case Indeterminate:
		return "INDETERMINATE"
	default:
		return "UNKNOWN"
	}
}

// Outcome names what an INDETERMINATE vote would have decided had it not
// failed, used by the combiner's critical/non-critical classification
// (spec.md §4.8).
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomePermit
	OutcomeDeny
	OutcomeMixed // PERMIT_OR_DENY: a policy set whose children disagreed before failing
)

// Vote is one policy's (or policy set's) contribution toward the final
// decision (spec.md §3 glossary).
type Vote struct {
	Decision    Decision
	Outcome     Outcome // meaningful only when Decision == Indeterminate
	Obligations []value.Value
	Advice      []value.Value
	Resource    value.Value // Undefined unless the policy transforms it
	Err         *value.Error
}

// Voter is the taxonomy named in spec.md §4.7.
type Voter interface {
	// IsConstant reports whether Vote always returns the same Vote
	// (compile-time constant outcome) without needing a ctx.
	IsConstant() bool
	Vote(ctx stratum.EvaluationContext) Vote
}

// constVoter is a Voter whose outcome was fixed entirely at compile time
// (e.g. a target that folded to `false` with no PIP dependency).
type constVoter struct{ vote Vote }

func (c constVoter) IsConstant() bool                             { return true }
func (c constVoter) Vote(stratum.EvaluationContext) Vote          { return c.vote }

// pureVoter evaluates once per subscription.
type pureVoter struct {
	eval func(ctx stratum.EvaluationContext) Vote
}

func (p pureVoter) IsConstant() bool                    { return false }
func (p pureVoter) Vote(ctx stratum.EvaluationContext) Vote { return p.eval(ctx) }

// StreamVoter is the reactive member of the Voter taxonomy: its vote
// changes over time as an underlying attribute reference emits new values
// (spec.md §4.7).
type StreamVoter interface {
	Voter
	// Votes streams every subsequent Vote as the underlying streams emit.
	Votes(ctx stratum.EvaluationContext) <-chan Vote
}

// streamVoter recomputes eval on every combined emission of its streaming
// sub-nodes. Vote (the non-reactive Voter method) returns the first
// computed vote, for callers that only need a single snapshot.
type streamVoter struct {
	streamNodes []stratum.Node
	eval        func(ctx stratum.EvaluationContext) Vote
}

func (s streamVoter) IsConstant() bool { return false }

func (s streamVoter) Vote(ctx stratum.EvaluationContext) Vote {
	votes := s.Votes(ctx)
	v, ok := <-votes
	if !ok {
		return Vote{Decision: Indeterminate, Err: value.NewError("stream voter produced no emission")}
	}
	return v
}

func (s streamVoter) Votes(ctx stratum.EvaluationContext) <-chan Vote {
	out := make(chan Vote, 1)
	go func() {
		defer close(out)
		for range compiler.CombineStreams(ctx, s.streamNodes) {
			out <- s.eval(ctx)
		}
	}()
	return out
}

// Policy is a single named rule: an optional target (applicability gate)
// and a body producing obligations/advice/resource on top of a permit or
// deny.
type Policy struct {
	Name        string
	Target      ast.Expression // nil means "applies unconditionally"
	Effect      Decision       // Permit or Deny
	Condition   ast.Expression // nil means "always satisfied once applicable"
	Obligations []ast.Expression
	Advice      []ast.Expression
	Resource    ast.Expression // nil means "do not transform the resource"
}

// Compile lowers p into a Voter against cc.
func (p *Policy) Compile(cc *compiler.CompilationContext) (Voter, error) {
	var targetNode stratum.Node
	if p.Target != nil {
		n, err := compiler.Compile(p.Target, cc)
		if err != nil {
			return nil, err
		}
		targetNode = n
	}
	var conditionNode stratum.Node
	if p.Condition != nil {
		n, err := compiler.Compile(p.Condition, cc)
		if err != nil {
			return nil, err
		}
		conditionNode = n
	}
	obligationNodes, err := compileAll(p.Obligations, cc)
	if err != nil {
		return nil, err
	}
	adviceNodes, err := compileAll(p.Advice, cc)
	if err != nil {
		return nil, err
	}
	var resourceNode stratum.Node
	if p.Resource != nil {
		n, err := compiler.Compile(p.Resource, cc)
		if err != nil {
			return nil, err
		}
		resourceNode = n
	}

	effect := p.Effect
	eval := func(ctx stratum.EvaluationContext) Vote {
		applicable, err := evaluateTarget(targetNode, ctx)
		switch applicable {
		case trinary.Unknown:
			return Vote{Decision: Indeterminate, Outcome: OutcomeNone, Err: err}
		case trinary.False:
			return Vote{Decision: NotApplicable}
		}

		if conditionNode != nil {
			cv := compiler.Evaluate(conditionNode, ctx)
			if value.IsError(cv) {
				return Vote{Decision: Indeterminate, Outcome: outcomeFor(effect), Err: cv.(*value.Error)}
			}
			if !value.IsBoolean(cv) {
				return Vote{Decision: Indeterminate, Outcome: outcomeFor(effect),
					Err: value.NewError("policy condition did not evaluate to a boolean")}
			}
			if !value.AsBool(cv) {
				return Vote{Decision: NotApplicable}
			}
		}

		resource := value.Value(value.Undefined)
		if resourceNode != nil {
			resource = compiler.Evaluate(resourceNode, ctx)
		}
		return Vote{
			Decision:    effect,
			Obligations: evaluateAll(obligationNodes, ctx),
			Advice:      evaluateAll(adviceNodes, ctx),
			Resource:    resource,
		}
	}

	allNodes := append([]stratum.Node{}, obligationNodes...)
	allNodes = append(allNodes, adviceNodes...)
	if targetNode != nil {
		allNodes = append(allNodes, targetNode)
	}
	if conditionNode != nil {
		allNodes = append(allNodes, conditionNode)
	}
	if resourceNode != nil {
		allNodes = append(allNodes, resourceNode)
	}

	hasStream, allValue := false, true
	for _, n := range allNodes {
		if n.Stratum() == stratum.Stream {
			hasStream = true
		}
		if n.Stratum() != stratum.Value {
			allValue = false
		}
	}
	if hasStream {
		return streamVoter{streamNodes: allNodes, eval: eval}, nil
	}
	if !allValue {
		return pureVoter{eval: eval}, nil
	}
	return constVoter{vote: eval(nil)}, nil
}

func outcomeFor(effect Decision) Outcome {
	if effect == Permit {
		return OutcomePermit
	}
	return OutcomeDeny
}

// evaluateTarget implements the applicability test of spec.md §4.7 using
// three-valued logic: ErrorValue or non-Boolean is Unknown (Indeterminate),
// `false` is False, `true` is True. A nil target is unconditionally True.
func evaluateTarget(node stratum.Node, ctx stratum.EvaluationContext) (trinary.Value, *value.Error) {
	if node == nil {
		return trinary.True, nil
	}
	v := compiler.Evaluate(node, ctx)
	if value.IsError(v) {
		return trinary.Unknown, v.(*value.Error)
	}
	if !value.IsBoolean(v) {
		return trinary.Unknown, value.NewError("policy target did not evaluate to a boolean")
	}
	if value.AsBool(v) {
		return trinary.True, nil
	}
	return trinary.False, nil
}

func compileAll(exprs []ast.Expression, cc *compiler.CompilationContext) ([]stratum.Node, error) {
	nodes := make([]stratum.Node, len(exprs))
	for i, e := range exprs {
		n, err := compiler.Compile(e, cc)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func evaluateAll(nodes []stratum.Node, ctx stratum.EvaluationContext) []value.Value {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]value.Value, len(nodes))
	for i, n := range nodes {
		out[i] = compiler.Evaluate(n, ctx)
	}
	return out
}
