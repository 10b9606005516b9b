// SPDX-License-Identifier: Apache-2.0
package policy

import (
	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/dag"
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/trinary"
	"github.com/sentrie-sh/saplpdp/xerr"
)

// SetRef names a policy set uniquely within a configuration; it implements
// fmt.Stringer so the combining hierarchy can be validated as a
// dag.G[SetRef] (spec.md §3 component design note for C7).
type SetRef string

func (r SetRef) String() string { return string(r) }

// Algorithm names a vote-combining strategy understood by the combiner
// package (kept here, not in combiner, so a PolicySet can name its own
// algorithm without importing combiner and creating an import cycle -
// combiner imports policy, not the reverse).
type Algorithm string

const (
	PermitOverrides Algorithm = "permit-overrides"
	DenyOverrides   Algorithm = "deny-overrides"
)

// Member is one child of a PolicySet: exactly one of Policy or SetRef is set.
type Member struct {
	Policy *Policy
	SetRef SetRef
}

// PolicySet composes child policies (or nested sets, referenced by SetRef)
// under a single combining algorithm.
type PolicySet struct {
	Ref       SetRef
	Algorithm Algorithm
	Target    ast.Expression // optional applicability gate over the whole set
	Members   []Member
}

// ValidateHierarchy rejects cyclic policy-set inclusion before compilation
// (spec.md §4 component design note): every SetRef a set includes must
// itself be acyclic with respect to every other set in sets.
func ValidateHierarchy(sets []*PolicySet) error {
	g := dag.New[SetRef]()
	byRef := make(map[SetRef]*PolicySet, len(sets))
	for _, s := range sets {
		g.AddNode(s.Ref)
		byRef[s.Ref] = s
	}
	for _, s := range sets {
		for _, m := range s.Members {
			if m.SetRef == "" {
				continue
			}
			if _, ok := byRef[m.SetRef]; !ok {
				return xerr.ErrValidation("policy set %q references unknown set %q", s.Ref, m.SetRef)
			}
			if err := g.AddEdge(s.Ref, m.SetRef); err != nil {
				return xerr.ErrValidation("policy set %q -> %q: %v", s.Ref, m.SetRef, err)
			}
		}
	}
	if _, err := g.TopoSort(); err != nil {
		return xerr.ErrValidation("policy set hierarchy contains a cycle: %v", err)
	}
	return nil
}

// setVoter composes child Voters under Algorithm at evaluation time. The
// actual fold is implemented by the combiner package (C8); policy only
// needs to hand it the evaluated child votes, so the combining function is
// injected to avoid an import cycle (combiner already imports policy for
// the Vote/Decision/Outcome types).
type setVoter struct {
	targetNode stratum.Node
	children   []Voter
	combine    func(algorithm Algorithm, votes []Vote) Vote
	algorithm  Algorithm
}

func (s *setVoter) IsConstant() bool { return false }

func (s *setVoter) Vote(ctx stratum.EvaluationContext) Vote {
	if s.targetNode != nil {
		applicable, err := evaluateTarget(s.targetNode, ctx)
		switch applicable {
		case trinary.Unknown:
			return Vote{Decision: Indeterminate, Outcome: OutcomeNone, Err: err}
		case trinary.False:
			return Vote{Decision: NotApplicable}
		}
	}
	votes := make([]Vote, len(s.children))
	for i, c := range s.children {
		votes[i] = c.Vote(ctx)
	}
	return s.combine(s.algorithm, votes)
}

// CompileSet lowers set into a Voter, resolving SetRef members against
// resolved (the set of already-compiled sets, by Ref). Policies referenced
// directly are compiled inline via cc.
func CompileSet(set *PolicySet, cc *compiler.CompilationContext, resolved map[SetRef]Voter,
	combine func(algorithm Algorithm, votes []Vote) Vote) (Voter, error) {
	var targetNode stratum.Node
	if set.Target != nil {
		n, err := compiler.Compile(set.Target, cc)
		if err != nil {
			return nil, err
		}
		targetNode = n
	}

	children := make([]Voter, 0, len(set.Members))
	for _, m := range set.Members {
		if m.Policy != nil {
			v, err := m.Policy.Compile(cc)
			if err != nil {
				return nil, err
			}
			children = append(children, v)
			continue
		}
		v, ok := resolved[m.SetRef]
		if !ok {
			return nil, xerr.ErrCompilation("policy set %q references unresolved set %q", set.Ref, m.SetRef)
		}
		children = append(children, v)
	}

	return &setVoter{
		targetNode: targetNode,
		children:   children,
		combine:    combine,
		algorithm:  set.Algorithm,
	}, nil
}
