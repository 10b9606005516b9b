// SPDX-License-Identifier: Apache-2.0
package sourcedoc

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sentrie-sh/saplpdp/pdp"
	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/xerr"
)

type policyNode struct {
	Name        string      `json:"name"`
	Target      *exprNode   `json:"target,omitempty"`
	Effect      string      `json:"effect"`
	Condition   *exprNode   `json:"condition,omitempty"`
	Obligations []*exprNode `json:"obligations,omitempty"`
	Advice      []*exprNode `json:"advice,omitempty"`
	Resource    *exprNode   `json:"resource,omitempty"`
}

type memberNode struct {
	Policy *policyNode `json:"policy,omitempty"`
	SetRef string      `json:"setRef,omitempty"`
}

type policySetNode struct {
	Ref       string       `json:"ref"`
	Algorithm string       `json:"algorithm"`
	Target    *exprNode    `json:"target,omitempty"`
	Members   []memberNode `json:"members,omitempty"`
}

// documentNode is one file's top-level shape: exactly one of Policy or Set.
type documentNode struct {
	Policy *policyNode    `json:"policy,omitempty"`
	Set    *policySetNode `json:"policySet,omitempty"`
}

func buildPolicy(n *policyNode, doc string) (*policy.Policy, error) {
	target, err := buildExpr(n.Target, doc)
	if err != nil {
		return nil, err
	}
	condition, err := buildExpr(n.Condition, doc)
	if err != nil {
		return nil, err
	}
	resource, err := buildExpr(n.Resource, doc)
	if err != nil {
		return nil, err
	}
	obligations, err := buildExprs(n.Obligations, doc)
	if err != nil {
		return nil, err
	}
	advice, err := buildExprs(n.Advice, doc)
	if err != nil {
		return nil, err
	}

	var effect policy.Decision
	switch n.Effect {
	case "permit", "PERMIT":
		effect = policy.Permit
	case "deny", "DENY":
		effect = policy.Deny
	default:
		return nil, xerr.ErrSyntax(fmt.Sprintf("%s: policy %q has unknown effect %q", doc, n.Name, n.Effect))
	}

	return &policy.Policy{
		Name:        n.Name,
		Target:      target,
		Effect:      effect,
		Condition:   condition,
		Obligations: obligations,
		Advice:      advice,
		Resource:    resource,
	}, nil
}

func buildPolicySet(n *policySetNode, doc string) (*policy.PolicySet, error) {
	target, err := buildExpr(n.Target, doc)
	if err != nil {
		return nil, err
	}

	var algorithm policy.Algorithm
	switch n.Algorithm {
	case string(policy.PermitOverrides):
		algorithm = policy.PermitOverrides
	case string(policy.DenyOverrides):
		algorithm = policy.DenyOverrides
	default:
		return nil, xerr.ErrSyntax(fmt.Sprintf("%s: policy set %q has unknown algorithm %q", doc, n.Ref, n.Algorithm))
	}

	members := make([]policy.Member, len(n.Members))
	for i, m := range n.Members {
		switch {
		case m.Policy != nil:
			p, err := buildPolicy(m.Policy, doc)
			if err != nil {
				return nil, err
			}
			members[i] = policy.Member{Policy: p}
		case m.SetRef != "":
			members[i] = policy.Member{SetRef: policy.SetRef(m.SetRef)}
		default:
			return nil, xerr.ErrSyntax(fmt.Sprintf("%s: policy set %q has a member with neither policy nor setRef", doc, n.Ref))
		}
	}

	return &policy.PolicySet{
		Ref:       policy.SetRef(n.Ref),
		Algorithm: algorithm,
		Target:    target,
		Members:   members,
	}, nil
}

// LoadDocument reads and lowers one JSON document file into a pdp.Document.
func LoadDocument(path string) (pdp.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pdp.Document{}, err
	}

	var n documentNode
	if err := json.Unmarshal(data, &n); err != nil {
		return pdp.Document{}, xerr.ErrSyntax(fmt.Sprintf("%s: %v", path, err))
	}

	switch {
	case n.Policy != nil:
		p, err := buildPolicy(n.Policy, path)
		if err != nil {
			return pdp.Document{}, err
		}
		return pdp.Document{Policy: p}, nil
	case n.Set != nil:
		s, err := buildPolicySet(n.Set, path)
		if err != nil {
			return pdp.Document{}, err
		}
		return pdp.Document{Set: s}, nil
	default:
		return pdp.Document{}, xerr.ErrSyntax(fmt.Sprintf("%s: document has neither \"policy\" nor \"policySet\"", path))
	}
}

// LoadAll reads every path into a pdp.Document, in order.
func LoadAll(paths []string) ([]pdp.Document, error) {
	docs := make([]pdp.Document, 0, len(paths))
	for _, p := range paths {
		d, err := LoadDocument(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}
