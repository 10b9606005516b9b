// SPDX-License-Identifier: Apache-2.0

// Package sourcedoc is a minimal, explicitly non-normative textual loader
// for policy documents: JSON fixtures that build the ast.Expression tree
// and policy.Policy/PolicySet values the compiler consumes. The real SAPL
// grammar and parser remain an external collaborator's concern (spec.md
// §1) - this package only exists so the CLI and tests have something to
// load without depending on that collaborator.
package sourcedoc

import (
	"encoding/json"
	"fmt"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/xerr"
)

// exprNode is the JSON shape of one ast.Expression, discriminated by Type.
type exprNode struct {
	Type string `json:"type"`

	// literal
	Kind  string          `json:"kind,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`

	// subscription
	Field string `json:"field,omitempty"`

	// variable
	Name string `json:"name,omitempty"`

	// field access / index
	Target *exprNode `json:"target,omitempty"`
	Key    *exprNode `json:"key,omitempty"`

	// unary / binary
	Op      string    `json:"op,omitempty"`
	Operand *exprNode `json:"operand,omitempty"`
	Left    *exprNode `json:"left,omitempty"`
	Right   *exprNode `json:"right,omitempty"`

	// function / attribute
	Args   []*exprNode `json:"args,omitempty"`
	Entity *exprNode   `json:"entity,omitempty"`
	Fresh  bool        `json:"fresh,omitempty"`

	// array / object
	Elements []*exprNode `json:"elements,omitempty"`
	Entries  []entryNode `json:"entries,omitempty"`

	// block
	Vars   []varNode `json:"vars,omitempty"`
	Result *exprNode `json:"result,omitempty"`
}

type entryNode struct {
	Key   string   `json:"key"`
	Value exprNode `json:"value"`
}

type varNode struct {
	Name  string   `json:"name"`
	Value exprNode `json:"value"`
}

// buildExpr lowers one decoded node into an ast.Expression, tagging every
// node with doc for diagnostics.
func buildExpr(n *exprNode, doc string) (ast.Expression, error) {
	if n == nil {
		return nil, nil
	}
	loc := ast.Location{DocumentName: doc}

	switch n.Type {
	case "literal":
		v, err := literalValue(n)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteral(loc, n.Kind, v), nil

	case "subscription":
		return &ast.SubscriptionField{Field: n.Field}, nil

	case "variable":
		return &ast.Variable{Name: n.Name}, nil

	case "field":
		target, err := buildExpr(n.Target, doc)
		if err != nil {
			return nil, err
		}
		return &ast.FieldAccess{Target: target, Field: n.Field}, nil

	case "index":
		target, err := buildExpr(n.Target, doc)
		if err != nil {
			return nil, err
		}
		key, err := buildExpr(n.Key, doc)
		if err != nil {
			return nil, err
		}
		return &ast.Index{Target: target, Key: key}, nil

	case "unary":
		operand, err := buildExpr(n.Operand, doc)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: n.Op, Operand: operand}, nil

	case "binary":
		left, err := buildExpr(n.Left, doc)
		if err != nil {
			return nil, err
		}
		right, err := buildExpr(n.Right, doc)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{Op: n.Op, Left: left, Right: right}, nil

	case "function":
		args, err := buildExprs(n.Args, doc)
		if err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Name: n.Name, Arguments: args}, nil

	case "attribute":
		entity, err := buildExpr(n.Entity, doc)
		if err != nil {
			return nil, err
		}
		args, err := buildExprs(n.Args, doc)
		if err != nil {
			return nil, err
		}
		return &ast.AttributeReference{Name: n.Name, Entity: entity, Arguments: args, Fresh: n.Fresh}, nil

	case "array":
		elems, err := buildExprs(n.Elements, doc)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLiteral{Elements: elems}, nil

	case "object":
		entries := make([]ast.ObjectEntry, len(n.Entries))
		for i, e := range n.Entries {
			v, err := buildExpr(&e.Value, doc)
			if err != nil {
				return nil, err
			}
			entries[i] = ast.ObjectEntry{Key: e.Key, Value: v}
		}
		return &ast.ObjectLiteral{Entries: entries}, nil

	case "block":
		decls := make([]*ast.VarDeclaration, len(n.Vars))
		for i, vn := range n.Vars {
			v, err := buildExpr(&vn.Value, doc)
			if err != nil {
				return nil, err
			}
			decls[i] = &ast.VarDeclaration{Name: vn.Name, Value: v}
		}
		result, err := buildExpr(n.Result, doc)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Declarations: decls, Result: result}, nil

	default:
		return nil, xerr.ErrSyntax(fmt.Sprintf("%s: unknown expression type %q", doc, n.Type))
	}
}

func buildExprs(ns []*exprNode, doc string) ([]ast.Expression, error) {
	out := make([]ast.Expression, len(ns))
	for i, n := range ns {
		v, err := buildExpr(n, doc)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func literalValue(n *exprNode) (any, error) {
	switch n.Kind {
	case "null", "undefined":
		return nil, nil
	case "bool":
		var b bool
		if err := json.Unmarshal(n.Value, &b); err != nil {
			return nil, xerr.ErrSyntax("bad bool literal: " + err.Error())
		}
		return b, nil
	case "number":
		var s string
		if err := json.Unmarshal(n.Value, &s); err != nil {
			var f float64
			if err2 := json.Unmarshal(n.Value, &f); err2 != nil {
				return nil, xerr.ErrSyntax("bad number literal: " + err.Error())
			}
			return fmt.Sprintf("%v", f), nil
		}
		return s, nil
	case "text":
		var s string
		if err := json.Unmarshal(n.Value, &s); err != nil {
			return nil, xerr.ErrSyntax("bad text literal: " + err.Error())
		}
		return s, nil
	default:
		return nil, xerr.ErrSyntax(fmt.Sprintf("unknown literal kind %q", n.Kind))
	}
}
