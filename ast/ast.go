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

// Package ast describes the shape of the expression tree the compiler
// (package compiler) consumes. Producing this tree from policy source text
// is the job of the grammar/parser collaborator, which is out of scope for
// this module (spec.md §1) - ast only fixes the contract between that
// collaborator and the compiler.
package ast

import "fmt"

// Location pinpoints a span of policy source, carried by every node for
// diagnostics and by TracedValue emissions for coverage (spec.md §3).
type Location struct {
	DocumentName   string
	DocumentSource string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
}

func (l Location) String() string {
	if l.StartLine == l.EndLine {
		return fmt.Sprintf("%s:%d:%d-%d", l.DocumentName, l.StartLine, l.StartCol, l.EndCol)
	}
	return fmt.Sprintf("%s:%d:%d-%d:%d", l.DocumentName, l.StartLine, l.StartCol, l.EndLine, l.EndCol)
}

// Node is implemented by every expression node in the tree.
type Node interface {
	fmt.Stringer
	Position() Location
}

// Expression marks nodes that may appear in an evaluated position. Every
// concrete type below implements it.
type Expression interface {
	Node
	expressionNode()
}

// base is embedded by concrete node types to supply Position() without
// repeating the field on every struct.
type base struct {
	Pos Location
}

func (b base) Position() Location { return b.Pos }

// Literal is a constant value already parsed out of source text.
//
// Kind selects how Value is interpreted: "null", "undefined", "bool",
// "number", "text". Value holds the corresponding Go representation
// (bool, string holding the canonical decimal text, or nil).
type Literal struct {
	base
	Kind  string
	Value any
}

func (l *Literal) String() string    { return fmt.Sprintf("%v", l.Value) }
func (l *Literal) expressionNode()   {}
func NewLiteral(pos Location, kind string, value any) *Literal {
	return &Literal{base: base{Pos: pos}, Kind: kind, Value: value}
}

// ArrayLiteral builds an array value from element expressions.
type ArrayLiteral struct {
	base
	Elements []Expression
}

func (a *ArrayLiteral) String() string  { return "[...]" }
func (a *ArrayLiteral) expressionNode() {}

// ObjectEntry is one key/value pair of an ObjectLiteral, in source order.
type ObjectEntry struct {
	Key   string
	Value Expression
}

// ObjectLiteral builds an object value, preserving entry order.
type ObjectLiteral struct {
	base
	Entries []ObjectEntry
}

func (o *ObjectLiteral) String() string  { return "{...}" }
func (o *ObjectLiteral) expressionNode() {}

// SubscriptionField names the field of the authorization subscription being
// read: "subject", "action", "resource", "environment" or "secrets".
type SubscriptionField struct {
	base
	Field string
}

func (s *SubscriptionField) String() string  { return s.Field }
func (s *SubscriptionField) expressionNode() {}

// Variable refers to a value bound earlier in the same policy (a `var`
// declaration) or an environment variable supplied by the PDP's
// configuration.
type Variable struct {
	base
	Name string
}

func (v *Variable) String() string  { return v.Name }
func (v *Variable) expressionNode() {}

// AttributeReference invokes a PIP-backed attribute: `<entity.attrName(args)>`
// (environment attributes omit Entity).
type AttributeReference struct {
	base
	Name          string
	Entity        Expression // nil for an environment attribute
	Arguments     []Expression
	Fresh         bool
	InitialTimeout Expression // nil => PDP default
	PollInterval  Expression
	Backoff       Expression
	Retries       Expression
}

func (a *AttributeReference) String() string  { return "<" + a.Name + ">" }
func (a *AttributeReference) expressionNode() {}

// FunctionCall invokes a pure function registered with the function broker.
type FunctionCall struct {
	base
	Name      string
	Arguments []Expression
}

func (f *FunctionCall) String() string  { return f.Name + "(...)" }
func (f *FunctionCall) expressionNode() {}

// UnaryOp is a prefix operator: "-", "!".
type UnaryOp struct {
	base
	Op      string
	Operand Expression
}

func (u *UnaryOp) String() string  { return u.Op + "(...)" }
func (u *UnaryOp) expressionNode() {}

// BinaryOp is an infix operator. Op is one of:
// "+","-","*","/","%", "==","!=","<","<=",">",">=",
// "&&","||" (short-circuit), "|" (error-recovery), "=~" (regex match).
type BinaryOp struct {
	base
	Op          string
	Left, Right Expression
}

func (b *BinaryOp) String() string  { return "(" + b.Op + ")" }
func (b *BinaryOp) expressionNode() {}

// Index reads arr[idx] or obj["key"].
type Index struct {
	base
	Target Expression
	Key    Expression
}

func (i *Index) String() string  { return "[...]" }
func (i *Index) expressionNode() {}

// FieldAccess reads obj.field.
type FieldAccess struct {
	base
	Target Expression
	Field  string
}

func (f *FieldAccess) String() string  { return "." + f.Field }
func (f *FieldAccess) expressionNode() {}

// VarDeclaration binds Name to Value for the remainder of the policy body
// (SAPL `var name = expr;`).
type VarDeclaration struct {
	base
	Name  string
	Value Expression
}

func (v *VarDeclaration) String() string  { return "var " + v.Name }
func (v *VarDeclaration) expressionNode() {}

// Block sequences declarations followed by a trailing expression, the
// value of which is the block's value (SAPL policy body).
type Block struct {
	base
	Declarations []*VarDeclaration
	Result       Expression
}

func (b *Block) String() string  { return "{...}" }
func (b *Block) expressionNode() {}
