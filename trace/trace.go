// SPDX-License-Identifier: Apache-2.0

// Package trace builds the execution/coverage tree for one policy
// evaluation: which expression nodes ran, how long each took, and what
// value (or error) each one produced. It backs value.Traced's location
// list with a richer per-node record when a caller opts into tracing.
package trace

import (
	"fmt"
	"time"

	"github.com/sentrie-sh/saplpdp/ast"
)

// Node captures a single compiled-expression evaluation step.
type Node struct {
	// Kind names the compiled-node category: "literal", "variable",
	// "subscription-field", "attribute-reference", "function-call",
	// "unary", "binary", "index", "field", "block", "policy", "policy-set".
	Kind string `json:"kind"`

	// Op is the operator, function name, or policy/set name, where
	// applicable.
	Op string `json:"op,omitempty"`

	Duration time.Duration `json:"duration,omitempty"`

	Source ast.Node `json:"-"`

	Meta map[string]any `json:"meta,omitempty"`

	Children []*Node `json:"children,omitempty"`

	// Result is the node's produced value, rendered with its String method
	// rather than held as a value.Value, so this package does not import
	// value.
	Result string `json:"result,omitempty"`

	Err string `json:"err,omitempty"`
}

// DoneFn stops the node's timer; call it when evaluation of the node
// completes.
type DoneFn func()

// New starts a timed node for n, returning the node and a function to stop
// its timer.
func New(kind, op string, n ast.Node, meta map[string]any) (*Node, DoneFn) {
	x := &Node{Kind: kind, Op: op, Source: n, Meta: meta}
	start := time.Now()
	return x, func() {
		x.Duration = time.Since(start)
	}
}

// Unsupported records a node the tracer chose not to walk into, keeping
// the tree shape visible without claiming coverage of it.
func Unsupported(n ast.Node) *Node {
	return &Node{Kind: "unsupported", Source: n, Meta: map[string]any{"type": fmt.Sprintf("%T", n)}}
}

// Attach appends children and returns n for chaining.
func (n *Node) Attach(children ...*Node) *Node {
	if len(children) == 0 {
		return n
	}
	n.Children = append(n.Children, children...)
	return n
}

// SetResult records the node's produced value.
func (n *Node) SetResult(v fmt.Stringer) *Node {
	if v != nil {
		n.Result = v.String()
	}
	return n
}

// SetErr annotates the node with an evaluation error.
func (n *Node) SetErr(err error) *Node {
	if err != nil {
		n.Err = err.Error()
	}
	return n
}

// Leaves returns every node in the tree with no children, the unit
// coverage tooling counts against a document's total expression nodes.
func (n *Node) Leaves() []*Node {
	if len(n.Children) == 0 {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}
