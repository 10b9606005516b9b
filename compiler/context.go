// SPDX-License-Identifier: Apache-2.0
package compiler

import (
	"github.com/sentrie-sh/saplpdp/attribute"
	"github.com/sentrie-sh/saplpdp/function"
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/value"
)

// CompilationContext is threaded through compilation of every expression
// in a document (spec.md §4.3): it supplies the function and attribute
// brokers and the PDP-scoped data (declared variables and secrets)
// available to every compiled node.
type CompilationContext struct {
	FunctionBroker  *function.Broker
	AttributeBroker *attribute.Broker
	PDPData         map[string]value.Value // variables + secrets, flat namespace
}

// evalContext is the concrete stratum.EvaluationContext threaded through
// evaluation (not compilation): the live subscription plus any let-bound
// locals layered on top of the compile-time PDP data.
type evalContext struct {
	subscription value.Value
	locals       map[string]value.Value
	parent       *evalContext
}

func newEvalContext(subscription value.Value, seed map[string]value.Value) *evalContext {
	locals := make(map[string]value.Value, len(seed))
	for k, v := range seed {
		locals[k] = v
	}
	return &evalContext{subscription: subscription, locals: locals}
}

// NewEvaluationContext builds the EvaluationContext for one subscription,
// with no additional local bindings beyond the subscription itself. Used
// by the PDP façade and the decision HTTP surface to install the
// subscription before evaluating a configuration's Voters.
func NewEvaluationContext(subscription value.Value) EvaluationContext {
	return newEvalContext(subscription, nil)
}

func (c *evalContext) Subscription() value.Value { return c.subscription }

func (c *evalContext) Variable(name string) (value.Value, bool) {
	for cur := c; cur != nil; cur = cur.parent {
		if v, ok := cur.locals[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// withLocal returns a child context with name bound to v. Compiled Blocks
// do not call it; they layer their declarations with localOverlay.
func (c *evalContext) withLocal(name string, v value.Value) *evalContext {
	return &evalContext{
		subscription: c.subscription,
		locals:       map[string]value.Value{name: v},
		parent:       c,
	}
}

// EvaluationContext re-exports stratum.EvaluationContext so callers outside
// this package don't need to import stratum just to hold a reference.
type EvaluationContext = stratum.EvaluationContext

// localOverlay layers one additional local binding over an arbitrary
// EvaluationContext, used by the compiled Block node to make each
// VarDeclaration visible to the expressions that follow it without
// requiring every EvaluationContext implementation to support mutation.
type localOverlay struct {
	parent stratum.EvaluationContext
	name   string
	value  value.Value
}

func (o *localOverlay) Subscription() value.Value { return o.parent.Subscription() }

func (o *localOverlay) Variable(name string) (value.Value, bool) {
	if name == o.name {
		return o.value, true
	}
	return o.parent.Variable(name)
}
