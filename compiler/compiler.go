// SPDX-License-Identifier: Apache-2.0

// Package compiler implements the expression compiler/evaluator (C3): it
// lowers an ast.Expression into a compiled node tagged with its stratum
// (C2), folding everything reducible at compile time and wiring attribute
// references and function calls to the attribute and function brokers.
package compiler

import (
	"fmt"
	"time"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/attribute"
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/value"
	"github.com/sentrie-sh/saplpdp/xerr"
)

const subscriptionVariableNamespace = "" // subscription fields have no variable prefix

// Compile lowers expr into a compiled stratum.Node. The only case returning
// a non-nil error is one that cannot be represented as any node at all
// (e.g. a Block with a streaming declaration, out of scope for this
// module); every other compile-time failure is folded into a
// stratum.ErrorValue, per spec.md §4.3's "error propagation" and
// §7's error-as-value contract.
func Compile(expr ast.Expression, cc *CompilationContext) (stratum.Node, error) {
	switch e := expr.(type) {
	case *ast.Literal:
		return compileLiteral(e)
	case *ast.ArrayLiteral:
		return compileArrayLiteral(e, cc)
	case *ast.ObjectLiteral:
		return compileObjectLiteral(e, cc)
	case *ast.SubscriptionField:
		return compileSubscriptionField(e), nil
	case *ast.Variable:
		return compileVariable(e, cc), nil
	case *ast.AttributeReference:
		return compileAttributeReference(e, cc)
	case *ast.FunctionCall:
		return compileFunctionCall(e, cc)
	case *ast.UnaryOp:
		return compileUnaryOp(e, cc)
	case *ast.BinaryOp:
		return compileBinaryOp(e, cc)
	case *ast.Index:
		return compileIndex(e, cc)
	case *ast.FieldAccess:
		return compileFieldAccess(e, cc)
	case *ast.Block:
		return compileBlock(e, cc)
	default:
		return nil, xerr.ErrCompilation("unsupported expression node %T", expr)
	}
}

// Evaluate runs a compiled node to a single Value against ctx. Stream nodes
// are evaluated by taking their first emission; callers that need the full
// sequence should type-assert to stratum.StreamOperator and call Stream
// directly.
func Evaluate(node stratum.Node, ctx stratum.EvaluationContext) value.Value {
	switch n := node.(type) {
	case stratum.ErrorValue:
		return n.AsValue()
	case stratum.PureOperator:
		return n.Evaluate(ctx)
	case stratum.StreamOperator:
		first, ok := <-n.Stream(ctx)
		if !ok {
			return value.Undefined
		}
		return first.Value
	default:
		if vn, ok := node.(interface{ Value() value.Value }); ok {
			return vn.Value()
		}
		return value.NewError("unevaluatable compiled node %T", node)
	}
}

// --- literals ---

func compileLiteral(lit *ast.Literal) (stratum.Node, error) {
	v, err := literalValue(lit)
	if err != nil {
		return stratum.NewErrorValue(value.NewError("%s", err.Error())), nil
	}
	return stratum.NewValueNode(v), nil
}

func literalValue(lit *ast.Literal) (value.Value, error) {
	switch lit.Kind {
	case "null":
		return value.Null, nil
	case "undefined":
		return value.Undefined, nil
	case "bool":
		b, ok := lit.Value.(bool)
		if !ok {
			return nil, fmt.Errorf("literal kind bool holds %T", lit.Value)
		}
		return value.Bool(b), nil
	case "number":
		s, ok := lit.Value.(string)
		if !ok {
			return nil, fmt.Errorf("literal kind number holds %T, want string", lit.Value)
		}
		return value.ParseNumber(s)
	case "text":
		s, ok := lit.Value.(string)
		if !ok {
			return nil, fmt.Errorf("literal kind text holds %T", lit.Value)
		}
		return value.Text(s), nil
	default:
		return nil, fmt.Errorf("unknown literal kind %q", lit.Kind)
	}
}

func compileArrayLiteral(lit *ast.ArrayLiteral, cc *CompilationContext) (stratum.Node, error) {
	nodes := make([]stratum.Node, len(lit.Elements))
	strata := make([]stratum.Stratum, len(lit.Elements))
	for i, elem := range lit.Elements {
		n, err := Compile(elem, cc)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
		strata[i] = n.Stratum()
	}
	result := stratum.Classify(false, false, strata...)

	if result == stratum.Value {
		values := make([]value.Value, len(nodes))
		for i, n := range nodes {
			values[i] = valueOf(n)
		}
		return stratum.NewValueNode(value.NewArray(values...)), nil
	}
	if result == stratum.Stream {
		return newStreamComposite(nodes, func(vals []value.Value) value.Value {
			return value.NewArray(vals...)
		}), nil
	}
	return newPureComposite(result, nodes, func(vals []value.Value) value.Value {
		return value.NewArray(vals...)
	}), nil
}

func compileObjectLiteral(lit *ast.ObjectLiteral, cc *CompilationContext) (stratum.Node, error) {
	nodes := make([]stratum.Node, len(lit.Entries))
	strata := make([]stratum.Stratum, len(lit.Entries))
	keys := make([]string, len(lit.Entries))
	for i, entry := range lit.Entries {
		n, err := Compile(entry.Value, cc)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
		strata[i] = n.Stratum()
		keys[i] = entry.Key
	}
	result := stratum.Classify(false, false, strata...)
	build := func(vals []value.Value) value.Value {
		o := value.NewObject()
		for i, k := range keys {
			o.Set(k, vals[i])
		}
		return o
	}

	if result == stratum.Value {
		vals := make([]value.Value, len(nodes))
		for i, n := range nodes {
			vals[i] = valueOf(n)
		}
		return stratum.NewValueNode(build(vals)), nil
	}
	if result == stratum.Stream {
		return newStreamComposite(nodes, build), nil
	}
	return newPureComposite(result, nodes, build), nil
}

// --- subscription / variables ---

func compileSubscriptionField(f *ast.SubscriptionField) stratum.Node {
	field := f.Field
	return &pureNode{
		stratum:             stratum.PureSub,
		dependsOnSubscription: true,
		eval: func(ctx stratum.EvaluationContext) value.Value {
			sub, ok := ctx.Subscription().(*value.Object)
			if !ok {
				return value.Undefined
			}
			return sub.Get(field)
		},
	}
}

func compileVariable(v *ast.Variable, cc *CompilationContext) stratum.Node {
	name := v.Name
	if cc != nil {
		if val, ok := cc.PDPData[name]; ok {
			return stratum.NewValueNode(val)
		}
	}
	return &pureNode{
		stratum: stratum.PureNonSub,
		eval: func(ctx stratum.EvaluationContext) value.Value {
			if val, ok := ctx.Variable(name); ok {
				return val
			}
			return value.Undefined
		},
	}
}

// --- attribute references ---

func compileAttributeReference(ref *ast.AttributeReference, cc *CompilationContext) (stratum.Node, error) {
	if cc == nil || cc.AttributeBroker == nil {
		return nil, xerr.ErrCompilation("attribute reference %q compiled without an attribute broker", ref.Name)
	}
	broker := cc.AttributeBroker
	entityExpr := ref.Entity
	argExprs := ref.Arguments

	return &streamNode{
		stream: func(ctx stratum.EvaluationContext) stratum.TracedStream {
			entity := ""
			if entityExpr != nil {
				if node, err := Compile(entityExpr, cc); err == nil {
					entity = Evaluate(node, ctx).String()
				}
			}
			args := make([]string, len(argExprs))
			for i, a := range argExprs {
				if node, err := Compile(a, cc); err == nil {
					args[i] = Evaluate(node, ctx).String()
				}
			}
			inv := attribute.Invocation{
				AttributeName:  ref.Name,
				Entity:         entity,
				Arguments:      fmt.Sprint(args),
				Fresh:          ref.Fresh,
				InitialTimeout: evalMillis(ref.InitialTimeout, cc, ctx),
				PollInterval:   evalMillis(ref.PollInterval, cc, ctx),
				Backoff:        evalMillis(ref.Backoff, cc, ctx),
				Retries:        evalRetries(ref.Retries, cc, ctx),
			}
			ch, _ := broker.AttributeStream(inv)
			return ch
		},
	}, nil
}

// evalMillis evaluates a duration-valued AttributeReference field (its
// literal is a plain number of milliseconds) and returns 0 ("PDP default",
// per ast.AttributeReference's doc comment) for a nil expression or one
// that does not evaluate to a Number.
func evalMillis(expr ast.Expression, cc *CompilationContext, ctx stratum.EvaluationContext) time.Duration {
	if expr == nil {
		return 0
	}
	node, err := Compile(expr, cc)
	if err != nil {
		return 0
	}
	n, ok := Evaluate(node, ctx).(*value.Number)
	if !ok {
		return 0
	}
	ms, ok := n.Int64()
	if !ok {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// evalRetries evaluates AttributeReference.Retries, defaulting to -1
// (unlimited retries, attribute.Broker's convention for a negative count)
// for a nil expression or a non-Number result.
func evalRetries(expr ast.Expression, cc *CompilationContext, ctx stratum.EvaluationContext) int {
	if expr == nil {
		return -1
	}
	node, err := Compile(expr, cc)
	if err != nil {
		return -1
	}
	n, ok := Evaluate(node, ctx).(*value.Number)
	if !ok {
		return -1
	}
	r, ok := n.Int64()
	if !ok {
		return -1
	}
	return int(r)
}

// --- function calls ---

func compileFunctionCall(call *ast.FunctionCall, cc *CompilationContext) (stratum.Node, error) {
	argNodes := make([]stratum.Node, len(call.Arguments))
	strata := make([]stratum.Stratum, len(call.Arguments))
	for i, a := range call.Arguments {
		n, err := Compile(a, cc)
		if err != nil {
			return nil, err
		}
		argNodes[i] = n
		strata[i] = n.Stratum()
	}
	result := stratum.Classify(false, false, strata...)
	name := call.Name
	broker := cc.FunctionBroker

	call1 := func(vals []value.Value) value.Value {
		if broker == nil {
			return value.ErrUnknownFunction(name)
		}
		return broker.Call(name, vals)
	}

	if result == stratum.Value {
		vals := make([]value.Value, len(argNodes))
		for i, n := range argNodes {
			vals[i] = valueOf(n)
		}
		return stratum.NewValueNode(call1(vals)), nil
	}
	if result == stratum.Stream {
		return newStreamComposite(argNodes, call1), nil
	}
	return newPureComposite(result, argNodes, call1), nil
}

// --- unary / binary operators ---

func compileUnaryOp(op *ast.UnaryOp, cc *CompilationContext) (stratum.Node, error) {
	operand, err := Compile(op.Operand, cc)
	if err != nil {
		return nil, err
	}
	result := stratum.Classify(false, false, operand.Stratum())
	opName := op.Op

	if result == stratum.Value {
		return stratum.NewValueNode(applyUnary(opName, valueOf(operand))), nil
	}
	if result == stratum.Stream {
		return newStreamComposite([]stratum.Node{operand}, func(vals []value.Value) value.Value {
			return applyUnary(opName, vals[0])
		}), nil
	}
	return newPureComposite(result, []stratum.Node{operand}, func(vals []value.Value) value.Value {
		return applyUnary(opName, vals[0])
	}), nil
}

func compileBinaryOp(op *ast.BinaryOp, cc *CompilationContext) (stratum.Node, error) {
	left, err := Compile(op.Left, cc)
	if err != nil {
		return nil, err
	}
	right, err := Compile(op.Right, cc)
	if err != nil {
		return nil, err
	}
	result := stratum.Classify(false, false, left.Stratum(), right.Stratum())
	opName := op.Op

	combine := func(vals []value.Value) value.Value {
		if opName == "|" {
			if !value.IsError(vals[0]) {
				return vals[0]
			}
			return vals[1]
		}
		return applyBinary(opName, vals[0], vals[1])
	}

	if result == stratum.Value {
		return stratum.NewValueNode(combine([]value.Value{valueOf(left), valueOf(right)})), nil
	}
	if result == stratum.Stream {
		return newStreamComposite([]stratum.Node{left, right}, combine), nil
	}
	return newPureComposite(result, []stratum.Node{left, right}, combine), nil
}

// --- index / field access ---

func compileIndex(idx *ast.Index, cc *CompilationContext) (stratum.Node, error) {
	target, err := Compile(idx.Target, cc)
	if err != nil {
		return nil, err
	}
	key, err := Compile(idx.Key, cc)
	if err != nil {
		return nil, err
	}
	result := stratum.Classify(false, false, target.Stratum(), key.Stratum())

	combine := func(vals []value.Value) value.Value {
		return applyIndex(vals[0], vals[1])
	}
	if result == stratum.Value {
		return stratum.NewValueNode(combine([]value.Value{valueOf(target), valueOf(key)})), nil
	}
	if result == stratum.Stream {
		return newStreamComposite([]stratum.Node{target, key}, combine), nil
	}
	return newPureComposite(result, []stratum.Node{target, key}, combine), nil
}

func applyIndex(target, key value.Value) value.Value {
	if value.IsError(target) {
		return target
	}
	if value.IsError(key) {
		return key
	}
	switch t := target.(type) {
	case *value.Array:
		n, ok := key.(*value.Number)
		if !ok {
			return value.ErrIncompatibleTypes("[]", target, key)
		}
		idx, _ := n.Int64()
		return t.At(int(idx))
	case *value.Object:
		k, ok := key.(value.Text)
		if !ok {
			return value.ErrIncompatibleTypes("[]", target, key)
		}
		return t.Get(string(k))
	default:
		return value.ErrIncompatibleTypes("[]", target, key)
	}
}

func compileFieldAccess(fa *ast.FieldAccess, cc *CompilationContext) (stratum.Node, error) {
	target, err := Compile(fa.Target, cc)
	if err != nil {
		return nil, err
	}
	field := fa.Field
	result := stratum.Classify(false, false, target.Stratum())

	combine := func(vals []value.Value) value.Value {
		v := vals[0]
		if value.IsError(v) {
			return v
		}
		o, ok := v.(*value.Object)
		if !ok {
			return value.ErrIncompatibleTypes(".", v, value.Text(field))
		}
		return o.Get(field)
	}
	if result == stratum.Value {
		return stratum.NewValueNode(combine([]value.Value{valueOf(target)})), nil
	}
	if result == stratum.Stream {
		return newStreamComposite([]stratum.Node{target}, combine), nil
	}
	return newPureComposite(result, []stratum.Node{target}, combine), nil
}

// --- blocks ---

func compileBlock(block *ast.Block, cc *CompilationContext) (stratum.Node, error) {
	declNodes := make([]stratum.Node, len(block.Declarations))
	declNames := make([]string, len(block.Declarations))
	for i, decl := range block.Declarations {
		n, err := Compile(decl.Value, cc)
		if err != nil {
			return nil, err
		}
		if n.Stratum() == stratum.Stream {
			return nil, xerr.ErrCompilation("variable declaration %q may not be a streaming expression", decl.Name)
		}
		declNodes[i] = n
		declNames[i] = decl.Name
	}
	result, err := Compile(block.Result, cc)
	if err != nil {
		return nil, err
	}
	if result.Stratum() == stratum.Stream {
		return nil, xerr.ErrCompilation("block result may not be a streaming expression")
	}

	readsSub := false
	for _, n := range declNodes {
		if po, ok := n.(stratum.PureOperator); ok && po.IsDependingOnSubscription() {
			readsSub = true
		}
	}
	if po, ok := result.(stratum.PureOperator); ok && po.IsDependingOnSubscription() {
		readsSub = true
	}
	st := stratum.PureNonSub
	if readsSub {
		st = stratum.PureSub
	}
	if result.Stratum() == stratum.Value && allValue(declNodes) {
		st = stratum.Value
	}

	node := &pureNode{
		stratum:               st,
		dependsOnSubscription: readsSub,
		eval: func(ctx stratum.EvaluationContext) value.Value {
			cur := ctx
			for i, n := range declNodes {
				v := Evaluate(n, cur)
				cur = &localOverlay{parent: cur, name: declNames[i], value: v}
			}
			return Evaluate(result, cur)
		},
	}
	if st == stratum.Value {
		return stratum.NewValueNode(node.eval(nil)), nil
	}
	return node, nil
}

func allValue(nodes []stratum.Node) bool {
	for _, n := range nodes {
		if n.Stratum() != stratum.Value {
			return false
		}
	}
	return true
}

// --- shared node kinds ---

// valueOf extracts the folded value.Value out of a VALUE-stratum node,
// whichever concrete shape it has (a literal/constant-fold ValueNode, or a
// compile-time ErrorValue).
func valueOf(n stratum.Node) value.Value {
	if ev, ok := n.(stratum.ErrorValue); ok {
		return ev.AsValue()
	}
	if vn, ok := n.(interface{ Value() value.Value }); ok {
		return vn.Value()
	}
	return value.NewError("expected folded value, got %T", n)
}

// pureNode is a general PureOperator built from a closure; used for
// subscription fields, variables, blocks, and folded-but-not-VALUE
// composites (PURE_NON_SUB / PURE_SUB).
type pureNode struct {
	stratum               stratum.Stratum
	dependsOnSubscription bool
	eval                  func(stratum.EvaluationContext) value.Value
}

func (n *pureNode) Stratum() stratum.Stratum                { return n.stratum }
func (n *pureNode) Evaluate(ctx stratum.EvaluationContext) value.Value { return n.eval(ctx) }
func (n *pureNode) IsDependingOnSubscription() bool          { return n.dependsOnSubscription }

// newPureComposite builds a PureOperator that evaluates every operand
// against the same ctx and combines the results.
func newPureComposite(st stratum.Stratum, operands []stratum.Node, combine func([]value.Value) value.Value) stratum.Node {
	depends := st == stratum.PureSub
	return &pureNode{
		stratum:               st,
		dependsOnSubscription: depends,
		eval: func(ctx stratum.EvaluationContext) value.Value {
			vals := make([]value.Value, len(operands))
			for i, op := range operands {
				vals[i] = Evaluate(op, ctx)
			}
			return combine(vals)
		},
	}
}

// streamNode is a StreamOperator built from a closure.
type streamNode struct {
	stream func(stratum.EvaluationContext) stratum.TracedStream
}

func (n *streamNode) Stratum() stratum.Stratum { return stratum.Stream }
func (n *streamNode) Stream(ctx stratum.EvaluationContext) stratum.TracedStream {
	return n.stream(ctx)
}

// newStreamComposite builds a StreamOperator that combines operand streams
// (upgrading any non-stream operand to a single-element stream) using
// combineLatest semantics.
func newStreamComposite(operands []stratum.Node, combine func([]value.Value) value.Value) stratum.Node {
	return &streamNode{
		stream: func(ctx stratum.EvaluationContext) stratum.TracedStream {
			upstreams := make([]stratum.TracedStream, len(operands))
			for i, op := range operands {
				if so, ok := op.(stratum.StreamOperator); ok {
					upstreams[i] = so.Stream(ctx)
				} else {
					upstreams[i] = singleValueStream(value.NewTraced(Evaluate(op, ctx)))
				}
			}
			return combineLatest(upstreams, func(latest []value.Traced) value.Traced {
				vals := make([]value.Value, len(latest))
				for i, tv := range latest {
					vals[i] = tv.Value
				}
				return value.NewTraced(combine(vals))
			})
		},
	}
}
