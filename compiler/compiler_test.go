// SPDX-License-Identifier: Apache-2.0
package compiler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/attribute"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/function"
	"github.com/sentrie-sh/saplpdp/repository"
	"github.com/sentrie-sh/saplpdp/stratum"
	"github.com/sentrie-sh/saplpdp/value"
)

func num(s string) *ast.Literal { return ast.NewLiteral(ast.Location{}, "number", s) }

type staticEvalContext struct {
	subscription value.Value
}

func (c staticEvalContext) Subscription() value.Value               { return c.subscription }
func (c staticEvalContext) Variable(string) (value.Value, bool) { return nil, false }

func TestScenario1ArithmeticFoldsToValueStratum(t *testing.T) {
	expr := &ast.BinaryOp{Op: "+", Left: num("1"), Right: num("2")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)

	assert.Equal(t, stratum.Value, node.Stratum())
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, got.Equal(value.NewNumberFromInt64(3)))
}

func TestScenario2SubscriptionFieldAccessIsPureSub(t *testing.T) {
	subject := &ast.SubscriptionField{Field: "subject"}
	expr := &ast.FieldAccess{Target: subject, Field: "role"}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	assert.Equal(t, stratum.PureSub, node.Stratum())

	subscription := value.NewObject()
	subjectObj := value.NewObject()
	subjectObj.Set("role", value.Text("admin"))
	subscription.Set("subject", subjectObj)

	got := compiler.Evaluate(node, staticEvalContext{subscription: subscription})
	assert.Equal(t, value.Text("admin"), got)
}

func TestDivisionByZeroIsErrorValue(t *testing.T) {
	expr := &ast.BinaryOp{Op: "/", Left: num("1"), Right: num("0")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, value.IsError(got))
}

func TestArrayOutOfRangeReadIsUndefined(t *testing.T) {
	arr := &ast.ArrayLiteral{Elements: []ast.Expression{num("1"), num("2")}}
	expr := &ast.Index{Target: arr, Key: num("10")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.Equal(t, value.Undefined, got)
}

func TestIncompatibleTypesIsErrorValue(t *testing.T) {
	expr := &ast.BinaryOp{Op: "+", Left: ast.NewLiteral(ast.Location{}, "text", "a"), Right: num("1")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, value.IsError(got))
}

func TestCompileTimeFoldingIdempotence(t *testing.T) {
	expr := &ast.BinaryOp{
		Op:   "*",
		Left: &ast.BinaryOp{Op: "+", Left: num("1"), Right: num("2")},
		Right: num("4"),
	}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	require.Equal(t, stratum.Value, node.Stratum())

	folded := compiler.Evaluate(node, staticEvalContext{})
	directEval := value.NewNumberFromInt64(1).Add(value.NewNumberFromInt64(2)).Mul(value.NewNumberFromInt64(4))
	assert.True(t, folded.Equal(directEval))
	assert.True(t, folded.Equal(value.NewNumberFromInt64(12)))
}

func TestFunctionCallDispatchesThroughBroker(t *testing.T) {
	broker := function.New()
	broker.Register("double", function.Signature{Arity: 1}, func(args []value.Value) value.Value {
		n := args[0].(*value.Number)
		return n.Add(n)
	})
	expr := &ast.FunctionCall{Name: "double", Arguments: []ast.Expression{num("21")}}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{FunctionBroker: broker})
	require.NoError(t, err)
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, got.Equal(value.NewNumberFromInt64(42)))
}

func TestErrorRecoveryOperator(t *testing.T) {
	expr := &ast.BinaryOp{
		Op:   "|",
		Left: &ast.BinaryOp{Op: "/", Left: num("1"), Right: num("0")},
		Right: num("99"),
	}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, got.Equal(value.NewNumberFromInt64(99)))
}

func TestAttributeReferenceInitialTimeoutFieldReachesTheBroker(t *testing.T) {
	never := func(ctx context.Context, inv attribute.Invocation) <-chan value.Traced {
		out := make(chan value.Traced)
		go func() { <-ctx.Done() }()
		return out
	}
	broker := attribute.New(repository.New())
	require.NoError(t, broker.RegisterAttributeFinder(attribute.FinderSpecification{
		PIPName: "slow-pip", AttributeName: "slow.attr", Match: attribute.ExactMatch, Invoke: never,
	}))

	expr := &ast.AttributeReference{Name: "slow.attr", InitialTimeout: num("20")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{AttributeBroker: broker})
	require.NoError(t, err)

	start := time.Now()
	got := compiler.Evaluate(node, staticEvalContext{})
	elapsed := time.Since(start)

	assert.Equal(t, value.KindError, got.Kind())
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
}

func TestAttributeReferencePollIntervalFieldReachesTheBroker(t *testing.T) {
	invocations := 0
	polling := func(ctx context.Context, inv attribute.Invocation) <-chan value.Traced {
		invocations++
		assert.Equal(t, 10*time.Millisecond, inv.PollInterval)
		out := make(chan value.Traced, 1)
		out <- value.NewTraced(value.NewNumberFromInt64(int64(invocations)))
		close(out)
		return out
	}
	broker := attribute.New(repository.New())
	require.NoError(t, broker.RegisterAttributeFinder(attribute.FinderSpecification{
		PIPName: "poll-pip", AttributeName: "poll.attr", Match: attribute.ExactMatch, Invoke: polling,
	}))

	expr := &ast.AttributeReference{Name: "poll.attr", PollInterval: num("10")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{AttributeBroker: broker})
	require.NoError(t, err)

	got := compiler.Evaluate(node, staticEvalContext{})
	assert.True(t, got.Equal(value.NewNumberFromInt64(1)))
}

func TestStratumMonotonicityAcrossCompiledComposites(t *testing.T) {
	sub := &ast.FieldAccess{Target: &ast.SubscriptionField{Field: "subject"}, Field: "role"}
	expr := &ast.BinaryOp{Op: "==", Left: sub, Right: ast.NewLiteral(ast.Location{}, "text", "alice")}
	node, err := compiler.Compile(expr, &compiler.CompilationContext{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int(node.Stratum()), int(stratum.PureSub))
}
