// SPDX-License-Identifier: Apache-2.0
package pdp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/attribute"
	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/pdp"
	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/repository"
	"github.com/sentrie-sh/saplpdp/value"
)

func text(s string) *ast.Literal { return ast.NewLiteral(ast.Location{}, "text", s) }

func subjectRoleEquals(want string) *ast.BinaryOp {
	return &ast.BinaryOp{
		Op:   "==",
		Left: &ast.FieldAccess{Target: &ast.SubscriptionField{Field: "subject"}, Field: "role"},
		Right: text(want),
	}
}

func newSubscription(role string) value.Value {
	sub := value.NewObject()
	subject := value.NewObject()
	subject.Set("role", value.Text(role))
	sub.Set("subject", subject)
	return sub
}

func TestPDPDecidePermitWhenApplicablePolicyMatches(t *testing.T) {
	cc := &compiler.CompilationContext{}
	p := &policy.Policy{Name: "admin-permit", Target: subjectRoleEquals("admin"), Effect: policy.Permit}

	instance, err := pdp.New(cc, policy.PermitOverrides, []pdp.Document{{Policy: p}})
	require.NoError(t, err)

	got := instance.Decide(compiler.NewEvaluationContext(newSubscription("admin")))
	assert.Equal(t, policy.Permit, got.Decision)
}

func TestPDPDecideNotApplicableWhenTargetDoesNotMatch(t *testing.T) {
	cc := &compiler.CompilationContext{}
	p := &policy.Policy{Name: "admin-permit", Target: subjectRoleEquals("admin"), Effect: policy.Permit}

	instance, err := pdp.New(cc, policy.PermitOverrides, []pdp.Document{{Policy: p}})
	require.NoError(t, err)

	got := instance.Decide(compiler.NewEvaluationContext(newSubscription("guest")))
	assert.Equal(t, policy.NotApplicable, got.Decision)
}

func TestPDPCombinesTopLevelDocumentsUnderPermitOverrides(t *testing.T) {
	cc := &compiler.CompilationContext{}
	permit := &policy.Policy{Name: "p1", Effect: policy.Permit}
	deny := &policy.Policy{Name: "p2", Effect: policy.Deny}

	instance, err := pdp.New(cc, policy.PermitOverrides, []pdp.Document{{Policy: permit}, {Policy: deny}})
	require.NoError(t, err)

	got := instance.Decide(compiler.NewEvaluationContext(newSubscription("anyone")))
	assert.Equal(t, policy.Permit, got.Decision)
}

func TestPDPDecisionStreamReactsToAttributeChange(t *testing.T) {
	repo := repository.New()
	broker := attribute.New(repo)
	cc := &compiler.CompilationContext{AttributeBroker: broker}

	attrRef := &ast.AttributeReference{Name: "risk.level"}
	p := &policy.Policy{
		Name:   "deny-on-high-risk",
		Effect: policy.Deny,
		Condition: &ast.BinaryOp{
			Op:    "==",
			Left:  attrRef,
			Right: text("high"),
		},
	}

	instance, err := pdp.New(cc, policy.PermitOverrides, []pdp.Document{{Policy: p}})
	require.NoError(t, err)

	repo.PublishAttribute(repository.Key{AttributeName: "risk.level"}, value.Text("low"), repository.Infinite, repository.Remove)

	goCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	decisions := instance.DecisionStream(goCtx, compiler.NewEvaluationContext(newSubscription("anyone")))

	first := <-decisions
	assert.Equal(t, policy.NotApplicable, first.Decision)

	repo.PublishAttribute(repository.Key{AttributeName: "risk.level"}, value.Text("high"), repository.Infinite, repository.Remove)

	select {
	case second := <-decisions:
		assert.Equal(t, policy.Deny, second.Decision)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for updated decision")
	}
}
