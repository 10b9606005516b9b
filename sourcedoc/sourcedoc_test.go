// SPDX-License-Identifier: Apache-2.0
package sourcedoc_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/pdp"
	"github.com/sentrie-sh/saplpdp/policy"
	"github.com/sentrie-sh/saplpdp/sourcedoc"
	"github.com/sentrie-sh/saplpdp/value"
)

const policyJSON = `{
  "policy": {
    "name": "admin-permit",
    "target": {
      "type": "binary",
      "op": "==",
      "left": {"type": "field", "target": {"type": "subscription", "field": "subject"}, "field": "role"},
      "right": {"type": "literal", "kind": "text", "value": "admin"}
    },
    "effect": "permit"
  }
}`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "p1.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDocumentBuildsCompilablePolicy(t *testing.T) {
	path := writeDoc(t, policyJSON)
	doc, err := sourcedoc.LoadDocument(path)
	require.NoError(t, err)
	require.NotNil(t, doc.Policy)
	assert.Equal(t, "admin-permit", doc.Policy.Name)
	assert.Equal(t, policy.Permit, doc.Policy.Effect)

	cc := &compiler.CompilationContext{}
	instance, err := pdp.New(cc, policy.PermitOverrides, []pdp.Document{doc})
	require.NoError(t, err)

	sub := value.NewObject()
	subject := value.NewObject()
	subject.Set("role", value.Text("admin"))
	sub.Set("subject", subject)

	got := instance.Decide(compiler.NewEvaluationContext(sub))
	assert.Equal(t, policy.Permit, got.Decision)
}

func TestLoadDocumentRejectsUnknownEffect(t *testing.T) {
	path := writeDoc(t, `{"policy":{"name":"p","effect":"maybe"}}`)
	_, err := sourcedoc.LoadDocument(path)
	assert.Error(t, err)
}

func TestLoadDocumentRejectsMissingShape(t *testing.T) {
	path := writeDoc(t, `{}`)
	_, err := sourcedoc.LoadDocument(path)
	assert.Error(t, err)
}

func TestLoadAllPreservesOrder(t *testing.T) {
	p1 := writeDoc(t, `{"policy":{"name":"p1","effect":"permit"}}`)
	p2 := filepath.Join(filepath.Dir(p1), "p2.json")
	require.NoError(t, os.WriteFile(p2, []byte(`{"policy":{"name":"p2","effect":"deny"}}`), 0o644))

	docs, err := sourcedoc.LoadAll([]string{p1, p2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "p1", docs[0].Policy.Name)
	assert.Equal(t, "p2", docs[1].Policy.Name)
}
