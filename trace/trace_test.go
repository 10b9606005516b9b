// SPDX-License-Identifier: Apache-2.0
package trace_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentrie-sh/saplpdp/ast"
	"github.com/sentrie-sh/saplpdp/trace"
	"github.com/sentrie-sh/saplpdp/value"
)

func TestNodeRecordsDurationOnDone(t *testing.T) {
	n, done := trace.New("literal", "", nil, nil)
	done()
	assert.GreaterOrEqual(t, n.Duration.Nanoseconds(), int64(0))
}

func TestAttachBuildsTree(t *testing.T) {
	root, _ := trace.New("binary", "+", nil, nil)
	left, doneLeft := trace.New("literal", "", nil, nil)
	doneLeft()
	right, doneRight := trace.New("literal", "", nil, nil)
	doneRight()
	root.Attach(left, right)

	require.Len(t, root.Children, 2)
	assert.Empty(t, root.Leaves()[0].Children)
}

func TestSetResultAndSetErr(t *testing.T) {
	n, done := trace.New("literal", "", nil, nil)
	done()
	n.SetResult(value.NewNumberFromInt64(3))
	assert.Equal(t, "3", n.Result)

	n2, done2 := trace.New("binary", "/", nil, nil)
	done2()
	n2.SetErr(errors.New("division by zero"))
	assert.Equal(t, "division by zero", n2.Err)
}

func TestLeavesCollectsOnlyChildlessNodes(t *testing.T) {
	root, _ := trace.New("block", "", nil, nil)
	child, _ := trace.New("literal", "", nil, nil)
	grandchild, _ := trace.New("literal", "", nil, nil)
	child.Attach(grandchild)
	root.Attach(child)

	leaves := root.Leaves()
	require.Len(t, leaves, 1)
	assert.Same(t, grandchild, leaves[0])
}

func TestUnsupportedRecordsNodeType(t *testing.T) {
	n := trace.Unsupported(&ast.Literal{})
	assert.Equal(t, "unsupported", n.Kind)
	assert.Contains(t, n.Meta["type"], "ast.Literal")
}
