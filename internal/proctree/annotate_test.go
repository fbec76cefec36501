package proctree

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lineTokens assigns a fixed weight per line, making expected raw counts
// easy to reason about: a node spanning n lines counts n*perLine tokens.
func lineTokens(perLine int) CountFunc {
	return func(text string) (int, error) {
		if text == "" {
			return 0, nil
		}
		return perLine * (strings.Count(text, "\n") + 1), nil
	}
}

func makeLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line"
	}
	return lines
}

func TestAnnotate_ChildWeightExcludedFromParent(t *testing.T) {
	// Root spans 10 lines (raw 100), child spans 3 (raw 30).
	root := &Node{
		ID: "1", Type: "PROCEDURE", StartLine: 1, EndLine: 10,
		Children: []*Node{
			{ID: "2", Type: "LOOP", StartLine: 4, EndLine: 6},
		},
	}

	err := Annotate(root, makeLines(10), lineTokens(10))
	require.NoError(t, err)

	assert.Equal(t, 30, root.Children[0].Tokens)
	assert.Equal(t, 70, root.Tokens)
}

func TestAnnotate_NestedGrandchildren(t *testing.T) {
	root := &Node{
		ID: "1", StartLine: 1, EndLine: 20,
		Children: []*Node{
			{
				ID: "2", StartLine: 2, EndLine: 11,
				Children: []*Node{
					{ID: "3", StartLine: 3, EndLine: 5},
					{ID: "4", StartLine: 7, EndLine: 8},
				},
			},
			{ID: "5", StartLine: 13, EndLine: 14},
		},
	}

	err := Annotate(root, makeLines(20), lineTokens(1))
	require.NoError(t, err)

	// Leaves count their own spans.
	assert.Equal(t, 3, root.Children[0].Children[0].Tokens)
	assert.Equal(t, 2, root.Children[0].Children[1].Tokens)
	// Inner node: 10 lines raw minus 5 attributed to its children.
	assert.Equal(t, 5, root.Children[0].Tokens)
	assert.Equal(t, 2, root.Children[1].Tokens)
	// Root: 20 raw minus 12 below it.
	assert.Equal(t, 8, root.Tokens)
}

func TestAnnotate_NeverNegative(t *testing.T) {
	// Child span exceeds parent span, so the parent's remainder would be
	// negative without the floor.
	root := &Node{
		ID: "1", StartLine: 5, EndLine: 6,
		Children: []*Node{
			{ID: "2", StartLine: 1, EndLine: 10},
		},
	}

	err := Annotate(root, makeLines(10), lineTokens(1))
	require.NoError(t, err)

	assert.Equal(t, 10, root.Children[0].Tokens)
	assert.Equal(t, 0, root.Tokens)
}

func TestAnnotate_TokenConservation(t *testing.T) {
	root := &Node{
		ID: "1", StartLine: 1, EndLine: 30,
		Children: []*Node{
			{ID: "2", StartLine: 2, EndLine: 10, Children: []*Node{
				{ID: "3", StartLine: 4, EndLine: 6},
			}},
			{ID: "4", StartLine: 12, EndLine: 25},
		},
	}
	lines := makeLines(30)
	count := lineTokens(7)

	require.NoError(t, Annotate(root, lines, count))

	root.Walk(func(n *Node) {
		assert.GreaterOrEqual(t, n.Tokens, 0)

		total := 0
		n.Walk(func(d *Node) { total += d.Tokens })
		raw, err := count(n.Span(lines))
		require.NoError(t, err)
		assert.LessOrEqual(t, total, raw, "node %s", n.ID)
	})
}

func TestAnnotate_CountFailurePropagates(t *testing.T) {
	countErr := errors.New("encoder unavailable")
	failing := func(string) (int, error) { return 0, countErr }

	root := &Node{ID: "1", StartLine: 1, EndLine: 2}
	err := Annotate(root, makeLines(2), failing)
	require.Error(t, err)
	assert.ErrorIs(t, err, countErr)
}

func TestBoundaries_AccumulatorThreadsAcrossSubtrees(t *testing.T) {
	// Weights assigned directly; the accumulator must carry across sibling
	// subtrees rather than reset per subtree.
	root := &Node{Tokens: 40, EndLine: 100, Children: []*Node{
		{Tokens: 40, EndLine: 30},
		{Tokens: 40, EndLine: 60}, // 40+40+40 = 120 > 100 here
		{Tokens: 50, EndLine: 90}, // 40+50 = 90, no boundary
	}}

	bounds := Boundaries(root, 100)
	assert.Equal(t, []int{60}, bounds)
}

func TestBoundaries_ResetKeepsTriggeringWeight(t *testing.T) {
	root := &Node{Tokens: 10, EndLine: 50, Children: []*Node{
		{Tokens: 95, EndLine: 10}, // 105 > 100, reset to 95
		{Tokens: 10, EndLine: 20}, // 105 > 100 again because reset kept 95
		{Tokens: 10, EndLine: 30},
	}}

	bounds := Boundaries(root, 100)
	assert.Equal(t, []int{10, 20}, bounds)
}

func TestBoundaries_HeavyParentTriggersAlone(t *testing.T) {
	root := &Node{Tokens: 150, EndLine: 40, Children: []*Node{
		{Tokens: 1, EndLine: 10},
		{Tokens: 1, EndLine: 20},
	}}

	bounds := Boundaries(root, 100)
	assert.Equal(t, []int{40}, bounds)
}

func TestBoundaries_OverLimitNodeDoesNotCascade(t *testing.T) {
	root := &Node{Tokens: 10, EndLine: 50, Children: []*Node{
		{Tokens: 150, EndLine: 10}, // over the limit on its own, clears the accumulator
		{Tokens: 60, EndLine: 20},
		{Tokens: 50, EndLine: 30}, // 60+50 = 110 > 100
	}}

	bounds := Boundaries(root, 100)
	assert.Equal(t, []int{10, 30}, bounds)
}

func TestBoundaries_MonotonicallyIncreasing(t *testing.T) {
	root := &Node{Tokens: 60, EndLine: 100, Children: []*Node{
		{Tokens: 60, EndLine: 25},
		{Tokens: 60, EndLine: 50},
		{Tokens: 60, EndLine: 75},
	}}

	bounds := Boundaries(root, 100)
	require.NotEmpty(t, bounds)
	for i := 1; i < len(bounds); i++ {
		assert.Greater(t, bounds[i], bounds[i-1])
	}
}

func TestBoundaries_UnderBudgetEmitsNothing(t *testing.T) {
	root := &Node{Tokens: 10, EndLine: 10, Children: []*Node{
		{Tokens: 10, EndLine: 5},
	}}
	assert.Empty(t, Boundaries(root, 100))
}

func TestDecode_Tree(t *testing.T) {
	data := []byte(`{
		"id": 1, "type": "PROCEDURE", "name": "pay_invoice",
		"startLine": 1, "endLine": 12,
		"children": [
			{"id": 2, "type": "IF", "startLine": 3, "endLine": 8}
		]
	}`)

	root, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "pay_invoice", root.Name)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "IF", root.Children[0].Type)

	_, err = Decode([]byte("{broken"))
	assert.Error(t, err)
}

func TestDecode_StringAndNumericIDs(t *testing.T) {
	data := []byte(`{
		"id": "root", "startLine": 1, "endLine": 3,
		"children": [{"id": 7, "startLine": 2, "endLine": 2}]
	}`)

	root, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, NodeID("root"), root.ID)
	assert.Equal(t, NodeID("7"), root.Children[0].ID)
}

func TestSpan_Clamping(t *testing.T) {
	lines := []string{"a", "b", "c"}

	n := &Node{StartLine: 2, EndLine: 3}
	assert.Equal(t, "b\nc", n.Span(lines))

	n = &Node{StartLine: 0, EndLine: 99}
	assert.Equal(t, "a\nb\nc", n.Span(lines))

	n = &Node{StartLine: 5, EndLine: 6}
	assert.Equal(t, "", n.Span(lines))
}
