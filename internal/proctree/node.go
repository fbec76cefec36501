// Package proctree annotates procedure structure trees with token weights
// and locates chunk boundaries for a token budget. The tree itself is
// produced by an external structural parser and arrives as JSON; this
// package only decorates it.
package proctree

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NodeID is a node identifier kept verbatim from the external parser's
// JSON, which emits ids both as bare numbers and as quoted strings.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = NodeID(s)
		return nil
	}
	*id = NodeID(data)
	return nil
}

// Node is one node of a procedure structure tree. StartLine and EndLine are
// 1-based and inclusive. After annotation, Tokens holds only the weight not
// already attributed to a descendant.
type Node struct {
	ID        NodeID  `json:"id"`
	Type      string  `json:"type"`
	Name      string  `json:"name,omitempty"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Tokens    int     `json:"tokens"`
	Source    string  `json:"source,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// CountFunc counts tokens in a piece of source text. The encoding behind it
// is an external dependency; a failure is fatal to annotation and is
// propagated to the caller unchanged in policy (no fallback, no retry).
type CountFunc func(text string) (int, error)

// Decode reads a tree from its JSON representation.
func Decode(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode procedure tree: %w", err)
	}
	return &root, nil
}

// Span returns the node's source text: the inclusive line range joined with
// newlines. Out-of-range bounds are clamped.
func (n *Node) Span(lines []string) string {
	start := n.StartLine
	if start < 1 {
		start = 1
	}
	end := n.EndLine
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

// Walk visits the tree pre-order.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	for _, c := range n.Children {
		c.Walk(visit)
	}
}
