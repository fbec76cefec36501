package proctree

import "fmt"

// Annotate walks the tree post-order and sets each node's Tokens to its raw
// token count minus the total weight of its entire subtree below it, floored
// at zero. No token is attributed to both an ancestor and a descendant. The
// tree is mutated in place and a counting failure aborts the walk.
func Annotate(root *Node, lines []string, count CountFunc) error {
	_, err := annotate(root, lines, count)
	return err
}

// annotate returns the node's subtree weight, own Tokens plus everything
// below it, so the parent subtracts whole subtrees rather than the
// children's own remainders.
func annotate(n *Node, lines []string, count CountFunc) (int, error) {
	childSum := 0
	for _, c := range n.Children {
		sub, err := annotate(c, lines, count)
		if err != nil {
			return 0, err
		}
		childSum += sub
	}

	raw, err := count(n.Span(lines))
	if err != nil {
		return 0, fmt.Errorf("token counting failed for lines %d-%d: %w", n.StartLine, n.EndLine, err)
	}

	n.Tokens = raw - childSum
	if n.Tokens < 0 {
		n.Tokens = 0
	}
	return n.Tokens + childSum, nil
}

// Boundaries scans an annotated tree pre-order with a single accumulator
// threaded through the whole traversal and returns the end lines at which
// the running weight exceeded limit. On each boundary the accumulator
// resets to the triggering node's own weight, not zero, so that weight
// still counts toward the next chunk. A node heavier than the limit by
// itself gets its own chunk and resets the accumulator to zero; carrying
// its weight forward would re-trigger on every node after it. A parent is
// visited before its children, so a heavy parent can trigger a boundary on
// its own even when every child is small; that is intentional.
func Boundaries(root *Node, limit int) []int {
	var bounds []int
	acc := 0

	var walk func(n *Node)
	walk = func(n *Node) {
		acc += n.Tokens
		if acc > limit {
			bounds = append(bounds, n.EndLine)
			acc = n.Tokens
			if acc > limit {
				acc = 0
			}
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return bounds
}
