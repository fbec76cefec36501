// Package siblings synthesizes ordering statements for an exported
// procedure structure graph. The input is the textual batch of
// graph-construction statements produced by the export stage; the output is
// additional statements in the same dialect, meant to be appended to the
// batch before it runs against the graph store.
package siblings

import (
	"fmt"
	"regexp"
)

// child identifies one recorded child by the literal embedded in its edge
// statement. The id token is kept verbatim so numeric and quoted ids
// round-trip unchanged.
type child struct {
	Type string
	ID   string
}

// Edge statements repeat the child's full node literal on their right-hand
// side, e.g.
//
//	CREATE (p_3)-[:PARENTOF]->(c_7:Statement {id: 42, line: 5})
//
// The (type, id) pair is read directly off that literal; no entity table is
// kept. An edge whose child side carries only a bare variable has no
// defined resolution and is skipped like any other dangling reference.
var edgePattern = regexp.MustCompile(`(?i)CREATE\s*\((\w+)[^)]*\)\s*-\s*\[\s*:PARENTOF\s*\]\s*->\s*\(\s*\w*\s*:\s*(\w+)\s*\{[^}]*\bid\s*:\s*('[^']*'|"[^"]*"|[\w.-]+)[^}]*\}\s*\)`)

// Synthesize scans the statement lines left to right, records each edge's
// child under its parent variable in first-seen order, and emits one
// ordering statement per adjacent pair of children for every parent with at
// least two recorded children. Output order follows first-seen parent
// order, then recorded pair order.
func Synthesize(lines []string) []string {
	children := make(map[string][]child)
	var parents []string

	for _, line := range lines {
		m := edgePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		parent := m[1]
		if _, seen := children[parent]; !seen {
			parents = append(parents, parent)
		}
		children[parent] = append(children[parent], child{Type: m[2], ID: m[3]})
	}

	var out []string
	for _, parent := range parents {
		kids := children[parent]
		for i := 0; i+1 < len(kids); i++ {
			out = append(out, orderingStatement(kids[i], kids[i+1]))
		}
	}
	return out
}

// orderingStatement matches the two existing nodes by (type, id) and
// creates one directed immediately-precedes relationship between them.
func orderingStatement(earlier, later child) string {
	return fmt.Sprintf(
		"MATCH (a:%s {id: %s}), (b:%s {id: %s}) CREATE (a)-[:NEXTSIBLING]->(b)",
		earlier.Type, earlier.ID, later.Type, later.ID,
	)
}
