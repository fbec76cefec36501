package siblings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_AdjacentPairsPerParent(t *testing.T) {
	lines := []string{
		`CREATE (p:Procedure {id: 1, name: 'pay'})`,
		`CREATE (s1:Statement {id: 2, line: 3})`,
		`CREATE (s2:Statement {id: 3, line: 4})`,
		`CREATE (s3:Loop {id: 4, line: 5})`,
		`CREATE (p)-[:PARENTOF]->(s1:Statement {id: 2, line: 3})`,
		`CREATE (p)-[:PARENTOF]->(s2:Statement {id: 3, line: 4})`,
		`CREATE (p)-[:PARENTOF]->(s3:Loop {id: 4, line: 5})`,
	}

	out := Synthesize(lines)
	require.Len(t, out, 2)
	assert.Equal(t, "MATCH (a:Statement {id: 2}), (b:Statement {id: 3}) CREATE (a)-[:NEXTSIBLING]->(b)", out[0])
	assert.Equal(t, "MATCH (a:Statement {id: 3}), (b:Loop {id: 4}) CREATE (a)-[:NEXTSIBLING]->(b)", out[1])
}

func TestSynthesize_FewerThanTwoChildrenEmitsNothing(t *testing.T) {
	lines := []string{
		`CREATE (p:Procedure {id: 1})`,
		`CREATE (q:Procedure {id: 5})`,
		`CREATE (p)-[:PARENTOF]->(s:Statement {id: 2})`,
	}

	assert.Empty(t, Synthesize(lines))
	assert.Empty(t, Synthesize(nil))
}

func TestSynthesize_ParentOrderIsFirstSeen(t *testing.T) {
	lines := []string{
		`CREATE (b)-[:PARENTOF]->(x:Statement {id: 10})`,
		`CREATE (a)-[:PARENTOF]->(y:Statement {id: 20})`,
		`CREATE (b)-[:PARENTOF]->(z:Statement {id: 11})`,
		`CREATE (a)-[:PARENTOF]->(w:Statement {id: 21})`,
	}

	out := Synthesize(lines)
	require.Len(t, out, 2)
	// b was seen first, so its pair comes first.
	assert.Contains(t, out[0], "{id: 10}")
	assert.Contains(t, out[0], "{id: 11}")
	assert.Contains(t, out[1], "{id: 20}")
	assert.Contains(t, out[1], "{id: 21}")
}

func TestSynthesize_DuplicateChildrenPreserved(t *testing.T) {
	lines := []string{
		`CREATE (p)-[:PARENTOF]->(s:Statement {id: 2})`,
		`CREATE (p)-[:PARENTOF]->(s:Statement {id: 2})`,
	}

	out := Synthesize(lines)
	require.Len(t, out, 1)
	assert.Equal(t, "MATCH (a:Statement {id: 2}), (b:Statement {id: 2}) CREATE (a)-[:NEXTSIBLING]->(b)", out[0])
}

func TestSynthesize_BareVariableChildSkipped(t *testing.T) {
	lines := []string{
		`CREATE (p)-[:PARENTOF]->(s1)`,
		`CREATE (p)-[:PARENTOF]->(s2:Statement {id: 3})`,
		`CREATE (p)-[:PARENTOF]->(s3:Statement {id: 4})`,
	}

	out := Synthesize(lines)
	// The bare-variable edge is a dangling reference: only the two literal
	// edges are recorded.
	require.Len(t, out, 1)
	assert.Contains(t, out[0], "{id: 3}")
	assert.Contains(t, out[0], "{id: 4}")
}

func TestSynthesize_QuotedIDsRoundTrip(t *testing.T) {
	lines := []string{
		`CREATE (p)-[:PARENTOF]->(a:Block {id: 'b-1', depth: 1})`,
		`CREATE (p)-[:PARENTOF]->(b:Block {id: 'b-2', depth: 1})`,
	}

	out := Synthesize(lines)
	require.Len(t, out, 1)
	assert.Equal(t, "MATCH (a:Block {id: 'b-1'}), (b:Block {id: 'b-2'}) CREATE (a)-[:NEXTSIBLING]->(b)", out[0])
}

func TestSynthesize_EntityCreationLinesIgnored(t *testing.T) {
	// Entity-creation statements alone never produce output, no matter how
	// many share a variable prefix.
	lines := []string{
		`CREATE (p:Procedure {id: 1})`,
		`CREATE (s1:Statement {id: 2})`,
		`CREATE (s2:Statement {id: 3})`,
	}
	assert.Empty(t, Synthesize(lines))
}
