package ddl

import (
	"regexp"
	"strings"
)

// Statement patterns. All are case-insensitive and tolerate multi-line
// statement bodies. A statement that does not match is skipped.
var (
	// CREATE TABLE [IF NOT EXISTS] schema.name ( ... );
	createTablePattern = regexp.MustCompile(`(?is)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([^\s(]+)\s*\((.*?)\)\s*;`)
	// COMMENT ON TABLE schema.name IS '...';
	tableCommentPattern = regexp.MustCompile(`(?is)COMMENT\s+ON\s+TABLE\s+(\S+)\s+IS\s+'((?:[^']|'')*)'\s*;`)
	// COMMENT ON COLUMN schema.name.column IS '...';
	columnCommentPattern = regexp.MustCompile(`(?is)COMMENT\s+ON\s+COLUMN\s+(\S+)\s+IS\s+'((?:[^']|'')*)'\s*;`)
	// ALTER TABLE schema.name ADD [CONSTRAINT x] PRIMARY KEY (a, b);
	primaryKeyPattern = regexp.MustCompile(`(?is)ALTER\s+TABLE\s+(\S+)\s+ADD\s+(?:CONSTRAINT\s+\S+\s+)?PRIMARY\s+KEY\s*\(([^)]*)\)\s*;`)
	// ALTER TABLE schema.name ADD [CONSTRAINT x] FOREIGN KEY (a) REFERENCES other (b);
	foreignKeyPattern = regexp.MustCompile(`(?is)ALTER\s+TABLE\s+(\S+)\s+ADD\s+(?:CONSTRAINT\s+\S+\s+)?FOREIGN\s+KEY\s*\(([^)]*)\)\s*REFERENCES\s+([^\s(]+)\s*\(([^)]*)\)\s*;`)
	// name TYPE(args) rest-of-definition
	columnDefPattern = regexp.MustCompile(`(?i)^\s*(\S+)\s+([A-Za-z]\w*(?:\s*\([^)]*\))?)\s*(.*)$`)
)

// Parser extracts schema structure from DDL text. The zero value is ready
// to use; it holds no per-call state, so a single Parser is safe for
// concurrent use.
type Parser struct{}

// NewParser returns a Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse runs five ordered passes over text and returns the extraction
// result. It never fails: statements that do not match a known shape, and
// statements referencing tables that were not created earlier in the same
// text, are dropped silently.
func Parse(text string) *Result {
	return NewParser().Parse(text)
}

// Parse extracts schema structure from the given DDL text.
func (p *Parser) Parse(text string) *Result {
	r := &Result{index: make(map[string]*Entry)}
	p.parseCreateTables(text, r)
	p.parseTableComments(text, r)
	p.parseColumnComments(text, r)
	p.parsePrimaryKeys(text, r)
	p.parseForeignKeys(text, r)
	return r
}

// parseCreateTables registers one entry per CREATE TABLE match. A duplicate
// definition for the same key overwrites the earlier entry in place.
func (p *Parser) parseCreateTables(text string, r *Result) {
	for _, m := range createTablePattern.FindAllStringSubmatch(text, -1) {
		schema, name := splitQualified(m[1])
		entry := &Entry{
			Table: Table{
				Schema:    schema,
				Name:      name,
				TableType: "BASE TABLE",
			},
			Columns: parseColumnBlock(m[2]),
		}
		r.register(Key(schema, name), entry)
	}
}

func (p *Parser) parseTableComments(text string, r *Result) {
	for _, m := range tableCommentPattern.FindAllStringSubmatch(text, -1) {
		schema, name := splitQualified(m[1])
		if entry, ok := r.Get(Key(schema, name)); ok {
			entry.Table.Comment = unescapeComment(m[2])
		}
	}
}

func (p *Parser) parseColumnComments(text string, r *Result) {
	for _, m := range columnCommentPattern.FindAllStringSubmatch(text, -1) {
		schema, name, column, ok := splitColumnRef(m[1])
		if !ok {
			continue
		}
		entry, ok := r.Get(Key(schema, name))
		if !ok {
			continue
		}
		for i := range entry.Columns {
			if strings.EqualFold(entry.Columns[i].Name, column) {
				entry.Columns[i].Comment = unescapeComment(m[2])
				break
			}
		}
	}
}

// parsePrimaryKeys replaces (never merges) the primary-key column list of
// an already-registered table.
func (p *Parser) parsePrimaryKeys(text string, r *Result) {
	for _, m := range primaryKeyPattern.FindAllStringSubmatch(text, -1) {
		schema, name := splitQualified(m[1])
		entry, ok := r.Get(Key(schema, name))
		if !ok {
			continue
		}
		entry.PrimaryKey = splitColumnList(m[2])
	}
}

// parseForeignKeys zips source and referenced columns positionally. Extra
// columns on the longer side are dropped without error.
func (p *Parser) parseForeignKeys(text string, r *Result) {
	for _, m := range foreignKeyPattern.FindAllStringSubmatch(text, -1) {
		schema, name := splitQualified(m[1])
		entry, ok := r.Get(Key(schema, name))
		if !ok {
			continue
		}
		cols := splitColumnList(m[2])
		refSchema, refName := splitQualified(m[3])
		refCols := splitColumnList(m[4])

		refTable := refName
		if refSchema != "" {
			refTable = refSchema + "." + refName
		}
		n := len(cols)
		if len(refCols) < n {
			n = len(refCols)
		}
		for i := 0; i < n; i++ {
			entry.ForeignKeys = append(entry.ForeignKeys, ForeignKey{
				Column: cols[i],
				Ref:    refTable + "." + refCols[i],
			})
		}
	}
}

// parseColumnBlock parses the text between the CREATE TABLE parentheses.
// Definitions are separated by commas at parenthesis depth zero, so type
// arguments like NUMERIC(10, 2) stay intact. Definitions that are blank,
// start a constraint, or do not look like a column contribute nothing.
func parseColumnBlock(block string) []Column {
	var cols []Column
	for _, def := range splitDefinitions(block) {
		def = strings.Join(strings.Fields(def), " ")
		if def == "" {
			continue
		}
		upper := strings.ToUpper(def)
		if strings.HasPrefix(upper, "CONSTRAINT") || strings.HasPrefix(upper, "PRIMARY") {
			continue
		}
		m := columnDefPattern.FindStringSubmatch(def)
		if m == nil {
			continue
		}
		rest := strings.ToUpper(m[3])
		cols = append(cols, Column{
			Name:     stripQuotes(m[1]),
			DataType: m[2],
			Nullable: !strings.Contains(rest, "NOT NULL"),
		})
	}
	return cols
}

// splitDefinitions splits a column block on commas outside parentheses.
func splitDefinitions(block string) []string {
	var defs []string
	depth, start := 0, 0
	for i, r := range block {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				defs = append(defs, block[start:i])
				start = i + 1
			}
		}
	}
	return append(defs, block[start:])
}

// splitQualified splits a possibly schema-prefixed name on the first dot.
// Quotes around each part are stripped; a name with no dot has an empty
// schema.
func splitQualified(name string) (schema, table string) {
	if i := strings.Index(name, "."); i >= 0 {
		return stripQuotes(name[:i]), stripQuotes(name[i+1:])
	}
	return "", stripQuotes(name)
}

// splitColumnRef splits a COMMENT ON COLUMN target into schema, table and
// column. The column is the last dot-separated part; at least a table part
// must remain before it.
func splitColumnRef(name string) (schema, table, column string, ok bool) {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return "", "", "", false
	}
	column = stripQuotes(parts[len(parts)-1])
	table = stripQuotes(parts[len(parts)-2])
	if len(parts) > 2 {
		schema = stripQuotes(strings.Join(parts[:len(parts)-2], "."))
	}
	return schema, table, column, true
}

func splitColumnList(list string) []string {
	var out []string
	for _, c := range strings.Split(list, ",") {
		c = stripQuotes(strings.TrimSpace(c))
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func stripQuotes(s string) string {
	s = strings.Trim(s, `"`)
	return strings.Trim(s, "'")
}

// unescapeComment collapses doubled single quotes to one.
func unescapeComment(s string) string {
	return strings.ReplaceAll(s, "''", "'")
}
