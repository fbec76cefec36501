// Package ddl extracts relational structure from raw DDL text.
// It recognizes CREATE TABLE, COMMENT ON TABLE/COLUMN and
// ALTER TABLE ... ADD PRIMARY KEY / FOREIGN KEY statements and ignores
// everything else. Extraction is permissive: malformed or unknown text is
// skipped, never surfaced as an error.
package ddl

import "strings"

// Table describes one extracted table.
type Table struct {
	Schema    string `yaml:"schema" json:"schema"`
	Name      string `yaml:"name" json:"name"`
	Comment   string `yaml:"comment" json:"comment"`
	TableType string `yaml:"table_type" json:"tableType"`
}

// Column describes one column of an extracted table.
type Column struct {
	Name     string `yaml:"name" json:"name"`
	DataType string `yaml:"data_type" json:"dtype"`
	Nullable bool   `yaml:"nullable" json:"nullable"`
	Comment  string `yaml:"comment" json:"comment"`
}

// ForeignKey records a single-column reference produced by positionally
// zipping an ALTER TABLE ... FOREIGN KEY statement. Ref is
// "schema.table.column" or "table.column" depending on how the referenced
// table was written.
type ForeignKey struct {
	Column string `yaml:"column" json:"column"`
	Ref    string `yaml:"ref" json:"ref"`
}

// Entry bundles a table with everything extracted for it.
type Entry struct {
	Table       Table        `yaml:"table" json:"table"`
	Columns     []Column     `yaml:"columns" json:"columns"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys" json:"foreignKeys"`
	PrimaryKey  []string     `yaml:"primary_keys" json:"primaryKeys"`
}

// Result is the ordered outcome of one Parse call. Entries appear in the
// order their CREATE TABLE statement was first seen.
type Result struct {
	entries []*Entry
	index   map[string]*Entry
}

// NewResult returns an empty Result ready for Merge.
func NewResult() *Result {
	return &Result{index: make(map[string]*Entry)}
}

// Key returns the normalized lookup key for a schema/table pair.
func Key(schema, table string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(table)
}

// Entries returns the extracted entries in first-seen order.
func (r *Result) Entries() []*Entry {
	return r.entries
}

// Get returns the entry for a normalized key, if registered.
func (r *Result) Get(key string) (*Entry, bool) {
	e, ok := r.index[key]
	return e, ok
}

// Len returns the number of extracted tables.
func (r *Result) Len() int {
	return len(r.entries)
}

// Merge folds other into r with the same overwrite semantics as parsing:
// a table already present keeps its position but takes the newer content.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if r.index == nil {
		r.index = make(map[string]*Entry)
	}
	for _, e := range other.entries {
		r.register(Key(e.Table.Schema, e.Table.Name), e)
	}
}

// register adds a new entry or overwrites an existing one in place,
// preserving its original position.
func (r *Result) register(key string, e *Entry) {
	if prev, ok := r.index[key]; ok {
		*prev = *e
		return
	}
	r.index[key] = e
	r.entries = append(r.entries, e)
}
