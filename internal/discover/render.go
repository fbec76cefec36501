package discover

import (
	"fmt"
	"io"
	"strings"
)

// TableDef is the discovered structure of a single table.
type TableDef struct {
	Schema      string
	Name        string
	Comment     string
	Columns     []ColumnDef
	PrimaryKey  []string
	ForeignKeys []ForeignKeyDef
}

// ColumnDef is a single discovered column.
type ColumnDef struct {
	Name     string
	DataType string
	Nullable bool
	Comment  string
}

// ForeignKeyDef is a discovered foreign key constraint. Columns and
// RefColumns are position-aligned.
type ForeignKeyDef struct {
	Name       string
	Columns    []string
	RefColumns []string
	RefSchema  string
	RefTable   string
}

func (t *TableDef) qualified() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Render writes the tables as DDL text: one CREATE TABLE per table followed
// by COMMENT ON and ALTER TABLE statements for comments, primary keys and
// foreign keys.
func Render(w io.Writer, tables []TableDef) error {
	for i := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := renderTable(w, &tables[i]); err != nil {
			return err
		}
	}
	return nil
}

func renderTable(w io.Writer, t *TableDef) error {
	var b strings.Builder

	fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.qualified())
	for i, c := range t.Columns {
		b.WriteString("    ")
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(c.DataType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if i < len(t.Columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")

	if t.Comment != "" {
		fmt.Fprintf(&b, "COMMENT ON TABLE %s IS '%s';\n", t.qualified(), escapeComment(t.Comment))
	}
	for _, c := range t.Columns {
		if c.Comment != "" {
			fmt.Fprintf(&b, "COMMENT ON COLUMN %s.%s IS '%s';\n", t.qualified(), c.Name, escapeComment(c.Comment))
		}
	}

	if len(t.PrimaryKey) > 0 {
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s_pkey PRIMARY KEY (%s);\n",
			t.qualified(), t.Name, strings.Join(t.PrimaryKey, ", "))
	}

	for _, fk := range t.ForeignKeys {
		refTable := fk.RefTable
		if fk.RefSchema != "" {
			refTable = fk.RefSchema + "." + fk.RefTable
		}
		fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s);\n",
			t.qualified(), fk.Name, strings.Join(fk.Columns, ", "), refTable, strings.Join(fk.RefColumns, ", "))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func escapeComment(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
