// Package discover renders the catalog of a live Postgres database as DDL
// text in exactly the statement shapes the ddl extractor consumes, so
// extraction runs the same way against dumps and against real databases.
package discover

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sqlift-labs/sqlift/internal/config"
)

// Discoverer reads table structure from a Postgres catalog.
type Discoverer struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Discoverer. If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Discoverer{logger: logger}
}

// Connect establishes a connection to the source database.
func (d *Discoverer) Connect(ctx context.Context, cfg *config.SourceConfig) error {
	dsn := buildDSN(cfg)

	d.logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	d.db = db
	return nil
}

// Close closes the database connection.
func (d *Discoverer) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// buildDSN constructs a key=value Postgres connection string.
func buildDSN(cfg *config.SourceConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// ReadSchema loads the structure of every base table in the given schema,
// ordered by table name.
func (d *Discoverer) ReadSchema(ctx context.Context, schema string) ([]TableDef, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'
		ORDER BY c.relname
	`, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []TableDef
	for rows.Next() {
		t := TableDef{Schema: schema}
		if err := rows.Scan(&t.Name, &t.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tables {
		if err := d.readTable(ctx, &tables[i]); err != nil {
			return nil, err
		}
	}

	d.logger.Debug("read schema", slog.String("schema", schema), slog.Int("tables", len(tables)))
	return tables, nil
}

func (d *Discoverer) readTable(ctx context.Context, t *TableDef) error {
	if err := d.readColumns(ctx, t); err != nil {
		return err
	}
	if err := d.readPrimaryKey(ctx, t); err != nil {
		return err
	}
	return d.readForeignKeys(ctx, t)
}

func (d *Discoverer) readColumns(ctx context.Context, t *TableDef) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.attname,
		       upper(format_type(a.atttypid, a.atttypmod)),
		       NOT a.attnotnull,
		       COALESCE(col_description(a.attrelid, a.attnum), '')
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2
		  AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ColumnDef
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Comment); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		t.Columns = append(t.Columns, c)
	}
	return rows.Err()
}

func (d *Discoverer) readPrimaryKey(ctx context.Context, t *TableDef) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE n.nspname = $1 AND c.relname = $2 AND i.indisprimary
		ORDER BY array_position(i.indkey, a.attnum)
	`, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read primary key of %s: %w", t.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return fmt.Errorf("failed to scan primary key column: %w", err)
		}
		t.PrimaryKey = append(t.PrimaryKey, col)
	}
	return rows.Err()
}

func (d *Discoverer) readForeignKeys(ctx context.Context, t *TableDef) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT tc.constraint_name, kcu.column_name,
		       ccu.table_schema, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`, t.Schema, t.Name)
	if err != nil {
		return fmt.Errorf("failed to read foreign keys of %s: %w", t.Name, err)
	}
	defer rows.Close()

	byName := make(map[string]*ForeignKeyDef)
	var order []string
	for rows.Next() {
		var name, col, refSchema, refTable, refCol string
		if err := rows.Scan(&name, &col, &refSchema, &refTable, &refCol); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fk, ok := byName[name]
		if !ok {
			fk = &ForeignKeyDef{Name: name, RefSchema: refSchema, RefTable: refTable}
			byName[name] = fk
			order = append(order, name)
		}
		fk.Columns = append(fk.Columns, col)
		fk.RefColumns = append(fk.RefColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		t.ForeignKeys = append(t.ForeignKeys, *byName[name])
	}
	return nil
}
