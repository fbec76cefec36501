package state

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sqlift-labs/sqlift/internal/ddl"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance. If logger is
// nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database. Use ":memory:" for an
// in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Run operations ---

// CreateRun creates a new extraction run.
func (s *SQLiteStore) CreateRun(env, source string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:          generateID(),
		Environment: env,
		Source:      source,
		Status:      RunStatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("environment", env))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, environment, source, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Environment, run.Source, run.Status, run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	return run, nil
}

// CompleteRun marks a run as completed with the given status.
func (s *SQLiteStore) CompleteRun(id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errVal sql.NullString
	if errMsg != "" {
		errVal = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		status, now, errVal, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{}
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := s.db.QueryRow(
		`SELECT id, environment, source, status, started_at, completed_at, error FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Environment, &run.Source, &run.Status, &run.StartedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	run.Error = errMsg.String
	return run, nil
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, environment, source, status, started_at, completed_at, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var completedAt sql.NullTime
		var errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.Environment, &run.Source, &run.Status, &run.StartedAt, &completedAt, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- Extraction operations ---

// SaveExtraction persists all entries of an extraction result under a run,
// in entry order, inside one transaction.
func (s *SQLiteStore) SaveExtraction(runID string, result *ddl.Result) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for pos, entry := range result.Entries() {
		res, err := tx.Exec(
			`INSERT INTO schema_tables (run_id, position, schema_name, table_name, comment, table_type)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			runID, pos, entry.Table.Schema, entry.Table.Name, entry.Table.Comment, entry.Table.TableType,
		)
		if err != nil {
			return fmt.Errorf("failed to save table %s: %w", entry.Table.Name, err)
		}
		tableID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read table id: %w", err)
		}

		for i, col := range entry.Columns {
			if _, err := tx.Exec(
				`INSERT INTO schema_columns (table_id, position, name, data_type, nullable, comment)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				tableID, i, col.Name, col.DataType, col.Nullable, col.Comment,
			); err != nil {
				return fmt.Errorf("failed to save column %s: %w", col.Name, err)
			}
		}
		for i, fk := range entry.ForeignKeys {
			if _, err := tx.Exec(
				`INSERT INTO schema_foreign_keys (table_id, position, column_name, ref) VALUES (?, ?, ?, ?)`,
				tableID, i, fk.Column, fk.Ref,
			); err != nil {
				return fmt.Errorf("failed to save foreign key on %s: %w", fk.Column, err)
			}
		}
		for i, col := range entry.PrimaryKey {
			if _, err := tx.Exec(
				`INSERT INTO schema_primary_keys (table_id, position, column_name) VALUES (?, ?, ?)`,
				tableID, i, col,
			); err != nil {
				return fmt.Errorf("failed to save primary key column %s: %w", col, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit extraction: %w", err)
	}

	s.logger.Debug("saved extraction", slog.String("run", runID), slog.Int("tables", result.Len()))
	return nil
}

// GetExtraction loads the entries persisted for a run, in saved order.
func (s *SQLiteStore) GetExtraction(runID string) ([]*ddl.Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, schema_name, table_name, comment, table_type
		 FROM schema_tables WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tables: %w", err)
	}
	defer rows.Close()

	var entries []*ddl.Entry
	var tableIDs []int64
	for rows.Next() {
		var id int64
		entry := &ddl.Entry{}
		if err := rows.Scan(&id, &entry.Table.Schema, &entry.Table.Name, &entry.Table.Comment, &entry.Table.TableType); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		entries = append(entries, entry)
		tableIDs = append(tableIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range tableIDs {
		if entries[i].Columns, err = s.loadColumns(id); err != nil {
			return nil, err
		}
		if entries[i].ForeignKeys, err = s.loadForeignKeys(id); err != nil {
			return nil, err
		}
		if entries[i].PrimaryKey, err = s.loadPrimaryKey(id); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (s *SQLiteStore) loadColumns(tableID int64) ([]ddl.Column, error) {
	rows, err := s.db.Query(
		`SELECT name, data_type, nullable, comment FROM schema_columns WHERE table_id = ? ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load columns: %w", err)
	}
	defer rows.Close()

	var cols []ddl.Column
	for rows.Next() {
		var c ddl.Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Comment); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

func (s *SQLiteStore) loadForeignKeys(tableID int64) ([]ddl.ForeignKey, error) {
	rows, err := s.db.Query(
		`SELECT column_name, ref FROM schema_foreign_keys WHERE table_id = ? ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []ddl.ForeignKey
	for rows.Next() {
		var fk ddl.ForeignKey
		if err := rows.Scan(&fk.Column, &fk.Ref); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (s *SQLiteStore) loadPrimaryKey(tableID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT column_name FROM schema_primary_keys WHERE table_id = ? ORDER BY position`, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load primary key: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// --- Chunk boundary operations ---

// SaveBoundaries persists the chunk boundary lines computed for a
// procedure under a run.
func (s *SQLiteStore) SaveBoundaries(runID, procedure string, lines []int) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i, line := range lines {
		if _, err := tx.Exec(
			`INSERT INTO chunk_boundaries (run_id, procedure_name, position, end_line) VALUES (?, ?, ?, ?)`,
			runID, procedure, i, line,
		); err != nil {
			return fmt.Errorf("failed to save boundary: %w", err)
		}
	}
	return tx.Commit()
}

// GetBoundaries loads the chunk boundary lines saved for a procedure.
func (s *SQLiteStore) GetBoundaries(runID, procedure string) ([]int, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT end_line FROM chunk_boundaries WHERE run_id = ? AND procedure_name = ? ORDER BY position`,
		runID, procedure)
	if err != nil {
		return nil, fmt.Errorf("failed to load boundaries: %w", err)
	}
	defer rows.Close()

	var lines []int
	for rows.Next() {
		var line int
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("failed to scan boundary: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
