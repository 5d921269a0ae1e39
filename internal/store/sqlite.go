package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nvandessel/vcdq/internal/trace"

	_ "modernc.org/sqlite"
)

// ErrExportNotFound is returned by LoadExport for an unknown export ID.
var ErrExportNotFound = errors.New("export not found")

// SQLiteStore holds exported signal tables in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// Summary describes one stored export.
type Summary struct {
	ID        int64     `json:"id"`
	Source    string    `json:"source"`
	Timescale string    `json:"timescale,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Steps     int       `json:"steps"`
	Signals   int       `json:"signals"`
	Missing   int       `json:"missing"`
}

// Record is a stored export read back as a table.
type Record struct {
	Summary
	Table *trace.Table
}

// Open opens or creates the export database at dbPath.
func Open(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Export opens the database at dbPath, stores table under source and closes
// it again. It returns the new export ID.
func Export(ctx context.Context, dbPath, source string, table *trace.Table) (int64, error) {
	s, err := Open(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer s.Close()
	return s.Export(ctx, source, table)
}

// Export stores table in a single transaction and returns the new export ID.
func (s *SQLiteStore) Export(ctx context.Context, source string, table *trace.Table) (int64, error) {
	if table == nil {
		return 0, errors.New("nothing to export: nil table")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO exports (source, timescale, created_at) VALUES (?, ?, ?)`,
		source, nullString(table.Timescale), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read export id: %w", err)
	}

	for step, t := range table.Times {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sampling_instants (export_id, step, time) VALUES (?, ?, ?)`,
			id, step, t,
		); err != nil {
			return 0, fmt.Errorf("failed to insert sampling instant %d: %w", step, err)
		}
	}

	for pos, e := range table.Entries {
		if !e.Found() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO missing_signals (export_id, position, name) VALUES (?, ?, ?)`,
				id, pos, e.Name,
			); err != nil {
				return 0, fmt.Errorf("failed to insert missing signal %s: %w", e.Name, err)
			}
			continue
		}
		for step, v := range e.Values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO signal_values (export_id, position, signal, step, value) VALUES (?, ?, ?, ?, ?)`,
				id, pos, e.Name, step, v,
			); err != nil {
				return 0, fmt.Errorf("failed to insert value of %s at step %d: %w", e.Name, step, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit export: %w", err)
	}
	return id, nil
}

const summaryQuery = `
SELECT e.id, e.source, e.timescale, e.created_at,
    (SELECT COUNT(*) FROM sampling_instants si WHERE si.export_id = e.id),
    (SELECT COUNT(DISTINCT sv.signal) FROM signal_values sv WHERE sv.export_id = e.id),
    (SELECT COUNT(*) FROM missing_signals ms WHERE ms.export_id = e.id)
FROM exports e`

func scanSummary(row interface{ Scan(...any) error }) (Summary, error) {
	var sum Summary
	var timescale sql.NullString
	var created string
	if err := row.Scan(&sum.ID, &sum.Source, &timescale, &created, &sum.Steps, &sum.Signals, &sum.Missing); err != nil {
		return Summary{}, err
	}
	sum.Timescale = timescale.String
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Summary{}, fmt.Errorf("bad created_at %q: %w", created, err)
	}
	sum.CreatedAt = t
	return sum, nil
}

// ListExports returns every stored export, oldest first.
func (s *SQLiteStore) ListExports(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, summaryQuery+` ORDER BY e.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LoadExport reads export id back into a table with entries in their
// original order.
func (s *SQLiteStore) LoadExport(ctx context.Context, id int64) (*Record, error) {
	sum, err := scanSummary(s.db.QueryRowContext(ctx, summaryQuery+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrExportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load export %d: %w", id, err)
	}

	table := &trace.Table{Timescale: sum.Timescale, Times: make([]int64, 0, sum.Steps)}
	if err := s.loadTimes(ctx, id, table); err != nil {
		return nil, err
	}

	entries := make(map[int]*trace.Entry)
	if err := s.loadValues(ctx, id, entries); err != nil {
		return nil, err
	}
	if err := s.loadMissing(ctx, id, entries); err != nil {
		return nil, err
	}

	positions := make([]int, 0, len(entries))
	for pos := range entries {
		positions = append(positions, pos)
	}
	slices.Sort(positions)
	table.Entries = make([]trace.Entry, 0, len(positions))
	for _, pos := range positions {
		table.Entries = append(table.Entries, *entries[pos])
	}

	return &Record{Summary: sum, Table: table}, nil
}

func (s *SQLiteStore) loadTimes(ctx context.Context, id int64, table *trace.Table) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT time FROM sampling_instants WHERE export_id = ? ORDER BY step`, id)
	if err != nil {
		return fmt.Errorf("failed to query sampling instants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return fmt.Errorf("failed to scan sampling instant: %w", err)
		}
		table.Times = append(table.Times, t)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadValues(ctx context.Context, id int64, entries map[int]*trace.Entry) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, signal, value FROM signal_values WHERE export_id = ? ORDER BY position, step`, id)
	if err != nil {
		return fmt.Errorf("failed to query signal values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var signal, value string
		if err := rows.Scan(&pos, &signal, &value); err != nil {
			return fmt.Errorf("failed to scan signal value: %w", err)
		}
		e, ok := entries[pos]
		if !ok {
			e = &trace.Entry{Name: signal, Kind: trace.EntryValues}
			entries[pos] = e
		}
		e.Values = append(e.Values, value)
	}
	return rows.Err()
}

func (s *SQLiteStore) loadMissing(ctx context.Context, id int64, entries map[int]*trace.Entry) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name FROM missing_signals WHERE export_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to query missing signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos int
		var name string
		if err := rows.Scan(&pos, &name); err != nil {
			return fmt.Errorf("failed to scan missing signal: %w", err)
		}
		entries[pos] = &trace.Entry{Name: name, Kind: trace.EntryNotFound}
	}
	return rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
