package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"upvariants/internal/storage"
)

// Ledger implements storage.Ledger for SQLite.
//
// SQLite has no timestamp type, so times are stored as RFC3339Nano text in
// UTC and parsed back with parseSQLiteTime.
type Ledger struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database file named by cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() { _ = l.db.Close() }

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, createSQL())
	return err
}

func createSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + sqlIdent(storage.RunsTable) + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	job TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	input_encoding TEXT NOT NULL,
	delimiter TEXT NOT NULL,
	parent_code TEXT NOT NULL,
	param_column TEXT NOT NULL,
	template_index INTEGER NOT NULL,
	input_rows INTEGER NOT NULL,
	output_rows INTEGER NOT NULL,
	promoted TEXT NOT NULL,
	digest TEXT NOT NULL
)`
}

const insertSQL = `INSERT INTO "variant_runs" (
	job, started_at, finished_at, input_path, output_path, input_encoding, delimiter,
	parent_code, param_column, template_index, input_rows, output_rows, promoted, digest
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (l *Ledger) RecordRun(ctx context.Context, rec storage.RunRecord) (int64, error) {
	res, err := l.db.ExecContext(ctx, insertSQL,
		rec.Job,
		formatSQLiteTime(rec.StartedAt),
		formatSQLiteTime(rec.FinishedAt),
		rec.InputPath,
		rec.OutputPath,
		rec.InputEncoding,
		rec.Delimiter,
		rec.ParentCode,
		rec.ParamColumn,
		rec.TemplateIndex,
		rec.InputRows,
		rec.OutputRows,
		rec.PromotedList(),
		rec.Digest,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: insert run: %w", err)
	}
	return res.LastInsertId()
}

func (l *Ledger) LastDigest(ctx context.Context, outputPath string) (string, bool, error) {
	var digest string
	err := l.db.QueryRowContext(ctx,
		`SELECT digest FROM "variant_runs" WHERE output_path = ? ORDER BY id DESC LIMIT 1`,
		outputPath,
	).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseSQLiteTime accepts RFC3339Nano (what we write), RFC3339, and the
// space-separated layouts other SQLite tools produce. A value without zone
// is UTC.
func parseSQLiteTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time string")
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", s)
}
