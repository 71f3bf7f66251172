package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"upvariants/internal/storage"
)

func init() {
	storage.Register("postgres", New)
}

// Ledger implements storage.Ledger on a pgx connection pool.
type Ledger struct {
	pool *pgxpool.Pool
}

// New creates the pool. Connections are established lazily by pgxpool;
// EnsureSchema is the first round trip.
func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Ledger{pool: pool}, nil
}

// Close closes the connection pool.
func (l *Ledger) Close() { l.pool.Close() }

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, createSQL(storage.RunsTable))
	return err
}

func createSQL(table string) string {
	return `CREATE TABLE IF NOT EXISTS ` + pgx.Identifier{table}.Sanitize() + ` (
	id BIGSERIAL PRIMARY KEY,
	job TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
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
	digest CHAR(64) NOT NULL
)`
}

func insertSQL(table string) string {
	return `INSERT INTO ` + pgx.Identifier{table}.Sanitize() + ` (
	job, started_at, finished_at, input_path, output_path, input_encoding, delimiter,
	parent_code, param_column, template_index, input_rows, output_rows, promoted, digest
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`
}

func lastDigestSQL(table string) string {
	return `SELECT digest FROM ` + pgx.Identifier{table}.Sanitize() +
		` WHERE output_path = $1 ORDER BY id DESC LIMIT 1`
}

// insertArgs orders rec to match insertSQL placeholders.
func insertArgs(rec storage.RunRecord) []any {
	return []any{
		rec.Job,
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
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
	}
}

func (l *Ledger) RecordRun(ctx context.Context, rec storage.RunRecord) (int64, error) {
	var id int64
	if err := l.pool.QueryRow(ctx, insertSQL(storage.RunsTable), insertArgs(rec)...).Scan(&id); err != nil {
		return 0, fmt.Errorf("postgres: insert run: %w", err)
	}
	return id, nil
}

func (l *Ledger) LastDigest(ctx context.Context, outputPath string) (string, bool, error) {
	var digest string
	err := l.pool.QueryRow(ctx, lastDigestSQL(storage.RunsTable), outputPath).Scan(&digest)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}
