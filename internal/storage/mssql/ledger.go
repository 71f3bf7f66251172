package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"upvariants/internal/storage"
)

func init() {
	storage.Register("mssql", New)
}

// Ledger implements storage.Ledger for Microsoft SQL Server.
//
// This package does not import a driver. The application registers the
// "sqlserver" driver (github.com/microsoft/go-mssqldb) before Open, which
// storage/all does.
type Ledger struct {
	db dbConn
}

// New opens the database with the "sqlserver" driver and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	raw.SetMaxOpenConns(4)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Ledger{db: &sqlDB{db: raw}}, nil
}

// Close releases database resources held by this ledger.
func (l *Ledger) Close() {
	if l == nil || l.db == nil {
		return
	}
	_ = l.db.Close()
}

const createSQL = `IF OBJECT_ID(N'dbo.variant_runs', N'U') IS NULL
CREATE TABLE dbo.variant_runs (
	id BIGINT IDENTITY(1,1) PRIMARY KEY,
	job NVARCHAR(200) NOT NULL,
	started_at DATETIMEOFFSET NOT NULL,
	finished_at DATETIMEOFFSET NOT NULL,
	input_path NVARCHAR(1024) NOT NULL,
	output_path NVARCHAR(1024) NOT NULL,
	input_encoding NVARCHAR(32) NOT NULL,
	delimiter NVARCHAR(4) NOT NULL,
	parent_code NVARCHAR(200) NOT NULL,
	param_column NVARCHAR(400) NOT NULL,
	template_index INT NOT NULL,
	input_rows INT NOT NULL,
	output_rows INT NOT NULL,
	promoted NVARCHAR(MAX) NOT NULL,
	digest CHAR(64) NOT NULL
)`

const insertSQL = `INSERT INTO dbo.variant_runs (
	job, started_at, finished_at, input_path, output_path, input_encoding, delimiter,
	parent_code, param_column, template_index, input_rows, output_rows, promoted, digest
) OUTPUT INSERTED.id
VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8, @p9, @p10, @p11, @p12, @p13, @p14)`

const lastDigestSQL = `SELECT TOP 1 digest FROM dbo.variant_runs WHERE output_path = @p1 ORDER BY id DESC`

func (l *Ledger) EnsureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, createSQL)
	return err
}

func (l *Ledger) RecordRun(ctx context.Context, rec storage.RunRecord) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, insertSQL,
		rec.Job,
		rec.StartedAt,
		rec.FinishedAt,
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
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("mssql: insert run: %w", err)
	}
	return id, nil
}

func (l *Ledger) LastDigest(ctx context.Context, outputPath string) (string, bool, error) {
	var digest string
	err := l.db.QueryRowContext(ctx, lastDigestSQL, outputPath).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return digest, true, nil
}

// ---- database/sql seam types ----

// dbConn is the subset of *sql.DB this file needs, so tests can fake it.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	Close() error
}

// rowScanner is a narrow adapter over *sql.Row.Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *sqlDB) Close() error { return s.db.Close() }
