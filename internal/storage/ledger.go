// Package storage records completed variant merges in a run ledger.
//
// Backends live in sub-packages and register themselves from init():
//
//	import _ "upvariants/internal/storage/all"
//
// makes sqlite, postgres and mssql available to Open.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RunsTable is the ledger table every backend creates.
const RunsTable = "variant_runs"

// Config selects a backend and its connection string.
type Config struct {
	Kind string
	DSN  string
}

// RunRecord is one successful merge.
type RunRecord struct {
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time

	InputPath     string
	OutputPath    string
	InputEncoding string
	Delimiter     string

	ParentCode    string
	ParamColumn   string
	TemplateIndex int

	InputRows  int
	OutputRows int
	// Promoted lists the parameter columns moved onto the main row.
	Promoted []string
	// Digest is the SHA-256 hex digest of the written table.
	Digest string
}

// PromotedList is the stored form of Promoted.
func (r RunRecord) PromotedList() string { return strings.Join(r.Promoted, ";") }

// Ledger persists run records.
type Ledger interface {
	// Close releases connections. Call once.
	Close()

	// EnsureSchema creates RunsTable if it does not exist.
	EnsureSchema(ctx context.Context) error

	// RecordRun inserts rec and returns its id.
	RecordRun(ctx context.Context, rec RunRecord) (int64, error)

	// LastDigest returns the digest of the most recent run that wrote
	// outputPath. ok is false when there is none.
	LastDigest(ctx context.Context, outputPath string) (digest string, ok bool, err error)
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Ledger, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind.
//
// Panics if kind is empty, f is nil, or kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open constructs the backend for cfg.Kind and ensures its schema.
func Open(ctx context.Context, cfg Config) (Ledger, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (have %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	l, err := f(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Kind, err)
	}
	if err := l.EnsureSchema(ctx); err != nil {
		l.Close()
		return nil, fmt.Errorf("storage: ensure %s: %w", RunsTable, err)
	}
	return l, nil
}
