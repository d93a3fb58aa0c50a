// Package backend implements the blocking store surface consumed by
// the dispatch workers.
//
// Store carries all record semantics (generation counting, TTL expiry,
// policy enforcement, operate sub-operations) once, on top of a minimal
// byte-level engine interface. Three engines are provided: sqlite,
// bolt, and leveldb. Engines only move encoded record payloads by
// digest; they know nothing about bins or policies.
//
// Every Handle method is a blocking call operating purely on native
// structures. On a non-nil returned error the output record is
// undefined and must not be read.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hivekv/hive/internal/native"
)

// Handle is the blocking per-operation store surface. It is shared
// read-only across all in-flight operations; implementations must be
// safe for concurrent use.
type Handle interface {
	Get(ctx context.Context, policy *native.ReadPolicy, key *native.Key, rec *native.Record) *native.Error
	Select(ctx context.Context, policy *native.ReadPolicy, key *native.Key, binNames []string, rec *native.Record) *native.Error
	Exists(ctx context.Context, policy *native.ReadPolicy, key *native.Key, rec *native.Record) *native.Error
	Put(ctx context.Context, policy *native.WritePolicy, key *native.Key, rec *native.Record) *native.Error
	Remove(ctx context.Context, policy *native.RemovePolicy, key *native.Key) *native.Error
	Operate(ctx context.Context, policy *native.OperatePolicy, key *native.Key, ops []native.Operation, rec *native.Record) *native.Error
	BatchGet(ctx context.Context, policy *native.BatchPolicy, keys []*native.Key, results []native.BatchResult) *native.Error
	Close() error
}

// engine is the byte-level surface a storage engine provides. Records
// are addressed by (namespace, key digest).
type engine interface {
	load(ctx context.Context, ns string, digest []byte) ([]byte, error)
	save(ctx context.Context, ns string, digest []byte, data []byte) error
	remove(ctx context.Context, ns string, digest []byte) error
	close() error
}

// errEngineNotFound is returned by engines when no record exists for
// the digest.
var errEngineNotFound = errors.New("record not found")

// Engine kinds accepted by Open.
const (
	KindSQLite  = "sqlite"
	KindBolt    = "bolt"
	KindLevelDB = "leveldb"
)

// DefaultCompressionThreshold is the encoded-record size in bytes above
// which payloads are snappy-compressed.
const DefaultCompressionThreshold = 512

// Options configures Open.
type Options struct {
	// Kind selects the engine: sqlite, bolt, or leveldb.
	Kind string

	// Path is the database file (sqlite, bolt) or directory (leveldb).
	Path string

	// CompressionThreshold overrides DefaultCompressionThreshold.
	// Negative disables compression entirely.
	CompressionThreshold int

	// Logger receives store-level diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Open creates a Store backed by the configured engine.
func Open(opts Options) (*Store, error) {
	var (
		eng engine
		err error
	)
	switch opts.Kind {
	case KindSQLite, "":
		eng, err = openSQLite(opts.Path)
	case KindBolt:
		eng, err = openBolt(opts.Path)
	case KindLevelDB:
		eng, err = openLevelDB(opts.Path)
	default:
		return nil, fmt.Errorf("unknown backend kind %q", opts.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", opts.Kind, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	threshold := opts.CompressionThreshold
	if threshold == 0 {
		threshold = DefaultCompressionThreshold
	}

	return newStore(eng, logger, threshold), nil
}
