package hive

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hivekv/hive/internal/backend"
	"github.com/hivekv/hive/internal/config"
	"github.com/hivekv/hive/internal/dispatch"
	"github.com/hivekv/hive/internal/native"
)

// RecordCallback receives the outcome of get, select, and operate
// calls: the error object, the record's bins, its metadata {ttl, gen},
// and the key. On failure only the error and key are populated.
type RecordCallback func(err, bins, meta, key map[string]any)

// WriteCallback receives the outcome of put and remove calls.
type WriteCallback func(err, key map[string]any)

// ExistsCallback receives the outcome of exists calls: metadata only,
// no bins.
type ExistsCallback func(err, meta, key map[string]any)

// BatchRecord is one per-key outcome of a batch call. Err is always
// populated; Bins and Meta only on per-key success.
type BatchRecord struct {
	Err  map[string]any
	Bins map[string]any
	Meta map[string]any
	Key  map[string]any
}

// BatchCallback receives the aggregate outcome of a batch call: one
// entry per requested key, in the caller-supplied order.
type BatchCallback func(err map[string]any, results []BatchRecord)

// Client is a connected HiveKV client. All operations are safe to
// issue concurrently; the store handle is shared read-only across
// in-flight calls.
type Client struct {
	store  *backend.Store
	disp   *dispatch.Dispatcher
	logger *slog.Logger
}

// Connect opens the configured backend and starts the dispatch
// pipeline. A nil cfg selects defaults.
func Connect(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	store, err := backend.Open(backend.Options{
		Kind:                 cfg.Backend.Kind,
		Path:                 cfg.Backend.Path,
		CompressionThreshold: cfg.Backend.CompressionThreshold,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		store:  store,
		disp:   dispatch.New(store, cfg.Workers, logger),
		logger: logger,
	}, nil
}

// Close drains in-flight operations, delivers their callbacks, and
// releases the backend. Operations issued after Close complete
// asynchronously with a client error.
func (c *Client) Close() error {
	c.disp.Close()
	return c.store.Close()
}

// submit wraps an operation in an envelope and hands it to the
// pipeline. Every prepare failure travels this same path so callbacks
// always fire asynchronously.
func (c *Client) submit(op dispatch.Operation, prepErr *native.Error) {
	env := dispatch.NewEnvelope(op, prepErr)
	if prepErr != nil {
		c.logger.Debug("operation failed in prepare",
			slog.String("envelope", env.ID.String()),
			slog.String("error", prepErr.Message))
	}
	c.disp.Submit(env)
}
