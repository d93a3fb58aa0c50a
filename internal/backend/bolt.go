package backend

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// boltEngine stores records in a bbolt database with one bucket per
// namespace. bbolt serializes writes internally.
type boltEngine struct {
	db *bolt.DB
}

func openBolt(path string) (*boltEngine, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &boltEngine{db: db}, nil
}

func (e *boltEngine) load(ctx context.Context, ns string, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var payload []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ns))
		if bucket == nil {
			return errEngineNotFound
		}
		data := bucket.Get(digest)
		if data == nil {
			return errEngineNotFound
		}
		// Bolt memory is only valid inside the transaction.
		payload = make([]byte, len(data))
		copy(payload, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (e *boltEngine) save(ctx context.Context, ns string, digest []byte, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(ns))
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", ns, err)
		}
		if err := bucket.Put(digest, data); err != nil {
			return fmt.Errorf("put: %w", err)
		}
		return nil
	})
}

func (e *boltEngine) remove(ctx context.Context, ns string, digest []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(ns))
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete(digest); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		return nil
	})
}

func (e *boltEngine) close() error {
	return e.db.Close()
}
