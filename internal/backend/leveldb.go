package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// leveldbEngine stores records in a LevelDB directory. Namespaces are
// encoded into the key as a NUL-separated prefix.
type leveldbEngine struct {
	db *leveldb.DB
}

func openLevelDB(path string) (*leveldbEngine, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &leveldbEngine{db: db}, nil
}

func levelKey(ns string, digest []byte) []byte {
	key := make([]byte, 0, len(ns)+1+len(digest))
	key = append(key, ns...)
	key = append(key, 0)
	return append(key, digest...)
}

func (e *leveldbEngine) load(ctx context.Context, ns string, digest []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, err := e.db.Get(levelKey(ns, digest), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, errEngineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	return payload, nil
}

func (e *leveldbEngine) save(ctx context.Context, ns string, digest []byte, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.db.Put(levelKey(ns, digest), data, nil); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

func (e *leveldbEngine) remove(ctx context.Context, ns string, digest []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.db.Delete(levelKey(ns, digest), nil); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func (e *leveldbEngine) close() error {
	return e.db.Close()
}
