package hive

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivekv/hive/internal/config"
	"github.com/hivekv/hive/internal/native"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.Default()
	cfg.Backend.Path = filepath.Join(t.TempDir(), "hive.db")
	cfg.LogLevel = "error"

	c, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func testKey(id string) map[string]any {
	return map[string]any{"ns": "test", "set": "things", "key": id}
}

func await(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func errCode(err map[string]any) int64 {
	code, _ := err["code"].(int64)
	return code
}

// putSync writes a record and waits for the callback.
func putSync(t *testing.T, c *Client, key any, bins, meta map[string]any) {
	t.Helper()
	done := make(chan struct{})
	c.Put(key, bins, meta, nil, func(err, _ map[string]any) {
		assert.Zero(t, errCode(err), "put failed: %v", err["message"])
		close(done)
	})
	await(t, done)
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newTestClient(t)
	key := testKey("round-trip")

	putSync(t, c, key, map[string]any{
		"name":  "Ada",
		"count": 42,
		"ratio": 0.5,
		"raw":   []byte{1, 2, 3},
		"tags":  []any{"a", 1},
		"attrs": map[string]any{"x": 0.25},
	}, map[string]any{"ttl": 300})

	done := make(chan struct{})
	c.Get(key, nil, func(err, bins, meta, gotKey map[string]any) {
		defer close(done)
		require.Zero(t, errCode(err))

		assert.Equal(t, "Ada", bins["name"])
		assert.Equal(t, int64(42), bins["count"])
		assert.Equal(t, 0.5, bins["ratio"])
		assert.Equal(t, []byte{1, 2, 3}, bins["raw"])
		assert.Equal(t, []any{"a", int64(1)}, bins["tags"])

		assert.Equal(t, int64(1), meta["gen"], "first write has generation 1")
		ttl := meta["ttl"].(int64)
		assert.Greater(t, ttl, int64(0))
		assert.LessOrEqual(t, ttl, int64(300))

		assert.Equal(t, "test", gotKey["ns"])
		assert.Equal(t, "things", gotKey["set"])
		assert.Equal(t, "round-trip", gotKey["key"])
	})
	await(t, done)
}

func TestPutGetRoundTrip_BoolBinRejected(t *testing.T) {
	c := newTestClient(t)

	done := make(chan struct{})
	c.Put(testKey("bool"), map[string]any{"flag": true}, nil, nil, func(err, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrParam), errCode(err))
	})
	await(t, done)
}

func TestGet_Missing(t *testing.T) {
	c := newTestClient(t)

	done := make(chan struct{})
	c.Get(testKey("never-written"), nil, func(err, bins, meta, key map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrNotFound), errCode(err))
		assert.Nil(t, bins)
		assert.Nil(t, meta)
		assert.Equal(t, "never-written", key["key"])
	})
	await(t, done)
}

func TestMalformedKey_ExactlyOnceParamError(t *testing.T) {
	c := newTestClient(t)
	bad := map[string]any{"set": "things", "key": "x"} // no namespace

	issue := map[string]func(record func(err map[string]any)){
		"get":    func(f func(map[string]any)) { c.Get(bad, nil, func(err, _, _, _ map[string]any) { f(err) }) },
		"select": func(f func(map[string]any)) { c.Select(bad, []string{"a"}, nil, func(err, _, _, _ map[string]any) { f(err) }) },
		"exists": func(f func(map[string]any)) { c.Exists(bad, nil, func(err, _, _ map[string]any) { f(err) }) },
		"put": func(f func(map[string]any)) {
			c.Put(bad, map[string]any{"a": 1}, nil, nil, func(err, _ map[string]any) { f(err) })
		},
		"remove": func(f func(map[string]any)) { c.Remove(bad, nil, func(err, _ map[string]any) { f(err) }) },
		"operate": func(f func(map[string]any)) {
			ops := []any{map[string]any{"op": "read", "bin": "a"}}
			c.Operate(bad, ops, nil, nil, func(err, _, _, _ map[string]any) { f(err) })
		},
		"batch": func(f func(map[string]any)) {
			c.BatchGet([]any{bad}, nil, func(err map[string]any, _ []BatchRecord) { f(err) })
		},
	}

	for name, call := range issue {
		t.Run(name, func(t *testing.T) {
			var fired atomic.Int32
			done := make(chan map[string]any, 1)
			call(func(err map[string]any) {
				fired.Add(1)
				done <- err
			})

			select {
			case err := <-done:
				assert.Equal(t, int64(native.StatusErrParam), errCode(err))
			case <-time.After(5 * time.Second):
				t.Fatal("callback never fired")
			}
			// Exactly once even after a settling delay.
			time.Sleep(20 * time.Millisecond)
			assert.Equal(t, int32(1), fired.Load())
		})
	}
}

func TestSelect_SubsetOfBins(t *testing.T) {
	c := newTestClient(t)
	key := testKey("select")
	putSync(t, c, key, map[string]any{"a": 1, "b": 2, "c": 3}, nil)

	done := make(chan struct{})
	c.Select(key, []string{"a", "c", "absent"}, nil, func(err, bins, meta, _ map[string]any) {
		defer close(done)
		require.Zero(t, errCode(err))
		assert.Equal(t, map[string]any{"a": int64(1), "c": int64(3)}, bins)
		assert.Equal(t, int64(1), meta["gen"])
	})
	await(t, done)
}

func TestExists(t *testing.T) {
	c := newTestClient(t)
	key := testKey("exists")
	putSync(t, c, key, map[string]any{"a": 1}, nil)

	done := make(chan struct{})
	c.Exists(key, nil, func(err, meta, _ map[string]any) {
		defer close(done)
		require.Zero(t, errCode(err))
		assert.Equal(t, int64(1), meta["gen"])
	})
	await(t, done)

	done = make(chan struct{})
	c.Exists(testKey("not-there"), nil, func(err, meta, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrNotFound), errCode(err))
		assert.Nil(t, meta)
	})
	await(t, done)
}

func TestRemove(t *testing.T) {
	c := newTestClient(t)
	key := testKey("remove")
	putSync(t, c, key, map[string]any{"a": 1}, nil)

	done := make(chan struct{})
	c.Remove(key, nil, func(err, _ map[string]any) {
		defer close(done)
		assert.Zero(t, errCode(err))
	})
	await(t, done)

	done = make(chan struct{})
	c.Get(key, nil, func(err, _, _, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrNotFound), errCode(err))
	})
	await(t, done)

	// Removing again reports not found.
	done = make(chan struct{})
	c.Remove(key, nil, func(err, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrNotFound), errCode(err))
	})
	await(t, done)
}

func TestOperate_IncrAndRead(t *testing.T) {
	c := newTestClient(t)
	key := testKey("operate")
	putSync(t, c, key, map[string]any{"count": 5}, nil)

	ops := []any{
		map[string]any{"op": "incr", "bin": "count", "value": 10},
		map[string]any{"op": "read", "bin": "count"},
	}
	done := make(chan struct{})
	c.Operate(key, ops, nil, nil, func(err, bins, meta, _ map[string]any) {
		defer close(done)
		require.Zero(t, errCode(err))
		assert.Equal(t, int64(15), bins["count"])
		assert.Equal(t, int64(2), meta["gen"], "one generation bump per operate call")
	})
	await(t, done)
}

func TestOperate_AppendPrepend(t *testing.T) {
	c := newTestClient(t)
	key := testKey("concat")
	putSync(t, c, key, map[string]any{"s": "mid"}, nil)

	ops := []any{
		map[string]any{"op": "append", "bin": "s", "value": "-end"},
		map[string]any{"op": "prepend", "bin": "s", "value": "start-"},
		map[string]any{"op": "read", "bin": "s"},
	}
	done := make(chan struct{})
	c.Operate(key, ops, nil, nil, func(err, bins, _, _ map[string]any) {
		defer close(done)
		require.Zero(t, errCode(err))
		assert.Equal(t, "start-mid-end", bins["s"])
	})
	await(t, done)
}

func TestBatchGet_OrderAndPartialFailure(t *testing.T) {
	c := newTestClient(t)
	putSync(t, c, testKey("b0"), map[string]any{"n": 0}, nil)
	putSync(t, c, testKey("b2"), map[string]any{"n": 2}, nil)

	keys := []any{testKey("b0"), testKey("b1-missing"), testKey("b2")}
	done := make(chan struct{})
	c.BatchGet(keys, nil, func(err map[string]any, results []BatchRecord) {
		defer close(done)
		require.Zero(t, errCode(err), "per-key failures do not fail the batch")
		require.Len(t, results, 3)

		assert.Zero(t, errCode(results[0].Err))
		assert.Equal(t, int64(0), results[0].Bins["n"])
		assert.Equal(t, "b0", results[0].Key["key"])

		assert.Equal(t, int64(native.StatusErrNotFound), errCode(results[1].Err))
		assert.Nil(t, results[1].Bins)
		assert.Equal(t, "b1-missing", results[1].Key["key"])

		assert.Zero(t, errCode(results[2].Err))
		assert.Equal(t, int64(2), results[2].Bins["n"])
	})
	await(t, done)
}

func TestConcurrentOperations_ExactlyOnce(t *testing.T) {
	c := newTestClient(t)

	const m = 100
	var fired atomic.Int32
	var wg sync.WaitGroup
	wg.Add(m)

	for i := 0; i < m; i++ {
		go func(i int) {
			key := testKey(fmt.Sprintf("conc-%d", i))
			c.Put(key, map[string]any{"i": i}, nil, nil, func(err, _ map[string]any) {
				assert.Zero(t, errCode(err))
				fired.Add(1)
				wg.Done()
			})
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(m), fired.Load())

	// Every record is readable afterwards.
	wg.Add(m)
	for i := 0; i < m; i++ {
		go func(i int) {
			c.Get(testKey(fmt.Sprintf("conc-%d", i)), nil, func(err, bins, _, _ map[string]any) {
				assert.Zero(t, errCode(err))
				assert.Equal(t, int64(i), bins["i"])
				wg.Done()
			})
		}(i)
	}
	wg.Wait()
}

func TestCallbackPanicDoesNotBlockLaterOps(t *testing.T) {
	c := newTestClient(t)
	key := testKey("panicky")
	putSync(t, c, key, map[string]any{"a": 1}, nil)

	c.Get(key, nil, func(_, _, _, _ map[string]any) {
		panic("user callback bug")
	})

	done := make(chan struct{})
	c.Get(key, nil, func(err, bins, _, _ map[string]any) {
		defer close(done)
		assert.Zero(t, errCode(err))
		assert.Equal(t, int64(1), bins["a"])
	})
	await(t, done)
}

func TestOperationAfterClose(t *testing.T) {
	cfg := config.Default()
	cfg.Backend.Path = filepath.Join(t.TempDir(), "hive.db")
	cfg.LogLevel = "error"
	c, err := Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	done := make(chan struct{})
	c.Get(testKey("late"), nil, func(err, _, _, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrClient), errCode(err))
	})
	await(t, done)
}

func TestWritePolicy_GenerationCheck(t *testing.T) {
	c := newTestClient(t)
	key := testKey("gen-check")
	putSync(t, c, key, map[string]any{"a": 1}, nil)

	// Stored generation is 1; demanding gen 5 fails.
	done := make(chan struct{})
	policy := map[string]any{"gen": "eq"}
	c.Put(key, map[string]any{"a": 2}, map[string]any{"gen": 5}, policy, func(err, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrGeneration), errCode(err))
	})
	await(t, done)

	done = make(chan struct{})
	c.Put(key, map[string]any{"a": 2}, map[string]any{"gen": 1}, policy, func(err, _ map[string]any) {
		defer close(done)
		assert.Zero(t, errCode(err))
	})
	await(t, done)
}

func TestWritePolicy_ExistsCreateOnly(t *testing.T) {
	c := newTestClient(t)
	key := testKey("create-only")
	putSync(t, c, key, map[string]any{"a": 1}, nil)

	done := make(chan struct{})
	c.Put(key, map[string]any{"a": 2}, nil, map[string]any{"exists": "create"}, func(err, _ map[string]any) {
		defer close(done)
		assert.Equal(t, int64(native.StatusErrExists), errCode(err))
	})
	await(t, done)
}
