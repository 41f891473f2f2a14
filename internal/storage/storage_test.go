package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ruminaider/profilepop/internal/config"
	"github.com/ruminaider/profilepop/internal/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns one fresh instance of every backend. Redis runs against
// an in-process miniredis.
func backends(t *testing.T) map[string]storage.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	redisStore := storage.NewRedisStore(storage.NewRedisPool(mr.Addr()), "profilepop")
	t.Cleanup(func() { redisStore.Close() })

	fileStore, err := storage.NewFileStore(afero.NewMemMapFs(), "/state/state.json")
	require.NoError(t, err)

	sqliteStore, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]storage.Store{
		"memory": storage.NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
		"redis":  redisStore,
	}
}

// increment adds one to the integer stored under "n".
func increment(cur map[string][]byte) (map[string][]byte, error) {
	n := 0
	if raw, ok := cur["n"]; ok {
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
	}
	return map[string][]byte{"n": []byte(strconv.Itoa(n + 1))}, nil
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("missing keys are absent", func(t *testing.T) {
				got, err := s.Get(ctx, "nope")
				require.NoError(t, err)
				assert.Empty(t, got)
			})

			t.Run("set then get", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, map[string][]byte{
					"a": []byte(`1`),
					"b": []byte(`"two"`),
				}))

				got, err := s.Get(ctx, "a", "b", "c")
				require.NoError(t, err)
				assert.Len(t, got, 2)
				assert.JSONEq(t, `1`, string(got["a"]))
				assert.JSONEq(t, `"two"`, string(got["b"]))
			})

			t.Run("overwrite", func(t *testing.T) {
				require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte(`[1,2]`)}))

				got, err := s.Get(ctx, "a")
				require.NoError(t, err)
				assert.JSONEq(t, `[1,2]`, string(got["a"]))
			})

			t.Run("remove", func(t *testing.T) {
				require.NoError(t, s.Remove(ctx, "a", "missing"))

				got, err := s.Get(ctx, "a", "b")
				require.NoError(t, err)
				assert.NotContains(t, got, "a")
				assert.Contains(t, got, "b")
			})

			t.Run("update sees current values", func(t *testing.T) {
				var seen map[string][]byte
				err := s.Update(ctx, func(cur map[string][]byte) (map[string][]byte, error) {
					seen = cur
					return map[string][]byte{"b": []byte(`"three"`), "c": []byte(`3`)}, nil
				}, "b", "c")
				require.NoError(t, err)

				assert.JSONEq(t, `"two"`, string(seen["b"]))
				assert.NotContains(t, seen, "c")

				got, err := s.Get(ctx, "b", "c")
				require.NoError(t, err)
				assert.JSONEq(t, `"three"`, string(got["b"]))
				assert.JSONEq(t, `3`, string(got["c"]))
			})

			t.Run("update error aborts", func(t *testing.T) {
				boom := errors.New("boom")
				err := s.Update(ctx, func(map[string][]byte) (map[string][]byte, error) {
					return map[string][]byte{"b": []byte(`"lost"`)}, boom
				}, "b")
				assert.ErrorIs(t, err, boom)

				got, err := s.Get(ctx, "b")
				require.NoError(t, err)
				assert.JSONEq(t, `"three"`, string(got["b"]))
			})

			t.Run("update with no items writes nothing", func(t *testing.T) {
				require.NoError(t, s.Update(ctx, func(map[string][]byte) (map[string][]byte, error) {
					return nil, nil
				}, "d"))

				got, err := s.Get(ctx, "d")
				require.NoError(t, err)
				assert.Empty(t, got)
			})

			t.Run("clear", func(t *testing.T) {
				require.NoError(t, s.Clear(ctx))

				got, err := s.Get(ctx, "a", "b", "c")
				require.NoError(t, err)
				assert.Empty(t, got)
			})
		})
	}
}

// sharedHandles opens two independent stores over the same underlying state,
// the way two processes would.
func sharedHandles(t *testing.T) map[string][2]storage.Store {
	t.Helper()

	statePath := filepath.Join(t.TempDir(), "state.json")
	fileA, err := storage.NewFileStore(afero.NewOsFs(), statePath)
	require.NoError(t, err)
	fileB, err := storage.NewFileStore(afero.NewOsFs(), statePath)
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "state.db")
	sqliteA, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	sqliteB, err := storage.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		sqliteA.Close()
		sqliteB.Close()
	})

	mr := miniredis.RunT(t)
	redisA := storage.NewRedisStore(storage.NewRedisPool(mr.Addr()), "pp")
	redisB := storage.NewRedisStore(storage.NewRedisPool(mr.Addr()), "pp")
	t.Cleanup(func() {
		redisA.Close()
		redisB.Close()
	})

	return map[string][2]storage.Store{
		"file":   {fileA, fileB},
		"sqlite": {sqliteA, sqliteB},
		"redis":  {redisA, redisB},
	}
}

func TestStore_UpdateAcrossHandlesLosesNothing(t *testing.T) {
	ctx := context.Background()
	const perHandle = 8

	for name, pair := range sharedHandles(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for _, s := range pair {
				for i := 0; i < perHandle; i++ {
					wg.Add(1)
					go func(s storage.Store) {
						defer wg.Done()
						assert.NoError(t, s.Update(ctx, increment, "n"))
					}(s)
				}
			}
			wg.Wait()

			var n int
			ok, err := storage.GetJSON(ctx, pair[1], "n", &n)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, 2*perHandle, n)
		})
	}
}

func TestStore_UpdateBlocksOtherHandle(t *testing.T) {
	ctx := context.Background()
	handles := sharedHandles(t)

	for _, name := range []string{"file", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			a, b := handles[name][0], handles[name][1]
			done := make(chan error, 1)

			err := a.Update(ctx, func(cur map[string][]byte) (map[string][]byte, error) {
				go func() { done <- b.Update(ctx, increment, "n") }()

				select {
				case <-done:
					t.Error("second handle wrote while the first held the update")
				case <-time.After(100 * time.Millisecond):
				}
				return increment(cur)
			}, "n")
			require.NoError(t, err)
			require.NoError(t, <-done)

			var n int
			_, err = storage.GetJSON(ctx, a, "n", &n)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestRedisStore_PrefixAndClear(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("other:isPro", "true"))

	s := storage.NewRedisStore(storage.NewRedisPool(mr.Addr()), "profilepop")
	defer s.Close()

	require.NoError(t, s.Set(ctx, map[string][]byte{
		storage.KeyIsPro:    []byte(`false`),
		storage.KeyProfiles: []byte(`[]`),
	}))
	assert.True(t, mr.Exists("profilepop:isPro"))
	assert.True(t, mr.Exists("profilepop:profiles"))
	assert.False(t, mr.Exists("isPro"))

	got, err := s.Get(ctx, storage.KeyIsPro)
	require.NoError(t, err)
	assert.JSONEq(t, `false`, string(got[storage.KeyIsPro]))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists("profilepop:isPro"))
	assert.False(t, mr.Exists("profilepop:profiles"))
	assert.True(t, mr.Exists("other:isPro"))
}

func TestRedisStore_SetIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	s := storage.NewRedisStore(storage.NewRedisPool(mr.Addr()), "pp")
	defer s.Close()

	require.NoError(t, s.Set(ctx, map[string][]byte{"a": []byte(`0`), "b": []byte(`0`)}))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := []byte(strconv.Itoa(i))
			assert.NoError(t, s.Set(ctx, map[string][]byte{"a": v, "b": v}))
		}
	}()

	for i := 0; i < 200; i++ {
		got, err := s.Get(ctx, "a", "b")
		require.NoError(t, err)
		require.Equal(t, string(got["a"]), string(got["b"]), "read a half-applied write")
	}
	close(stop)
	wg.Wait()
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemoryStore()

	require.NoError(t, storage.SetJSON(ctx, s, map[string]any{
		storage.KeyIsPro:     true,
		storage.KeyTrialUsed: false,
	}))

	var isPro bool
	ok, err := storage.GetJSON(ctx, s, storage.KeyIsPro, &isPro)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, isPro)

	var missing string
	ok, err = storage.GetJSON(ctx, s, storage.KeyLicenseKey, &missing)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, map[string][]byte{storage.KeySettings: []byte("{")}))
	var settings map[string]any
	_, err = storage.GetJSON(ctx, s, storage.KeySettings, &settings)
	assert.Error(t, err)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	first, err := storage.NewFileStore(fs, "/data/state.json")
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, map[string][]byte{"profiles": []byte(`[]`)}))

	second, err := storage.NewFileStore(fs, "/data/state.json")
	require.NoError(t, err)
	got, err := second.Get(ctx, "profiles")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got["profiles"]))

	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestFileStore_RejectsInvalidJSON(t *testing.T) {
	s, err := storage.NewFileStore(afero.NewMemMapFs(), "/state.json")
	require.NoError(t, err)

	err = s.Set(context.Background(), map[string][]byte{"x": []byte("not json")})
	assert.Error(t, err)
}

func TestFileStore_ConcurrentWritesKeepAllKeys(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewFileStore(afero.NewMemMapFs(), "/state.json")
	require.NoError(t, err)

	keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, map[string][]byte{k: []byte(`true`)}))
		}(k)
	}
	wg.Wait()

	got, err := s.Get(ctx, keys...)
	require.NoError(t, err)
	assert.Len(t, got, len(keys))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string][]byte{"isPro": []byte(`true`)}))
	require.NoError(t, s.Close())

	s, err = storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "isPro")
	require.NoError(t, err)
	assert.JSONEq(t, `true`, string(got["isPro"]))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := storage.Open(ctx, config.Storage{Backend: config.BackendMemory})
		require.NoError(t, err)
		assert.IsType(t, &storage.MemoryStore{}, s)
	})

	t.Run("file", func(t *testing.T) {
		s, err := storage.Open(ctx, config.Storage{Backend: config.BackendFile, Path: filepath.Join(t.TempDir(), "s.json")})
		require.NoError(t, err)
		assert.IsType(t, &storage.FileStore{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		s, err := storage.Open(ctx, config.Storage{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "s.db")})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &storage.SQLiteStore{}, s)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := storage.Open(ctx, config.Storage{Backend: config.BackendRedis, RedisAddr: mr.Addr(), RedisPrefix: "pp"})
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &storage.RedisStore{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := storage.Open(ctx, config.Storage{Backend: "tape"})
		assert.Error(t, err)
	})
}
