package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

const lockRetryDelay = 10 * time.Millisecond

// FileStore persists all keys as one JSON object in a single file. Writes go
// to a uniquely named temp file that is renamed over the original. On the OS
// filesystem every write holds an advisory lock on <path>.lock, so processes
// sharing the file never interleave their read-modify-write cycles.
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore returns a FileStore rooted at path on fs. The parent directory
// is created if needed; the file itself is created on first write.
func NewFileStore(fs afero.Fs, path string) (*FileStore, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	f := &FileStore{fs: fs, path: path}
	if _, ok := fs.(*afero.OsFs); ok {
		f.lock = flock.New(path + ".lock")
	}
	return f, nil
}

func (f *FileStore) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.read()
	if err != nil {
		return nil, err
	}
	return pick(all, keys), nil
}

func (f *FileStore) Set(ctx context.Context, items map[string][]byte) error {
	return f.exclusive(ctx, func() error {
		all, err := f.read()
		if err != nil {
			return err
		}
		if err := merge(all, items); err != nil {
			return err
		}
		return f.write(all)
	})
}

func (f *FileStore) Update(ctx context.Context, fn UpdateFunc, keys ...string) error {
	return f.exclusive(ctx, func() error {
		all, err := f.read()
		if err != nil {
			return err
		}
		items, err := fn(pick(all, keys))
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		if err := merge(all, items); err != nil {
			return err
		}
		return f.write(all)
	})
}

func (f *FileStore) Remove(ctx context.Context, keys ...string) error {
	return f.exclusive(ctx, func() error {
		all, err := f.read()
		if err != nil {
			return err
		}
		for _, k := range keys {
			delete(all, k)
		}
		return f.write(all)
	})
}

func (f *FileStore) Clear(ctx context.Context) error {
	return f.exclusive(ctx, func() error {
		err := f.fs.Remove(f.path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("clearing state: %w", err)
		}
		return nil
	})
}

func (f *FileStore) Close() error { return nil }

// exclusive runs fn holding the in-process mutex and, on the OS filesystem,
// the cross-process file lock.
func (f *FileStore) exclusive(ctx context.Context, fn func() error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.lock != nil {
		locked, err := f.lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("locking %s: %w", f.path, err)
		}
		if !locked {
			return fmt.Errorf("locking %s: lock not acquired", f.path)
		}
		defer f.lock.Unlock()
	}
	return fn()
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	data, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	all := map[string]json.RawMessage{}
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", f.path, err)
	}
	return all, nil
}

func (f *FileStore) write(all map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp, err := afero.TempFile(f.fs, filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		f.fs.Remove(tmp.Name())
		return fmt.Errorf("writing state: %w", err)
	}
	if err := f.fs.Rename(tmp.Name(), f.path); err != nil {
		f.fs.Remove(tmp.Name())
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}

func pick(all map[string]json.RawMessage, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = []byte(v)
		}
	}
	return out
}

func merge(all map[string]json.RawMessage, items map[string][]byte) error {
	for k, v := range items {
		if !json.Valid(v) {
			return fmt.Errorf("writing state: value for %q is not valid JSON", k)
		}
		all[k] = json.RawMessage(v)
	}
	return nil
}
