package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileKV persists values as a JSON object on local disk. Every mutation
// rewrites the file through a rename so readers never see a partial write.
type FileKV struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

func NewFileKV(path string) (*FileKV, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("credential store file path is required")
	}

	f := &FileKV{
		path:   path,
		values: make(map[string]string),
	}
	if err := f.load(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *FileKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.cloneLocked()
	next[key] = string(value)
	return f.commitLocked(next)
}

func (f *FileKV) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.cloneLocked()
	for _, k := range keys {
		delete(next, k)
	}
	return f.commitLocked(next)
}

func (f *FileKV) cloneLocked() map[string]string {
	next := make(map[string]string, len(f.values)+1)
	for k, v := range f.values {
		next[k] = v
	}
	return next
}

// commitLocked writes next to disk and only then makes it visible, so a
// failed write leaves memory matching the file.
func (f *FileKV) commitLocked(next map[string]string) error {
	if err := f.persist(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func (f *FileKV) Ping(context.Context) error {
	dir := filepath.Dir(f.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("credential store dir: %w", err)
	}
	return nil
}

func (f *FileKV) load() error {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read credential store file: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	var values map[string]string
	if err := json.Unmarshal(b, &values); err != nil {
		return fmt.Errorf("decode credential store file: %w", err)
	}
	if values != nil {
		f.values = values
	}
	return nil
}

func (f *FileKV) persist(values map[string]string) error {
	b, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential store file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("mkdir credential store dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("write credential store file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace credential store file: %w", err)
	}
	return nil
}
