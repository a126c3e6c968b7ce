package batch

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
)

// memStore is an in-memory FileStore for tests. Per-path write errors can
// be injected, and writeGate (when set) blocks every write until released.
type memStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	readErr   map[string]error
	writeErr  map[string]error
	writeGate chan struct{}
}

func newMemStore(files map[string]string) *memStore {
	m := &memStore{
		files:    make(map[string][]byte),
		readErr:  make(map[string]error),
		writeErr: make(map[string]error),
	}
	for path, content := range files {
		m.files[path] = []byte(content)
	}
	return m
}

func (m *memStore) Resolve(path string) (string, error) {
	if path == "" || !filepath.IsLocal(path) {
		return "", fmt.Errorf("path escapes vault: %q", path)
	}
	return filepath.Join("/vault", path), nil
}

func (m *memStore) ReadFile(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.readErr[path]; err != nil {
		return nil, err
	}
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("read %q: %w", path, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (m *memStore) WriteFile(path string, data []byte) error {
	if gate := m.gate(); gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.writeErr[path]; err != nil {
		return err
	}
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *memStore) DeleteFile(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[path]; !ok {
		return fmt.Errorf("delete %q: %w", path, fs.ErrNotExist)
	}
	delete(m.files, path)
	return nil
}

func (m *memStore) gate() chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeGate
}

func (m *memStore) setGate(gate chan struct{}) {
	m.mu.Lock()
	m.writeGate = gate
	m.mu.Unlock()
}

func (m *memStore) content(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return string(data), ok
}
