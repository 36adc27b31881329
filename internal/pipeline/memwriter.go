package pipeline

import (
	"slices"
	"sync"
)

// MemoryWriter keeps written files in memory. Tests use it in place of the
// filesystem writer.
type MemoryWriter struct {
	mu     sync.RWMutex
	files  map[string][]byte
	writes int
}

var _ Writer = (*MemoryWriter)(nil)

// WriteFile stores a copy of data under path.
func (m *MemoryWriter) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = slices.Clone(data)
	m.writes++
	return nil
}

// GetFile returns the last content written to path.
func (m *MemoryWriter) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[path]
	return data, ok
}

// Paths lists written paths in sorted order.
func (m *MemoryWriter) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	paths := make([]string, 0, len(m.files))
	for p := range m.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Writes counts WriteFile calls, including overwrites.
func (m *MemoryWriter) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.writes
}
