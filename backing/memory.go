package backing

import (
	"strings"
	"sync"

	"github.com/google/btree"
)

// degree is the btree node degree.
const degree = 32

type pair struct {
	key   Key
	value string
}

// Memory stores data in process memory, ordered by key. The zero value is not usable; call NewMemory.
type Memory struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[pair]
}

// NewMemory creates a new, empty in-memory backing.
func NewMemory() *Memory {
	return &Memory{
		tree: btree.NewG(degree, func(a, b pair) bool { return a.key < b.key }),
	}
}

// List lists all keys with the given prefix in lexical order.
func (m *Memory) List(prefix string) ([]Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := []Key{}
	m.tree.AscendGreaterOrEqual(pair{key: prefix}, func(p pair) bool {
		if !strings.HasPrefix(p.key, prefix) {
			return false
		}
		keys = append(keys, p.key)
		return true
	})
	return keys, nil
}

// Get returns the value for the given key and whether the key exists.
func (m *Memory) Get(key Key) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, found := m.tree.Get(pair{key: key})
	return p.value, found, nil
}

// Set sets the value for the given key.
func (m *Memory) Set(key Key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.ReplaceOrInsert(pair{key: key, value: value})
	return nil
}

// Del deletes the key-value pair for the given key.
func (m *Memory) Del(key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tree.Delete(pair{key: key})
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}
