package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
)

// Memory is a process local KVStore for development and tests
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ interfaces.KVStore = &Memory{}

func New() *Memory {
	return &Memory{
		data: make(map[string][]byte),
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "key not found", goerr.V("key", key))
	}

	// Return a copy to prevent external modifications
	return slices.Clone(v), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	// Snapshot under the lock so fn may call back into the store
	m.mu.RLock()
	keys := slices.Sorted(maps.Keys(m.data))
	type entry struct {
		key   string
		value []byte
	}
	var entries []entry
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, entry{key: k, value: slices.Clone(m.data[k])})
		}
	}
	m.mu.RUnlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "scan interrupted", goerr.V("prefix", prefix))
		}
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
