package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*Memory)(nil)

// Memory keeps records in process memory.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]Record
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]Record)}
}

func (m *Memory) Save(_ context.Context, collection, key string, data []byte) error {
	if err := checkKey(collection, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.data[collection]
	if !ok {
		c = make(map[string]Record)
		m.data[collection] = c
	}
	c[key] = Record{Key: key, Data: append([]byte(nil), data...), UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *Memory) Get(_ context.Context, collection, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.data[collection][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), r.Data...), nil
}

func (m *Memory) All(_ context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.data[collection]))
	for _, r := range m.data[collection] {
		r.Data = append([]byte(nil), r.Data...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, collection, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][key]; !ok {
		return ErrNotFound
	}
	delete(m.data[collection], key)
	return nil
}

func (m *Memory) Close() error { return nil }
