package store

import (
	"context"
	"sync"
)

// Memory is an in-process Provider backed by a map per generation.
// Use it for tests and single-process setups without persistence.
type Memory struct {
	mu   sync.RWMutex
	gens map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		gens: make(map[string]map[string][]byte),
	}
}

func (m *Memory) Open(_ context.Context, tag string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.gens[tag]; !ok {
		m.gens[tag] = make(map[string][]byte)
	}
	return &memoryHandle{store: m, tag: tag}, nil
}

func (m *Memory) Generations(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]string, 0, len(m.gens))
	for tag := range m.gens {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (m *Memory) DeleteGeneration(_ context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.gens, tag)
	return nil
}

type memoryHandle struct {
	store *Memory
	tag   string
}

func (h *memoryHandle) Match(_ context.Context, key string) ([]byte, bool, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	entries, ok := h.store.gens[h.tag]
	if !ok {
		return nil, false, nil
	}
	value, ok := entries[key]
	return value, ok, nil
}

func (h *memoryHandle) Put(_ context.Context, key string, value []byte) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	entries, ok := h.store.gens[h.tag]
	if !ok {
		// the generation was swept from under the handle; recreate it
		entries = make(map[string][]byte)
		h.store.gens[h.tag] = entries
	}
	entries[key] = value
	return nil
}

func (h *memoryHandle) Keys(_ context.Context) ([]string, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	entries := h.store.gens[h.tag]
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	return keys, nil
}
