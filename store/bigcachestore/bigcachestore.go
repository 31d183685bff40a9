// Package bigcachestore provides an in-memory store.Provider on top of
// bigcache. Each generation maps to its own BigCache instance, so sweeping a
// superseded generation releases its memory in one step.
package bigcachestore

import (
	"context"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/offline-cache/offline-cache/store"
)

type Config struct {
	// LifeWindow bounds how long entries live inside one generation.
	// Zero means entries live as long as the generation itself (7 days).
	LifeWindow         time.Duration
	HardMaxCacheSizeMB int // ~ memory limit per generation; 0 = unlimited
}

type Store struct {
	mu   sync.RWMutex
	gens map[string]*bc.BigCache
	conf bc.Config
}

func New(cfg Config) *Store {
	life := cfg.LifeWindow
	if life == 0 {
		life = 7 * 24 * time.Hour
	}
	conf := bc.DefaultConfig(life)
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	return &Store{
		gens: make(map[string]*bc.BigCache),
		conf: conf,
	}
}

func (s *Store) Open(_ context.Context, tag string) (store.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.gens[tag]
	if !ok {
		var err error
		c, err = bc.NewBigCache(s.conf)
		if err != nil {
			return nil, err
		}
		s.gens[tag] = c
	}
	return &handle{store: s, tag: tag, c: c}, nil
}

func (s *Store) Generations(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]string, 0, len(s.gens))
	for tag := range s.gens {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *Store) DeleteGeneration(_ context.Context, tag string) error {
	s.mu.Lock()
	c, ok := s.gens[tag]
	delete(s.gens, tag)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return c.Close()
}

type handle struct {
	store *Store
	tag   string
	c     *bc.BigCache
}

func (h *handle) Match(_ context.Context, key string) ([]byte, bool, error) {
	b, err := h.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (h *handle) Put(_ context.Context, key string, value []byte) error {
	return h.c.Set(key, value)
}

func (h *handle) Keys(_ context.Context) ([]string, error) {
	keys := make([]string, 0)
	it := h.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			return keys, err
		}
		keys = append(keys, info.Key())
	}
	return keys, nil
}
