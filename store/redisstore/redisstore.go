// Package redisstore provides a store.Provider on top of Redis, for setups
// where cached generations are shared across processes and survive restarts.
//
// Layout: entries live under "<ns>:<tag>:<key>", every generation registers
// itself in the set "<ns>:generations", and each generation tracks its keys
// in "<ns>:<tag>:keys" so the generation can be enumerated and deleted.
package redisstore

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"github.com/offline-cache/offline-cache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

const defaultNamespace = "offline-cache"

type Config struct {
	Client goredis.UniversalClient
	// Namespace prefixes every key; defaults to "offline-cache".
	Namespace string
	// CloseClient should be true only if this store exclusively owns the client.
	CloseClient bool
}

type Store struct {
	rdb         goredis.UniversalClient
	ns          string
	closeClient bool
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	return &Store{rdb: cfg.Client, ns: ns, closeClient: cfg.CloseClient}, nil
}

func (s *Store) gensKey() string { return s.ns + ":generations" }

func (s *Store) keysKey(tag string) string { return s.ns + ":" + tag + ":keys" }

func (s *Store) entryKey(tag, key string) string { return s.ns + ":" + tag + ":" + key }

func (s *Store) Open(ctx context.Context, tag string) (store.Handle, error) {
	if err := s.rdb.SAdd(ctx, s.gensKey(), tag).Err(); err != nil {
		return nil, err
	}
	return &handle{store: s, tag: tag}, nil
}

func (s *Store) Generations(ctx context.Context) ([]string, error) {
	return s.rdb.SMembers(ctx, s.gensKey()).Result()
}

func (s *Store) DeleteGeneration(ctx context.Context, tag string) error {
	keys, err := s.rdb.SMembers(ctx, s.keysKey(tag)).Result()
	if err != nil {
		return err
	}
	_, err = s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, key := range keys {
			p.Del(ctx, s.entryKey(tag, key))
		}
		p.Del(ctx, s.keysKey(tag))
		p.SRem(ctx, s.gensKey(), tag)
		return nil
	})
	return err
}

// Close releases the underlying redis client only when this store owns it.
func (s *Store) Close() error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

type handle struct {
	store *Store
	tag   string
}

func (h *handle) Match(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := h.store.rdb.Get(ctx, h.store.entryKey(h.tag, key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (h *handle) Put(ctx context.Context, key string, value []byte) error {
	_, err := h.store.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, h.store.entryKey(h.tag, key), value, 0)
		p.SAdd(ctx, h.store.keysKey(h.tag), key)
		return nil
	})
	return err
}

func (h *handle) Keys(ctx context.Context) ([]string, error) {
	return h.store.rdb.SMembers(ctx, h.store.keysKey(h.tag)).Result()
}
