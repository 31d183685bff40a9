// Package store holds cached HTTP responses, grouped into named generations.
// A generation is a versioned snapshot of the response store: the engine
// populates a new generation on install and sweeps superseded ones on
// activation. Entries are whole serialized responses addressed by request key;
// writes always replace the full value.
package store

import "context"

// Provider owns a set of named cache generations.
//
// Implementations must be safe for concurrent use. Concurrent writes to the
// same key are last-writer-wins, which is acceptable because values are
// immutable snapshots with no merge semantics.
type Provider interface {
	// Open returns the handle for the given generation tag, creating the
	// generation if it does not exist yet.
	Open(ctx context.Context, tag string) (Handle, error)
	// Generations returns the tags of all generations currently present.
	Generations(ctx context.Context) ([]string, error)
	// DeleteGeneration removes a generation and every entry stored under it.
	// Deleting an absent generation is not an error.
	DeleteGeneration(ctx context.Context, tag string) error
}

// Handle reads and writes entries of a single generation.
type Handle interface {
	// Match returns the stored value for the given key.
	// It returns (value, true, nil) on a hit and (nil, false, nil) on a miss.
	Match(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores the value under the given key,
	// replacing any previous value wholesale.
	Put(ctx context.Context, key string, value []byte) error
	// Keys returns every key stored in the generation.
	Keys(ctx context.Context) ([]string, error)
}

// Key returns the store key for a request method and URL.
// Only GET requests are ever cached, so keys are effectively GET+URL.
func Key(method, url string) string {
	return method + ":" + url
}
