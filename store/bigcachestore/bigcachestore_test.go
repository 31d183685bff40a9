package bigcachestore

import (
	"context"
	"sort"
	"testing"
)

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	s := New(Config{})

	h, err := s.Open(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok, err := h.Match(ctx, "GET:/a"); err != nil || ok {
		t.Fatalf("unexpected hit (ok=%v, err=%v)", ok, err)
	}
	if err := h.Put(ctx, "GET:/a", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := h.Put(ctx, "GET:/a", []byte("second")); err != nil {
		t.Fatal(err)
	}
	value, ok, err := h.Match(ctx, "GET:/a")
	if err != nil || !ok || string(value) != "second" {
		t.Fatalf("match returned %q (ok=%v, err=%v)", value, ok, err)
	}
	if err := h.Put(ctx, "GET:/b", []byte("b")); err != nil {
		t.Fatal(err)
	}
	keys, err := h.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "GET:/a" || keys[1] != "GET:/b" {
		t.Fatalf("keys are %v", keys)
	}

	if _, err := s.Open(ctx, "v2"); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGeneration(ctx, "v1"); err != nil {
		t.Fatal(err)
	}
	tags, err := s.Generations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "v2" {
		t.Fatalf("generations are %v", tags)
	}
	if err := s.DeleteGeneration(ctx, "gone"); err != nil {
		t.Fatal(err)
	}
}
