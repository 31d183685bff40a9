package offlinecache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/rs/zerolog/log"

	"github.com/offline-cache/offline-cache/store"
)

func TestInstallPrecachesManifest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "content of "+r.URL.Path)
	}))
	defer server.Close()
	provider := store.NewMemory()

	// a superseded generation already exists
	ctx := context.Background()
	old, err := provider.Open(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if err := old.Put(ctx, "GET:/", storedValue("old shell")); err != nil {
		t.Fatal(err)
	}

	engine := New(Config{
		Store:      provider,
		OriginURL:  mustParseURL(t, server.URL),
		Generation: "v2",
		Precache:   []string{"/", "/index.html"},
		Logger:     &log.Logger,
	})

	// install is idempotent: running it twice leaves one generation
	// containing exactly the manifest URLs
	if err := engine.Install(ctx); err != nil {
		t.Fatal(err)
	}
	if err := engine.Install(ctx); err != nil {
		t.Fatal(err)
	}

	tags, err := provider.Generations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "v2" {
		t.Fatalf("generations are %v", tags)
	}
	h, err := provider.Open(ctx, "v2")
	if err != nil {
		t.Fatal(err)
	}
	keys, err := h.Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(keys)
	want := []string{"GET:/", "GET:/index.html"}
	if len(keys) != len(want) {
		t.Fatalf("keys are %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys are %v", keys)
		}
	}
}

func TestInstallIsAtomic(t *testing.T) {
	var shellCount int
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		shellCount++
		io.WriteString(w, "shell")
	})
	mux.HandleFunc("/missing.png", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine := New(Config{
		Store:      store.NewMemory(),
		OriginURL:  mustParseURL(t, server.URL),
		Generation: "v1",
		Precache:   []string{"/", "/missing.png"},
		Logger:     &log.Logger,
	})

	err := engine.Install(context.Background())
	var precacheErr *PrecacheError
	if !errors.As(err, &precacheErr) {
		t.Fatalf("err is %v", err)
	}
	if precacheErr.URL != "/missing.png" || precacheErr.Status != http.StatusNotFound {
		t.Fatalf("precache error is %+v", precacheErr)
	}

	// the failed generation never claims control; requests pass through
	if got := engine.ActiveGeneration(); got != "" {
		t.Fatalf("active generation is %q", got)
	}
	shellCount = 0
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if shellCount != 2 {
		t.Fatalf("origin called %d times, expected pass-through", shellCount)
	}
}

func TestActivateSweepsOldGenerations(t *testing.T) {
	provider := store.NewMemory()
	ctx := context.Background()
	for _, tag := range []string{"v1", "v2"} {
		h, err := provider.Open(ctx, tag)
		if err != nil {
			t.Fatal(err)
		}
		if err := h.Put(ctx, "GET:/", storedValue("shell "+tag)); err != nil {
			t.Fatal(err)
		}
	}

	engine := New(Config{
		Store:      provider,
		OriginURL:  mustParseURL(t, "http://origin.invalid"),
		Generation: "v2",
		Logger:     &log.Logger,
	})
	if err := engine.Activate(ctx); err != nil {
		t.Fatal(err)
	}

	tags, err := provider.Generations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "v2" {
		t.Fatalf("generations are %v", tags)
	}
	if got := engine.ActiveGeneration(); got != "v2" {
		t.Fatalf("active generation is %q", got)
	}
}

func TestSkipWaitingMessage(t *testing.T) {
	spy := newSpyStore(store.NewMemory())
	engine := New(Config{
		Store:      spy,
		OriginURL:  mustParseURL(t, "http://origin.invalid"),
		Generation: "v1",
		Logger:     &log.Logger,
	})
	ctx := context.Background()

	// unrecognized message types are ignored silently
	engine.HandleMessage(ctx, Message{Type: "PING"})
	if got := engine.ActiveGeneration(); got != "" {
		t.Fatalf("active generation is %q", got)
	}
	if n := spy.openCalls(); n != 0 {
		t.Fatalf("store opened %d times", n)
	}

	// the skip-waiting message triggers takeover exactly once per message
	engine.HandleMessage(ctx, Message{Type: MessageSkipWaiting})
	if got := engine.ActiveGeneration(); got != "v1" {
		t.Fatalf("active generation is %q", got)
	}
	if n := spy.openCalls(); n != 1 {
		t.Fatalf("store opened %d times", n)
	}
}
