package offlinecache

import (
	"context"
	"net/http"
	"sync"

	"github.com/offline-cache/offline-cache/store"
)

// Message is a control message delivered to the engine.
type Message struct {
	Type string `json:"type"`
}

// MessageSkipWaiting asks an installed generation to take over immediately
// instead of waiting for an explicit activation.
const MessageSkipWaiting = "SKIP_WAITING"

// Install brings the configured generation from nonexistent to populated:
// it opens the store for the generation tag and fetches every precache
// manifest URL from the network into it.
//
// The install is atomic across the manifest: the first URL that cannot be
// fetched with a 200 fails the whole install with a *PrecacheError, and the
// generation is not considered ready. Unless the engine was configured to
// defer activation, a successful install activates immediately.
func (e *Engine) Install(ctx context.Context) error {
	h, err := e.store.Open(ctx, e.generation)
	if err != nil {
		return err
	}
	for _, u := range e.precache {
		if err := e.precacheURL(ctx, h, u); err != nil {
			e.log.Error().Err(err).Str("url", u).Msg("Precache failed, install aborted")
			return err
		}
		e.log.Debug().Str("url", u).Msg("Precached")
	}
	e.log.Info().Int("assets", len(e.precache)).Msg("Install complete")
	if e.deferActivation {
		return nil
	}
	return e.Activate(ctx)
}

func (e *Engine) precacheURL(ctx context.Context, h store.Handle, u string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &PrecacheError{URL: u, Err: err}
	}
	res, err := e.fetch(ctx, req)
	if err != nil {
		return &PrecacheError{URL: u, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return &PrecacheError{URL: u, Status: res.StatusCode}
	}
	value, err := responseToBytes(res)
	if err != nil {
		return &PrecacheError{URL: u, Err: err}
	}
	if err := h.Put(ctx, store.Key(http.MethodGet, u), value); err != nil {
		return &PrecacheError{URL: u, Err: err}
	}
	return nil
}

// Activate retires every generation other than the configured one and then
// claims control: it atomically publishes the new generation's handle, so all
// subsequent intercepted requests are served by it without a restart.
// Deletions run in parallel; Activate waits for all of them and fails before
// claiming if any deletion failed.
func (e *Engine) Activate(ctx context.Context) error {
	tags, err := e.store.Generations(ctx)
	if err != nil {
		return err
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(tags))
	for _, tag := range tags {
		if tag == e.generation {
			continue
		}
		wg.Add(1)
		go func(tag string) {
			defer wg.Done()
			if err := e.store.DeleteGeneration(ctx, tag); err != nil {
				e.log.Error().Err(err).Str("tag", tag).Msg("Could not delete superseded generation")
				errs <- err
				return
			}
			e.log.Debug().Str("tag", tag).Msg("Deleted superseded generation")
		}(tag)
	}
	wg.Wait()
	select {
	case err := <-errs:
		return err
	default:
	}

	h, err := e.store.Open(ctx, e.generation)
	if err != nil {
		return err
	}
	e.current.Store(&activeGeneration{tag: e.generation, handle: h})
	e.log.Info().Msg("Generation activated")
	return nil
}

// HandleMessage processes a control message. A skip-waiting message triggers
// the immediate-takeover action; unrecognized message types are silently
// ignored.
func (e *Engine) HandleMessage(ctx context.Context, msg Message) {
	switch msg.Type {
	case MessageSkipWaiting:
		e.log.Debug().Msg("Skip-waiting requested")
		if err := e.Activate(ctx); err != nil {
			e.log.Error().Err(err).Msg("Could not activate generation")
		}
	default:
		e.log.Trace().Str("type", msg.Type).Msg("Ignoring message")
	}
}

// ActiveGeneration returns the tag of the generation currently serving
// requests, or the empty string if no generation has claimed control yet.
func (e *Engine) ActiveGeneration() string {
	if active := e.current.Load(); active != nil {
		return active.tag
	}
	return ""
}
