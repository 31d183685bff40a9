package offlinecache

import (
	"context"
	"net/http"

	"github.com/offline-cache/offline-cache/store"
)

// cacheFirstStrategy serves a stored response if one exists, otherwise
// fetches from the network. A fresh 200 is stored before being returned;
// any other status is returned as-is and never stored, so error pages
// cannot poison the store. A failed fetch resolves to the offline fallback.
// The returned error is only ever a store read failure.
func (e *Engine) cacheFirstStrategy(ctx context.Context, h store.Handle, r *http.Request) (*http.Response, source, error) {
	key := requestKey(r)
	if value, ok, err := h.Match(ctx, key); err != nil {
		return nil, "", err
	} else if ok {
		res, err := bytesToResponse(value)
		if err == nil {
			e.log.Trace().Str("key", key).Msg("Serving stored response")
			return res, sourceCache, nil
		}
		// unreadable entry, fall through to the network
		e.log.Error().Err(err).Str("key", key).Msg("Could not read stored response")
	}
	res, err := e.fetch(ctx, r)
	if err != nil {
		e.log.Debug().Err(err).Str("key", key).Msg("Network failed, synthesizing fallback")
		return newFallbackResponse(r), sourceFallback, nil
	}
	if res.StatusCode == http.StatusOK {
		e.storeResponse(ctx, h, key, res)
	}
	return res, sourceNetwork, nil
}

// networkFirstStrategy tries the network before the store, so resources on
// frequently-updated external hosts stay fresh while connectivity exists.
// Offline, it degrades to a stored response and finally to the fallback.
func (e *Engine) networkFirstStrategy(ctx context.Context, h store.Handle, r *http.Request) (*http.Response, source, error) {
	key := requestKey(r)
	res, err := e.fetch(ctx, r)
	if err == nil {
		if res.StatusCode == http.StatusOK {
			e.storeResponse(ctx, h, key, res)
		}
		return res, sourceNetwork, nil
	}
	e.log.Debug().Err(err).Str("key", key).Msg("Network failed, trying store")
	if value, ok, merr := h.Match(ctx, key); merr != nil {
		return nil, "", merr
	} else if ok {
		if stored, derr := bytesToResponse(value); derr == nil {
			return stored, sourceCache, nil
		} else {
			e.log.Error().Err(derr).Str("key", key).Msg("Could not read stored response")
		}
	}
	return newFallbackResponse(r), sourceFallback, nil
}

// storeResponse writes an independent duplicate of the response into the
// store. The caller keeps a readable body; a response body can only be
// consumed once, and serializing it leaves a fresh reader behind. Write
// failures are logged, not propagated: a good network response is still
// returned even if it could not be stored.
func (e *Engine) storeResponse(ctx context.Context, h store.Handle, key string, res *http.Response) {
	value, err := responseToBytes(res)
	if err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("Could not serialize response")
		return
	}
	if err := h.Put(ctx, key, value); err != nil {
		e.log.Error().Err(err).Str("key", key).Msg("Could not write to store")
		return
	}
	e.log.Trace().Str("key", key).Msg("Stored response")
}

// fetch retrieves the resource for r from the network. Relative request URLs
// are resolved against the configured origin; absolute-form URLs are fetched
// directly.
func (e *Engine) fetch(ctx context.Context, r *http.Request) (*http.Response, error) {
	uri := r.URL.String()
	if !r.URL.IsAbs() {
		uri = e.origin.String() + r.URL.RequestURI()
	}
	// need to specifically set body to nil on the outgoing request if content is zero length
	// see https://github.com/golang/go/issues/16036
	body := r.Body
	if r.ContentLength == 0 {
		body = nil
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, uri, body)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, r.Header)
	// do not forward connection header, this causes trouble
	req.Header.Del("Connection")
	if e.originHost != "" && !r.URL.IsAbs() {
		req.Host = e.originHost
	}
	return e.client.Do(req)
}
