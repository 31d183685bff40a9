// Package offlinecache implements an offline-first caching agent for
// single-page applications. It fronts the application origin, intercepts each
// request and decides whether to serve a stored response, fetch a fresh one,
// or synthesize an offline fallback, so the application keeps working without
// connectivity after an initial visit.
package offlinecache

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/offline-cache/offline-cache/store"
)

type Config struct {
	// Storage for cached response generations.
	Store store.Provider
	// URL of the origin server.
	OriginURL url.URL
	// Hostname to use for HTTP requests and TLS negotiation.
	// Use if needed if e.g. the origin URL is just an IP address.
	OriginHost string
	// Tag naming the current cache generation. Bumping it on deployment is
	// the sole mechanism for invalidating all previously stored entries.
	Generation string
	// URLs fetched and stored during install. Defaults to the application
	// shell manifest (DefaultPrecacheManifest) if nil.
	Precache []string
	// Hostnames served network-first (frequently-updated external hosts,
	// e.g. font servers). Defaults to DefaultNetworkFirstHosts if nil.
	NetworkFirstHosts []string
	// DeferActivation makes a successful install wait for an explicit
	// Activate or a skip-waiting message instead of taking over immediately.
	DeferActivation bool
	// Logger to use. The global zerolog logger is used if nil.
	Logger *zerolog.Logger
}

// Engine is the cache policy engine. It implements http.Handler; every
// request served through it is routed to a retrieval strategy or passed
// through to the origin untouched.
type Engine struct {
	store           store.Provider
	origin          url.URL
	originHost      string
	generation      string
	precache        []string
	networkFirst    map[string]struct{}
	deferActivation bool
	current         atomic.Pointer[activeGeneration]
	client          *http.Client
	log             zerolog.Logger
}

// activeGeneration is the generation currently claimed to serve requests.
type activeGeneration struct {
	tag    string
	handle store.Handle
}

// New initializes the engine. The returned engine serves everything
// pass-through until a generation has been installed and activated.
func New(config Config) *Engine {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter())
	} else {
		logger = *config.Logger
	}

	// create a child logger and add defaults
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Str("generation", config.Generation).
		Logger()

	precache := config.Precache
	if precache == nil {
		precache = DefaultPrecacheManifest
	}
	hosts := config.NetworkFirstHosts
	if hosts == nil {
		hosts = DefaultNetworkFirstHosts
	}
	networkFirst := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		networkFirst[h] = struct{}{}
	}

	client := &http.Client{}
	if config.OriginHost != "" {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				ServerName: config.OriginHost,
			},
		}
	}

	return &Engine{
		store:           config.Store,
		origin:          config.OriginURL,
		originHost:      config.OriginHost,
		generation:      config.Generation,
		precache:        precache,
		networkFirst:    networkFirst,
		deferActivation: config.DeferActivation,
		client:          client,
		log:             logger,
	}
}

// ServeHTTP implements the http.Handler interface.
// It is the interception point for every request the application makes.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch e.route(r) {
	case routeNetworkFirst:
		e.serve(w, r, e.networkFirstStrategy)
	case routeCacheFirst:
		e.serve(w, r, e.cacheFirstStrategy)
	default:
		e.passThrough(w, r)
	}
}

type strategyFunc func(ctx context.Context, h store.Handle, r *http.Request) (*http.Response, source, error)

func (e *Engine) serve(w http.ResponseWriter, r *http.Request, strategy strategyFunc) {
	active := e.current.Load()
	if active == nil {
		// no generation has claimed control yet
		e.log.Trace().Str("url", r.URL.String()).Msg("No active generation, passing through")
		e.passThrough(w, r)
		return
	}
	res, src, err := strategy(r.Context(), active.handle, r)
	if err != nil {
		e.log.Error().Err(err).Str("url", r.URL.String()).Msg("Store failure while serving request")
		http.Error(w, "cache unavailable", http.StatusBadGateway)
		return
	}
	e.send(w, r, res, src)
}

// passThrough forwards the request to the network untouched,
// without consulting or writing the store.
func (e *Engine) passThrough(w http.ResponseWriter, r *http.Request) {
	res, err := e.fetch(r.Context(), r)
	if err != nil {
		e.log.Error().Err(err).Str("url", r.URL.String()).Msg("Could not reach origin")
		http.Error(w, "could not reach origin", http.StatusBadGateway)
		return
	}
	e.send(w, r, res, sourceBypass)
}

func (e *Engine) send(w http.ResponseWriter, r *http.Request, res *http.Response, src source) {
	if res.Body != nil {
		defer res.Body.Close()
	}
	copyHeader(w.Header(), res.Header)
	w.Header().Set("X-Offline-Cache", string(src))
	w.WriteHeader(res.StatusCode)
	bytesWritten, err := io.Copy(w, res.Body)
	if err != nil {
		e.log.Error().Err(err).Msg("Could not write response body to client")
	}
	e.logRequest(r, res, src)
	e.log.Trace().Msgf("Wrote body (%d bytes)", bytesWritten)
}

func (e *Engine) logRequest(r *http.Request, res *http.Response, src source) {
	isHit := 0
	if src == sourceCache {
		isHit = 1
	}
	e.log.Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("source", string(src)).
		Int("status", res.StatusCode).
		Int("hit", isHit).
		Msg("Sending response to client")
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// this is a workaround to remove default headers sent by an upstream proxy
		// some servers do not like the presence of these headers in the downstream request
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}

// requestKey returns the store key for a request: method plus URL.
func requestKey(r *http.Request) string {
	if r.URL.IsAbs() {
		return store.Key(r.Method, r.URL.String())
	}
	return store.Key(r.Method, r.URL.RequestURI())
}

// requestHost returns the hostname a request is addressed to,
// without any port.
func requestHost(r *http.Request) string {
	if h := r.URL.Hostname(); h != "" {
		return h
	}
	host := r.Host
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
