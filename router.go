package offlinecache

import (
	"net/http"
	"strings"
)

type route int

const (
	// routePassThrough declines interception; the request goes to the
	// network untouched and the store is never consulted.
	routePassThrough route = iota
	routeCacheFirst
	routeNetworkFirst
)

// source tags where a response came from,
// reported in the X-Offline-Cache response header.
type source string

const (
	sourceCache    source = "hit"
	sourceNetwork  source = "network"
	sourceFallback source = "fallback"
	sourceBypass   source = "bypass"
)

// route classifies a request. The ordering is deliberate: static, versioned
// application assets get instant cache hits, while externally-hosted
// resources that change independently of app deployment stay fresh when
// connectivity exists and degrade to cache when offline.
func (e *Engine) route(r *http.Request) route {
	if r.Method != http.MethodGet {
		return routePassThrough
	}
	// covers extension-internal and other non-network schemes;
	// relative request URLs have no scheme and are always http(s)
	if r.URL.Scheme != "" && !strings.HasPrefix(r.URL.Scheme, "http") {
		return routePassThrough
	}
	if _, ok := e.networkFirst[requestHost(r)]; ok {
		return routeNetworkFirst
	}
	return routeCacheFirst
}
