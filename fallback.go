package offlinecache

import (
	"io"
	"net/http"
	"strings"
)

// offlinePage is the fixed document served to navigations when neither the
// store nor the network can satisfy the request.
const offlinePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Offline</title>
<style>
body { font-family: system-ui, sans-serif; display: flex; flex-direction: column;
       align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
button { font-size: 1rem; padding: 0.5rem 1.5rem; cursor: pointer; }
</style>
</head>
<body>
<h1>You are offline</h1>
<p>This page is not available without a network connection.</p>
<button onclick="location.reload()">Retry</button>
</body>
</html>
`

// newFallbackResponse synthesizes a response for a request that neither the
// store nor the network could satisfy. Navigations and other requests that
// accept HTML get the offline notice page with status 200; everything else
// gets 503 with no body. Deterministic, no I/O, never fails.
func newFallbackResponse(r *http.Request) *http.Response {
	if wantsHTML(r) {
		header := make(http.Header)
		header.Set("Content-Type", "text/html; charset=utf-8")
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Header:        header,
			Body:          io.NopCloser(strings.NewReader(offlinePage)),
			ContentLength: int64(len(offlinePage)),
			Request:       r,
		}
	}
	return &http.Response{
		StatusCode: http.StatusServiceUnavailable,
		Status:     "503 Service Unavailable",
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    r,
	}
}

// wantsHTML reports whether the request is a document navigation or
// otherwise expects an HTML response.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
