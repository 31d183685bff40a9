package offlinecache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFallbackResponse(t *testing.T) {
	tests := []struct {
		name       string
		accept     string
		fetchDest  string
		wantStatus int
		wantHTML   bool
	}{
		{"navigation", "", "document", http.StatusOK, true},
		{"accepts html", "text/html,application/xhtml+xml", "", http.StatusOK, true},
		{"image", "image/png", "image", http.StatusServiceUnavailable, false},
		{"no accept header", "", "", http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/something", nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			if tt.fetchDest != "" {
				req.Header.Set("Sec-Fetch-Dest", tt.fetchDest)
			}

			res := newFallbackResponse(req)
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status is %d", res.StatusCode)
			}
			body, err := io.ReadAll(res.Body)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantHTML {
				if !strings.Contains(string(body), "You are offline") {
					t.Fatalf("body is %s", body)
				}
			} else if len(body) != 0 {
				t.Fatalf("body is %s", body)
			}
		})
	}
}

func TestFallbackIsDeterministic(t *testing.T) {
	req := httptest.NewRequest("GET", "/app", nil)
	req.Header.Set("Accept", "text/html")

	first, _ := io.ReadAll(newFallbackResponse(req).Body)
	second, _ := io.ReadAll(newFallbackResponse(req).Body)
	if string(first) != string(second) {
		t.Fatal("fallback bodies differ between calls")
	}
}
