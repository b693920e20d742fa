package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":            "/",
		"/":           "/",
		"//":          "/",
		"/health":     "/health",
		"/health/":    "/health",
		"/generate//": "/generate",
		"/a/b/":       "/a/b",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWrap_NormalizesPath(t *testing.T) {
	var seen string
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/", nil))
	if seen != "/health" {
		t.Errorf("path = %q, want /health", seen)
	}
}

func TestWrap_RecoversPanic(t *testing.T) {
	h := Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/generate", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing on panic response")
	}
	if !strings.Contains(w.Body.String(), `"ok":false`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
