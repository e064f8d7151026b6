package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDumpHandler(t *testing.T) {
	var out bytes.Buffer
	var seen []byte
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = io.ReadAll(r.Body)
	})

	req := httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"a":1}`))
	DumpHandler(next, &out).ServeHTTP(httptest.NewRecorder(), req)

	if have, want := out.String(), "POST /inventory\n{\"a\":1}\n"; have != want {
		t.Errorf("dump: have: %q, want: %q", have, want)
	}
	// body must still be readable downstream
	if have, want := string(seen), `{"a":1}`; have != want {
		t.Errorf("body: have: %q, want: %q", have, want)
	}
}

func TestCORSHandler(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewCORSHandler(next)

	req := httptest.NewRequest(http.MethodDelete, "/inventory/AA11", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Error("expected next handler to be called")
	}
	if have, want := rec.Header().Get("Access-Control-Allow-Origin"), "*"; have != want {
		t.Errorf("allow origin: have: %q, want: %q", have, want)
	}

	// preflight
	called = false
	req = httptest.NewRequest(http.MethodOptions, "/inventory/AA11", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("preflight should not reach next handler")
	}
	if have, want := rec.Header().Get("Access-Control-Allow-Origin"), "*"; have != want {
		t.Errorf("preflight allow origin: have: %q, want: %q", have, want)
	}
	if have := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(have, http.MethodPut) {
		t.Errorf("preflight allow methods missing PUT: %q", have)
	}
}
