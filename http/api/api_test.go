package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		expected   int
	}{
		{"not found", http.StatusNotFound, http.StatusNotFound},
		{"default", 0, http.StatusInternalServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSONError(rec, errors.New("Item not found"), test.statusCode)

			if have, want := rec.Code, test.expected; have != want {
				t.Errorf("status: have: %v, want: %v", have, want)
			}
			if have, want := rec.Header().Get("Content-Type"), "application/json"; have != want {
				t.Errorf("content type: have: %v, want: %v", have, want)
			}
			if have, want := rec.Body.String(), "{\"error\":\"Item not found\"}\n"; have != want {
				t.Errorf("body: have: %q, want: %q", have, want)
			}
		})
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := JSON(rec, []string{}, 0); err != nil {
		t.Fatal(err)
	}
	if have, want := rec.Code, http.StatusOK; have != want {
		t.Errorf("status: have: %v, want: %v", have, want)
	}
	if have, want := rec.Body.String(), "[]\n"; have != want {
		t.Errorf("body: have: %q, want: %q", have, want)
	}
}
