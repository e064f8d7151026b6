// Package http includes serving-layer handlers and utilities.
package http

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/cors"
)

// ReadAllAndReplaceBody reads all of r.Body and replaces it with a new byte buffer.
func ReadAllAndReplaceBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return b, err
	}
	defer r.Body.Close()
	r.Body = io.NopCloser(bytes.NewBuffer(b))
	return b, nil
}

// DumpHandler outputs the method, path and body of the request to output.
// Requests without a body only output the request line.
func DumpHandler(next http.Handler, output io.Writer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := ReadAllAndReplaceBody(r)
		line := []byte(r.Method + " " + r.URL.Path + "\n")
		if len(body) > 0 {
			line = append(append(line, body...), '\n')
		}
		output.Write(line)
		next.ServeHTTP(w, r)
	}
}

// NewCORSHandler permits cross-origin requests from any origin to next.
// Preflight requests are answered without reaching next.
func NewCORSHandler(next http.Handler) http.Handler {
	return cors.AllowAll().Handler(next)
}
