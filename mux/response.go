package mux

import (
	"net/http"

	"github.com/goccy/go-json"
)

// ResponseJSON encodes v as JSON and writes it to the response with the given
// status code. The Content-Type header is set to "application/json".
// If encoding fails, an HTTP 500 Internal Server Error is written instead.
func ResponseJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(data, '\n'))
}
