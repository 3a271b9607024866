package mux

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
)

// BindJSON decodes the request body as JSON into v.
// Unknown fields are rejected. Exactly one JSON value must be present in
// the body; trailing data is an error.
func BindJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected trailing data after JSON value")
	}

	return nil
}
