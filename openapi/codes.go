package openapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// CodeSources is everything EffectiveCodes needs to know about one
// operation.
type CodeSources struct {
	// Preset is the configured override for the operation, if any.
	Preset []int
	// Observed is the set of codes recorded from live traffic.
	Observed []int
	// Declared is the set of codes from the operation's documentation.
	Declared []int
	// RequiredInputs is true when the route has a required path
	// parameter, query parameter or header.
	RequiredInputs bool
	// Include500 adds 500 to preset and observed sets.
	Include500 bool
}

// EffectiveCodes returns the status codes to publish for an operation, in
// ascending order. The first non-empty source wins and sources are never
// merged:
//
//  1. the preset, plus 500 when Include500 is set;
//  2. the observed codes, plus 500 when Include500 is set;
//  3. the declared codes;
//  4. a default: 201 for POST, 204 for DELETE and 200 otherwise, then 400
//     when the route has required inputs, then 500.
func EffectiveCodes(method string, src CodeSources) []int {
	var codes []int
	switch {
	case len(src.Preset) > 0:
		codes = slices.Clone(src.Preset)
		if src.Include500 {
			codes = append(codes, http.StatusInternalServerError)
		}
	case len(src.Observed) > 0:
		codes = slices.Clone(src.Observed)
		if src.Include500 {
			codes = append(codes, http.StatusInternalServerError)
		}
	case len(src.Declared) > 0:
		codes = slices.Clone(src.Declared)
	default:
		codes = []int{SuccessCode(method)}
		if src.RequiredInputs {
			codes = append(codes, http.StatusBadRequest)
		}
		codes = append(codes, http.StatusInternalServerError)
	}

	slices.Sort(codes)
	return slices.Compact(codes)
}

// SuccessCode returns the default success status for method.
func SuccessCode(method string) int {
	switch strings.ToUpper(method) {
	case http.MethodPost:
		return http.StatusCreated
	case http.MethodDelete:
		return http.StatusNoContent
	}
	return http.StatusOK
}

// StatusText returns the reason phrase for code, or "Status <code>" for
// codes net/http does not know.
func StatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "Status " + strconv.Itoa(code)
}

func joinCodes(codes []int) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ",")
}
