package mux

import (
	"fmt"
	"strings"
)

// segment is one parsed element of a path template.
type segment struct {
	kind  SelectorKind
	value string
}

// parseTemplate splits a path template into selector segments:
//
//	/users          literal
//	/{id}           parameter
//	/{id?}          optional parameter
//	/{*}            single-segment wildcard
//	/{**}           tailcard, also /{rest...}
//
// Empty segments are ignored, so "/users/" and "users" parse the same.
// Braces must enclose a whole segment.
func parseTemplate(tpl string) ([]segment, error) {
	var segs []segment
	for part := range strings.SplitSeq(tpl, "/") {
		if part == "" {
			continue
		}
		s, err := parseSegment(part)
		if err != nil {
			return nil, fmt.Errorf("mux: invalid path template %q: %w", tpl, err)
		}
		segs = append(segs, s)
	}
	for i, s := range segs {
		if s.kind == SelectorTailcard && i != len(segs)-1 {
			return nil, fmt.Errorf("mux: invalid path template %q: tailcard must be the last segment", tpl)
		}
	}
	if err := checkDuplicateVars(segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func parseSegment(part string) (segment, error) {
	open := strings.IndexByte(part, '{')
	closing := strings.LastIndexByte(part, '}')
	if open < 0 && closing < 0 {
		return segment{kind: SelectorLiteral, value: part}, nil
	}
	if open != 0 || closing != len(part)-1 || strings.Count(part, "{") != 1 || strings.Count(part, "}") != 1 {
		return segment{}, fmt.Errorf("unbalanced or partial braces in %q", part)
	}

	inner := part[1 : len(part)-1]
	switch {
	case inner == "*":
		return segment{kind: SelectorWildcard}, nil
	case inner == "**":
		return segment{kind: SelectorTailcard}, nil
	case strings.HasSuffix(inner, "..."):
		name := strings.TrimSuffix(inner, "...")
		if name == "" {
			return segment{}, fmt.Errorf("empty tailcard name in %q", part)
		}
		return segment{kind: SelectorTailcard, value: name}, nil
	case strings.HasSuffix(inner, "?"):
		name := strings.TrimSuffix(inner, "?")
		if name == "" {
			return segment{}, fmt.Errorf("empty variable name in %q", part)
		}
		return segment{kind: SelectorOptionalParam, value: name}, nil
	case inner == "":
		return segment{}, fmt.Errorf("empty variable name in %q", part)
	}
	return segment{kind: SelectorParam, value: inner}, nil
}

// checkDuplicateVars returns an error if any variable name is repeated.
func checkDuplicateVars(segs []segment) error {
	seen := make(map[string]bool, len(segs))
	for _, s := range segs {
		if s.kind == SelectorLiteral || s.value == "" {
			continue
		}
		if seen[s.value] {
			return fmt.Errorf("mux: duplicated route variable %q", s.value)
		}
		seen[s.value] = true
	}
	return nil
}

// splitPath splits a request path into non-empty segments.
func splitPath(p string) []string {
	var out []string
	for part := range strings.SplitSeq(p, "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
