package openapi

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/vitalvas/routedoc/mux"
)

// HierarchyMode selects how operations are grouped into tags.
type HierarchyMode string

const (
	// HierarchyPath tags an operation with the leading literal segments of
	// its pattern and nests tags by prefix.
	HierarchyPath HierarchyMode = "path"
	// HierarchyModule tags an operation with the module it was registered
	// in, one group per module.
	HierarchyModule HierarchyMode = "module"
	// HierarchyFlat puts every operation under a single tag.
	HierarchyFlat HierarchyMode = "flat"
)

// FlatTag is the only tag emitted in flat mode.
const FlatTag = "All"

// ParseHierarchyMode maps a configuration value and its aliases to a mode.
// Unknown values fall back to HierarchyPath.
func ParseHierarchyMode(s string) HierarchyMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "module", "module_file", "file", "routefile":
		return HierarchyModule
	case "flat", "none", "normal", "simple":
		return HierarchyFlat
	}
	return HierarchyPath
}

// ContainerTag returns the leading literal segments of pattern joined by
// "/", or "default" when the pattern starts with a parameter or is the root.
func ContainerTag(pattern string) string {
	var lits []string
	for seg := range strings.SplitSeq(strings.Trim(pattern, "/"), "/") {
		if seg == "" {
			continue
		}
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			break
		}
		lits = append(lits, seg)
	}
	if len(lits) == 0 {
		return "default"
	}
	return strings.Join(lits, "/")
}

// moduleTag names the module of an operation: the explicit module set on
// the node or an ancestor, else the base name of the file the handler was
// registered from, else the first literal of the pattern with a ".go"
// suffix. The source file is a best-effort fallback; set modules
// explicitly when the tag matters.
func moduleTag(docs *Annotations, n *mux.Node, pattern string) string {
	if n != nil {
		if name, ok := docs.ModuleOf(n); ok {
			return name
		}
		if src := n.Source(); src != "" {
			return filepath.Base(src)
		}
	}
	first, _, _ := strings.Cut(ContainerTag(pattern), "/")
	return first + ".go"
}

// tagDescription returns the configured description of tag or the mode
// default.
func tagDescription(mode HierarchyMode, tag string, overrides map[string]string) string {
	if d, ok := overrides[tag]; ok {
		return d
	}
	switch mode {
	case HierarchyModule:
		return "Endpoints from " + tag
	case HierarchyFlat:
		if tag == FlatTag {
			return "All endpoints"
		}
		return "Endpoints"
	}
	return "Endpoints under /" + tag
}

// buildTags returns the sorted tag list and the tag groups for mode.
func buildTags(mode HierarchyMode, used map[string]bool, overrides map[string]string) ([]Tag, []TagGroup) {
	if len(used) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	slices.Sort(names)

	tags := make([]Tag, len(names))
	for i, name := range names {
		tags[i] = Tag{Name: name, Description: tagDescription(mode, name, overrides)}
	}

	switch mode {
	case HierarchyFlat:
		return tags, nil
	case HierarchyModule:
		groups := make([]TagGroup, len(names))
		for i, name := range names {
			groups[i] = TagGroup{Name: name, Tags: []string{name}}
		}
		return tags, groups
	}
	return tags, pathTagGroups(names)
}

// pathTagGroups builds one group per prefix of every tag, ordered by depth
// and then name. A group lists, sorted, the tags exactly one level below its
// prefix and the prefix itself when it is a tag.
func pathTagGroups(names []string) []TagGroup {
	isTag := make(map[string]bool, len(names))
	prefixSet := make(map[string]bool)
	for _, name := range names {
		isTag[name] = true
		parts := strings.Split(name, "/")
		for i := range parts {
			prefixSet[strings.Join(parts[:i+1], "/")] = true
		}
	}

	prefixes := make([]string, 0, len(prefixSet))
	for p := range prefixSet {
		prefixes = append(prefixes, p)
	}
	slices.SortFunc(prefixes, func(a, b string) int {
		if da, db := strings.Count(a, "/"), strings.Count(b, "/"); da != db {
			return da - db
		}
		return strings.Compare(a, b)
	})

	groups := make([]TagGroup, 0, len(prefixes))
	for _, prefix := range prefixes {
		kids := []string{}
		for _, name := range names {
			rest, ok := strings.CutPrefix(name, prefix+"/")
			if ok && rest != "" && !strings.Contains(rest, "/") {
				kids = append(kids, name)
			}
		}
		if isTag[prefix] {
			kids = append(kids, prefix)
		}
		slices.Sort(kids)
		groups = append(groups, TagGroup{Name: prefix, Tags: kids})
	}
	return groups
}
