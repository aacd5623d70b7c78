// Package scope parses and validates the hierarchical namespace paths
// ("scopes") memories are organized under. It does no I/O; scope nodes are
// derived by walking the set of scope values stored in the metadata store,
// never persisted on their own (spec §3, §4.5).
package scope

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	maxTotalLength = 255
	maxSegmentLen  = 50
)

// FilterKind selects how a scope filter matches stored scopes.
type FilterKind int

const (
	FilterAny FilterKind = iota
	FilterExact
	FilterPrefix
)

// Filter is the scope_filter contract used by C2/C3 (spec §4.2/§4.3).
type Filter struct {
	Kind  FilterKind
	Scope string
}

func Any() Filter              { return Filter{Kind: FilterAny} }
func Exact(s string) Filter    { return Filter{Kind: FilterExact, Scope: s} }
func Prefix(s string) Filter   { return Filter{Kind: FilterPrefix, Scope: s} }

// Matches reports whether candidate (assumed already canonical) satisfies f.
func (f Filter) Matches(candidate string) bool {
	switch f.Kind {
	case FilterAny:
		return true
	case FilterExact:
		return candidate == f.Scope
	case FilterPrefix:
		return IsAncestor(f.Scope, candidate)
	default:
		return false
	}
}

// Parse validates s and returns its canonical form, or an error describing
// the first rule violated.
func Parse(s string) (string, error) {
	normalized := norm.NFC.String(s)
	trimmed := strings.Trim(normalized, "/")
	if trimmed == "" {
		return "", fmt.Errorf("scope: empty path")
	}
	if utf8.RuneCountInString(trimmed) > maxTotalLength {
		return "", fmt.Errorf("scope: exceeds max length %d", maxTotalLength)
	}
	rawSegments := strings.Split(trimmed, "/")
	segments := make([]string, 0, len(rawSegments))
	for _, seg := range rawSegments {
		if seg == "" {
			return "", fmt.Errorf("scope: empty segment in %q", s)
		}
		if err := validateSegment(seg); err != nil {
			return "", err
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/"), nil
}

func validateSegment(seg string) error {
	if utf8.RuneCountInString(seg) > maxSegmentLen {
		return fmt.Errorf("scope: segment %q exceeds max length %d", seg, maxSegmentLen)
	}
	if seg == "." || seg == ".." {
		return fmt.Errorf("scope: segment %q is reserved", seg)
	}
	if strings.HasPrefix(seg, ".") {
		return fmt.Errorf("scope: segment %q may not start with '.'", seg)
	}
	if strings.Contains(seg, "/") {
		return fmt.Errorf("scope: segment %q may not contain '/'", seg)
	}
	return nil
}

// Canonical returns the canonical form of s, panicking-free: on error it
// returns the best-effort trimmed input so callers that already validated
// upstream can use it for display purposes. Callers that need the error
// must use Parse.
func Canonical(s string) string {
	c, err := Parse(s)
	if err != nil {
		return strings.Trim(norm.NFC.String(s), "/")
	}
	return c
}

// IsAncestor reports whether q is p itself or a descendant of p
// (child_of(p, q) per spec §4.5).
func IsAncestor(p, q string) bool {
	if p == "" {
		return true
	}
	if q == p {
		return true
	}
	return strings.HasPrefix(q, p+"/")
}

// Segments splits a canonical scope into its path components.
func Segments(canonicalScope string) []string {
	if canonicalScope == "" {
		return nil
	}
	return strings.Split(canonicalScope, "/")
}

// Parent returns the parent scope of a canonical scope, or "" at the root.
func Parent(canonicalScope string) string {
	segs := Segments(canonicalScope)
	if len(segs) <= 1 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], "/")
}

// Join appends a child segment to a canonical scope prefix; prefix may be
// empty to produce a root-level scope.
func Join(prefix, child string) string {
	child = strings.Trim(child, "/")
	if prefix == "" {
		return child
	}
	if child == "" {
		return prefix
	}
	return prefix + "/" + child
}

// Node is a derived scope-tree entry, computed by walking the distinct
// scope values observed in the metadata store (spec §4.5: "Derived, not
// stored").
type Node struct {
	Scope    string
	Children []string
	Count    int
}

// BuildTree derives the scope tree from a flat list of (scope, count)
// observations, e.g. produced by iterating the metadata store's scope
// index.
func BuildTree(counts map[string]int) []Node {
	parents := make(map[string][]string)
	for s := range counts {
		p := Parent(s)
		parents[p] = append(parents[p], s)
	}
	nodes := make([]Node, 0, len(counts))
	for s, n := range counts {
		nodes = append(nodes, Node{Scope: s, Children: parents[s], Count: n})
	}
	return nodes
}
