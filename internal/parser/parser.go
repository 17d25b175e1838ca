// Package parser reads the bodies of docdustry directive blocks and detects
// front-matter blocks in Markdown sources.
package parser

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
)

// Directive languages recognized on fenced code blocks.
const (
	MetaDirective    = "docdustry-docmeta"
	ListingDirective = "docdustry-doclist"
)

// Meta holds the fields set by a metadata directive.
type Meta struct {
	ID     string
	Status string
	Tags   []string
}

// ParseMeta reads `key: value` lines. Recognized keys are status, id and tag;
// tag may repeat. Unknown keys and lines without a colon are ignored.
func ParseMeta(body string) Meta {
	var m Meta
	for _, kv := range pairs(body) {
		switch kv.key {
		case "status":
			m.Status = kv.value
		case "id":
			m.ID = kv.value
		case "tag":
			if kv.value != "" {
				m.Tags = append(m.Tags, kv.value)
			}
		}
	}
	return m
}

// FilterKind is the kind of a listing filter line.
type FilterKind int

const (
	OnlyIfTagged FilterKind = iota
	SkipIfTagged
)

// Filter is one step of a listing directive's filter chain.
type Filter struct {
	Kind FilterKind
	Tag  string
}

// Keep reports whether a document carrying tags survives this filter.
func (f Filter) Keep(hasTag func(string) bool) bool {
	switch f.Kind {
	case OnlyIfTagged:
		return hasTag(f.Tag)
	case SkipIfTagged:
		return !hasTag(f.Tag)
	}
	return true
}

// ParseListing reads the filter chain of a listing directive in order.
func ParseListing(body string) []Filter {
	var out []Filter
	for _, kv := range pairs(body) {
		switch kv.key {
		case "only-if-tagged":
			out = append(out, Filter{Kind: OnlyIfTagged, Tag: kv.value})
		case "skip-if-tagged":
			out = append(out, Filter{Kind: SkipIfTagged, Tag: kv.value})
		}
	}
	return out
}

// HasFrontmatter reports whether src opens with a YAML, TOML or JSON
// front-matter block.
func HasFrontmatter(src []byte) bool {
	var discard map[string]any
	_, err := frontmatter.MustParse(bytes.NewReader(src), &discard)
	return err == nil
}

type pair struct {
	key   string
	value string
}

func pairs(body string) []pair {
	var out []pair
	for _, line := range strings.Split(body, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		out = append(out, pair{key: strings.TrimSpace(k), value: strings.TrimSpace(v)})
	}
	return out
}
