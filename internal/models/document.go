// Package models defines the domain types for docdustry.
package models

import "github.com/starford/docdustry/internal/address"

// State is the resolution state of a Document.
type State int

const (
	StateDiscovered State = iota
	StateFirstPassDone
	StatePending
	StateResolved
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateFirstPassDone:
		return "first_pass_done"
	case StatePending:
		return "pending"
	case StateResolved:
		return "resolved"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Document is one Markdown source file and its derived render state.
type Document struct {
	ID     string
	Title  string
	Status string
	Tags   []string
	Links  []string
	URL    string

	// PendingIncludes holds ids this document transcludes but has not obtained yet.
	PendingIncludes []string
	// RawSource is kept while the document still needs another translation pass.
	RawSource string
	HTML      string

	SourcePathRelative string // slash separated, relative to SourceRootBase
	SourceRootBase     string

	State    State
	Attempts int
}

// NewDocument returns a discovered document for the file rel under root.
func NewDocument(root, rel string) *Document {
	return &Document{
		SourceRootBase:     root,
		SourcePathRelative: rel,
		State:              StateDiscovered,
	}
}

// OutputPath returns the document's page location relative to the output directory.
func (d *Document) OutputPath() string {
	return address.OutputPath(d.SourcePathRelative)
}

// Finished reports whether the document will not be translated again.
func (d *Document) Finished() bool {
	return d.State == StateResolved || d.State == StateAbandoned
}

// Meta returns the listing projection of the document.
func (d *Document) Meta() DocumentMeta {
	return DocumentMeta{
		ID:    d.ID,
		Title: d.Title,
		Tags:  append([]string(nil), d.Tags...),
	}
}

// Record returns the serializable subset handed to page and index writers.
func (d *Document) Record() Record {
	return Record{
		DID:    d.ID,
		Title:  d.Title,
		Status: d.Status,
		Links:  nonNil(d.Links),
		Tags:   nonNil(d.Tags),
		URL:    d.URL,
	}
}

// DocumentMeta is the frozen {id, title, tags} view used by the listing directive.
type DocumentMeta struct {
	ID    string
	Title string
	Tags  []string
}

// HasTag reports whether tag is among the document's tags.
func (m DocumentMeta) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Record is the client-side JSON view of a document.
type Record struct {
	DID    string   `json:"did"`
	Title  string   `json:"title"`
	Status string   `json:"status"`
	Links  []string `json:"links"`
	Tags   []string `json:"tags"`
	URL    string   `json:"url"`
}

// Snapshot projects docs into the listing metadata sequence, preserving order.
func Snapshot(docs []*Document) []DocumentMeta {
	out := make([]DocumentMeta, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Meta())
	}
	return out
}

// Records projects docs into their serializable records, preserving order.
func Records(docs []*Document) []Record {
	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Record())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
