package api

import (
	"github.com/starford/docdustry/internal/docservice"
)

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response (aliased from the domain layer).
type DocumentListItem = docservice.DocumentListItem

// BuildSummary is the latest build outcome (aliased from the domain layer).
type BuildSummary = docservice.BuildSummary

// DocumentListResponse wraps document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	DID     string `json:"did" example:"getting-started" validate:"required"`
	Title   string `json:"title" example:"Getting started" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the documents linking to one document.
type BacklinksResponse struct {
	DID       string   `json:"did" example:"getting-started" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}
