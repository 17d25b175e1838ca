// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the persisted docdustry corpus to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/docdustry/internal/apperr"
	"github.com/starford/docdustry/internal/index"
	"github.com/starford/docdustry/internal/render"
)

const directivesURI = "docdustry://directives"

// Server wraps the MCP server with docdustry tools.
type Server struct {
	mcp *server.MCPServer
	db  index.DocumentIndex
}

// New creates a new MCP server with all tools registered.
func New(db index.DocumentIndex, version string) *Server {
	s := &Server{db: db}

	s.mcp = server.NewMCPServer(
		"docdustry",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document sources and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the Markdown source of a document."),
		mcp.WithString("did", mcp.Required(), mcp.Description("Document id (as used in did: links)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents, or those carrying a tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("did", mcp.Required(), mcp.Description("Id of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_build_report",
		mcp.WithDescription("Outcome of the latest build: counts, abandoned ids and skipped paths."),
	), s.getBuildReport)

	s.mcp.AddTool(mcp.NewTool("get_directives",
		mcp.WithDescription("Returns the reference for docdustry's metadata, listing and transclusion syntax. "+
			"Call this before writing documents for the corpus."),
	), s.getDirectives)

	// Resource: directive reference.
	s.mcp.AddResource(
		mcp.NewResource(directivesURI, "Directive Reference",
			mcp.WithResourceDescription("Metadata, listing and transclusion syntax understood by docdustry."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDirectivesResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, index.DefaultSearchLimit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	did, err := req.RequireString("did")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := s.db.GetDocument(did)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", did)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(row.Raw), nil
}

type listEntry struct {
	DID   string   `json:"did"`
	Title string   `json:"title"`
	Path  string   `json:"path"`
	Tags  []string `json:"tags"`
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")

	rows, err := s.db.ListDocuments(tag)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries := make([]listEntry, 0, len(rows))
	for _, r := range rows {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		entries = append(entries, listEntry{DID: r.DID, Title: r.Title, Path: r.Path, Tags: tags})
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

type buildReport struct {
	FinishedAt string   `json:"finished_at"`
	Discovered int      `json:"discovered"`
	Resolved   int      `json:"resolved"`
	Abandoned  []string `json:"abandoned"`
	Skipped    []string `json:"skipped"`
	Dangling   int      `json:"dangling"`
	Passes     int      `json:"passes"`
	Duration   string   `json:"duration"`
}

func (s *Server) getBuildReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := s.db.LatestBuild()
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("no build recorded yet"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(buildReport{
		FinishedAt: b.FinishedAt.Format(time.RFC3339),
		Discovered: b.Discovered,
		Resolved:   b.Resolved,
		Abandoned:  b.Abandoned,
		Skipped:    b.Skipped,
		Dangling:   b.Dangling,
		Passes:     b.Passes,
		Duration:   b.Duration.String(),
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDirectives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DirectiveReference), nil
}

func (s *Server) readDirectivesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      directivesURI,
			MIMEType: "text/markdown",
			Text:     DirectiveReference,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	did, err := req.RequireString("did")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(render.TransclusionScheme + strings.TrimPrefix(did, render.TransclusionScheme))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}
